// Package inbox implements the optimistic message mutations. Every
// operation is a read-modify-write against the cache store and returns
// the updated collection without a server round-trip; the chat's
// last-message mirror fields are reconciled in the same pass.
package inbox

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/quicksapp/quicks/internal/bus"
	"github.com/quicksapp/quicks/internal/cache"
	"github.com/quicksapp/quicks/internal/model"
	"go.uber.org/zap"
)

// ErrMessageNotFound is returned when an edit or delete names an id that
// is not in the chat's collection. Nothing is written in that case.
var ErrMessageNotFound = errors.New("inbox: message not found")

// MessageEvent is the payload of inbox.* bus events.
type MessageEvent struct {
	ChatID    int64
	MessageID int64
}

// Service mutates chat-scoped message collections and the global chat
// collection.
type Service struct {
	store  cache.Store
	bus    *bus.Bus
	logger *zap.Logger
	now    func() time.Time

	// mu serializes read-modify-write cycles; without it two rapid
	// mutations could lose the first one's write.
	mu sync.Mutex
}

// NewService creates an inbox service over the given store.
func NewService(store cache.Store, b *bus.Bus, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		bus:    b,
		logger: logger,
		now:    time.Now,
	}
}

// Post appends or edits a message in chatID's collection according to the
// pending compose action, reconciles the owning chat, persists both
// collections and returns the updated message collection.
//
// A nil action, a Reply or a Share appends a new message (id max+1) and
// marks every prior message read; an Edit replaces the body of the
// related message in place.
func (s *Service) Post(chatID int64, sender model.User, body string, replyTo *model.ReplyRef, action model.Action) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := cache.MessageItem(chatID)
	msgs, err := cache.GetCollection[[]model.Message](s.store, item)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	createdAt := model.FormatTime(now)
	isLast := true
	kind := "inbox.message_posted"
	var msgID int64

	appendNew := func(shared string) {
		for i := range msgs {
			msgs[i].IsReaded = true
		}
		msgID = model.NextMessageID(msgs)
		msgs = append(msgs, model.Message{
			ID:            msgID,
			ChatID:        chatID,
			SenderID:      sender.ID,
			Body:          body,
			CreatedAt:     createdAt,
			ReplyTo:       replyTo,
			SharedContent: shared,
			IsReaded:      true,
		})
	}

	switch a := action.(type) {
	case nil:
		appendNew("")
	case model.Reply:
		appendNew("")
	case model.Share:
		appendNew(a.Body)
	case model.Edit:
		idx := slices.IndexFunc(msgs, func(m model.Message) bool { return m.ID == a.RelatedMessageID })
		if idx < 0 {
			return nil, fmt.Errorf("%w: edit target %d in chat %d", ErrMessageNotFound, a.RelatedMessageID, chatID)
		}
		msgs[idx].Body = body
		msgID = a.RelatedMessageID
		isLast = idx == len(msgs)-1
		kind = "inbox.message_edited"
	default:
		return nil, fmt.Errorf("inbox: unknown compose action %T", action)
	}

	if err := cache.PutCollection(s.store, item, msgs, now); err != nil {
		return nil, err
	}

	if err := s.patchChat(chatID, now, func(c *model.Chat) {
		c.IsReaded = true
		c.LastMessage = body
		if _, edited := action.(model.Edit); !edited {
			// Edits of the last message keep its original timestamp
			// and sender.
			c.LastMessageAt = createdAt
			c.LastMessageBy = sender.ID
		}
	}, isLast); err != nil {
		return nil, err
	}

	s.publish(kind, chatID, msgID)
	return msgs, nil
}

// Read flips the listed message ids to read. Reading is monotonic: an id
// already read stays read, ids not listed are untouched. When coversLast
// is true (the triggering view reached the chat's last message) the chat
// itself is marked read.
func (s *Service) Read(chatID int64, ids []int64, coversLast bool) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := cache.MessageItem(chatID)
	msgs, err := cache.GetCollection[[]model.Message](s.store, item)
	if err != nil {
		return nil, err
	}

	now := s.now()
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for i := range msgs {
		if _, ok := set[msgs[i].ID]; ok {
			msgs[i].IsReaded = true
		}
	}

	if err := cache.PutCollection(s.store, item, msgs, now); err != nil {
		return nil, err
	}

	if err := s.patchChat(chatID, now, func(c *model.Chat) {
		c.IsReaded = true
	}, coversLast); err != nil {
		return nil, err
	}
	if coversLast {
		s.publish("inbox.chat_read", chatID, 0)
	}
	return msgs, nil
}

// Delete removes the message from chatID's collection. Deleting the
// message at the final index recomputes the chat's last-message mirror
// from the new final element; deleting the sole remaining message reverts
// the chat to its empty-state sentinel.
func (s *Service) Delete(chatID, id int64) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := cache.MessageItem(chatID)
	msgs, err := cache.GetCollection[[]model.Message](s.store, item)
	if err != nil {
		return nil, err
	}

	idx := slices.IndexFunc(msgs, func(m model.Message) bool { return m.ID == id })
	if idx < 0 {
		return nil, fmt.Errorf("%w: delete target %d in chat %d", ErrMessageNotFound, id, chatID)
	}
	wasLast := idx == len(msgs)-1
	msgs = slices.Delete(msgs, idx, idx+1)

	now := s.now()
	if err := cache.PutCollection(s.store, item, msgs, now); err != nil {
		return nil, err
	}

	if err := s.patchChat(chatID, now, func(c *model.Chat) {
		c.IsReaded = true
		if len(msgs) == 0 {
			c.LastMessage = ""
			c.LastMessageAt = ""
			c.LastMessageBy = 0
			return
		}
		last := msgs[len(msgs)-1]
		c.LastMessage = last.Body
		c.LastMessageAt = last.CreatedAt
		c.LastMessageBy = last.SenderID
	}, wasLast); err != nil {
		return nil, err
	}

	s.publish("inbox.message_deleted", chatID, id)
	return msgs, nil
}

// patchChat applies patch to the chat with the given id and persists the
// chat collection. When apply is false, the collection was never primed,
// or the chat is not in it, nothing is written: persisting here would
// stamp an empty or unchanged list fresh and mask the remote chat list
// for a full freshness window.
func (s *Service) patchChat(chatID int64, now time.Time, patch func(*model.Chat), apply bool) error {
	if !apply {
		return nil
	}
	chats, err := cache.GetCollection[[]model.Chat](s.store, cache.ItemChat)
	if errors.Is(err, cache.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(chats, func(c model.Chat) bool { return c.ID == chatID })
	if idx < 0 {
		return nil
	}
	patch(&chats[idx])
	return cache.PutCollection(s.store, cache.ItemChat, chats, now)
}

func (s *Service) publish(kind string, chatID, msgID int64) {
	if s.bus != nil {
		s.bus.Publish(bus.Event{
			Kind:    kind,
			Payload: MessageEvent{ChatID: chatID, MessageID: msgID},
		})
	}
	if s.logger != nil {
		s.logger.Info("inbox mutation",
			zap.String("kind", kind),
			zap.Int64("chat_id", chatID),
			zap.Int64("message_id", msgID),
		)
	}
}
