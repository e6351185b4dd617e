package model

import "time"

// User is the profile entity returned by the remote source. It is never
// mutated locally.
type User struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar"`
}

// Chat is a conversation thread. The lastMessage/lastMessageAt/lastMessageBy
// fields mirror the most recent surviving message of the chat's message
// collection and must be reconciled after every mutation.
type Chat struct {
	ID            int64  `json:"id"`
	Label         string `json:"label"`
	Participants  []User `json:"participants"`
	LastMessage   string `json:"lastMessage"`
	LastMessageAt string `json:"lastMessageAt"`
	LastMessageBy int64  `json:"lastMessageBy,omitempty"`
	IsReaded      bool   `json:"isReaded"`
	IsGroup       bool   `json:"isGroup"`
}

// Message belongs to exactly one chat-scoped collection. IsReaded only
// ever flips false -> true.
type Message struct {
	ID            int64     `json:"id"`
	ChatID        int64     `json:"chatId"`
	SenderID      int64     `json:"senderId,omitempty"`
	Body          string    `json:"body"`
	CreatedAt     string    `json:"createdAt"`
	ReplyTo       *ReplyRef `json:"replyTo,omitempty"`
	SharedContent string    `json:"sharedContent,omitempty"`
	IsReaded      bool      `json:"isReaded"`
}

// TaskMode names the bucket a task belongs to. A task is in exactly one.
type TaskMode string

const (
	ModeMyTask   TaskMode = "My Task"
	ModeErrand   TaskMode = "Personal Errand"
	ModeUrgently TaskMode = "Urgently To-Do"
)

// Valid reports whether the mode is one of the known buckets.
func (m TaskMode) Valid() bool {
	switch m {
	case ModeMyTask, ModeErrand, ModeUrgently:
		return true
	}
	return false
}

// Task is a todo item. NewTask marks an in-memory draft that has not been
// committed to the cache yet.
type Task struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DueDate     string   `json:"dueDate"`
	IsCompleted bool     `json:"isCompleted"`
	TaskMode    TaskMode `json:"taskMode"`
	NewTask     bool     `json:"newTask,omitempty"`
	Stickers    []int64  `json:"stickers,omitempty"`
}

// FormatTime renders the wire timestamp format: local wall clock stamped
// with a literal Z suffix. The remote source uses the same shape, so
// locally created messages sort consistently with fetched ones.
func FormatTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000") + "Z"
}

// NextMessageID returns max(existing ids, default 0) + 1.
func NextMessageID(msgs []Message) int64 {
	var max int64
	for _, m := range msgs {
		if m.ID > max {
			max = m.ID
		}
	}
	return max + 1
}

// NextTaskID returns max(existing ids, default 0) + 1.
func NextTaskID(tasks []Task) int64 {
	var max int64
	for _, t := range tasks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}
