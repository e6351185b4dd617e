package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("cache: key not found")

// CorruptError marks a persisted value that no longer parses as JSON.
// Callers treat it as fatal for that collection rather than silently
// resetting to empty.
type CorruptError struct {
	Key string
	Err error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("cache: corrupt value for %q: %v", e.Key, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Store is a string-keyed byte store. Implementations: sqlite (default),
// pebble, memory.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// Collection item names. Message collections are chat-scoped.
const (
	ItemChat    = "chat"
	ItemTask    = "task"
	ItemProfile = "profile"
)

// MessageItem returns the item name for a chat's message collection.
func MessageItem(chatID int64) string {
	return fmt.Sprintf("message%d", chatID)
}

// DataKey returns the persisted-collection key for an item.
func DataKey(item string) string { return item + "Data" }

// StampKey returns the timestamp key for an item. The value is epoch
// milliseconds as a decimal string.
func StampKey(item string) string { return item + "DataTimestamp" }

// GetCollection reads and decodes an item's persisted collection.
// Returns ErrNotFound when nothing was ever persisted.
func GetCollection[T any](s Store, item string) (T, error) {
	var out T
	raw, err := s.Get(DataKey(item))
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &CorruptError{Key: DataKey(item), Err: err}
	}
	return out, nil
}

// PutCollection encodes and writes an item's collection together with a
// fresh timestamp stamp.
func PutCollection(s Store, item string, v any, now time.Time) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s collection: %w", item, err)
	}
	if err := s.Set(DataKey(item), raw); err != nil {
		return err
	}
	return s.Set(StampKey(item), []byte(strconv.FormatInt(now.UnixMilli(), 10)))
}

// Stamp reads an item's last-persisted time. Returns ErrNotFound when the
// item has no stamp.
func Stamp(s Store, item string) (time.Time, error) {
	raw, err := s.Get(StampKey(item))
	if err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, &CorruptError{Key: StampKey(item), Err: err}
	}
	return time.UnixMilli(ms), nil
}
