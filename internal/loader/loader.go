// Package loader decides, per collection, whether to trust the persisted
// cache or re-fetch from the remote source.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quicksapp/quicks/internal/cache"
	"github.com/quicksapp/quicks/internal/metrics"
	"github.com/quicksapp/quicks/internal/model"
	"github.com/quicksapp/quicks/internal/remote"
	"go.uber.org/zap"
)

// DefaultWindow is the freshness window: a persisted copy younger than
// this is preferred over a network fetch.
const DefaultWindow = time.Hour

// ErrCacheMiss is returned for a local-only read when nothing was ever
// persisted for the collection.
var ErrCacheMiss = errors.New("loader: collection not cached")

// Loader serves collections cache-first within the freshness window.
type Loader struct {
	store  cache.Store
	remote *remote.Client
	logger *zap.Logger
	window time.Duration
	now    func() time.Time
}

// New creates a loader. A non-positive window falls back to DefaultWindow.
func New(store cache.Store, rc *remote.Client, logger *zap.Logger, window time.Duration) *Loader {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Loader{
		store:  store,
		remote: rc,
		logger: logger,
		window: window,
		now:    time.Now,
	}
}

// Window returns the configured freshness window.
func (l *Loader) Window() time.Duration { return l.window }

// Stale reports whether the item's persisted copy is absent or older than
// the freshness window.
func (l *Loader) Stale(item string) bool {
	stamp, err := cache.Stamp(l.store, item)
	if err != nil {
		return true
	}
	return l.now().Sub(stamp) > l.window
}

// load returns the freshest known collection for item.
//
// A persisted copy wins when local is requested or when it is still within
// the freshness window; otherwise the collection is fetched, persisted with
// a fresh stamp and returned. A fetch performed is a fetch kept: unlike a
// pure write-behind cache, the fetched value is always what the caller
// gets. A failed fetch leaves any stale persisted copy untouched.
func load[T any](ctx context.Context, l *Loader, item, path string, local bool) (T, error) {
	var zero T

	cached, err := cache.GetCollection[T](l.store, item)
	var corrupt *cache.CorruptError
	if errors.As(err, &corrupt) {
		return zero, err
	}
	haveCache := err == nil

	if haveCache {
		if local || !l.Stale(item) {
			metrics.CacheHits.WithLabelValues(item).Inc()
			return cached, nil
		}
	}
	metrics.CacheMisses.WithLabelValues(item).Inc()

	if local {
		return zero, fmt.Errorf("%w: %s", ErrCacheMiss, item)
	}

	metrics.RemoteFetches.WithLabelValues(item).Inc()
	raw, err := l.remote.Fetch(ctx, path)
	if err != nil {
		metrics.RemoteFetchFailures.WithLabelValues(item).Inc()
		l.logger.Warn("remote fetch failed", zap.String("collection", item), zap.Error(err))
		return zero, err
	}

	var fresh T
	if err := json.Unmarshal(raw, &fresh); err != nil {
		return zero, fmt.Errorf("decode %s collection: %w", item, err)
	}
	if err := cache.PutCollection(l.store, item, fresh, l.now()); err != nil {
		return zero, fmt.Errorf("persist %s collection: %w", item, err)
	}
	return fresh, nil
}

// Chats returns the chat list.
func (l *Loader) Chats(ctx context.Context, local bool) ([]model.Chat, error) {
	return load[[]model.Chat](ctx, l, cache.ItemChat, remote.PathChats, local)
}

// Messages returns a chat's message collection.
func (l *Loader) Messages(ctx context.Context, chatID int64, local bool) ([]model.Message, error) {
	return load[[]model.Message](ctx, l, cache.MessageItem(chatID), remote.MessagesPath(chatID), local)
}

// Tasks returns the task list.
func (l *Loader) Tasks(ctx context.Context, local bool) ([]model.Task, error) {
	return load[[]model.Task](ctx, l, cache.ItemTask, remote.PathTasks, local)
}

// Profile returns the current user.
func (l *Loader) Profile(ctx context.Context) (model.User, error) {
	return load[model.User](ctx, l, cache.ItemProfile, remote.PathProfile, false)
}
