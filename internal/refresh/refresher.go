// Package refresh keeps the persisted cache warm: a background loop that
// re-fetches any collection whose freshness window has lapsed.
package refresh

import (
	"context"
	"time"

	"github.com/quicksapp/quicks/internal/bus"
	"github.com/quicksapp/quicks/internal/cache"
	"github.com/quicksapp/quicks/internal/loader"
	"github.com/quicksapp/quicks/internal/status"
	"go.uber.org/zap"
)

// PassResult is the payload of cache.refreshed events.
type PassResult struct {
	Refreshed int
	Failed    int
}

// Refresher periodically walks the known collections and re-primes the
// expired ones through the loader. User-facing reads never wait on it.
type Refresher struct {
	loader   *loader.Loader
	machine  *status.Machine
	bus      *bus.Bus
	logger   *zap.Logger
	interval time.Duration
	cancel   context.CancelFunc
}

// New creates a refresher. A non-positive interval disables it.
func New(l *loader.Loader, m *status.Machine, b *bus.Bus, logger *zap.Logger, interval time.Duration) *Refresher {
	return &Refresher{
		loader:   l,
		machine:  m,
		bus:      b,
		logger:   logger,
		interval: interval,
	}
}

// Start begins the refresh loop.
func (r *Refresher) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	go r.loop(ctx)
}

// Stop stops the loop.
func (r *Refresher) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Refresher) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.pass(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// pass refreshes every expired collection once. Failures leave the stale
// copy in place; the next tick retries.
func (r *Refresher) pass(ctx context.Context) PassResult {
	var result PassResult

	refresh := func(item string, fetch func() error) {
		if !r.loader.Stale(item) {
			return
		}
		if err := fetch(); err != nil {
			result.Failed++
			r.logger.Warn("refresh failed", zap.String("collection", item), zap.Error(err))
			return
		}
		result.Refreshed++
	}

	refresh(cache.ItemChat, func() error {
		_, err := r.loader.Chats(ctx, false)
		return err
	})
	refresh(cache.ItemTask, func() error {
		_, err := r.loader.Tasks(ctx, false)
		return err
	})
	refresh(cache.ItemProfile, func() error {
		_, err := r.loader.Profile(ctx)
		return err
	})

	// Message collections exist per cached chat; an unprimed chat list
	// means there is nothing to walk yet.
	if chats, err := r.loader.Chats(ctx, true); err == nil {
		for _, c := range chats {
			chatID := c.ID
			refresh(cache.MessageItem(chatID), func() error {
				_, err := r.loader.Messages(ctx, chatID, false)
				return err
			})
		}
	}

	if r.machine != nil {
		if result.Failed > 0 {
			_ = r.machine.Transition(status.Degraded)
		} else if r.machine.Current() == status.Degraded {
			_ = r.machine.Transition(status.Ready)
		}
	}

	if r.bus != nil && (result.Refreshed > 0 || result.Failed > 0) {
		r.bus.Publish(bus.Event{Kind: "cache.refreshed", Payload: result})
	}
	return result
}
