package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/quicksapp/quicks/internal/bus"
	"github.com/quicksapp/quicks/internal/cache"
	"github.com/quicksapp/quicks/internal/config"
	"github.com/quicksapp/quicks/internal/inbox"
	"github.com/quicksapp/quicks/internal/loader"
	"github.com/quicksapp/quicks/internal/lock"
	"github.com/quicksapp/quicks/internal/logging"
	"github.com/quicksapp/quicks/internal/refresh"
	"github.com/quicksapp/quicks/internal/remote"
	"github.com/quicksapp/quicks/internal/status"
	"github.com/quicksapp/quicks/internal/tasks"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved daemon configuration passed to the fx module.
type Params struct {
	DataDir    string
	Config     *config.Config
	SocketPath string // optional override for testing; empty = use default
}

// Module returns the fx module for the daemon, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideRemote,
			provideLoader,
			provideInbox,
			provideTasks,
			provideDrafts,
			provideRefresher,
			NewHandlers,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(config.LogPath(p.DataDir))
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := config.EnsureDirs(p.DataDir); err != nil {
		return nil, err
	}
	logger.Info("acquiring data dir lock", zap.String("data_dir", p.DataDir))
	l, err := lock.Acquire(p.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Info("data dir lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (cache.Store, error) {
	path := config.StorePath(p.DataDir, p.Config.Backend)
	var (
		store cache.Store
		err   error
	)
	switch p.Config.Backend {
	case config.BackendPebble:
		store, err = cache.OpenPebble(path)
	case config.BackendSQLite:
		store, err = cache.OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", p.Config.Backend)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("cache store opened",
		zap.String("backend", p.Config.Backend),
		zap.String("path", path),
	)
	return store, nil
}

func provideRemote(p Params) *remote.Client {
	return remote.New(p.Config.BaseURL)
}

func provideLoader(p Params, store cache.Store, rc *remote.Client, logger *zap.Logger) *loader.Loader {
	return loader.New(store, rc, logger, p.Config.FreshnessWindow())
}

func provideInbox(store cache.Store, b *bus.Bus, logger *zap.Logger) *inbox.Service {
	return inbox.NewService(store, b, logger)
}

func provideTasks(store cache.Store, b *bus.Bus, logger *zap.Logger) *tasks.Service {
	return tasks.NewService(store, b, logger)
}

func provideDrafts(svc *tasks.Service) *tasks.Drafts {
	return tasks.NewDrafts(svc)
}

func provideRefresher(p Params, l *loader.Loader, m *status.Machine, b *bus.Bus, logger *zap.Logger) *refresh.Refresher {
	return refresh.New(l, m, b, logger, p.Config.RefreshInterval())
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, store cache.Store, l *loader.Loader, r *refresh.Refresher, machine *status.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Serve API requests in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("api server error", zap.Error(err))
				}
			}()

			// Prime the cache without blocking startup; the API serves
			// whatever cache exists meanwhile.
			_ = machine.Transition(status.Priming)
			go prime(l, machine, logger)

			r.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			r.Stop()
			srv.Stop(ctx)
			if err := store.Close(); err != nil {
				logger.Warn("error closing cache store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}

// prime fetches the chat, task and profile collections once, then each
// known chat's messages. Any failure leaves the daemon DEGRADED serving
// cache; the refresher retries on its own schedule.
func prime(l *loader.Loader, machine *status.Machine, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	failed := 0
	if _, err := l.Tasks(ctx, false); err != nil {
		failed++
		logger.Warn("prime tasks failed", zap.Error(err))
	}
	if _, err := l.Profile(ctx); err != nil {
		failed++
		logger.Warn("prime profile failed", zap.Error(err))
	}
	chats, err := l.Chats(ctx, false)
	if err != nil {
		failed++
		logger.Warn("prime chats failed", zap.Error(err))
	}
	for _, c := range chats {
		if _, err := l.Messages(ctx, c.ID, false); err != nil {
			failed++
			logger.Warn("prime messages failed", zap.Int64("chat_id", c.ID), zap.Error(err))
		}
	}

	if failed > 0 {
		_ = machine.Transition(status.Degraded)
		logger.Warn("cache primed with failures", zap.Int("failed", failed))
		return
	}
	_ = machine.Transition(status.Ready)
	logger.Info("cache primed", zap.Int("chats", len(chats)))
}
