package refresh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quicksapp/quicks/internal/bus"
	"github.com/quicksapp/quicks/internal/cache"
	"github.com/quicksapp/quicks/internal/loader"
	"github.com/quicksapp/quicks/internal/model"
	"github.com/quicksapp/quicks/internal/remote"
	"github.com/quicksapp/quicks/internal/status"
	"go.uber.org/zap"
)

func testRefresher(t *testing.T, healthy bool) (*Refresher, cache.Store, *status.Machine, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !healthy {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		switch r.URL.Path {
		case "/profile":
			_, _ = w.Write([]byte(`{"id":1,"name":"me","avatar":null}`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	t.Cleanup(srv.Close)

	store := cache.NewMemory()
	l := loader.New(store, remote.New(srv.URL), zap.NewNop(), 0)
	m := status.NewMachine(nil)
	if err := m.Transition(status.Priming); err != nil {
		t.Fatal(err)
	}
	if err := m.Transition(status.Ready); err != nil {
		t.Fatal(err)
	}
	r := New(l, m, bus.New(), zap.NewNop(), time.Minute)
	return r, store, m, &calls
}

func seedStale(t *testing.T, store cache.Store, item string, v any) {
	t.Helper()
	if err := cache.PutCollection(store, item, v, time.Now().Add(-2*time.Hour)); err != nil {
		t.Fatal(err)
	}
}

func seedFresh(t *testing.T, store cache.Store, item string, v any) {
	t.Helper()
	if err := cache.PutCollection(store, item, v, time.Now()); err != nil {
		t.Fatal(err)
	}
}

func TestPassRefreshesExpiredOnly(t *testing.T) {
	r, store, _, calls := testRefresher(t, true)
	seedStale(t, store, cache.ItemTask, []model.Task{{ID: 1}})
	seedFresh(t, store, cache.ItemChat, []model.Chat{})
	seedFresh(t, store, cache.ItemProfile, model.User{ID: 1})

	result := r.pass(context.Background())
	if result.Refreshed != 1 || result.Failed != 0 {
		t.Errorf("result = %+v, want 1 refreshed", result)
	}
	if calls.Load() != 1 {
		t.Errorf("remote calls = %d, want 1 (only the stale task list)", calls.Load())
	}
}

func TestPassWalksMessageCollections(t *testing.T) {
	r, store, _, _ := testRefresher(t, true)
	seedFresh(t, store, cache.ItemChat, []model.Chat{{ID: 3}, {ID: 4}})
	seedFresh(t, store, cache.ItemTask, []model.Task{})
	seedFresh(t, store, cache.ItemProfile, model.User{ID: 1})
	seedStale(t, store, cache.MessageItem(3), []model.Message{{ID: 1, ChatID: 3}})
	// Chat 4 has never had its messages fetched: stale by absence.

	result := r.pass(context.Background())
	if result.Refreshed != 2 {
		t.Errorf("result = %+v, want both message collections refreshed", result)
	}
}

func TestPassDegradesOnFailure(t *testing.T) {
	r, store, m, _ := testRefresher(t, false)
	seedStale(t, store, cache.ItemTask, []model.Task{{ID: 1}})

	result := r.pass(context.Background())
	if result.Failed == 0 {
		t.Fatal("expected failures against a down remote")
	}
	if m.Current() != status.Degraded {
		t.Errorf("state = %s, want DEGRADED", m.Current())
	}

	// The stale copy is still served locally.
	tasks, err := cache.GetCollection[[]model.Task](store, cache.ItemTask)
	if err != nil || len(tasks) != 1 {
		t.Errorf("stale copy lost: %v %v", tasks, err)
	}
}

func TestPassRecoversToReady(t *testing.T) {
	r, store, m, _ := testRefresher(t, true)
	if err := m.Transition(status.Degraded); err != nil {
		t.Fatal(err)
	}
	seedStale(t, store, cache.ItemChat, []model.Chat{})
	seedFresh(t, store, cache.ItemTask, []model.Task{})
	seedFresh(t, store, cache.ItemProfile, model.User{})

	if result := r.pass(context.Background()); result.Failed != 0 {
		t.Fatalf("result = %+v", result)
	}
	if m.Current() != status.Ready {
		t.Errorf("state = %s, want READY after clean pass", m.Current())
	}
}

func TestStartStop(t *testing.T) {
	r, _, _, _ := testRefresher(t, true)
	r.interval = 10 * time.Millisecond
	r.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	r.Stop()
}
