package tasks

import (
	"errors"
	"testing"
	"time"

	"github.com/quicksapp/quicks/internal/bus"
	"github.com/quicksapp/quicks/internal/cache"
	"github.com/quicksapp/quicks/internal/model"
	"go.uber.org/zap"
)

func testService(t *testing.T) (*Service, *cache.Memory) {
	t.Helper()
	store := cache.NewMemory()
	return NewService(store, bus.New(), zap.NewNop()), store
}

func seedTasks(t *testing.T, store cache.Store, tasks []model.Task) {
	t.Helper()
	if err := cache.PutCollection(store, cache.ItemTask, tasks, time.Now()); err != nil {
		t.Fatal(err)
	}
}

func TestComplete(t *testing.T) {
	s, store := testService(t)
	seedTasks(t, store, []model.Task{
		{ID: 1, Title: "a", TaskMode: model.ModeMyTask},
		{ID: 2, Title: "b", TaskMode: model.ModeMyTask},
	})

	tasks, err := s.Complete(2, true)
	if err != nil {
		t.Fatal(err)
	}
	if !tasks[1].IsCompleted || tasks[0].IsCompleted {
		t.Errorf("tasks = %+v", tasks)
	}

	// Uncomplete works too.
	tasks, err = s.Complete(2, false)
	if err != nil {
		t.Fatal(err)
	}
	if tasks[1].IsCompleted {
		t.Errorf("task 2 still completed: %+v", tasks[1])
	}
}

func TestCompleteUnknown(t *testing.T) {
	s, store := testService(t)
	seedTasks(t, store, []model.Task{{ID: 1}})
	if _, err := s.Complete(9, true); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestUpdateReplacesWholesale(t *testing.T) {
	s, store := testService(t)
	seedTasks(t, store, []model.Task{
		{ID: 1, Title: "old", Description: "d", TaskMode: model.ModeMyTask, Stickers: []int64{1}},
	})

	tasks, err := s.Update(1, model.Task{
		ID:       999, // ignored, pinned to path id
		Title:    "new",
		DueDate:  "2024-07-01",
		TaskMode: model.ModeUrgently,
		Stickers: []int64{2, 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := tasks[0]
	if got.ID != 1 {
		t.Errorf("id = %d, want pinned to 1", got.ID)
	}
	if got.Title != "new" || got.Description != "" || got.TaskMode != model.ModeUrgently {
		t.Errorf("task = %+v, want wholesale replacement", got)
	}
	if len(got.Stickers) != 2 {
		t.Errorf("stickers = %v", got.Stickers)
	}
}

func TestDelete(t *testing.T) {
	s, store := testService(t)
	seedTasks(t, store, []model.Task{{ID: 1}, {ID: 2}})

	tasks, err := s.Delete(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].ID != 2 {
		t.Errorf("tasks = %+v", tasks)
	}

	// Unknown id is a no-op, not an error.
	tasks, err = s.Delete(42)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestCreateAssignsID(t *testing.T) {
	s, store := testService(t)
	seedTasks(t, store, []model.Task{{ID: 3}, {ID: 7}})

	tasks, err := s.Create(model.Task{Title: "new", TaskMode: model.ModeErrand})
	if err != nil {
		t.Fatal(err)
	}
	got := tasks[len(tasks)-1]
	if got.ID != 8 {
		t.Errorf("id = %d, want 8", got.ID)
	}
}

func TestCreateOnEmptyStore(t *testing.T) {
	s, _ := testService(t)

	tasks, err := s.Create(model.Task{Title: "first", TaskMode: model.ModeMyTask})
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].ID != 1 {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestMutationPublishesEvent(t *testing.T) {
	store := cache.NewMemory()
	b := bus.New()
	s := NewService(store, b, zap.NewNop())
	seedTasks(t, store, []model.Task{{ID: 1}})

	ch, unsub := b.Subscribe("task.", 10)
	defer unsub()

	if _, err := s.Complete(1, true); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-ch:
		if evt.Kind != "task.completed" {
			t.Errorf("kind = %q", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for task.completed")
	}
}

func TestCreateReassignsTakenID(t *testing.T) {
	s, store := testService(t)
	seedTasks(t, store, []model.Task{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}})

	tasks, err := s.Create(model.Task{ID: 2, Title: "c", TaskMode: model.ModeMyTask})
	if err != nil {
		t.Fatal(err)
	}
	created := tasks[len(tasks)-1]
	if created.ID != 3 {
		t.Errorf("created id = %d, want 3", created.ID)
	}
}

func TestPersistStampsInjectedClock(t *testing.T) {
	s, store := testService(t)
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	if _, err := s.Create(model.Task{Title: "a", TaskMode: model.ModeMyTask}); err != nil {
		t.Fatal(err)
	}
	stamp, err := cache.Stamp(store, cache.ItemTask)
	if err != nil {
		t.Fatal(err)
	}
	if !stamp.Equal(fixed) {
		t.Errorf("stamp = %v, want %v", stamp, fixed)
	}
}
