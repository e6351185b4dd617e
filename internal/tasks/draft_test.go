package tasks

import (
	"errors"
	"testing"

	"github.com/quicksapp/quicks/internal/cache"
	"github.com/quicksapp/quicks/internal/model"
)

func TestDraftDiscardOnEmptyTitle(t *testing.T) {
	s, store := testService(t)
	seedTasks(t, store, []model.Task{{ID: 1, Title: "existing"}})
	d := NewDrafts(s)

	draft, err := d.Begin(model.ModeMyTask)
	if err != nil {
		t.Fatal(err)
	}
	if draft.ID != 2 || !draft.NewTask {
		t.Errorf("draft = %+v", draft)
	}

	committed, tasks, err := d.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if committed {
		t.Error("empty-title draft must not be committed")
	}
	if len(tasks) != 1 {
		t.Errorf("collection changed: %+v", tasks)
	}

	// The persisted collection is untouched.
	persisted, err := cache.GetCollection[[]model.Task](store, cache.ItemTask)
	if err != nil {
		t.Fatal(err)
	}
	if len(persisted) != 1 {
		t.Errorf("persisted = %+v", persisted)
	}
}

func TestDraftCommitOnTitle(t *testing.T) {
	s, store := testService(t)
	seedTasks(t, store, []model.Task{{ID: 1, Title: "existing"}})
	d := NewDrafts(s)

	if _, err := d.Begin(model.ModeUrgently); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Set(model.Task{Title: "ship it", DueDate: "2024-08-01"}); err != nil {
		t.Fatal(err)
	}

	committed, tasks, err := d.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if !committed {
		t.Fatal("titled draft should be committed")
	}
	if len(tasks) != 2 {
		t.Fatalf("tasks = %+v", tasks)
	}
	got := tasks[1]
	if got.ID != 2 || got.Title != "ship it" || got.NewTask {
		t.Errorf("committed task = %+v", got)
	}
	if got.TaskMode != model.ModeUrgently {
		t.Errorf("mode = %q, want bucket from Begin", got.TaskMode)
	}

	persisted, err := cache.GetCollection[[]model.Task](store, cache.ItemTask)
	if err != nil {
		t.Fatal(err)
	}
	if len(persisted) != 2 {
		t.Errorf("persisted = %+v", persisted)
	}
}

func TestDraftSingleAtATime(t *testing.T) {
	s, _ := testService(t)
	d := NewDrafts(s)

	if _, err := d.Begin(model.ModeMyTask); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Begin(model.ModeMyTask); !errors.Is(err, ErrDraftInProgress) {
		t.Errorf("err = %v, want ErrDraftInProgress", err)
	}

	// After resolving, a new draft may begin.
	if _, _, err := d.Resolve(); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Begin(model.ModeErrand); err != nil {
		t.Errorf("Begin after Resolve: %v", err)
	}
}

func TestDraftSetWithoutBegin(t *testing.T) {
	s, _ := testService(t)
	d := NewDrafts(s)
	if _, err := d.Set(model.Task{Title: "x"}); !errors.Is(err, ErrNoDraft) {
		t.Errorf("err = %v, want ErrNoDraft", err)
	}
	if _, _, err := d.Resolve(); !errors.Is(err, ErrNoDraft) {
		t.Errorf("Resolve err = %v, want ErrNoDraft", err)
	}
}

func TestDraftInvalidMode(t *testing.T) {
	s, _ := testService(t)
	d := NewDrafts(s)
	if _, err := d.Begin(model.TaskMode("Someday")); err == nil {
		t.Error("expected error for invalid bucket")
	}
}

func TestDraftCommitAfterInterleavedCreate(t *testing.T) {
	s, store := testService(t)
	seedTasks(t, store, []model.Task{{ID: 1, Title: "existing"}})
	d := NewDrafts(s)

	draft, err := d.Begin(model.ModeMyTask)
	if err != nil {
		t.Fatal(err)
	}
	if draft.ID != 2 {
		t.Fatalf("draft id = %d, want 2", draft.ID)
	}

	// A task created while the draft is open takes the reserved id.
	if _, err := s.Create(model.Task{Title: "other", TaskMode: model.ModeErrand}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Set(model.Task{Title: "mine"}); err != nil {
		t.Fatal(err)
	}

	committed, tasks, err := d.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if !committed {
		t.Fatal("draft with title must be committed")
	}
	if len(tasks) != 3 {
		t.Fatalf("got %d tasks, want 3: %+v", len(tasks), tasks)
	}
	seen := make(map[int64]string, len(tasks))
	for _, task := range tasks {
		if prev, dup := seen[task.ID]; dup {
			t.Fatalf("duplicate id %d: %q and %q", task.ID, prev, task.Title)
		}
		seen[task.ID] = task.Title
	}
	if seen[2] != "other" || seen[3] != "mine" {
		t.Errorf("ids assigned wrong: %v", seen)
	}
}
