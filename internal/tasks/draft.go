package tasks

import (
	"errors"
	"sync"

	"github.com/quicksapp/quicks/internal/model"
)

// Draft errors.
var (
	ErrDraftInProgress = errors.New("tasks: a draft is already in progress")
	ErrNoDraft         = errors.New("tasks: no draft in progress")
)

// Drafts holds the transient new-task placeholder. A draft lives only in
// memory until Resolve commits it; a draft whose title is still empty is
// discarded without ever touching the cache.
type Drafts struct {
	svc *Service

	mu      sync.Mutex
	current *model.Task
}

// NewDrafts creates the draft tracker bound to a task service.
func NewDrafts(svc *Service) *Drafts {
	return &Drafts{svc: svc}
}

// Begin starts a draft in the given bucket. Only one draft may exist at a
// time. The draft's id is reserved from the current collection but not
// persisted.
func (d *Drafts) Begin(mode model.TaskMode) (model.Task, error) {
	if !mode.Valid() {
		return model.Task{}, errors.New("tasks: invalid task mode")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != nil {
		return model.Task{}, ErrDraftInProgress
	}

	existing, err := d.svc.load()
	if err != nil {
		return model.Task{}, err
	}
	draft := model.Task{
		ID:       model.NextTaskID(existing),
		TaskMode: mode,
		NewTask:  true,
	}
	d.current = &draft
	return draft, nil
}

// Current returns the in-progress draft, if any.
func (d *Drafts) Current() (model.Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return model.Task{}, false
	}
	return *d.current, true
}

// Set amends the in-progress draft. Id, bucket and the newTask flag are
// kept from the draft itself.
func (d *Drafts) Set(task model.Task) (model.Task, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return model.Task{}, ErrNoDraft
	}
	task.ID = d.current.ID
	task.NewTask = true
	if !task.TaskMode.Valid() {
		task.TaskMode = d.current.TaskMode
	}
	d.current = &task
	return task, nil
}

// Resolve ends the draft: commit it through Create when the title is
// non-empty, discard it otherwise. This is the outside-click / panel-close
// path; either way the tracker is empty afterwards.
func (d *Drafts) Resolve() (committed bool, tasks []model.Task, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return false, nil, ErrNoDraft
	}
	draft := *d.current
	d.current = nil

	if draft.Title == "" {
		// Never persisted, nothing to delete.
		tasks, err := d.svc.load()
		return false, tasks, err
	}

	draft.NewTask = false
	tasks, err = d.svc.Create(draft)
	return err == nil, tasks, err
}
