// Package tasks implements the optimistic task mutations plus the
// transient new-task draft. All four collection mutations are
// last-write-wins over the full task list.
package tasks

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

// ErrTaskNotFound is returned when Complete or Update names an unknown id.
var ErrTaskNotFound = errors.New("tasks: task not found")

// TaskEvent is the payload of task.* bus events.
type TaskEvent struct {
	TaskID int64
}

// Service mutates the cached task collection.
type Service struct {
	store  cache.Store
	bus    *bus.Bus
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewService creates a task service over the given store.
func NewService(store cache.Store, b *bus.Bus, logger *zap.Logger) *Service {
	return &Service{store: store, bus: b, logger: logger, now: time.Now}
}

// load reads the cached collection, treating never-persisted as empty so
// task creation works before the first remote prime.
func (s *Service) load() ([]model.Task, error) {
	tasks, err := cache.GetCollection[[]model.Task](s.store, cache.ItemTask)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return nil, err
	}
	return tasks, nil
}

func (s *Service) persist(tasks []model.Task, kind string, id int64) ([]model.Task, error) {
	if err := cache.PutCollection(s.store, cache.ItemTask, tasks, s.now()); err != nil {
		return nil, err
	}
	if s.bus != nil {
		s.bus.Publish(bus.Event{Kind: kind, Payload: TaskEvent{TaskID: id}})
	}
	if s.logger != nil {
		s.logger.Info("task mutation", zap.String("kind", kind), zap.Int64("task_id", id))
	}
	return tasks, nil
}

// Complete sets the isCompleted flag on the matching task.
func (s *Service) Complete(id int64, completed bool) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(tasks, func(t model.Task) bool { return t.ID == id })
	if idx < 0 {
		return nil, fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	tasks[idx].IsCompleted = completed
	return s.persist(tasks, "task.completed", id)
}

// Update replaces the matching task wholesale with the caller's data.
// The id is pinned to the path id regardless of the payload.
func (s *Service) Update(id int64, task model.Task) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(tasks, func(t model.Task) bool { return t.ID == id })
	if idx < 0 {
		return nil, fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	task.ID = id
	task.NewTask = false
	tasks[idx] = task
	return s.persist(tasks, "task.updated", id)
}

// Delete removes the matching task. Deleting an id that was never
// persisted is a no-op; that is what makes discarding a draft safe.
func (s *Service) Delete(id int64) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return nil, err
	}
	tasks = slices.DeleteFunc(tasks, func(t model.Task) bool { return t.ID == id })
	return s.persist(tasks, "task.deleted", id)
}

// Create appends the task. A zero id is assigned max(existing)+1, and so
// is an id that is already taken: a draft reserves its id at Begin time,
// so a task created while the draft is open would otherwise collide with
// it on commit.
func (s *Service) Create(task model.Task) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return nil, err
	}
	taken := slices.ContainsFunc(tasks, func(t model.Task) bool { return t.ID == task.ID })
	if task.ID == 0 || taken {
		task.ID = model.NextTaskID(tasks)
	}
	task.NewTask = false
	tasks = append(tasks, task)
	return s.persist(tasks, "task.created", task.ID)
}
