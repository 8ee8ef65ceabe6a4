package storage

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"mock-server/domain"
)

// Result describes the outcome of a mutating store operation.
type Result struct {
	Created  bool
	Removed  int
	Revision uint64
}

// Option configures a Memory store.
type Option func(*Memory)

// WithObserver registers fn to receive every applied change. fn runs while the
// store lock is held, so it sees changes in the order they were applied and
// must not block or call back into the store.
func WithObserver(fn func(domain.Change)) Option {
	return func(m *Memory) { m.observer = fn }
}

// Memory is the authoritative in-memory task collection. Tasks keep insertion
// order; replacing a task keeps its position. All operations are serialized
// by a single mutex.
type Memory struct {
	mu       sync.Mutex
	tasks    []domain.Task
	revision uint64
	observer func(domain.Change)
}

// NewMemory creates an empty store.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{tasks: make([]domain.Task, 0)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// List returns a snapshot of all tasks in store order.
func (m *Memory) List() []domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Task, len(m.tasks))
	for i, t := range m.tasks {
		out[i] = t.Clone()
	}
	return out
}

// Get returns the task with the given id.
func (m *Memory) Get(id int64) (domain.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tasks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return domain.Task{}, false
}

// Upsert replaces the task with the same id in place, or appends it.
func (m *Memory) Upsert(task domain.Task) (Result, error) {
	if !task.HasID() {
		return Result{}, &domain.ValidationError{Field: domain.IDField, Err: domain.ErrMissingID}
	}
	task = task.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()

	created := true
	for i := range m.tasks {
		if m.tasks[i].ID == task.ID {
			m.tasks[i] = task
			created = false
			break
		}
	}
	if created {
		m.tasks = append(m.tasks, task)
	}
	m.revision++

	snapshot := task.Clone()
	m.notify(domain.Change{
		Type:     domain.TaskUpserted,
		TaskID:   task.ID,
		Revision: m.revision,
		Created:  created,
		Task:     &snapshot,
	})
	return Result{Created: created, Revision: m.revision}, nil
}

// Delete removes every task with the given id. Deleting an unknown id is not
// an error and leaves the store (and its revision) untouched.
func (m *Memory) Delete(id int64) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.tasks[:0]
	for _, t := range m.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	removed := len(m.tasks) - len(kept)
	for i := len(kept); i < len(m.tasks); i++ {
		m.tasks[i] = domain.Task{}
	}
	m.tasks = kept

	if removed == 0 {
		return Result{Revision: m.revision}
	}
	m.revision++
	m.notify(domain.Change{
		Type:     domain.TaskDeleted,
		TaskID:   id,
		Revision: m.revision,
	})
	return Result{Removed: removed, Revision: m.revision}
}

// Len returns the number of stored tasks.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Revision returns the number of mutations applied so far.
func (m *Memory) Revision() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revision
}

func (m *Memory) notify(change domain.Change) {
	if m.observer == nil {
		return
	}
	change.ID = uuid.NewString()
	change.Time = time.Now().UnixNano()
	m.observer(change)
}
