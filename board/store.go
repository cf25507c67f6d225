package board

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/Sheulydsp/kanban-dashboard/domain"
)

// Repository persists the full task collection as one snapshot.
type Repository interface {
	Load(ctx context.Context) ([]domain.Task, error)
	Save(ctx context.Context, tasks []domain.Task) error
}

// Op names the store operation that produced a change.
type Op string

const (
	OpLoad    Op = "load"
	OpAdd     Op = "add"
	OpUpdate  Op = "update"
	OpReorder Op = "reorder"
	OpMove    Op = "move"
)

// Change is delivered to listeners after every committed mutation.
type Change struct {
	Revision uint64        `json:"revision"`
	Op       Op            `json:"op"`
	TaskID   string        `json:"taskId,omitempty"`
	Tasks    []domain.Task `json:"tasks"`
}

// Listener observes committed changes. Listeners run synchronously on the
// mutating goroutine, after the store lock is released, so they may read
// the store. They must not call mutating store methods.
type Listener func(Change)

type subscriber struct {
	id uint64
	fn Listener
}

// Store is the authoritative in-memory task collection. Every mutation is
// written to the repository before it becomes visible.
type Store struct {
	repo   Repository
	logger *log.Logger

	mu       sync.RWMutex
	tasks    []domain.Task
	index    map[string]int
	revision uint64

	// delivered is the last revision handed to listeners. Deliveries wait
	// on turn until it reaches their predecessor so listeners see changes
	// in commit order.
	notifyMu  sync.Mutex
	turn      *sync.Cond
	delivered uint64

	subsMu  sync.Mutex
	subs    []subscriber
	nextSub uint64
}

// New creates an empty store backed by repo.
func New(repo Repository, logger *log.Logger) *Store {
	if repo == nil {
		panic("board.New: repository is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &Store{
		repo:   repo,
		logger: logger,
		tasks:  []domain.Task{},
		index:  map[string]int{},
	}
	s.turn = sync.NewCond(&s.notifyMu)
	return s
}

// Load replaces the in-memory state with the persisted collection. A
// missing or unreadable snapshot yields an empty board; any other
// repository error is returned and leaves the state untouched.
func (s *Store) Load(ctx context.Context) (err error) {
	defer func() { observe(OpLoad, err) }()

	tasks, err := s.repo.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrCorruptSnapshot) {
			return fmt.Errorf("load tasks: %w", err)
		}
		s.logger.WithError(err).Warn("stored tasks unreadable, starting with an empty board")
		tasks, err = nil, nil
	}
	tasks = s.dropDuplicates(tasks)

	s.mu.Lock()
	s.publish(s.commitLocked(OpLoad, "", tasks))
	return nil
}

// Add appends task to the collection. Ids must be unique.
func (s *Store) Add(ctx context.Context, task domain.Task) error {
	return s.mutate(ctx, OpAdd, task.ID, func(cur []domain.Task) ([]domain.Task, Op, error) {
		if _, ok := s.index[task.ID]; ok {
			return nil, OpAdd, fmt.Errorf("%w: %s", domain.ErrDuplicateTask, task.ID)
		}
		next := make([]domain.Task, len(cur), len(cur)+1)
		copy(next, cur)
		return append(next, task.Clone()), OpAdd, nil
	})
}

// Update replaces the task sharing task.ID. When no such task exists the
// collection is left as is but still written and broadcast.
func (s *Store) Update(ctx context.Context, task domain.Task) error {
	return s.mutate(ctx, OpUpdate, task.ID, func(cur []domain.Task) ([]domain.Task, Op, error) {
		next := make([]domain.Task, len(cur))
		copy(next, cur)
		if i, ok := s.index[task.ID]; ok {
			next[i] = task.Clone()
		} else {
			s.logger.WithField("task", task.ID).Debug("update for unknown task")
		}
		return next, OpUpdate, nil
	})
}

// Reorder moves sourceID to targetID's position inside the status column.
// Tasks of other columns keep their positions. If either id is not in the
// column nothing is written and ErrNotInColumn is returned.
func (s *Store) Reorder(ctx context.Context, status domain.Status, sourceID, targetID string) error {
	return s.mutate(ctx, OpReorder, sourceID, func(cur []domain.Task) ([]domain.Task, Op, error) {
		next, ok := reorderColumn(cur, status, sourceID, targetID)
		if !ok {
			return nil, OpReorder, fmt.Errorf("%w: %s", domain.ErrNotInColumn, status)
		}
		return next, OpReorder, nil
	})
}

// Move applies a drag of activeID onto overID: a reorder when both share a
// column, otherwise the active task takes over the other column's status.
func (s *Store) Move(ctx context.Context, activeID, overID string) error {
	if activeID == overID {
		return nil
	}
	return s.mutate(ctx, OpMove, activeID, func(cur []domain.Task) ([]domain.Task, Op, error) {
		ai, aok := s.index[activeID]
		oi, ook := s.index[overID]
		if !aok || !ook {
			return nil, OpMove, domain.ErrTaskNotFound
		}
		active, over := cur[ai], cur[oi]
		if active.Status == over.Status {
			next, _ := reorderColumn(cur, active.Status, activeID, overID)
			return next, OpReorder, nil
		}
		next := make([]domain.Task, len(cur))
		copy(next, cur)
		moved := active.Clone()
		moved.Status = over.Status
		next[ai] = moved
		return next, OpUpdate, nil
	})
}

// Tasks returns a copy of the full collection in stored order.
func (s *Store) Tasks() []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneTasks(s.tasks)
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return domain.Task{}, false
	}
	return s.tasks[i].Clone(), true
}

// Revision counts committed changes since the store was created.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Subscribe registers l and returns a function removing it again.
func (s *Store) Subscribe(l Listener) func() {
	s.subsMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: l})
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) mutate(ctx context.Context, op Op, taskID string, fn func([]domain.Task) ([]domain.Task, Op, error)) (err error) {
	defer func() { observe(op, err) }()

	s.mu.Lock()
	next, committedOp, err := fn(s.tasks)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.repo.Save(ctx, next); err != nil {
		s.mu.Unlock()
		s.logger.WithError(err).WithFields(log.Fields{"op": committedOp, "task": taskID}).Error("failed to persist tasks")
		return fmt.Errorf("save tasks: %w", err)
	}
	s.publish(s.commitLocked(committedOp, taskID, next))
	return nil
}

// commitLocked installs tasks as the current state. mu must be held.
func (s *Store) commitLocked(op Op, taskID string, tasks []domain.Task) Change {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	s.tasks = tasks
	s.index = make(map[string]int, len(tasks))
	for i, t := range tasks {
		s.index[t.ID] = i
	}
	s.revision++
	s.logger.WithFields(log.Fields{"op": op, "task": taskID, "revision": s.revision, "count": len(tasks)}).Debug("board.committed")
	return Change{Revision: s.revision, Op: op, TaskID: taskID, Tasks: domain.CloneTasks(tasks)}
}

// publish releases mu and delivers ch to every listener once all earlier
// revisions have been delivered.
func (s *Store) publish(ch Change) {
	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	for s.delivered+1 != ch.Revision {
		s.turn.Wait()
	}
	defer func() {
		s.delivered = ch.Revision
		s.turn.Broadcast()
	}()

	s.subsMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.fn(ch)
	}
}

func (s *Store) dropDuplicates(tasks []domain.Task) []domain.Task {
	seen := make(map[string]struct{}, len(tasks))
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := seen[t.ID]; ok {
			s.logger.WithField("task", t.ID).Warn("dropping duplicate task id from stored snapshot")
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}
