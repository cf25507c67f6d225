package board

import (
	"context"
	"sync"

	"github.com/Sheulydsp/kanban-dashboard/domain"
)

type fakeRepo struct {
	mu      sync.Mutex
	stored  []domain.Task
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeRepo) Load(ctx context.Context) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return domain.CloneTasks(f.stored), nil
}

func (f *fakeRepo) Save(ctx context.Context, tasks []domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.stored = domain.CloneTasks(tasks)
	return nil
}

func (f *fakeRepo) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}
