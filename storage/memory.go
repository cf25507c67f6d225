package storage

import (
	"context"
	"sync"

	"github.com/Sheulydsp/kanban-dashboard/domain"
)

// Memory keeps the snapshot in process memory.
type Memory struct {
	mu    sync.Mutex
	tasks []domain.Task
	saves int
}

// NewMemory returns a repository seeded with tasks.
func NewMemory(tasks ...domain.Task) *Memory {
	return &Memory{tasks: domain.CloneTasks(tasks)}
}

func (m *Memory) Load(ctx context.Context) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.CloneTasks(m.tasks), nil
}

func (m *Memory) Save(ctx context.Context, tasks []domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = domain.CloneTasks(tasks)
	m.saves++
	return nil
}

// Saves reports how many snapshots have been written.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
