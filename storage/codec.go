package storage

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/Sheulydsp/kanban-dashboard/domain"
)

// encodeSnapshot renders tasks as the persisted JSON array.
func encodeSnapshot(tasks []domain.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return sonic.Marshal(tasks)
}

// decodeSnapshot parses a persisted JSON array. Empty input is an empty
// board; undecodable input wraps domain.ErrCorruptSnapshot.
func decodeSnapshot(data []byte) ([]domain.Task, error) {
	if len(data) == 0 {
		return []domain.Task{}, nil
	}
	var tasks []domain.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptSnapshot, err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}
