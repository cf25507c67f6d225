package api

import (
	"context"

	"github.com/Sheulydsp/kanban-dashboard/board"
	"github.com/Sheulydsp/kanban-dashboard/domain"
)

// BoardStore is the part of *board.Store the handlers need.
type BoardStore interface {
	Tasks() []domain.Task
	Get(id string) (domain.Task, bool)
	Columns() []board.Column
	Revision() uint64
	Add(ctx context.Context, task domain.Task) error
	Update(ctx context.Context, task domain.Task) error
	Reorder(ctx context.Context, status domain.Status, sourceID, targetID string) error
	Move(ctx context.Context, activeID, overID string) error
}

// Deduper remembers which task an Idempotency-Key created.
type Deduper interface {
	// Claim records taskID under key. When the key is already taken it
	// returns the task id stored first and false.
	Claim(ctx context.Context, key, taskID string) (string, bool, error)
	// Remove forgets key, used when creating the task fails.
	Remove(ctx context.Context, key string) error
}

type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

type boardResponse struct {
	Revision uint64         `json:"revision"`
	Columns  []board.Column `json:"columns"`
}

type reorderRequest struct {
	Status   domain.Status `json:"status"`
	SourceID string        `json:"sourceId"`
	TargetID string        `json:"targetId"`
}

type moveRequest struct {
	ActiveID string `json:"activeId"`
	OverID   string `json:"overId"`
}

type errorResponse struct {
	Error  string                   `json:"error"`
	Fields []domain.ValidationError `json:"fields,omitempty"`
}
