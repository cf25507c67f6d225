package notify

import (
	"time"

	"github.com/Sheulydsp/kanban-dashboard/board"
)

// EventBoardChanged is the type of every outbound notification.
const EventBoardChanged = "board-changed"

// Event is the payload sent to external consumers. It carries no task
// data; consumers re-read the board.
type Event struct {
	Type     string    `json:"type"`
	Revision uint64    `json:"revision"`
	Op       board.Op  `json:"op"`
	TaskID   string    `json:"taskId,omitempty"`
	Count    int       `json:"count"`
	At       time.Time `json:"at"`
}

// NewEvent summarises a committed change.
func NewEvent(ch board.Change) Event {
	return Event{
		Type:     EventBoardChanged,
		Revision: ch.Revision,
		Op:       ch.Op,
		TaskID:   ch.TaskID,
		Count:    len(ch.Tasks),
		At:       time.Now().UTC(),
	}
}
