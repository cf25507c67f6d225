package board

import "github.com/Sheulydsp/kanban-dashboard/domain"

// Column is one status lane with its tasks in display order.
type Column struct {
	Status domain.Status `json:"status"`
	Count  int           `json:"count"`
	Tasks  []domain.Task `json:"tasks"`
}

// Columns groups the current tasks by status in board order.
func (s *Store) Columns() []Column {
	return GroupByStatus(s.Tasks())
}

// GroupByStatus splits tasks into one column per status, preserving the
// relative order of tasks within each column.
func GroupByStatus(tasks []domain.Task) []Column {
	pos := make(map[domain.Status]int, len(domain.Statuses))
	cols := make([]Column, len(domain.Statuses))
	for i, st := range domain.Statuses {
		pos[st] = i
		cols[i] = Column{Status: st, Tasks: []domain.Task{}}
	}
	for _, t := range tasks {
		i, ok := pos[t.Status]
		if !ok {
			continue
		}
		cols[i].Tasks = append(cols[i].Tasks, t)
	}
	for i := range cols {
		cols[i].Count = len(cols[i].Tasks)
	}
	return cols
}
