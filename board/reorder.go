package board

import "github.com/Sheulydsp/kanban-dashboard/domain"

// reorderColumn returns a copy of tasks in which sourceID has been moved to
// targetID's index within the status column. Only the slots occupied by
// that column are rewritten. ok is false when either id is not a member of
// the column.
func reorderColumn(tasks []domain.Task, status domain.Status, sourceID, targetID string) (next []domain.Task, ok bool) {
	from, to := -1, -1
	slots := make([]int, 0, len(tasks))
	for i, t := range tasks {
		if t.Status != status {
			continue
		}
		if t.ID == sourceID {
			from = len(slots)
		}
		if t.ID == targetID {
			to = len(slots)
		}
		slots = append(slots, i)
	}
	if from < 0 || to < 0 {
		return nil, false
	}

	column := make([]domain.Task, len(slots))
	for k, i := range slots {
		column[k] = tasks[i]
	}
	column = arrayMove(column, from, to)

	next = make([]domain.Task, len(tasks))
	copy(next, tasks)
	for k, i := range slots {
		next[i] = column[k]
	}
	return next, true
}

// arrayMove removes the element at from and reinserts it at to.
func arrayMove(items []domain.Task, from, to int) []domain.Task {
	if from == to {
		return items
	}
	moved := items[from]
	out := make([]domain.Task, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	out = append(out[:to], append([]domain.Task{moved}, out[to:]...)...)
	return out
}
