package domain

import "errors"

var (
	// ErrTaskNotFound indicates that no task with the requested id exists.
	ErrTaskNotFound = errors.New("task not found")
	// ErrDuplicateTask is returned when adding a task whose id is already taken.
	ErrDuplicateTask = errors.New("task already exists")
	// ErrNotInColumn is returned by reorders naming a task outside the column.
	ErrNotInColumn = errors.New("task not in column")
	// ErrCorruptSnapshot marks persisted state that exists but cannot be decoded.
	ErrCorruptSnapshot = errors.New("corrupt task snapshot")
)
