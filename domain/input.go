package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// DateLayout is the accepted due date format.
const DateLayout = "2006-01-02"

// TagList accepts either a JSON array of strings or a single
// comma-separated string, as typed into the task forms.
type TagList []string

func (l *TagList) UnmarshalJSON(data []byte) error {
	var raw string
	if err := sonic.Unmarshal(data, &raw); err == nil {
		*l = ParseTags(raw)
		return nil
	}
	var list []string
	if err := sonic.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("tags must be a string or a list of strings")
	}
	*l = cleanTags(list)
	return nil
}

// TaskInput carries user supplied task fields. It is the one validation
// contract shared by every task creation and edit path.
type TaskInput struct {
	Title       string   `json:"title"`
	Status      Status   `json:"status"`
	Description string   `json:"description,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
	Tags        TagList  `json:"tags,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
}

// ValidationError describes a rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string { return e.Field + ": " + e.Message }

// ValidationErrors collects every violation found in a TaskInput.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Validate checks the input and returns it normalized: title and
// description trimmed, tags cleaned and priority defaulted to Medium.
func (in TaskInput) Validate() (TaskInput, error) {
	var errs ValidationErrors

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		errs = append(errs, ValidationError{Field: "title", Message: "Task title is required."})
	}
	if in.Status == "" {
		errs = append(errs, ValidationError{Field: "status", Message: "status is required"})
	} else if !in.Status.Valid() {
		errs = append(errs, ValidationError{Field: "status", Message: fmt.Sprintf("status must be one of %s", joinStatuses())})
	}
	in.Description = strings.TrimSpace(in.Description)
	in.DueDate = strings.TrimSpace(in.DueDate)
	if in.DueDate != "" {
		if _, err := time.Parse(DateLayout, in.DueDate); err != nil {
			errs = append(errs, ValidationError{Field: "dueDate", Message: "dueDate must be a YYYY-MM-DD date"})
		}
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	} else if !in.Priority.Valid() {
		errs = append(errs, ValidationError{Field: "priority", Message: "priority must be one of Low, Medium, High"})
	}
	in.Tags = cleanTags(in.Tags)

	if len(errs) > 0 {
		return in, errs
	}
	return in, nil
}

// NewTask validates in and builds a task with the given id.
func NewTask(id string, in TaskInput) (Task, error) {
	in, err := in.Validate()
	if err != nil {
		return Task{}, err
	}
	return in.build(id), nil
}

// ApplyTo validates in and returns existing with every editable field
// replaced. The id is preserved.
func (in TaskInput) ApplyTo(existing Task) (Task, error) {
	in, err := in.Validate()
	if err != nil {
		return Task{}, err
	}
	return in.build(existing.ID), nil
}

func (in TaskInput) build(id string) Task {
	t := Task{
		ID:          id,
		Title:       in.Title,
		Status:      in.Status,
		Description: in.Description,
		DueDate:     in.DueDate,
		Priority:    in.Priority,
	}
	if len(in.Tags) > 0 {
		t.Tags = append([]string(nil), in.Tags...)
	}
	return t
}

// ParseTags splits a comma-separated list, trimming entries and dropping
// empty ones. It returns nil when no tags remain.
func ParseTags(raw string) []string {
	var tags []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// cleanTags trims each tag and drops empty ones. Commas inside a tag are
// kept.
func cleanTags(list []string) TagList {
	var tags TagList
	for _, t := range list {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func joinStatuses() string {
	names := make([]string, len(Statuses))
	for i, s := range Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
