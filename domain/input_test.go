package domain

import (
	"errors"
	"reflect"
	"testing"

	"github.com/bytedance/sonic"
)

func TestNewTaskNormalizesInput(t *testing.T) {
	task, err := NewTask("id-1", TaskInput{
		Title:       "  Write docs ",
		Status:      StatusBacklog,
		Description: " details ",
		DueDate:     "2025-01-31",
		Tags:        TagList{" go", "", "api "},
	})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	want := Task{
		ID:          "id-1",
		Title:       "Write docs",
		Status:      StatusBacklog,
		Description: "details",
		DueDate:     "2025-01-31",
		Tags:        []string{"go", "api"},
		Priority:    PriorityMedium,
	}
	if !reflect.DeepEqual(task, want) {
		t.Fatalf("unexpected task:\n got %#v\nwant %#v", task, want)
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	_, err := NewTask("id", TaskInput{Title: "   ", Status: "Archived", DueDate: "31/01/2025", Priority: "Urgent"})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	fields := map[string]string{}
	for _, e := range verrs {
		fields[e.Field] = e.Message
	}
	for _, f := range []string{"title", "status", "dueDate", "priority"} {
		if _, ok := fields[f]; !ok {
			t.Fatalf("expected violation for %s, got %v", f, verrs)
		}
	}
	if fields["title"] != "Task title is required." {
		t.Fatalf("unexpected title message: %q", fields["title"])
	}
}

func TestValidateRequiresStatus(t *testing.T) {
	_, err := TaskInput{Title: "t"}.Validate()
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) != 1 || verrs[0].Field != "status" {
		t.Fatalf("expected single status violation, got %v", err)
	}
}

func TestApplyToKeepsID(t *testing.T) {
	existing := Task{ID: "keep", Title: "old", Status: StatusBacklog, Tags: []string{"x"}, Priority: PriorityLow}
	updated, err := TaskInput{Title: "new", Status: StatusDone, Priority: PriorityHigh}.ApplyTo(existing)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := Task{ID: "keep", Title: "new", Status: StatusDone, Priority: PriorityHigh}
	if !reflect.DeepEqual(updated, want) {
		t.Fatalf("unexpected task: %#v", updated)
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "only separators", raw: " , ,", want: nil},
		{name: "trimmed", raw: "a, b ,c", want: []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTags(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ParseTags(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTagListAcceptsStringOrArray(t *testing.T) {
	var in TaskInput
	if err := sonic.Unmarshal([]byte(`{"title":"t","status":"Done","tags":"a, b"}`), &in); err != nil {
		t.Fatalf("unmarshal string tags: %v", err)
	}
	if !reflect.DeepEqual([]string(in.Tags), []string{"a", "b"}) {
		t.Fatalf("unexpected tags from string: %#v", in.Tags)
	}
	in = TaskInput{}
	if err := sonic.Unmarshal([]byte(`{"title":"t","status":"Done","tags":["c"," d "]}`), &in); err != nil {
		t.Fatalf("unmarshal array tags: %v", err)
	}
	if !reflect.DeepEqual([]string(in.Tags), []string{"c", "d"}) {
		t.Fatalf("unexpected tags from array: %#v", in.Tags)
	}
	if err := sonic.Unmarshal([]byte(`{"tags":42}`), &in); err == nil {
		t.Fatalf("expected error for numeric tags")
	}
}

func TestArrayTagsKeepCommas(t *testing.T) {
	var in TaskInput
	if err := sonic.Unmarshal([]byte(`{"title":"t","status":"Done","tags":["a,b"," c "]}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	existing := Task{ID: "keep", Title: "old", Status: StatusBacklog, Tags: []string{"a,b", "c"}}
	task, err := in.ApplyTo(existing)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !reflect.DeepEqual(task.Tags, []string{"a,b", "c"}) {
		t.Fatalf("array tags were re-split: %#v", task.Tags)
	}
	if got := ParseTags("a,b, c"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("comma string should still split: %#v", got)
	}
}
