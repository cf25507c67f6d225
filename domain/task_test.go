package domain

import (
	"reflect"
	"testing"

	"github.com/bytedance/sonic"
)

func TestTaskMarshalOmitsEmptyOptionalFields(t *testing.T) {
	task := Task{ID: "t1", Title: "Title", Status: StatusBacklog}

	payload, err := sonic.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}

	want := `{"id":"t1","title":"Title","status":"Backlog"}`
	if string(payload) != want {
		t.Fatalf("expected %s, got %s", want, payload)
	}
}

func TestTaskUnmarshalSnapshotLayout(t *testing.T) {
	raw := `{"id":"x","title":"Write docs","status":"In Progress","dueDate":"2025-03-01","tags":["a","b"],"priority":"High"}`
	var task Task
	if err := sonic.Unmarshal([]byte(raw), &task); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if task.Status != StatusInProgress || task.DueDate != "2025-03-01" || task.Priority != PriorityHigh {
		t.Fatalf("unexpected task: %#v", task)
	}
	if len(task.Tags) != 2 || task.Tags[1] != "b" {
		t.Fatalf("unexpected tags: %#v", task.Tags)
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range Statuses {
		if !s.Valid() {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	for _, s := range []Status{"", "backlog", "Archived"} {
		if s.Valid() {
			t.Fatalf("expected %q to be invalid", s)
		}
	}
}

func TestCloneDoesNotShareTags(t *testing.T) {
	orig := Task{ID: "1", Tags: []string{"a"}}
	cp := orig.Clone()
	cp.Tags[0] = "b"
	if orig.Tags[0] != "a" {
		t.Fatalf("clone shares tag storage with original")
	}

	list := CloneTasks([]Task{orig})
	list[0].Tags[0] = "c"
	if orig.Tags[0] != "a" {
		t.Fatalf("CloneTasks shares tag storage with original")
	}
	if got := CloneTasks(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	if !reflect.DeepEqual(Task{ID: "2"}.Clone(), Task{ID: "2"}) {
		t.Fatalf("clone of task without tags changed it")
	}
}
