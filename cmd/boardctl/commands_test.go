package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Sheulydsp/kanban-dashboard/board"
	"github.com/Sheulydsp/kanban-dashboard/domain"
	"github.com/Sheulydsp/kanban-dashboard/storage"
)

func newTestCLI(t *testing.T, seed ...domain.Task) (func(args ...string) (string, error), *storage.Memory) {
	t.Helper()
	repo := storage.NewMemory(seed...)
	logger, _ := test.NewNullLogger()
	open := func(ctx context.Context, _ string) (*board.Store, func(), error) {
		s := board.New(repo, logger)
		if err := s.Load(ctx); err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
	run := func(args ...string) (string, error) {
		root := newRootCmd(open)
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(args)
		err := root.ExecuteContext(context.Background())
		return out.String(), err
	}
	return run, repo
}

func stored(t *testing.T, repo *storage.Memory) []domain.Task {
	t.Helper()
	tasks, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return tasks
}

func TestAddAndList(t *testing.T) {
	run, repo := newTestCLI(t)

	out, err := run("add", "--id", "t1", "--title", "Write tests", "--status", "In Progress", "--tags", "go, cli", "--due", "2024-07-01")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if strings.TrimSpace(out) != "t1" {
		t.Fatalf("expected id output, got %q", out)
	}
	tasks := stored(t, repo)
	if len(tasks) != 1 || tasks[0].Priority != domain.PriorityMedium || len(tasks[0].Tags) != 2 {
		t.Fatalf("unexpected stored tasks: %#v", tasks)
	}

	out, err = run("list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Write tests") || !strings.Contains(out, "go,cli") {
		t.Fatalf("unexpected list output:\n%s", out)
	}
}

func TestAddGeneratesID(t *testing.T) {
	run, repo := newTestCLI(t)
	out, err := run("add", "-t", "Anon", "-s", "Backlog")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id := strings.TrimSpace(out); id == "" || stored(t, repo)[0].ID != id {
		t.Fatalf("expected generated id to be printed, got %q", out)
	}
}

func TestAddValidation(t *testing.T) {
	run, repo := newTestCLI(t)
	_, err := run("add", "--status", "Backlog")
	var verrs domain.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if len(stored(t, repo)) != 0 {
		t.Fatalf("nothing should be stored")
	}
}

func TestEditKeepsUnsetFields(t *testing.T) {
	run, repo := newTestCLI(t, domain.Task{ID: "a", Title: "Old", Status: domain.StatusBacklog, Description: "keep me", Priority: domain.PriorityLow})

	if _, err := run("edit", "a", "--status", "Done"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	got := stored(t, repo)[0]
	if got.Status != domain.StatusDone || got.Title != "Old" || got.Description != "keep me" || got.Priority != domain.PriorityLow {
		t.Fatalf("unexpected task after edit: %#v", got)
	}

	if _, err := run("edit", "missing", "--title", "x"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReorderAndMove(t *testing.T) {
	run, repo := newTestCLI(t,
		domain.Task{ID: "A", Title: "A", Status: domain.StatusBacklog},
		domain.Task{ID: "B", Title: "B", Status: domain.StatusBacklog},
		domain.Task{ID: "C", Title: "C", Status: domain.StatusBacklog},
		domain.Task{ID: "R", Title: "R", Status: domain.StatusReview},
	)

	if _, err := run("reorder", "Backlog", "C", "A"); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	var ids []string
	for _, task := range stored(t, repo) {
		ids = append(ids, task.ID)
	}
	if strings.Join(ids, "") != "CABR" {
		t.Fatalf("unexpected order %v", ids)
	}

	if _, err := run("reorder", "Backlog", "R", "A"); !errors.Is(err, domain.ErrNotInColumn) {
		t.Fatalf("expected not in column, got %v", err)
	}
	if _, err := run("reorder", "Later", "A", "B"); err == nil {
		t.Fatalf("expected unknown status error")
	}

	if _, err := run("move", "A", "R"); err != nil {
		t.Fatalf("move: %v", err)
	}
	for _, task := range stored(t, repo) {
		if task.ID == "A" && task.Status != domain.StatusReview {
			t.Fatalf("expected A in Review, got %s", task.Status)
		}
	}
}

func TestBoardAndJSONList(t *testing.T) {
	run, _ := newTestCLI(t,
		domain.Task{ID: "A", Title: "Alpha", Status: domain.StatusBacklog, Priority: domain.PriorityHigh},
		domain.Task{ID: "D", Title: "Delta", Status: domain.StatusDone},
	)

	out, err := run("board")
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	for _, want := range []string{"Backlog (1)", "In Progress (0)", "Review (0)", "Done (1)", "Alpha  [High]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("board output missing %q:\n%s", want, out)
		}
	}

	out, err = run("list", "--status", "Done", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, `"id": "D"`) || strings.Contains(out, `"id": "A"`) {
		t.Fatalf("unexpected JSON output:\n%s", out)
	}
}
