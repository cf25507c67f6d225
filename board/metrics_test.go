package board

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Sheulydsp/kanban-dashboard/domain"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("%w: a", domain.ErrDuplicateTask), "rejected"},
		{domain.ErrNotInColumn, "rejected"},
		{domain.ErrTaskNotFound, "rejected"},
		{errors.New("disk full"), "error"},
	}
	for _, tt := range tests {
		if got := outcome(tt.err); got != tt.want {
			t.Fatalf("outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestStoreOperationsAreCounted(t *testing.T) {
	ctx := context.Background()
	s, repo := newTestStore(t, domain.Task{ID: "a", Title: "A", Status: domain.StatusBacklog})

	addOK := operations.WithLabelValues(string(OpAdd), "ok")
	addRejected := operations.WithLabelValues(string(OpAdd), "rejected")
	addError := operations.WithLabelValues(string(OpAdd), "error")
	okBefore := testutil.ToFloat64(addOK)
	rejectedBefore := testutil.ToFloat64(addRejected)
	errorBefore := testutil.ToFloat64(addError)

	if err := s.Add(ctx, domain.Task{ID: "b", Title: "B", Status: domain.StatusDone}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add(ctx, domain.Task{ID: "a", Title: "dup", Status: domain.StatusDone}); err == nil {
		t.Fatal("expected duplicate add to fail")
	}
	repo.saveErr = errors.New("boom")
	if err := s.Add(ctx, domain.Task{ID: "c", Title: "C", Status: domain.StatusDone}); err == nil {
		t.Fatal("expected save failure")
	}

	if got := testutil.ToFloat64(addOK) - okBefore; got != 1 {
		t.Fatalf("ok adds = %v, want 1", got)
	}
	if got := testutil.ToFloat64(addRejected) - rejectedBefore; got != 1 {
		t.Fatalf("rejected adds = %v, want 1", got)
	}
	if got := testutil.ToFloat64(addError) - errorBefore; got != 1 {
		t.Fatalf("failed adds = %v, want 1", got)
	}
}
