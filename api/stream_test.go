package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/Sheulydsp/kanban-dashboard/domain"
)

func readEvent(t *testing.T, r *bufio.Reader) []domain.Task {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var tasks []domain.Task
		if err := sonic.UnmarshalString(strings.TrimPrefix(line, "data: "), &tasks); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return tasks
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamSendsSnapshotAndChanges(t *testing.T) {
	a := newTestAPI(t, nil, seedTasks()[:1]...)
	srv := httptest.NewServer(a.e)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	r := bufio.NewReader(resp.Body)
	if tasks := readEvent(t, r); len(tasks) != 1 || tasks[0].ID != "A" {
		t.Fatalf("unexpected initial snapshot: %#v", tasks)
	}

	waitFor(t, func() bool { return a.broker.Subscribers() == 1 })
	if err := a.store.Add(context.Background(), domain.Task{ID: "N", Title: "New", Status: domain.StatusDone}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if tasks := readEvent(t, r); len(tasks) != 2 || tasks[1].ID != "N" {
		t.Fatalf("unexpected update: %#v", tasks)
	}

	cancel()
	waitFor(t, func() bool { return a.broker.Subscribers() == 0 })
}

func TestBrokerNotifyCoalesces(t *testing.T) {
	b := NewBroker()
	ch := b.subscribe()
	b.Notify(sampleChangeForBroker())
	b.Notify(sampleChangeForBroker())

	select {
	case <-ch:
	default:
		t.Fatalf("expected a pending notification")
	}
	select {
	case <-ch:
		t.Fatalf("expected notifications to coalesce")
	default:
	}

	b.unsubscribe(ch)
	if b.Subscribers() != 0 {
		t.Fatalf("expected no subscribers")
	}
}
