package notify

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Sheulydsp/kanban-dashboard/board"
)

func TestRedisPublisherPublishesEvent(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "board-updates")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	logger, hook := test.NewNullLogger()
	NewRedisPublisher(client, "board-updates", logger).Notify(sampleChange(7))

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var ev Event
	if err := sonic.UnmarshalString(msg.Payload, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Revision != 7 || ev.Op != board.OpAdd || ev.Type != EventBoardChanged {
		t.Fatalf("unexpected event: %#v", ev)
	}
	if len(hook.AllEntries()) != 0 {
		t.Fatalf("unexpected log entries: %d", len(hook.AllEntries()))
	}
}

func TestRedisPublisherLogsFailure(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	logger, hook := test.NewNullLogger()
	NewRedisPublisher(client, "board-updates", logger).Notify(sampleChange(1))

	if hook.LastEntry() == nil || hook.LastEntry().Message != "unable to publish board update" {
		t.Fatalf("expected publish failure to be logged")
	}
}
