package notify

import (
	"context"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/Sheulydsp/kanban-dashboard/board"
)

type messageSender interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// NewQueueClient opens the named storage queue.
func NewQueueClient(connStr, name string) (*azqueue.QueueClient, error) {
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	return azqueue.NewQueueClientFromConnectionString(connStr, name, &opts)
}

type QueueOptions struct {
	Workers        int
	Buffer         int
	Timeout        time.Duration
	HandoffTimeout time.Duration
}

// QueueNotifier hands board events to a pool of workers that enqueue them
// on a storage queue. When the buffer stays full for longer than the
// handoff timeout the event is dropped.
type QueueNotifier struct {
	sender    messageSender
	opts      QueueOptions
	logger    *log.Logger
	jobs      chan string
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewQueueNotifier(sender messageSender, opts QueueOptions, logger *log.Logger) *QueueNotifier {
	if logger == nil {
		panic("Logger is not initialized")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Buffer < 0 {
		opts.Buffer = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	q := &QueueNotifier{
		sender: sender,
		opts:   opts,
		logger: logger,
		jobs:   make(chan string, opts.Buffer),
	}
	for i := 0; i < opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	logger.Infof("event sender started, workers: %d, buffer: %d, timeout: %v, handoff: %v", opts.Workers, opts.Buffer, opts.Timeout, opts.HandoffTimeout)
	return q
}

// Notify is a board.Listener.
func (q *QueueNotifier) Notify(ch board.Change) {
	payload, err := sonic.MarshalString(NewEvent(ch))
	if err != nil {
		q.logger.WithError(err).Error("unable to encode board event")
		return
	}
	if !q.tryEnqueue(payload) {
		q.logger.WithField("revision", ch.Revision).Error("event queue saturated, dropping board event")
	}
}

// Close stops accepting events and waits for queued ones to be sent.
func (q *QueueNotifier) Close() {
	q.closeOnce.Do(func() {
		close(q.jobs)
		q.wg.Wait()
	})
}

func (q *QueueNotifier) worker(id int) {
	defer q.wg.Done()
	for msg := range q.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), q.opts.Timeout)
		_, err := q.sender.EnqueueMessage(ctx, msg, nil)
		cancel()
		if err != nil {
			q.logger.Errorf("enqueue failed, err: %v, worker: %d", err, id)
		}
	}
}

func (q *QueueNotifier) tryEnqueue(msg string) bool {
	if ok, closed := trySendNonBlocking(q.jobs, msg); closed {
		return false
	} else if ok {
		return true
	}

	if q.opts.HandoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(q.opts.HandoffTimeout)
	defer timer.Stop()

	ok, closed := sendWithTimer(q.jobs, msg, timer.C)
	if closed {
		return false
	}
	return ok
}

func trySendNonBlocking(ch chan string, msg string) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- msg:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan string, msg string, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- msg:
		return true, false
	case <-timer:
		return false, false
	}
}
