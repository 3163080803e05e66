package rag

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lingocache/internal/metrics"
)

// PersistTask is one document queued for best-effort persistence.
type PersistTask struct {
	Content  string
	DocType  string
	Topic    string
	Metadata Metadata
}

// PersistEvent is emitted after each persistence attempt so the outcome is
// observable instead of silently swallowed.
type PersistEvent struct {
	DocumentID string
	DocType    string
	Topic      string
	Err        string
}

// PersistObserver receives persistence outcomes. Called from the worker
// goroutine; implementations must be fast or hand off.
type PersistObserver func(PersistEvent)

type persistStore interface {
	Store(ctx context.Context, content, docType, topic string, meta Metadata) StoreResult
}

// PersistQueue decouples document persistence from the response path of a
// generation call. Enqueue never blocks: when the buffer is full the task is
// dropped and counted, never the caller's result. Failures are logged,
// counted and reported to the observer, and never retried automatically.
type PersistQueue struct {
	store    persistStore
	tasks    chan PersistTask
	observer PersistObserver
	timeout  time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

// NewPersistQueue starts the worker goroutine. buffer bounds how many tasks
// may be pending; observer may be nil.
func NewPersistQueue(store persistStore, buffer int, observer PersistObserver) *PersistQueue {
	if buffer <= 0 {
		buffer = 64
	}
	q := &PersistQueue{
		store:    store,
		tasks:    make(chan PersistTask, buffer),
		observer: observer,
		timeout:  15 * time.Second,
		done:     make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue hands a task to the worker without blocking the caller.
func (q *PersistQueue) Enqueue(task PersistTask) {
	select {
	case q.tasks <- task:
	default:
		slog.Warn("persist queue full, dropping document",
			slog.String("type", task.DocType),
			slog.String("topic", task.Topic))
		metrics.PersistOutcomes.WithLabelValues("dropped").Inc()
		if q.observer != nil {
			q.observer(PersistEvent{DocType: task.DocType, Topic: task.Topic, Err: "persist queue full"})
		}
	}
}

// Close stops accepting tasks and waits for the worker to drain the queue.
func (q *PersistQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.tasks)
	})
	<-q.done
}

func (q *PersistQueue) run() {
	defer close(q.done)
	for task := range q.tasks {
		q.persist(task)
	}
}

func (q *PersistQueue) persist(task PersistTask) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	res := q.store.Store(ctx, task.Content, task.DocType, task.Topic, task.Metadata)
	event := PersistEvent{
		DocumentID: res.DocumentID,
		DocType:    task.DocType,
		Topic:      task.Topic,
		Err:        res.Err,
	}

	if res.OK() {
		slog.Debug("generated content persisted",
			slog.String("document_id", res.DocumentID),
			slog.String("type", task.DocType))
		metrics.PersistOutcomes.WithLabelValues("success").Inc()
	} else {
		slog.Warn("best-effort persistence failed",
			slog.String("type", task.DocType),
			slog.String("error", res.Err))
		metrics.PersistOutcomes.WithLabelValues("error").Inc()
	}

	if q.observer != nil {
		q.observer(event)
	}
}
