package store

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// AuditObserver receives audit pipeline outcomes. The metrics registry
// implements it; a nil observer is valid.
type AuditObserver interface {
	AuditStored()
	AuditDropped()
	AuditFailed()
}

type auditEntry struct {
	offenceID string
	request   json.RawMessage
	result    any
}

// AuditWriter persists calculation audit rows off the request path. Records
// are queued on a bounded channel and written by a single goroutine under a
// per-write timeout. A full queue drops the record; a failed write logs and
// moves on. Neither outcome ever reaches the caller.
type AuditWriter struct {
	store    Store
	queue    chan auditEntry
	timeout  time.Duration
	observer AuditObserver
	logger   *log.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAuditWriter starts the writer goroutine. queueSize and writeTimeout
// fall back to 256 entries and 3 seconds when non-positive.
func NewAuditWriter(st Store, queueSize int, writeTimeout time.Duration, observer AuditObserver) *AuditWriter {
	if queueSize <= 0 {
		queueSize = 256
	}
	if writeTimeout <= 0 {
		writeTimeout = 3 * time.Second
	}

	w := &AuditWriter{
		store:    st,
		queue:    make(chan auditEntry, queueSize),
		timeout:  writeTimeout,
		observer: observer,
		logger:   log.New(log.Writer(), "[AuditWriter] ", log.LstdFlags),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Enqueue submits one audit record without blocking. Records offered to a
// full or closed queue are dropped.
func (w *AuditWriter) Enqueue(offenceID string, request json.RawMessage, result any) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.dropped(offenceID, "writer closed")
		return
	}

	select {
	case w.queue <- auditEntry{offenceID: offenceID, request: request, result: result}:
	default:
		w.dropped(offenceID, "queue full")
	}
}

func (w *AuditWriter) dropped(offenceID, why string) {
	if w.observer != nil {
		w.observer.AuditDropped()
	}
	w.logger.Printf("dropping audit record for offence %s: %s", offenceID, why)
}

func (w *AuditWriter) run() {
	defer w.wg.Done()

	for entry := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		err := w.store.StoreCalculationAudit(ctx, entry.offenceID, entry.request, entry.result)
		cancel()

		if err != nil {
			if w.observer != nil {
				w.observer.AuditFailed()
			}
			w.logger.Printf("audit write failed for offence %s: %v", entry.offenceID, err)
			continue
		}
		if w.observer != nil {
			w.observer.AuditStored()
		}
	}
}

// Close stops accepting records and waits for the queue to drain, up to the
// context deadline.
func (w *AuditWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
