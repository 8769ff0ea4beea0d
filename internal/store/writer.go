package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Writer persists contact batches in the background. Handlers enqueue and
// return immediately; persistence failures are logged, never surfaced to the
// user, and never block the in-memory result.
type Writer struct {
	store   Store
	queue   chan []model.ContactRecord
	done    chan struct{}
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

// NewWriter starts the background persistence goroutine.
func NewWriter(s Store) *Writer {
	w := &Writer{
		store:   s,
		queue:   make(chan []model.ContactRecord, 64),
		done:    make(chan struct{}),
		timeout: 30 * time.Second,
	}
	go w.run()
	return w
}

func (w *Writer) run() {
	defer close(w.done)
	for batch := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		inserted, err := w.store.SaveContacts(ctx, batch)
		cancel()
		if err != nil {
			zap.L().Error("background persist failed",
				zap.Int("records", len(batch)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Debug("persisted contacts",
			zap.Int("records", len(batch)),
			zap.Int("inserted", inserted),
		)
	}
}

// Enqueue schedules a batch for persistence. If the queue is full or the
// writer is closed the batch is dropped with a logged error rather than
// blocking the caller.
func (w *Writer) Enqueue(contacts []model.ContactRecord) {
	if len(contacts) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		zap.L().Error("persist queue closed, dropping records", zap.Int("records", len(contacts)))
		return
	}

	select {
	case w.queue <- contacts:
	default:
		zap.L().Error("persist queue full, dropping records", zap.Int("records", len(contacts)))
	}
}

// Close drains pending batches and stops the background goroutine.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	<-w.done
}
