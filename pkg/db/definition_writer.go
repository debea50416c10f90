package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrWriterClosed is returned by Submit and Close once the writer is closed.
var ErrWriterClosed = errors.New("definition writer closed")

// DefinitionWriter upserts definitions from a background goroutine so the
// query path never waits for sqlite. Pending entries are keyed by word, so
// a word submitted twice before a flush is written once with the later
// entry.
type DefinitionWriter struct {
	// OnError is called for every failed flush. Set it before the first Submit.
	OnError func(error)

	db        *sql.DB
	batchSize int

	mu       sync.Mutex
	pending  map[string]Definition
	closed   bool
	firstErr error

	full chan struct{}
	quit chan struct{}
	done chan struct{}
}

// NewDefinitionWriter starts a writer that flushes once batchSize distinct
// words are pending, every interval (0 disables the timer) and on Close.
func NewDefinitionWriter(db *sql.DB, batchSize int, interval time.Duration) *DefinitionWriter {
	if batchSize <= 0 {
		batchSize = 32
	}
	w := &DefinitionWriter{
		db:        db,
		batchSize: batchSize,
		pending:   make(map[string]Definition, batchSize),
		full:      make(chan struct{}, 1),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go w.run(interval)
	return w
}

// Submit queues d for writing. It never blocks on the database.
func (w *DefinitionWriter) Submit(d Definition) error {
	d.Word = strings.TrimSpace(d.Word)
	if d.Word == "" {
		return fmt.Errorf("word must be non-empty")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	w.pending[d.Word] = d
	if len(w.pending) >= w.batchSize {
		select {
		case w.full <- struct{}{}:
		default:
		}
	}
	return nil
}

func (w *DefinitionWriter) run(interval time.Duration) {
	defer close(w.done)

	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-tick:
		case <-w.full:
		case <-w.quit:
			w.Flush()
			return
		}
		w.Flush()
	}
}

// Flush writes all pending definitions now.
func (w *DefinitionWriter) Flush() {
	w.mu.Lock()
	batch := w.pending
	if len(batch) == 0 {
		w.mu.Unlock()
		return
	}
	w.pending = make(map[string]Definition, w.batchSize)
	w.mu.Unlock()

	if err := w.write(batch); err != nil {
		w.mu.Lock()
		if w.firstErr == nil {
			w.firstErr = err
		}
		w.mu.Unlock()
		if w.OnError != nil {
			w.OnError(err)
		}
	}
}

// write upserts the whole batch in one transaction.
func (w *DefinitionWriter) write(batch map[string]Definition) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("begin definition batch: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	for _, d := range batch {
		if err := PutDefinition(tx, d); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %d definitions: %w", len(batch), err)
	}
	return nil
}

// Close writes everything still pending and returns the first flush error
// seen over the writer's lifetime.
func (w *DefinitionWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWriterClosed
	}
	w.closed = true
	w.mu.Unlock()

	close(w.quit)
	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.firstErr
}
