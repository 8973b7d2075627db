package batch

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/japaniel/furigana/pkg/db"
)

// DocumentRecord is what a run stores for one annotated document: its lines
// and the problems found in them. RunID and Document of the rows are filled
// in by the RunWriter.
type DocumentRecord struct {
	Document    string
	Annotations []db.Annotation
	Problems    []db.ProblemRecord
}

// WriterStats counts what a RunWriter has committed.
type WriterStats struct {
	Transactions int
	Documents    int
	Lines        int
	Problems     int
}

// RunWriter stores the documents of one run. Documents are buffered and
// committed batchSize at a time, one transaction per batch, by a single
// goroutine. A failed batch is rolled back as a whole.
type RunWriter struct {
	conn  *sql.DB
	runID string
	size  int

	mu     sync.Mutex
	buf    []DocumentRecord
	closed bool

	queue    chan []DocumentRecord
	stop     chan struct{}
	tickWg   sync.WaitGroup
	commitWg sync.WaitGroup

	// OnError is called for every batch that could not be committed.
	OnError func(error)

	stateMu sync.Mutex
	lastErr error
	stats   WriterStats
}

// NewRunWriter creates a writer for run runID. A flushInterval > 0 also
// commits partial batches that have waited that long.
func NewRunWriter(conn *sql.DB, runID string, batchSize int, flushInterval time.Duration) (*RunWriter, error) {
	if conn == nil {
		return nil, fmt.Errorf("batch: run writer needs a database")
	}
	if runID == "" {
		return nil, fmt.Errorf("batch: run writer needs a run ID")
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	w := &RunWriter{
		conn:  conn,
		runID: runID,
		size:  batchSize,
		queue: make(chan []DocumentRecord, 2),
		stop:  make(chan struct{}),
	}

	w.commitWg.Add(1)
	go w.commitLoop()

	if flushInterval > 0 {
		w.tickWg.Add(1)
		go w.tick(flushInterval)
	}
	return w, nil
}

// Write buffers rec. It blocks while earlier batches are still being
// committed and the queue is full.
func (w *RunWriter) Write(rec DocumentRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	w.buf = append(w.buf, rec)
	if len(w.buf) >= w.size {
		w.flushLocked()
	}
	return nil
}

// flushLocked assumes w.mu is held.
func (w *RunWriter) flushLocked() {
	if len(w.buf) == 0 {
		return
	}
	w.queue <- w.buf
	w.buf = nil
}

func (w *RunWriter) tick(interval time.Duration) {
	defer w.tickWg.Done()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-t.C:
			w.mu.Lock()
			if !w.closed {
				w.flushLocked()
			}
			w.mu.Unlock()
		}
	}
}

func (w *RunWriter) commitLoop() {
	defer w.commitWg.Done()
	for batch := range w.queue {
		if err := w.commit(batch); err != nil {
			w.stateMu.Lock()
			if w.lastErr == nil {
				w.lastErr = err
			}
			w.stateMu.Unlock()
			if w.OnError != nil {
				w.OnError(err)
			}
		}
	}
}

func (w *RunWriter) commit(batch []DocumentRecord) error {
	tx, err := w.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	var st WriterStats
	for _, rec := range batch {
		for _, a := range rec.Annotations {
			a.RunID, a.Document = w.runID, rec.Document
			if err := db.SaveAnnotation(tx, a); err != nil {
				return err
			}
		}
		problems := make([]db.ProblemRecord, len(rec.Problems))
		for i, p := range rec.Problems {
			p.RunID, p.Document = w.runID, rec.Document
			problems[i] = p
		}
		if err := db.SaveProblems(tx, problems); err != nil {
			return err
		}
		st.Documents++
		st.Lines += len(rec.Annotations)
		st.Problems += len(rec.Problems)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch of %d documents: %w", len(batch), err)
	}

	w.stateMu.Lock()
	w.stats.Transactions++
	w.stats.Documents += st.Documents
	w.stats.Lines += st.Lines
	w.stats.Problems += st.Problems
	w.stateMu.Unlock()
	return nil
}

// Close commits what is buffered and waits for all pending batches. It
// returns the first commit error.
func (w *RunWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWriterClosed
	}
	w.closed = true
	w.flushLocked()
	w.mu.Unlock()

	close(w.stop)
	w.tickWg.Wait()
	close(w.queue)
	w.commitWg.Wait()

	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.lastErr
}

// Stats returns what has been committed so far.
func (w *RunWriter) Stats() WriterStats {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.stats
}

// ErrWriterClosed is returned by Write and Close once the writer is closed.
var ErrWriterClosed = &WriterError{"run writer closed"}

// WriterError provides a simple typed error for writer operations.
type WriterError struct{ msg string }

func (e *WriterError) Error() string { return e.msg }
