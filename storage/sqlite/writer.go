package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/zoobzio/pushz"
)

// runWriter inserts encoded records one transaction per batch and commits
// the run row last. The input is suspended while a batch is in flight.
type runWriter[T any] struct {
	*pushz.BaseConsumer[T]
	s        *Storage[T]
	runID    int
	acceptor pushz.Acceptor[T]

	pending [][]byte
	seq     int

	busy      bool
	closed    bool
	committed bool
}

func newRunWriter[T any](s *Storage[T], runID int) *runWriter[T] {
	w := &runWriter[T]{s: s, runID: runID}
	w.BaseConsumer = pushz.NewBaseConsumer[T](w)
	w.acceptor = pushz.NewAcceptor(w.accept)
	return w
}

func (w *runWriter[T]) OnStarted() {
	w.Resume(w.acceptor)
}

func (w *runWriter[T]) accept(item T) {
	data, err := w.s.codec.Encode(item)
	if err != nil {
		w.CloseWithError(fmt.Errorf("run %d: %w", w.runID, err))
		return
	}
	w.pending = append(w.pending, data)
	if len(w.pending) < w.s.config.BatchSize {
		return
	}

	w.Suspend()
	w.submit(false).OnComplete(func(_ struct{}, err error) {
		w.busy = false
		switch {
		case w.closed:
			w.discard()
		case err != nil:
			w.CloseWithError(fmt.Errorf("run %d: failed to insert: %w", w.runID, err))
		default:
			w.Resume(w.acceptor)
		}
	})
}

func (w *runWriter[T]) OnEndOfStream() {
	w.submit(true).OnComplete(func(_ struct{}, err error) {
		w.busy = false
		switch {
		case w.closed:
			w.discard()
		case err != nil:
			w.CloseWithError(fmt.Errorf("run %d: failed to commit: %w", w.runID, err))
		default:
			w.s.logger.Debug("run committed", "run", w.runID, "items", w.seq, "session", w.s.session)
			w.committed = true
			w.Acknowledge()
		}
	})
}

// submit inserts the pending records, and the run row when last is set.
func (w *runWriter[T]) submit(last bool) *pushz.Promise[struct{}] {
	w.busy = true
	batch, seq := w.pending, w.seq
	w.pending = nil
	w.seq += len(batch)
	return pushz.Submit(w.s.loop, func() (struct{}, error) {
		return struct{}{}, w.s.inTx(func(tx *sql.Tx) error {
			if err := w.s.insertRecords(tx, w.runID, seq, batch); err != nil {
				return err
			}
			if last {
				return w.s.commitRun(tx, w.runID, seq+len(batch))
			}
			return nil
		})
	})
}

func (w *runWriter[T]) OnCleanup() {
	w.closed = true
	if w.committed || w.busy {
		return
	}
	w.discard()
}

// discard deletes the records of a run that never committed.
func (w *runWriter[T]) discard() {
	if w.seq == 0 {
		return
	}
	pushz.Submit(w.s.loop, func() (struct{}, error) {
		return struct{}{}, w.s.deleteRuns(w.runID)
	}).OnError(func(err error) {
		w.s.logger.Warn("failed to remove partial run", "run", w.runID, "error", err)
	})
}
