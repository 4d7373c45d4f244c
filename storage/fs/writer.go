package fs

import (
	"fmt"
	"os"

	"github.com/zoobzio/pushz"
	"github.com/zoobzio/pushz/storage"
)

// runWriter buffers encoded frames and writes them in batches. The input is
// suspended while a batch is in flight. While busy, terminal cleanup is
// deferred until the blocking call returns.
type runWriter[T any] struct {
	*pushz.BaseConsumer[T]
	s        *Storage[T]
	runID    int
	path     string
	acceptor pushz.Acceptor[T]

	file    *os.File
	pending []byte
	count   int
	written int

	busy    bool
	ending  bool
	closed  bool
	durable bool
}

func newRunWriter[T any](s *Storage[T], runID int) *runWriter[T] {
	w := &runWriter[T]{s: s, runID: runID, path: s.path(runID)}
	w.BaseConsumer = pushz.NewBaseConsumer[T](w)
	w.acceptor = pushz.NewAcceptor(w.accept)
	return w
}

func (w *runWriter[T]) OnStarted() {
	w.busy = true
	path := w.path
	pushz.Submit(w.s.loop, func() (*os.File, error) {
		return os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	}).OnComplete(func(file *os.File, err error) {
		w.busy = false
		w.file = file
		if err != nil {
			w.CloseWithError(fmt.Errorf("run %d: failed to open: %w", w.runID, err))
			return
		}
		w.next()
	})
}

func (w *runWriter[T]) accept(item T) {
	data, err := w.s.codec.Encode(item)
	if err != nil {
		w.CloseWithError(fmt.Errorf("run %d: %w", w.runID, err))
		return
	}
	if err := storage.CheckFrameSize(len(data), w.s.config.MaxRecordSize); err != nil {
		w.CloseWithError(fmt.Errorf("run %d: %w", w.runID, err))
		return
	}
	w.pending = storage.AppendFrame(w.pending, data)
	w.count++
	if w.count >= w.s.config.BufferSize {
		w.writeBatch()
	}
}

func (w *runWriter[T]) writeBatch() {
	w.Suspend()
	w.busy = true
	file, buf := w.file, w.pending
	w.written += w.count
	w.pending, w.count = nil, 0
	pushz.Submit(w.s.loop, func() (struct{}, error) {
		_, err := file.Write(buf)
		return struct{}{}, err
	}).OnComplete(func(_ struct{}, err error) {
		w.busy = false
		if err != nil {
			w.CloseWithError(fmt.Errorf("run %d: failed to write: %w", w.runID, err))
			return
		}
		w.next()
	})
}

// next continues after a blocking call returned.
func (w *runWriter[T]) next() {
	switch {
	case w.closed:
		w.discard()
	case w.ending:
		w.finish()
	default:
		w.Resume(w.acceptor)
	}
}

func (w *runWriter[T]) OnEndOfStream() {
	w.ending = true
	if !w.busy {
		w.finish()
	}
}

func (w *runWriter[T]) finish() {
	w.busy = true
	file, buf := w.file, w.pending
	w.written += w.count
	w.pending, w.count = nil, 0
	pushz.Submit(w.s.loop, func() (struct{}, error) {
		if _, err := file.Write(buf); err != nil {
			file.Close()
			return struct{}{}, err
		}
		if err := file.Sync(); err != nil {
			file.Close()
			return struct{}{}, err
		}
		return struct{}{}, file.Close()
	}).OnComplete(func(_ struct{}, err error) {
		w.busy = false
		w.file = nil
		if w.closed {
			w.discard()
			return
		}
		if err != nil {
			w.CloseWithError(fmt.Errorf("run %d: failed to flush: %w", w.runID, err))
			return
		}
		w.s.logger.Debug("run written", "run", w.runID, "items", w.written, "path", w.path)
		w.durable = true
		w.Acknowledge()
	})
}

func (w *runWriter[T]) OnCleanup() {
	w.closed = true
	if w.durable || w.busy {
		return
	}
	w.discard()
}

// discard closes and removes a run that was never acknowledged.
func (w *runWriter[T]) discard() {
	file, path := w.file, w.path
	w.file = nil
	pushz.Submit(w.s.loop, func() (struct{}, error) {
		if file != nil {
			file.Close()
		}
		return struct{}{}, removeIfExists(path)
	}).OnError(func(err error) {
		w.s.logger.Warn("failed to remove partial run", "run", w.runID, "error", err)
	})
}
