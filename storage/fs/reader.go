package fs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zoobzio/pushz"
	"github.com/zoobzio/pushz/storage"
)

type readBatch[T any] struct {
	file   *os.File
	reader *bufio.Reader
	items  []T
	eof    bool
}

// runReader decodes up to ReadBatch records per blocking read and sends them
// from the loop.
type runReader[T any] struct {
	*pushz.BaseSupplier[T]
	s     *Storage[T]
	runID int
	path  string

	file   *os.File
	reader *bufio.Reader
	items  []T
	eof    bool

	busy   bool
	closed bool
}

func newRunReader[T any](s *Storage[T], runID int) *runReader[T] {
	r := &runReader[T]{s: s, runID: runID, path: s.path(runID)}
	r.BaseSupplier = pushz.NewBaseSupplier[T](r)
	return r
}

func (r *runReader[T]) OnResumed() {
	for r.IsReady() && len(r.items) > 0 {
		item := r.items[0]
		r.items = r.items[1:]
		r.Send(item)
	}
	if len(r.items) > 0 || !r.IsReady() {
		return
	}
	if r.eof {
		r.SendEndOfStream()
		return
	}
	r.fill()
}

func (r *runReader[T]) fill() {
	r.AsyncBegin()
	r.busy = true
	batch := readBatch[T]{file: r.file, reader: r.reader}
	pushz.Submit(r.s.loop, func() (readBatch[T], error) {
		return r.read(batch)
	}).OnComplete(func(b readBatch[T], err error) {
		r.busy = false
		r.file, r.reader = b.file, b.reader
		if r.closed {
			r.closeFile()
			return
		}
		if err != nil {
			r.CloseWithError(err)
			return
		}
		r.items, r.eof = b.items, b.eof
		r.AsyncResume()
	})
}

// read runs off-loop. It only touches the file handle it was given.
func (r *runReader[T]) read(b readBatch[T]) (readBatch[T], error) {
	if b.file == nil {
		file, err := os.Open(r.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return b, fmt.Errorf("run %d: %w", r.runID, pushz.ErrRunNotFound)
			}
			return b, fmt.Errorf("run %d: failed to open: %w", r.runID, err)
		}
		b.file = file
		b.reader = bufio.NewReader(file)
	}
	b.items = make([]T, 0, r.s.config.ReadBatch)
	for len(b.items) < r.s.config.ReadBatch {
		frame, err := storage.ReadFrame(b.reader)
		if errors.Is(err, io.EOF) {
			b.eof = true
			return b, nil
		}
		if err != nil {
			return b, fmt.Errorf("run %d: failed to read: %w", r.runID, err)
		}
		item, err := r.s.codec.Decode(frame)
		if err != nil {
			return b, fmt.Errorf("run %d: %w", r.runID, err)
		}
		b.items = append(b.items, item)
	}
	return b, nil
}

func (r *runReader[T]) OnCleanup() {
	r.closed = true
	r.items = nil
	if !r.busy {
		r.closeFile()
	}
}

func (r *runReader[T]) closeFile() {
	if r.file == nil {
		return
	}
	if err := r.file.Close(); err != nil {
		r.s.logger.Warn("failed to close run", "run", r.runID, "error", err)
	}
	r.file, r.reader = nil, nil
}
