package sqlite

import (
	"fmt"

	"github.com/zoobzio/pushz"
)

type page[T any] struct {
	total int
	items []T
}

// runReader fetches the run one page at a time. The first fetch also checks
// that the run was committed.
type runReader[T any] struct {
	*pushz.BaseSupplier[T]
	s     *Storage[T]
	runID int

	total int // -1 until the run row was read
	next  int
	items []T
}

func newRunReader[T any](s *Storage[T], runID int) *runReader[T] {
	r := &runReader[T]{s: s, runID: runID, total: -1}
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
	if r.total >= 0 && r.next >= r.total {
		r.SendEndOfStream()
		return
	}

	r.AsyncBegin()
	total, from := r.total, r.next
	pushz.Submit(r.s.loop, func() (page[T], error) {
		return r.fetch(total, from)
	}).OnComplete(func(p page[T], err error) {
		if r.IsEndOfStream() {
			return
		}
		if err != nil {
			r.CloseWithError(err)
			return
		}
		r.total = p.total
		r.next += len(p.items)
		r.items = p.items
		if len(p.items) == 0 && r.next < r.total {
			r.CloseWithError(fmt.Errorf("run %d: %d of %d records missing", r.runID, r.total-r.next, r.total))
			return
		}
		r.AsyncResume()
	})
}

// fetch runs off-loop.
func (r *runReader[T]) fetch(total, from int) (page[T], error) {
	if total < 0 {
		n, err := r.s.runItems(r.runID)
		if err != nil {
			return page[T]{}, err
		}
		total = n
	}
	payloads, err := r.s.page(r.runID, from)
	if err != nil {
		return page[T]{}, err
	}
	items := make([]T, 0, len(payloads))
	for _, payload := range payloads {
		item, err := r.s.codec.Decode(payload)
		if err != nil {
			return page[T]{}, fmt.Errorf("run %d: %w", r.runID, err)
		}
		items = append(items, item)
	}
	return page[T]{total: total, items: items}, nil
}

func (r *runReader[T]) OnCleanup() {
	r.items = nil
}
