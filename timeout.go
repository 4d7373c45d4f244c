package pushz

import "time"

// Closer is anything that can be closed with an error: every Supplier and
// Consumer.
type Closer interface {
	CloseWithError(err error)
}

// WithTimeout closes every closer with ErrTimeout if p has not completed
// within d. The returned promise mirrors p, or fails with ErrTimeout.
//
// Example:
//
//	done := pushz.StreamTo(supplier, consumer)
//	done = pushz.WithTimeout(loop, 5*time.Second, done, supplier, consumer)
func WithTimeout[T any](loop *Eventloop, d time.Duration, p *Promise[T], closers ...Closer) *Promise[T] {
	result := NewPromise[T]()
	cancel := loop.Schedule(d, func() {
		if p.IsComplete() {
			return
		}
		for _, c := range closers {
			c.CloseWithError(ErrTimeout)
		}
		result.Reject(ErrTimeout)
	})
	p.OnComplete(func(v T, err error) {
		cancel()
		result.Complete(v, err)
	})
	return result
}
