package pushz

// Promise is a single-assignment result that completes exactly once, with
// either a value or an error. It is the terminal value of every stream:
// end-of-stream on the supplier side, acknowledgement on the consumer side.
//
// Promises are not safe for concurrent use. They belong to the goroutine that
// drives the streams (usually an Eventloop); completions produced elsewhere are
// posted back to it, see Submit.
type Promise[T any] struct {
	value     T
	err       error
	callbacks []func(T, error)
	done      bool
}

// NewPromise returns an incomplete promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{}
}

// Resolved returns a promise already completed with value.
func Resolved[T any](value T) *Promise[T] {
	return &Promise[T]{value: value, done: true}
}

// Rejected returns a promise already completed with err.
func Rejected[T any](err error) *Promise[T] {
	return &Promise[T]{err: err, done: true}
}

// Done returns a successfully completed promise with no value.
func Done() *Promise[struct{}] {
	return Resolved(struct{}{})
}

// Complete completes the promise with value or, when err is non-nil, with
// err. It reports whether this call completed the promise; later calls are
// no-ops.
func (p *Promise[T]) Complete(value T, err error) bool {
	if p.done {
		return false
	}
	p.done = true
	if err != nil {
		p.err = err
	} else {
		p.value = value
	}
	callbacks := p.callbacks
	p.callbacks = nil
	for _, cb := range callbacks {
		cb(p.value, p.err)
	}
	return true
}

// Resolve completes the promise successfully.
func (p *Promise[T]) Resolve(value T) bool {
	var zero error
	return p.Complete(value, zero)
}

// Reject completes the promise with err. A nil err is treated as success
// with the zero value.
func (p *Promise[T]) Reject(err error) bool {
	var zero T
	return p.Complete(zero, err)
}

// OnComplete registers fn to run when the promise completes. If it already
// has, fn runs immediately.
func (p *Promise[T]) OnComplete(fn func(T, error)) {
	if p.done {
		fn(p.value, p.err)
		return
	}
	p.callbacks = append(p.callbacks, fn)
}

// OnResult registers fn to run on successful completion only.
func (p *Promise[T]) OnResult(fn func(T)) {
	p.OnComplete(func(v T, err error) {
		if err == nil {
			fn(v)
		}
	})
}

// OnError registers fn to run on failed completion only.
func (p *Promise[T]) OnError(fn func(error)) {
	p.OnComplete(func(_ T, err error) {
		if err != nil {
			fn(err)
		}
	})
}

// IsComplete reports whether the promise has completed.
func (p *Promise[T]) IsComplete() bool {
	return p.done
}

// IsResult reports whether the promise completed successfully.
func (p *Promise[T]) IsResult() bool {
	return p.done && p.err == nil
}

// IsError reports whether the promise completed with an error.
func (p *Promise[T]) IsError() bool {
	return p.done && p.err != nil
}

// Err returns the error the promise completed with, or nil.
func (p *Promise[T]) Err() error {
	return p.err
}

// Value returns the value the promise completed with, or the zero value.
func (p *Promise[T]) Value() T {
	return p.value
}

// Result returns the value and error of a completed promise.
func (p *Promise[T]) Result() (T, error) {
	return p.value, p.err
}

// Then maps a successful result of p through fn.
func Then[T, U any](p *Promise[T], fn func(T) (U, error)) *Promise[U] {
	next := NewPromise[U]()
	p.OnComplete(func(v T, err error) {
		if err != nil {
			next.Reject(err)
			return
		}
		next.Complete(fn(v))
	})
	return next
}

// All returns a promise that completes when every promise has completed
// successfully, or with the first error.
func All(promises ...*Promise[struct{}]) *Promise[struct{}] {
	all := NewPromise[struct{}]()
	remaining := len(promises)
	if remaining == 0 {
		all.Resolve(struct{}{})
		return all
	}
	for _, p := range promises {
		p.OnComplete(func(_ struct{}, err error) {
			if err != nil {
				all.Reject(err)
				return
			}
			remaining--
			if remaining == 0 {
				all.Resolve(struct{}{})
			}
		})
	}
	return all
}
