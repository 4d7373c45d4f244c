// Package pushz provides a push-based streaming protocol with explicit,
// cooperative backpressure, and a family of composition operators built on it.
//
// The core abstraction is a Supplier that pushes items into an Acceptor handed
// to it by a Consumer. The consumer controls the rate of production by
// attaching (Resume) or detaching (Resume(nil)) its acceptor. Completion is
// signalled on two independent promises: the supplier's end-of-stream ("no more
// items") and the consumer's acknowledgement ("fully done, including durable
// side effects").
//
// Basic usage:
//
//	supplier := pushz.OfSlice([]int{3, 1, 2})
//	consumer := pushz.ToList[int]()
//
//	done := pushz.StreamTo(supplier, consumer)
//	done.OnComplete(func(_ struct{}, err error) {
//		fmt.Println(consumer.List(), err) // [3 1 2] <nil>
//	})
//
// All calls into a connected Supplier/Consumer pair must happen on a single
// goroutine. Work that blocks (file or network I/O) is moved off that goroutine
// with Submit and resynchronized through an Eventloop.
//
// The package provides operators for common streaming patterns:
//   - Sequential concatenation (Concat)
//   - Key-ordered k-way merge with per-key reduction (Reducer)
//   - External merge sort with pluggable run storage (Sorter)
//   - Partitioning into N outputs with shared flow control (Sharder)
//   - Hot-swapping the upstream of a long-lived stream (Switcher)
//   - Item transformation and rate limiting (Mapper, Filter, Throttle)
package pushz

// Acceptor is a single-call synchronous sink. A supplier pushes every item
// into the acceptor currently attached to it.
//
// Acceptors are compared by identity when a supplier is resumed, so
// implementations must be comparable; pointer receivers are the norm.
type Acceptor[T any] interface {
	Accept(item T)
}

type funcAcceptor[T any] struct {
	fn func(T)
}

func (a *funcAcceptor[T]) Accept(item T) {
	a.fn(item)
}

// NewAcceptor wraps fn in a comparable Acceptor.
func NewAcceptor[T any](fn func(T)) Acceptor[T] {
	return &funcAcceptor[T]{fn: fn}
}

// Supplier is a push sequence of T.
type Supplier[T any] interface {
	// Resume attaches acceptor, or suspends the supplier when acceptor is nil.
	// Passing the currently attached acceptor again has no effect, and so does
	// any call after end-of-stream.
	Resume(acceptor Acceptor[T])

	// EndOfStream resolves once: successfully after the last item was
	// delivered, or with the error that closed the supplier.
	EndOfStream() *Promise[struct{}]

	// CloseWithError terminates the supplier immediately, dropping buffered
	// items. A nil error closes it successfully.
	CloseWithError(err error)
}

// Consumer is the sink-side endpoint of a stream.
type Consumer[T any] interface {
	// Consume binds the consumer to supplier. A consumer is bound at most once.
	Consume(supplier Supplier[T])

	// Acknowledgement resolves once the consumer is fully done. It is not
	// implied by the supplier's end-of-stream and may resolve later.
	Acknowledgement() *Promise[struct{}]

	// CloseWithError terminates the consumer. A nil error acknowledges it.
	CloseWithError(err error)
}

// Transformer turns one supplier into another, forwarding flow control and
// errors in both directions.
type Transformer[In, Out any] interface {
	// Transform wraps supplier. The returned supplier owns supplier.
	Transform(supplier Supplier[In]) Supplier[Out]

	// Name returns a descriptive name for the transformer, useful for debugging.
	Name() string
}

// StreamTo binds consumer to supplier and returns a promise that completes
// when both the supplier's end-of-stream and the consumer's acknowledgement
// complete, failing with the first error of either.
func StreamTo[T any](supplier Supplier[T], consumer Consumer[T]) *Promise[struct{}] {
	consumer.Consume(supplier)
	return All(supplier.EndOfStream(), consumer.Acknowledgement())
}

// TransformWith is a convenience for t.Transform(supplier).
func TransformWith[In, Out any](supplier Supplier[In], t Transformer[In, Out]) Supplier[Out] {
	return t.Transform(supplier)
}

// ConsumerWith returns a consumer that applies t to its supplier before
// handing it to consumer.
func ConsumerWith[T, U any](consumer Consumer[U], t Transformer[T, U]) Consumer[T] {
	return &transformedConsumer[T, U]{inner: consumer, transformer: t}
}

type transformedConsumer[T, U any] struct {
	inner       Consumer[U]
	transformer Transformer[T, U]
	bound       Supplier[U]
}

func (c *transformedConsumer[T, U]) Consume(supplier Supplier[T]) {
	if c.bound != nil {
		panic(ErrAlreadyBound)
	}
	c.bound = c.transformer.Transform(supplier)
	c.inner.Consume(c.bound)
}

func (c *transformedConsumer[T, U]) Acknowledgement() *Promise[struct{}] {
	return c.inner.Acknowledgement()
}

func (c *transformedConsumer[T, U]) CloseWithError(err error) {
	c.inner.CloseWithError(err)
}
