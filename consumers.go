package pushz

// ListConsumer collects every item into a slice and acknowledges on
// end-of-stream.
type ListConsumer[T any] struct {
	*BaseConsumer[T]
	items    []T
	acceptor Acceptor[T]
	result   *Promise[[]T]
}

// ToList returns a consumer that collects the stream into a slice.
//
// Example:
//
//	list := pushz.ToList[int]()
//	pushz.StreamTo(pushz.Of(1, 2, 3), list)
//	fmt.Println(list.List()) // [1 2 3]
func ToList[T any]() *ListConsumer[T] {
	c := &ListConsumer[T]{result: NewPromise[[]T]()}
	c.BaseConsumer = NewBaseConsumer[T](c).WithCapabilities(LateBinding)
	c.acceptor = NewAcceptor(func(item T) {
		c.items = append(c.items, item)
	})
	return c
}

// List returns the items received so far.
func (c *ListConsumer[T]) List() []T {
	return c.items
}

// Result resolves with the full list once the stream ends, or with the
// stream's error.
func (c *ListConsumer[T]) Result() *Promise[[]T] {
	return c.result
}

func (c *ListConsumer[T]) OnStarted() {
	c.Resume(c.acceptor)
}

func (c *ListConsumer[T]) OnError(err error) {
	c.result.Reject(err)
}

func (c *ListConsumer[T]) OnCleanup() {
	if c.items == nil {
		c.items = []T{}
	}
	c.result.Resolve(c.items)
}

type collectorConsumer[T, R any] struct {
	*BaseConsumer[T]
	acc      R
	fold     func(R, T) R
	acceptor Acceptor[T]
	result   *Promise[R]
}

// ToCollector returns a consumer folding items into an accumulator, and a
// promise of the final accumulator.
func ToCollector[T, R any](init R, fold func(R, T) R) (Consumer[T], *Promise[R]) {
	c := &collectorConsumer[T, R]{acc: init, fold: fold, result: NewPromise[R]()}
	c.BaseConsumer = NewBaseConsumer[T](c).WithCapabilities(LateBinding)
	c.acceptor = NewAcceptor(func(item T) {
		c.acc = c.fold(c.acc, item)
	})
	return c, c.result
}

func (c *collectorConsumer[T, R]) OnStarted() {
	c.Resume(c.acceptor)
}

func (c *collectorConsumer[T, R]) OnError(err error) {
	c.result.Reject(err)
}

func (c *collectorConsumer[T, R]) OnCleanup() {
	c.result.Resolve(c.acc)
}

type forEachConsumer[T any] struct {
	*BaseConsumer[T]
	acceptor Acceptor[T]
}

// ForEach returns a consumer that calls fn for every item. A panic in fn
// closes the stream with a StreamError.
func ForEach[T any](fn func(T)) Consumer[T] {
	c := &forEachConsumer[T]{}
	c.BaseConsumer = NewBaseConsumer[T](c).WithCapabilities(LateBinding)
	c.acceptor = NewAcceptor(func(item T) {
		defer func() {
			if r := recover(); r != nil {
				c.CloseWithError(NewStreamError(item, recovered(r), "for-each"))
			}
		}()
		fn(item)
	})
	return c
}

func (c *forEachConsumer[T]) OnStarted() {
	c.Resume(c.acceptor)
}

type promiseConsumer[T any] struct {
	*BaseConsumer[T]
	promise *Promise[Consumer[T]]
}

// ConsumerOfPromise returns a consumer that hands its supplier to the
// consumer p resolves to. Its acknowledgement follows the inner consumer's.
func ConsumerOfPromise[T any](p *Promise[Consumer[T]]) Consumer[T] {
	c := &promiseConsumer[T]{promise: p}
	c.BaseConsumer = NewBaseConsumer[T](c).WithCapabilities(LateBinding)
	p.OnError(c.CloseWithError)
	return c
}

func (c *promiseConsumer[T]) OnStarted() {
	c.promise.OnResult(func(inner Consumer[T]) {
		if c.IsAcknowledged() {
			inner.CloseWithError(c.Acknowledgement().Err())
			return
		}
		c.Acknowledgement().OnComplete(func(_ struct{}, err error) {
			inner.CloseWithError(err)
		})
		inner.Acknowledgement().OnComplete(func(_ struct{}, err error) {
			c.CloseWithError(err)
		})
		inner.Consume(c.Supplier())
	})
}

// The inner consumer acknowledges; end-of-stream alone does not.
func (c *promiseConsumer[T]) OnEndOfStream() {}

// IdleConsumer returns a consumer that binds but never resumes its supplier.
func IdleConsumer[T any]() Consumer[T] {
	return NewBaseConsumer[T](nil).WithCapabilities(LateBinding)
}

// ClosingConsumer returns a consumer that is already acknowledged; binding it
// closes the supplier successfully.
func ClosingConsumer[T any]() Consumer[T] {
	c := NewBaseConsumer[T](nil).WithCapabilities(LateBinding)
	c.Acknowledge()
	return c
}

// ConsumerClosingWithError returns a consumer that has already failed with
// err; binding it closes the supplier with err.
func ConsumerClosingWithError[T any](err error) Consumer[T] {
	c := NewBaseConsumer[T](nil).WithCapabilities(LateBinding)
	c.CloseWithError(err)
	return c
}
