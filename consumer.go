package pushz

type endOfStreamHook interface{ OnEndOfStream() }

// BaseConsumer is the reusable consumer state machine. It binds once to a
// supplier and wires the two terminal promises together:
//
//   - supplier end-of-stream success calls OnEndOfStream, which acknowledges
//     by default
//   - supplier end-of-stream failure closes the consumer with that error
//   - acknowledgement success closes the supplier successfully
//   - acknowledgement failure closes the supplier with that error
//
// Concrete consumers embed a *BaseConsumer and pass themselves as hooks.
// Hooks may implement OnStarted (called from Consume, the usual place to
// Resume), OnEndOfStream, OnError(err) and OnCleanup.
type BaseConsumer[T any] struct {
	hooks    any
	supplier Supplier[T]
	ack      *Promise[struct{}]

	capabilities Capabilities
	ended        bool
}

// NewBaseConsumer creates a consumer state machine. hooks may be nil.
func NewBaseConsumer[T any](hooks any) *BaseConsumer[T] {
	return &BaseConsumer[T]{
		hooks:        hooks,
		ack:          NewPromise[struct{}](),
		capabilities: ImmediateSuspend,
	}
}

// WithCapabilities adds capabilities advertised by this consumer.
func (c *BaseConsumer[T]) WithCapabilities(caps Capabilities) *BaseConsumer[T] {
	c.capabilities |= caps
	return c
}

// Capabilities returns the advertised capabilities.
func (c *BaseConsumer[T]) Capabilities() Capabilities {
	return c.capabilities
}

// Consume binds the consumer to supplier. It panics with ErrAlreadyBound when
// called twice.
func (c *BaseConsumer[T]) Consume(supplier Supplier[T]) {
	if c.supplier != nil {
		panic(ErrAlreadyBound)
	}
	c.supplier = supplier
	if c.ended {
		supplier.CloseWithError(c.ack.Err())
		return
	}
	c.ack.OnComplete(func(_ struct{}, err error) {
		supplier.CloseWithError(err)
	})
	if h, ok := c.hooks.(startedHook); ok {
		h.OnStarted()
	}
	supplier.EndOfStream().OnComplete(func(_ struct{}, err error) {
		if err != nil {
			c.CloseWithError(err)
			return
		}
		if c.ended {
			return
		}
		if h, ok := c.hooks.(endOfStreamHook); ok {
			h.OnEndOfStream()
			return
		}
		c.Acknowledge()
	})
}

// Supplier returns the bound supplier, or nil before Consume.
func (c *BaseConsumer[T]) Supplier() Supplier[T] {
	return c.supplier
}

// Resume attaches acceptor to the bound supplier.
func (c *BaseConsumer[T]) Resume(acceptor Acceptor[T]) {
	if c.supplier != nil && !c.ended {
		c.supplier.Resume(acceptor)
	}
}

// Suspend detaches the acceptor from the bound supplier.
func (c *BaseConsumer[T]) Suspend() {
	if c.supplier != nil && !c.ended {
		c.supplier.Resume(nil)
	}
}

// Acknowledgement returns the consumer's terminal promise.
func (c *BaseConsumer[T]) Acknowledgement() *Promise[struct{}] {
	return c.ack
}

// IsAcknowledged reports whether the acknowledgement has completed.
func (c *BaseConsumer[T]) IsAcknowledged() bool {
	return c.ack.IsComplete()
}

// Acknowledge signals that the consumer is fully done. Only the first call
// has an effect.
func (c *BaseConsumer[T]) Acknowledge() {
	c.complete(nil)
}

// CloseWithError terminates the consumer. A nil err acknowledges it.
func (c *BaseConsumer[T]) CloseWithError(err error) {
	c.complete(err)
}

func (c *BaseConsumer[T]) complete(err error) {
	if c.ended {
		return
	}
	c.ended = true
	if err != nil {
		if h, ok := c.hooks.(errorHook); ok {
			h.OnError(err)
		}
	}
	if h, ok := c.hooks.(cleanupHook); ok {
		h.OnCleanup()
	}
	c.ack.Complete(struct{}{}, err)
}
