package pushz

// ProduceStatus tracks whether a BaseSupplier's producer is currently running.
type ProduceStatus uint8

const (
	// StatusIdle means the producer may be asked for more items.
	StatusIdle ProduceStatus = iota
	// StatusProducingSync means OnResumed is on the stack.
	StatusProducingSync
	// StatusProducingAsync means the producer is waiting on asynchronous work
	// and will call AsyncResume or AsyncEnd later.
	StatusProducingAsync
)

func (s ProduceStatus) String() string {
	switch s {
	case StatusProducingSync:
		return "producing-sync"
	case StatusProducingAsync:
		return "producing-async"
	default:
		return "idle"
	}
}

// Producer is the hook BaseSupplier calls when its acceptor is attached, the
// buffer is empty and more items are wanted. The producer should Send while
// IsReady reports true, call SendEndOfStream when it has nothing more, or
// AsyncBegin when the next item is not available yet.
type Producer interface {
	OnResumed()
}

// Optional lifecycle hooks, detected on the hooks value given to
// NewBaseSupplier or NewBaseConsumer.
type (
	startedHook   interface{ OnStarted() }
	suspendedHook interface{ OnSuspended() }
	errorHook     interface{ OnError(err error) }
	cleanupHook   interface{ OnCleanup() }
)

// BaseSupplier is the reusable supplier state machine: it owns the pending
// buffer, the end-of-stream promise and the reentrancy-safe flush loop.
// Concrete suppliers embed a *BaseSupplier and pass themselves as hooks:
//
//	type counter struct {
//		*pushz.BaseSupplier[int]
//		next, limit int
//	}
//
//	func newCounter(limit int) *counter {
//		c := &counter{limit: limit}
//		c.BaseSupplier = pushz.NewBaseSupplier[int](c)
//		return c
//	}
//
//	func (c *counter) OnResumed() {
//		for c.IsReady() && c.next < c.limit {
//			c.Send(c.next)
//			c.next++
//		}
//		if c.next == c.limit {
//			c.SendEndOfStream()
//		}
//	}
//
// Besides Producer, hooks may implement OnStarted (first Resume),
// OnSuspended (Resume(nil)), OnError(err) (closed with an error, exactly
// once) and OnCleanup (any terminal transition, exactly once).
type BaseSupplier[T any] struct { //nolint:govet // logical field grouping preferred over memory optimization
	hooks    any
	producer Producer
	acceptor Acceptor[T]
	buffer   queue[T]
	eos      *Promise[struct{}]

	status       ProduceStatus
	capabilities Capabilities

	started        bool
	endRequested   bool
	ended          bool
	flushing       bool
	flushRequested bool
}

// NewBaseSupplier creates a supplier state machine. hooks may be nil.
func NewBaseSupplier[T any](hooks any) *BaseSupplier[T] {
	s := &BaseSupplier[T]{
		hooks:        hooks,
		eos:          NewPromise[struct{}](),
		capabilities: ImmediateSuspend,
	}
	if p, ok := hooks.(Producer); ok {
		s.producer = p
	}
	return s
}

// WithCapabilities adds capabilities advertised by this supplier.
func (s *BaseSupplier[T]) WithCapabilities(c Capabilities) *BaseSupplier[T] {
	s.capabilities |= c
	return s
}

// Capabilities returns the advertised capabilities.
func (s *BaseSupplier[T]) Capabilities() Capabilities {
	return s.capabilities
}

// Resume attaches acceptor, or suspends the supplier when acceptor is nil.
func (s *BaseSupplier[T]) Resume(acceptor Acceptor[T]) {
	if s.ended {
		return
	}
	if !s.started {
		s.started = true
		if h, ok := s.hooks.(startedHook); ok {
			h.OnStarted()
		}
		if s.ended {
			return
		}
	}
	if acceptor == s.acceptor {
		return
	}
	s.acceptor = acceptor
	if acceptor == nil {
		if h, ok := s.hooks.(suspendedHook); ok {
			h.OnSuspended()
		}
		return
	}
	s.flush()
}

// EndOfStream returns the supplier's terminal promise.
func (s *BaseSupplier[T]) EndOfStream() *Promise[struct{}] {
	return s.eos
}

// Acceptor returns the attached acceptor, or nil while suspended.
func (s *BaseSupplier[T]) Acceptor() Acceptor[T] {
	return s.acceptor
}

// IsReady reports whether an item sent now would be delivered immediately.
func (s *BaseSupplier[T]) IsReady() bool {
	return s.acceptor != nil && !s.ended
}

// IsEndOfStream reports whether end-of-stream was requested or reached.
func (s *BaseSupplier[T]) IsEndOfStream() bool {
	return s.endRequested || s.ended
}

// Status returns the producer status.
func (s *BaseSupplier[T]) Status() ProduceStatus {
	return s.status
}

// Buffered returns the number of items waiting for an acceptor.
func (s *BaseSupplier[T]) Buffered() int {
	return s.buffer.len()
}

// Send pushes item downstream, buffering it while suspended. Items sent after
// the supplier was closed are dropped. Sending after SendEndOfStream panics.
func (s *BaseSupplier[T]) Send(item T) {
	if s.ended {
		return
	}
	if s.endRequested {
		panic("pushz: Send after SendEndOfStream")
	}
	if s.acceptor != nil && s.buffer.len() == 0 {
		s.acceptor.Accept(item)
		return
	}
	s.buffer.push(item)
	if s.acceptor != nil && !s.flushing {
		s.drain()
	}
}

// SendEndOfStream marks that no more items follow. End-of-stream resolves as
// soon as the buffer is drained into an attached acceptor.
func (s *BaseSupplier[T]) SendEndOfStream() {
	if s.ended || s.endRequested {
		return
	}
	s.endRequested = true
	s.flush()
}

// CloseWithError terminates the supplier, dropping buffered items. A nil err
// closes it successfully.
func (s *BaseSupplier[T]) CloseWithError(err error) {
	s.complete(err)
}

// AsyncBegin declares that the producer is waiting on asynchronous work;
// OnResumed is not called again until AsyncResume or AsyncEnd.
func (s *BaseSupplier[T]) AsyncBegin() {
	s.status = StatusProducingAsync
}

// AsyncEnd returns the producer to idle without asking it for more items.
func (s *BaseSupplier[T]) AsyncEnd() {
	if s.status == StatusProducingAsync {
		s.status = StatusIdle
	}
}

// AsyncResume returns the producer to idle and, if the supplier is still
// attached, calls OnResumed again.
func (s *BaseSupplier[T]) AsyncResume() {
	if s.status != StatusProducingAsync {
		return
	}
	s.status = StatusIdle
	s.flush()
}

func (s *BaseSupplier[T]) drain() {
	for s.acceptor != nil && s.buffer.len() > 0 {
		s.acceptor.Accept(s.buffer.pop())
	}
}

// flush delivers buffered items and asks the producer for more. Reentrant
// calls set flushRequested and return; the outermost call loops until no
// recheck is pending.
func (s *BaseSupplier[T]) flush() {
	s.flushRequested = true
	if s.flushing {
		return
	}
	s.flushing = true
	for s.flushRequested && !s.ended {
		s.flushRequested = false
		s.drain()
		if s.acceptor == nil || s.ended || s.buffer.len() > 0 {
			continue
		}
		if s.endRequested {
			s.complete(nil)
			break
		}
		if s.status == StatusIdle && s.producer != nil {
			s.status = StatusProducingSync
			s.producer.OnResumed()
			if s.status == StatusProducingSync {
				s.status = StatusIdle
			}
		}
	}
	s.flushing = false
}

func (s *BaseSupplier[T]) complete(err error) {
	if s.ended {
		return
	}
	s.ended = true
	s.acceptor = nil
	s.buffer.clear()
	if err != nil {
		if h, ok := s.hooks.(errorHook); ok {
			h.OnError(err)
		}
	}
	if h, ok := s.hooks.(cleanupHook); ok {
		h.OnCleanup()
	}
	s.eos.Complete(struct{}{}, err)
}
