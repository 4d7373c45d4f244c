package pushz

import (
	"golang.org/x/time/rate"
)

// Throttle limits the rate of items passing through the stream. It holds at
// most one item: when the limiter has no token, the item waits on an
// Eventloop timer while the upstream is suspended.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Throttle[T any] struct {
	name    string
	loop    *Eventloop
	limiter *rate.Limiter
}

// NewThrottle creates a transformer that rate-limits items.
// The rps parameter specifies the maximum items per second, with a burst of
// one.
//
// When to use:
//   - Prevent overwhelming downstream services
//   - Comply with API rate limits
//   - Smooth out replay or backfill traffic
//
// Example:
//
//	// Limit uploads to 10 records per second
//	throttle := pushz.NewThrottle[Record](loop, 10)
//	pushz.StreamTo(throttle.Transform(records), uploader)
//
//	// Share one limiter across several streams
//	limiter := rate.NewLimiter(100, 10)
//	a := pushz.NewThrottle[Event](loop, 0).WithLimiter(limiter)
//	b := pushz.NewThrottle[Event](loop, 0).WithLimiter(limiter)
//
// Time is read from the loop's clock, so a fake clock drives it in tests.
func NewThrottle[T any](loop *Eventloop, rps float64) *Throttle[T] {
	return &Throttle[T]{
		name:    "throttle",
		loop:    loop,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// WithBurst sets how many items may pass back to back. The bucket starts
// full.
func (t *Throttle[T]) WithBurst(n int) *Throttle[T] {
	t.limiter = rate.NewLimiter(t.limiter.Limit(), n)
	return t
}

// WithLimiter replaces the limiter.
func (t *Throttle[T]) WithLimiter(limiter *rate.Limiter) *Throttle[T] {
	t.limiter = limiter
	return t
}

// WithName sets a custom name for this transformer.
func (t *Throttle[T]) WithName(name string) *Throttle[T] {
	t.name = name
	return t
}

// Name returns the transformer name.
func (t *Throttle[T]) Name() string {
	return t.name
}

// Transform wraps supplier.
func (t *Throttle[T]) Transform(supplier Supplier[T]) Supplier[T] {
	s := &throttled[T]{t: t, upstream: supplier}
	s.BaseSupplier = NewBaseSupplier[T](s)
	s.forward = NewAcceptor(s.accept)
	supplier.EndOfStream().OnComplete(func(_ struct{}, err error) {
		if err != nil {
			s.CloseWithError(err)
			return
		}
		if s.holding {
			s.upstreamEnded = true
			return
		}
		s.SendEndOfStream()
	})
	return s
}

type throttled[T any] struct {
	*BaseSupplier[T]
	t        *Throttle[T]
	upstream Supplier[T]
	forward  Acceptor[T]

	held          T
	holding       bool
	backlog       queue[T]
	upstreamEnded bool
	cancel        func()
}

func (s *throttled[T]) accept(item T) {
	if s.holding {
		s.backlog.push(item)
		return
	}
	s.offer(item)
}

// offer sends item if the limiter allows it now, otherwise holds it until
// the reservation matures. It reports whether the item is held.
func (s *throttled[T]) offer(item T) bool {
	now := s.t.loop.Clock().Now()
	delay := s.t.limiter.ReserveN(now, 1).DelayFrom(now)
	if delay <= 0 {
		s.Send(item)
		return false
	}
	s.held = item
	s.holding = true
	s.upstream.Resume(nil)
	s.AsyncBegin()
	s.cancel = s.t.loop.Schedule(delay, s.release)
	return true
}

func (s *throttled[T]) release() {
	s.cancel = nil
	item := s.held
	var zero T
	s.held = zero
	s.holding = false
	s.Send(item)
	for s.backlog.len() > 0 {
		if s.offer(s.backlog.pop()) {
			return
		}
	}
	if s.upstreamEnded {
		s.AsyncEnd()
		s.SendEndOfStream()
		return
	}
	s.AsyncResume()
}

func (s *throttled[T]) OnResumed() {
	s.upstream.Resume(s.forward)
}

func (s *throttled[T]) OnSuspended() {
	s.upstream.Resume(nil)
}

func (s *throttled[T]) OnError(err error) {
	s.upstream.CloseWithError(err)
}

func (s *throttled[T]) OnCleanup() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.upstream.CloseWithError(nil)
}
