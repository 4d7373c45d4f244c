package pushz

import "iter"

type sliceSupplier[T any] struct {
	*BaseSupplier[T]
	items []T
	next  int
}

// Of returns a supplier of items, followed by end-of-stream.
func Of[T any](items ...T) Supplier[T] {
	return OfSlice(items)
}

// OfSlice returns a supplier that pushes the elements of items in order and
// then ends. The slice is not copied.
func OfSlice[T any](items []T) Supplier[T] {
	s := &sliceSupplier[T]{items: items}
	s.BaseSupplier = NewBaseSupplier[T](s).WithCapabilities(LateBinding)
	return s
}

func (s *sliceSupplier[T]) OnResumed() {
	for s.IsReady() && s.next < len(s.items) {
		item := s.items[s.next]
		s.next++
		s.Send(item)
	}
	if s.next == len(s.items) {
		s.SendEndOfStream()
	}
}

type seqSupplier[T any] struct {
	*BaseSupplier[T]
	seq  iter.Seq[T]
	next func() (T, bool)
	stop func()
}

// OfSeq returns a supplier over seq. The sequence is pulled lazily, one item
// per delivery, and stopped when the supplier ends.
func OfSeq[T any](seq iter.Seq[T]) Supplier[T] {
	s := &seqSupplier[T]{seq: seq}
	s.BaseSupplier = NewBaseSupplier[T](s).WithCapabilities(LateBinding)
	return s
}

func (s *seqSupplier[T]) OnStarted() {
	s.next, s.stop = iter.Pull(s.seq)
}

func (s *seqSupplier[T]) OnResumed() {
	for s.IsReady() {
		item, ok := s.next()
		if !ok {
			s.SendEndOfStream()
			return
		}
		s.Send(item)
	}
}

func (s *seqSupplier[T]) OnCleanup() {
	if s.stop != nil {
		s.stop()
	}
}

type promiseSupplier[T any] struct {
	*BaseSupplier[T]
	inner   Supplier[T]
	forward Acceptor[T]
}

// OfPromise returns a supplier that streams the supplier p resolves to, or
// fails with p's error. Closing the returned supplier before p resolves
// closes the inner supplier as soon as it arrives.
func OfPromise[T any](p *Promise[Supplier[T]]) Supplier[T] {
	s := &promiseSupplier[T]{}
	s.BaseSupplier = NewBaseSupplier[T](s).WithCapabilities(LateBinding)
	s.forward = NewAcceptor(s.Send)
	p.OnComplete(func(inner Supplier[T], err error) {
		if err != nil {
			s.CloseWithError(err)
			return
		}
		if eos := s.EndOfStream(); eos.IsComplete() {
			inner.CloseWithError(eos.Err())
			return
		}
		s.inner = inner
		inner.EndOfStream().OnComplete(func(_ struct{}, err error) {
			if err != nil {
				s.CloseWithError(err)
				return
			}
			s.SendEndOfStream()
		})
		if s.IsReady() {
			inner.Resume(s.forward)
		}
	})
	return s
}

func (s *promiseSupplier[T]) OnResumed() {
	if s.inner != nil {
		s.inner.Resume(s.forward)
	}
}

func (s *promiseSupplier[T]) OnSuspended() {
	if s.inner != nil {
		s.inner.Resume(nil)
	}
}

func (s *promiseSupplier[T]) OnError(err error) {
	if s.inner != nil {
		s.inner.CloseWithError(err)
	}
}

func (s *promiseSupplier[T]) OnCleanup() {
	if s.inner != nil {
		s.inner.CloseWithError(nil)
	}
}

type channelSupplier[T any] struct {
	*BaseSupplier[T]
	loop *Eventloop
	ch   <-chan T
	done chan struct{}
}

// OfChannel returns a supplier that drains ch until it is closed. Items that
// are immediately available are pushed synchronously; otherwise the receive
// runs off-loop through Submit and production resumes on loop.
func OfChannel[T any](loop *Eventloop, ch <-chan T) Supplier[T] {
	s := &channelSupplier[T]{loop: loop, ch: ch, done: make(chan struct{})}
	s.BaseSupplier = NewBaseSupplier[T](s)
	return s
}

type received[T any] struct {
	item T
	ok   bool
}

func (s *channelSupplier[T]) OnResumed() {
	for s.IsReady() {
		select {
		case item, ok := <-s.ch:
			if !ok {
				s.SendEndOfStream()
				return
			}
			s.Send(item)
		default:
			s.AsyncBegin()
			done := s.done
			Submit(s.loop, func() (received[T], error) {
				select {
				case item, ok := <-s.ch:
					return received[T]{item: item, ok: ok}, nil
				case <-done:
					return received[T]{}, ErrClosed
				}
			}).OnResult(func(r received[T]) {
				if !r.ok {
					s.AsyncEnd()
					s.SendEndOfStream()
					return
				}
				s.Send(r.item)
				s.AsyncResume()
			})
			return
		}
	}
}

// OnCleanup releases a receive still pending off-loop.
func (s *channelSupplier[T]) OnCleanup() {
	close(s.done)
}

// Closing returns a supplier that has already ended successfully.
func Closing[T any]() Supplier[T] {
	s := NewBaseSupplier[T](nil).WithCapabilities(LateBinding)
	s.CloseWithError(nil)
	return s
}

// ClosingWithError returns a supplier that has already failed with err.
func ClosingWithError[T any](err error) Supplier[T] {
	s := NewBaseSupplier[T](nil).WithCapabilities(LateBinding)
	s.CloseWithError(err)
	return s
}

// Idle returns a supplier that never produces an item and only ends when
// closed.
func Idle[T any]() Supplier[T] {
	return NewBaseSupplier[T](nil).WithCapabilities(LateBinding)
}
