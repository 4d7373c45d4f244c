package pushz

import (
	"iter"
	"slices"
)

type concatSupplier[T any] struct {
	*BaseSupplier[T]
	seq     iter.Seq[Supplier[T]]
	next    func() (Supplier[T], bool)
	stop    func()
	current Supplier[T]
	forward Acceptor[T]

	advancing        bool
	advanceRequested bool
}

// Concat streams suppliers one after another as a single stream.
//
// The outer stream's flow control applies to whichever source is active.
// The first source that fails closes the whole chain with its error; sources
// after it are never started.
//
// Example:
//
//	all := pushz.Concat(
//		pushz.Of(1, 2, 3),
//		pushz.Of(4, 5, 6),
//	)
//	pushz.StreamTo(all, pushz.ToList[int]()) // [1 2 3 4 5 6]
func Concat[T any](suppliers ...Supplier[T]) Supplier[T] {
	return ConcatSeq(slices.Values(suppliers))
}

// ConcatSeq is Concat over a lazily pulled sequence of suppliers. Each source
// is pulled only when the previous one has ended.
func ConcatSeq[T any](seq iter.Seq[Supplier[T]]) Supplier[T] {
	s := &concatSupplier[T]{seq: seq}
	s.BaseSupplier = NewBaseSupplier[T](s).WithCapabilities(LateBinding)
	s.forward = NewAcceptor(s.Send)
	return s
}

func (s *concatSupplier[T]) OnResumed() {
	if s.next == nil {
		s.next, s.stop = iter.Pull(s.seq)
		s.advance()
		return
	}
	if s.current != nil {
		s.current.Resume(s.forward)
	}
}

func (s *concatSupplier[T]) OnSuspended() {
	if s.current != nil {
		s.current.Resume(nil)
	}
}

func (s *concatSupplier[T]) OnError(err error) {
	if s.current != nil {
		s.current.CloseWithError(err)
	}
}

func (s *concatSupplier[T]) OnCleanup() {
	if s.current != nil {
		s.current.CloseWithError(nil)
		s.current = nil
	}
	if s.stop != nil {
		s.stop()
	}
}

// advance moves to the next source. Sources that end synchronously request
// another advance instead of recursing.
func (s *concatSupplier[T]) advance() {
	s.advanceRequested = true
	if s.advancing {
		return
	}
	s.advancing = true
	for s.advanceRequested && !s.ended {
		s.advanceRequested = false
		source, ok := s.next()
		if !ok {
			s.current = nil
			s.SendEndOfStream()
			break
		}
		s.current = source
		source.EndOfStream().OnComplete(func(_ struct{}, err error) {
			if source != s.current {
				return
			}
			if err != nil {
				s.CloseWithError(err)
				return
			}
			s.advance()
		})
		if !s.advanceRequested && s.IsReady() {
			source.Resume(s.forward)
		}
	}
	s.advancing = false
}
