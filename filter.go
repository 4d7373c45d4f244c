package pushz

// Filter selectively passes items through a stream based on a predicate function.
// Only items for which the predicate returns true are emitted downstream.
// Items that don't match the predicate are discarded.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Filter[T any] struct {
	name      string
	predicate func(T) bool
}

// NewFilter creates a transformer that selectively passes items based on a predicate.
// Items for which the predicate returns true are forwarded unchanged.
//
// The predicate function should be pure (no side effects) and deterministic
// for consistent and predictable filtering behavior.
//
// Example:
//
//	// Filter positive numbers
//	positive := pushz.NewFilter(func(n int) bool {
//		return n > 0
//	})
//	pushz.StreamTo(positive.Transform(numbers), pushz.ToList[int]())
//
//	// Drop tombstones before a merge
//	live := pushz.NewFilter(func(e Entry) bool {
//		return !e.Tombstone
//	}).WithName("live-entries")
//
// A panic in the predicate closes the stream with a StreamError.
func NewFilter[T any](predicate func(T) bool) *Filter[T] {
	return &Filter[T]{
		name:      "filter",
		predicate: predicate,
	}
}

// WithName sets a custom name for this transformer.
// If not set, defaults to "filter".
func (f *Filter[T]) WithName(name string) *Filter[T] {
	f.name = name
	return f
}

// Transform wraps supplier. Discarded items do not reach the downstream
// acceptor; the upstream keeps producing while the stream is attached.
func (f *Filter[T]) Transform(supplier Supplier[T]) Supplier[T] {
	return newPassthrough(supplier, func(out *passthrough[T, T], item T) {
		keep, err := f.test(item)
		if err != nil {
			out.CloseWithError(NewStreamError(item, err, f.name))
			return
		}
		if keep {
			out.Send(item)
		}
	})
}

func (f *Filter[T]) test(item T) (keep bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	return f.predicate(item), nil
}

// Name returns the transformer name for debugging and monitoring.
func (f *Filter[T]) Name() string {
	return f.name
}
