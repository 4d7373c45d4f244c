package pushz

// Take limits the stream to the first n items.
type Take[T any] struct {
	name  string
	count int
}

// NewTake creates a transformer that passes the first n items and then ends
// the stream. The upstream is closed successfully as soon as the n-th item
// was delivered, so an endless upstream stops producing.
//
// When to use:
//   - Limit processing to a sample of data
//   - Read the smallest keys of a sorted output
//   - Early termination of endless streams
//
// Example:
//
//	// Top 10 by key after an external sort
//	top := pushz.NewTake[Order](10)
//	pushz.StreamTo(top.Transform(sorter.Output()), report)
func NewTake[T any](count int) *Take[T] {
	return &Take[T]{
		count: count,
		name:  "take",
	}
}

// Transform wraps supplier.
func (t *Take[T]) Transform(supplier Supplier[T]) Supplier[T] {
	if t.count <= 0 {
		supplier.CloseWithError(nil)
		return Closing[T]()
	}
	taken := 0
	return newPassthrough(supplier, func(out *passthrough[T, T], item T) {
		if taken >= t.count {
			return
		}
		taken++
		out.Send(item)
		if taken == t.count {
			out.SendEndOfStream()
		}
	})
}

// Name returns the transformer name.
func (t *Take[T]) Name() string {
	return t.name
}
