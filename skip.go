package pushz

// Skip discards the first n items from a stream.
type Skip[T any] struct {
	name  string
	count int
}

// NewSkip creates a transformer that drops the first n items and passes
// every item after them.
//
// When to use:
//   - Skip headers at the start of a stream
//   - Offset-based paging over a sorted output
//
// Example:
//
//	// Drop the CSV header row
//	rows := pushz.NewSkip[string](1).Transform(lines)
func NewSkip[T any](count int) *Skip[T] {
	return &Skip[T]{
		count: count,
		name:  "skip",
	}
}

// Transform wraps supplier.
func (s *Skip[T]) Transform(supplier Supplier[T]) Supplier[T] {
	skipped := 0
	return newPassthrough(supplier, func(out *passthrough[T, T], item T) {
		if skipped < s.count {
			skipped++
			return
		}
		out.Send(item)
	})
}

// Name returns the transformer name.
func (s *Skip[T]) Name() string {
	return s.name
}
