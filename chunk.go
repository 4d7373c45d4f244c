package pushz

// Chunk groups items into fixed-size slices.
type Chunk[T any] struct {
	name string
	size int
}

// NewChunk creates a transformer that groups items into slices of size.
// The last chunk may be smaller if the stream ends before filling
// completely. Sizes below 1 are treated as 1.
//
// When to use:
//   - Bulk inserts into a store with a preferred batch size
//   - Feeding a consumer that works on pages of records
//
// Example:
//
//	// Insert records 500 at a time
//	batches := pushz.NewChunk[Record](500).Transform(records)
//	pushz.StreamTo(batches, bulkInserter)
func NewChunk[T any](size int) *Chunk[T] {
	if size < 1 {
		size = 1
	}
	return &Chunk[T]{
		size: size,
		name: "chunk",
	}
}

// Transform wraps supplier.
func (c *Chunk[T]) Transform(supplier Supplier[T]) Supplier[[]T] {
	var chunk []T
	return newPassthroughEnd(supplier, func(out *passthrough[T, []T], item T) {
		chunk = append(chunk, item)
		if len(chunk) == c.size {
			full := chunk
			chunk = nil
			out.Send(full)
		}
	}, func(out *passthrough[T, []T]) {
		if len(chunk) > 0 {
			out.Send(chunk)
			chunk = nil
		}
	})
}

// Name returns the transformer name.
func (c *Chunk[T]) Name() string {
	return c.name
}
