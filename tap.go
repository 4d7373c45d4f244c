package pushz

// Tap executes a side effect function for each item while passing items
// through unchanged. It's used for logging, debugging and counting at a
// specific point of a pipeline.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Tap[T any] struct {
	name string
	fn   func(T)
}

// NewTap creates a transformer calling fn for every item before it is
// passed on.
//
// Example:
//
//	// Log spilled records
//	logged := pushz.NewTap(func(r Record) {
//		logger.Debug("record", "id", r.ID)
//	}).Transform(records)
//
//	// Count items between two stages
//	var seen int
//	counted := pushz.NewTap(func(Record) { seen++ }).Transform(records)
//
// A panic in fn closes the stream with a StreamError.
func NewTap[T any](fn func(T)) *Tap[T] {
	return &Tap[T]{
		name: "tap",
		fn:   fn,
	}
}

// WithName sets a custom name for this transformer.
func (t *Tap[T]) WithName(name string) *Tap[T] {
	t.name = name
	return t
}

// Transform wraps supplier.
func (t *Tap[T]) Transform(supplier Supplier[T]) Supplier[T] {
	return newPassthrough(supplier, func(out *passthrough[T, T], item T) {
		if err := t.call(item); err != nil {
			out.CloseWithError(NewStreamError(item, err, t.name))
			return
		}
		out.Send(item)
	})
}

func (t *Tap[T]) call(item T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	t.fn(item)
	return nil
}

// Name returns the transformer name.
func (t *Tap[T]) Name() string {
	return t.name
}
