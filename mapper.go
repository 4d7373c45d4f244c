package pushz

// Mapper transforms each item in a stream from one type to another using a mapping function.
// Flow control passes straight through: suspending the mapped stream suspends
// the upstream, and no item is buffered inside the mapper.
type Mapper[In, Out any] struct {
	fn   func(In) Out
	name string
}

// NewMapper creates a transformer that converts items from one type to another.
//
// When to use:
//   - Type conversions between data representations
//   - Extracting keys or computing derived values before a Reducer
//   - Normalizing records before a Sorter
//
// Example:
//
//	// Convert strings to uppercase
//	upper := pushz.NewMapper("uppercase", strings.ToUpper)
//	pushz.StreamTo(upper.Transform(names), pushz.ToList[string]())
//
//	// Extract a sort key
//	ids := pushz.NewMapper("order-id", func(o Order) string {
//		return o.ID
//	})
//
// A panic in fn closes the stream with a StreamError carrying the input item.
func NewMapper[In, Out any](name string, fn func(In) Out) *Mapper[In, Out] {
	return &Mapper[In, Out]{
		fn:   fn,
		name: name,
	}
}

// Map is a convenience for NewMapper("map", fn).Transform(supplier).
func Map[In, Out any](supplier Supplier[In], fn func(In) Out) Supplier[Out] {
	return NewMapper("map", fn).Transform(supplier)
}

// Transform wraps supplier.
func (m *Mapper[In, Out]) Transform(supplier Supplier[In]) Supplier[Out] {
	return newPassthrough(supplier, func(out *passthrough[In, Out], item In) {
		mapped, err := m.apply(item)
		if err != nil {
			out.CloseWithError(NewStreamError(item, err, m.name))
			return
		}
		out.Send(mapped)
	})
}

func (m *Mapper[In, Out]) apply(item In) (out Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	return m.fn(item), nil
}

// Name returns the transformer name.
func (m *Mapper[In, Out]) Name() string {
	return m.name
}

// passthrough is a supplier driven item by item by an upstream supplier. It
// forwards flow control upstream and terminal signals in both directions.
type passthrough[In, Out any] struct {
	*BaseSupplier[Out]
	upstream Supplier[In]
	forward  Acceptor[In]
}

func newPassthrough[In, Out any](upstream Supplier[In], accept func(*passthrough[In, Out], In)) *passthrough[In, Out] {
	return newPassthroughEnd(upstream, accept, nil)
}

// newPassthroughEnd calls end, when set, after the upstream ended
// successfully and before end-of-stream is sent.
func newPassthroughEnd[In, Out any](upstream Supplier[In], accept func(*passthrough[In, Out], In), end func(*passthrough[In, Out])) *passthrough[In, Out] {
	p := &passthrough[In, Out]{upstream: upstream}
	p.BaseSupplier = NewBaseSupplier[Out](p).WithCapabilities(CapabilitiesOf(upstream) & LateBinding)
	p.forward = NewAcceptor(func(item In) {
		accept(p, item)
	})
	upstream.EndOfStream().OnComplete(func(_ struct{}, err error) {
		if err != nil {
			p.CloseWithError(err)
			return
		}
		if end != nil && !p.IsEndOfStream() {
			end(p)
		}
		p.SendEndOfStream()
	})
	return p
}

func (p *passthrough[In, Out]) OnResumed() {
	p.upstream.Resume(p.forward)
}

func (p *passthrough[In, Out]) OnSuspended() {
	p.upstream.Resume(nil)
}

func (p *passthrough[In, Out]) OnError(err error) {
	p.upstream.CloseWithError(err)
}

func (p *passthrough[In, Out]) OnCleanup() {
	p.upstream.CloseWithError(nil)
}
