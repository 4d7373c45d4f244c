package pushz

import "log/slog"

// Switcher feeds one long-lived output from a replaceable upstream supplier.
// Replacing the upstream never ends the output, so the downstream consumer
// and any state it holds survive a reconnect.
//
// When to use:
//   - Failover between replicas feeding the same consumer
//   - Reconnecting a transport without restarting the pipeline
//   - Tailing a sequence of segments that are discovered over time
//
// Example:
//
//	sw := pushz.NewSwitcher[Record]()
//	pushz.StreamTo(sw.Output(), sink)
//
//	sw.SwitchTo(primary.Download())
//	// later, after primary went away:
//	sw.SwitchTo(replica.Download())
//	sw.SendEndOfStream()
//
// An upstream that fails closes the output with its error. An upstream that
// ends successfully leaves the output waiting for the next SwitchTo, unless
// SendEndOfStream was called.
type Switcher[T any] struct { //nolint:govet // logical field grouping preferred over memory optimization
	name   string
	logger *slog.Logger

	output   *switcherOutput[T]
	current  Supplier[T]
	forward  Acceptor[T]
	switches int

	endRequested bool
}

// NewSwitcher creates a switcher with no upstream.
func NewSwitcher[T any]() *Switcher[T] {
	s := &Switcher[T]{
		name:   "switcher",
		logger: slog.Default(),
	}
	s.output = &switcherOutput[T]{s: s}
	s.output.BaseSupplier = NewBaseSupplier[T](s.output).WithCapabilities(LateBinding)
	return s
}

// WithName sets a custom name used in logs.
func (s *Switcher[T]) WithName(name string) *Switcher[T] {
	s.name = name
	return s
}

// WithLogger sets the logger.
func (s *Switcher[T]) WithLogger(logger *slog.Logger) *Switcher[T] {
	s.logger = logger
	return s
}

// Name returns the switcher name.
func (s *Switcher[T]) Name() string {
	return s.name
}

// Output returns the long-lived supplier.
func (s *Switcher[T]) Output() Supplier[T] {
	return s.output
}

// Current returns the active upstream, or nil.
func (s *Switcher[T]) Current() Supplier[T] {
	return s.current
}

// Switches returns how many upstreams were attached so far.
func (s *Switcher[T]) Switches() int {
	return s.switches
}

// SwitchTo makes supplier the active upstream. The previous upstream is
// suspended and closed successfully. If the output has ended or is ending,
// supplier is closed right away with the output's error, or successfully.
func (s *Switcher[T]) SwitchTo(supplier Supplier[T]) {
	if eos := s.output.EndOfStream(); s.output.ended || s.endRequested {
		supplier.CloseWithError(eos.Err())
		return
	}
	prev := s.current
	s.current = supplier
	s.switches++
	s.forward = NewAcceptor(func(item T) {
		if s.current == supplier {
			s.output.Send(item)
		}
	})
	if prev != nil {
		prev.Resume(nil)
		prev.CloseWithError(nil)
	}
	s.logger.Debug("switcher attached upstream", "name", s.name, "switches", s.switches)

	supplier.EndOfStream().OnComplete(func(_ struct{}, err error) {
		if s.current != supplier {
			return
		}
		s.current = nil
		if err != nil {
			s.output.CloseWithError(err)
			return
		}
		if s.endRequested {
			s.output.SendEndOfStream()
		}
	})
	if s.current == supplier && s.output.IsReady() {
		supplier.Resume(s.forward)
	}
}

// SendEndOfStream ends the output once the current upstream has ended, or
// immediately when there is none.
func (s *Switcher[T]) SendEndOfStream() {
	if s.endRequested {
		return
	}
	s.endRequested = true
	if s.current == nil {
		s.output.SendEndOfStream()
	}
}

type switcherOutput[T any] struct {
	*BaseSupplier[T]
	s *Switcher[T]
}

func (o *switcherOutput[T]) OnResumed() {
	if o.s.current != nil {
		o.s.current.Resume(o.s.forward)
	}
}

func (o *switcherOutput[T]) OnSuspended() {
	if o.s.current != nil {
		o.s.current.Resume(nil)
	}
}

func (o *switcherOutput[T]) OnError(err error) {
	if o.s.current != nil {
		o.s.current.CloseWithError(err)
	}
}

func (o *switcherOutput[T]) OnCleanup() {
	if cur := o.s.current; cur != nil {
		o.s.current = nil
		cur.CloseWithError(nil)
	}
}
