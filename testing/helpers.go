// Package testing provides test utilities for pushz streams: transformers
// that perturb flow control and assertions over terminal promises.
package testing

import (
	"errors"
	"math/rand"
	"testing"

	pushz "github.com/zoobzio/pushz"
)

// Terminal is implemented by every Supplier (EndOfStream) or Consumer
// (Acknowledgement) through one of the two adapters below.
type Terminal interface {
	Terminal() *pushz.Promise[struct{}]
}

type supplierTerminal[T any] struct{ s pushz.Supplier[T] }

func (s supplierTerminal[T]) Terminal() *pushz.Promise[struct{}] { return s.s.EndOfStream() }

type consumerTerminal[T any] struct{ c pushz.Consumer[T] }

func (c consumerTerminal[T]) Terminal() *pushz.Promise[struct{}] { return c.c.Acknowledgement() }

// OfSupplier exposes a supplier's end-of-stream as a Terminal.
func OfSupplier[T any](s pushz.Supplier[T]) Terminal { return supplierTerminal[T]{s} }

// OfConsumer exposes a consumer's acknowledgement as a Terminal.
func OfConsumer[T any](c pushz.Consumer[T]) Terminal { return consumerTerminal[T]{c} }

// AssertEndOfStream verifies every terminal completed successfully.
func AssertEndOfStream(t *testing.T, terminals ...Terminal) {
	t.Helper()

	for i, term := range terminals {
		p := term.Terminal()
		switch {
		case !p.IsComplete():
			t.Errorf("stream %d: expected completion, still pending", i)
		case p.Err() != nil:
			t.Errorf("stream %d: expected success, got error: %v", i, p.Err())
		}
	}
}

// AssertClosedWithError verifies every terminal failed with an error
// matching target.
func AssertClosedWithError(t *testing.T, target error, terminals ...Terminal) {
	t.Helper()

	for i, term := range terminals {
		p := term.Terminal()
		switch {
		case !p.IsComplete():
			t.Errorf("stream %d: expected failure, still pending", i)
		case !errors.Is(p.Err(), target):
			t.Errorf("stream %d: expected error %v, got %v", i, target, p.Err())
		}
	}
}

// AssertPending verifies no terminal has completed yet.
func AssertPending(t *testing.T, terminals ...Terminal) {
	t.Helper()

	for i, term := range terminals {
		if p := term.Terminal(); p.IsComplete() {
			t.Errorf("stream %d: expected pending, completed with %v", i, p.Err())
		}
	}
}

// Await runs loop until idle and returns the result of p. It fails the test
// if p is still pending afterwards.
func Await[T any](t *testing.T, loop *pushz.Eventloop, p *pushz.Promise[T]) (T, error) {
	t.Helper()

	loop.Run()
	if !p.IsComplete() {
		t.Fatalf("promise still pending after the event loop went idle")
	}
	return p.Result()
}

// Decorator wraps each item passing through a stream. It receives the
// decorated stream, which it may Send to, suspend through Upstream, or close.
type Decorator[T any] func(d *Decorated[T], item T)

// Decorate returns a transformer running fn for every item.
func Decorate[T any](name string, fn Decorator[T]) pushz.Transformer[T, T] {
	return &decoration[T]{name: name, fn: fn}
}

type decoration[T any] struct {
	name string
	fn   Decorator[T]
}

func (d *decoration[T]) Name() string { return d.name }

func (d *decoration[T]) Transform(upstream pushz.Supplier[T]) pushz.Supplier[T] {
	s := &Decorated[T]{upstream: upstream}
	s.BaseSupplier = pushz.NewBaseSupplier[T](s)
	s.forward = pushz.NewAcceptor(func(item T) { d.fn(s, item) })
	upstream.EndOfStream().OnComplete(func(_ struct{}, err error) {
		if err != nil {
			s.CloseWithError(err)
			return
		}
		s.SendEndOfStream()
	})
	return s
}

// Decorated is the supplier produced by Decorate.
type Decorated[T any] struct {
	*pushz.BaseSupplier[T]
	upstream pushz.Supplier[T]
	forward  pushz.Acceptor[T]
	paused   bool
}

// Pause detaches the upstream until Unpause.
func (d *Decorated[T]) Pause() {
	d.paused = true
	d.upstream.Resume(nil)
}

// Unpause reattaches the upstream if the decorated stream is attached.
func (d *Decorated[T]) Unpause() {
	d.paused = false
	if d.IsReady() {
		d.upstream.Resume(d.forward)
	}
}

func (d *Decorated[T]) OnResumed() {
	if !d.paused {
		d.upstream.Resume(d.forward)
	}
}

func (d *Decorated[T]) OnSuspended() {
	d.upstream.Resume(nil)
}

func (d *Decorated[T]) OnError(err error) {
	d.upstream.CloseWithError(err)
}

func (d *Decorated[T]) OnCleanup() {
	d.upstream.CloseWithError(nil)
}

// OneByOne delivers every item on its own loop turn: the upstream is paused
// after each item and unpaused from a posted task.
func OneByOne[T any](loop *pushz.Eventloop) pushz.Transformer[T, T] {
	return Decorate("one-by-one", func(d *Decorated[T], item T) {
		d.Send(item)
		d.Pause()
		loop.Post(d.Unpause)
	})
}

// RandomlySuspending pauses the upstream after roughly half of the items
// and unpauses it from a posted task, shaking out ordering bugs that only
// show up when buffers fill at odd moments.
func RandomlySuspending[T any](loop *pushz.Eventloop, rnd *rand.Rand) pushz.Transformer[T, T] {
	return Decorate("randomly-suspending", func(d *Decorated[T], item T) {
		d.Send(item)
		if rnd.Intn(2) == 0 {
			d.Pause()
			loop.Post(d.Unpause)
		}
	})
}

// FailAfter passes n items and then closes the stream with err.
func FailAfter[T any](n int, err error) pushz.Transformer[T, T] {
	seen := 0
	return Decorate("fail-after", func(d *Decorated[T], item T) {
		if seen == n {
			d.CloseWithError(err)
			return
		}
		seen++
		d.Send(item)
	})
}
