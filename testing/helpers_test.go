package testing

import (
	"errors"
	"math/rand"
	"slices"
	"testing"

	pushz "github.com/zoobzio/pushz"
)

func TestAssertEndOfStream(t *testing.T) {
	t.Run("passes for completed streams", func(t *testing.T) {
		s := pushz.Of(1, 2, 3)
		c := pushz.ToList[int]()
		pushz.StreamTo[int](s, c)

		AssertEndOfStream(t, OfSupplier(s), OfConsumer[int](c))
	})

	t.Run("pending streams are reported", func(t *testing.T) {
		s := pushz.Idle[int]()
		AssertPending(t, OfSupplier(s))
	})
}

func TestAssertClosedWithError(t *testing.T) {
	boom := errors.New("boom")
	s := pushz.ClosingWithError[int](boom)
	c := pushz.ToList[int]()
	pushz.StreamTo[int](s, c)

	AssertClosedWithError(t, boom, OfSupplier(s), OfConsumer[int](c))
}

func TestOneByOne(t *testing.T) {
	loop := pushz.NewEventloop()
	input := []int{1, 2, 3, 4, 5}

	s := pushz.TransformWith(pushz.OfSlice(input), OneByOne[int](loop))
	c := pushz.ToList[int]()
	done := pushz.StreamTo[int](s, c)

	if len(c.List()) != 1 {
		t.Errorf("expected 1 item before the loop runs, got %d", len(c.List()))
	}

	if _, err := Await(t, loop, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(c.List(), input) {
		t.Errorf("expected %v, got %v", input, c.List())
	}
	if loop.Tick() < uint64(len(input)-1) {
		t.Errorf("expected at least %d loop turns, got %d", len(input)-1, loop.Tick())
	}
}

func TestRandomlySuspending(t *testing.T) {
	loop := pushz.NewEventloop()
	rnd := rand.New(rand.NewSource(1))

	input := make([]int, 200)
	for i := range input {
		input[i] = i
	}

	s := pushz.TransformWith(pushz.OfSlice(input), RandomlySuspending[int](loop, rnd))
	c := pushz.ToList[int]()
	done := pushz.StreamTo[int](s, c)

	if _, err := Await(t, loop, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(c.List(), input) {
		t.Errorf("items lost or reordered: got %d items", len(c.List()))
	}
}

func TestFailAfter(t *testing.T) {
	boom := errors.New("boom")
	upstream := pushz.Of(1, 2, 3, 4)

	s := pushz.TransformWith(upstream, FailAfter[int](2, boom))
	c := pushz.ToList[int]()
	pushz.StreamTo[int](s, c)

	if !slices.Equal(c.List(), []int{1, 2}) {
		t.Errorf("expected [1 2], got %v", c.List())
	}
	AssertClosedWithError(t, boom, OfSupplier(upstream), OfSupplier(s), OfConsumer[int](c))
}
