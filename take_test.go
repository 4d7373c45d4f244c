package pushz

import (
	"slices"
	"testing"
)

func TestTake_BasicTaking(t *testing.T) {
	upstream := OfSlice(sequence(10))
	c := ToList[int]()
	done := StreamTo(NewTake[int](3).Transform(upstream), Consumer[int](c))

	if !done.IsResult() {
		t.Fatalf("unexpected error: %v", done.Err())
	}
	if !slices.Equal(c.List(), []int{0, 1, 2}) {
		t.Errorf("expected [0 1 2], got %v", c.List())
	}
	if !upstream.EndOfStream().IsResult() {
		t.Error("expected upstream to be closed successfully")
	}
}

func TestTake_EndlessUpstream(t *testing.T) {
	upstream := newManual[int]()
	c := ToList[int]()
	done := StreamTo(NewTake[int](2).Transform(upstream), Consumer[int](c))

	// Send 1, 2 and one item past the limit
	upstream.Send(1)
	upstream.Send(2)
	upstream.Send(3)

	if !done.IsResult() || !slices.Equal(c.List(), []int{1, 2}) {
		t.Errorf("expected [1 2], got %v (%v)", c.List(), done.Err())
	}
	if !upstream.EndOfStream().IsComplete() {
		t.Error("expected upstream to be closed after the limit")
	}
}

func TestTake_ShortUpstream(t *testing.T) {
	c := ToList[int]()
	done := StreamTo(NewTake[int](5).Transform(Of(1, 2)), Consumer[int](c))

	if !done.IsResult() || !slices.Equal(c.List(), []int{1, 2}) {
		t.Errorf("expected [1 2], got %v (%v)", c.List(), done.Err())
	}
}

func TestTake_Zero(t *testing.T) {
	upstream := Idle[int]()
	c := ToList[int]()
	done := StreamTo(NewTake[int](0).Transform(upstream), Consumer[int](c))

	if !done.IsResult() || len(c.List()) != 0 {
		t.Errorf("expected empty successful stream, got %v (%v)", c.List(), done.Err())
	}
	if !upstream.EndOfStream().IsComplete() {
		t.Error("expected upstream to be closed")
	}
}

func TestTake_Name(t *testing.T) {
	if name := NewTake[int](1).Name(); name != "take" {
		t.Errorf("expected name 'take', got %q", name)
	}
}
