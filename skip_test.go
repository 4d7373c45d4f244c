package pushz

import (
	"errors"
	"slices"
	"testing"
)

func TestSkip_BasicSkipping(t *testing.T) {
	c := ToList[int]()
	done := StreamTo(NewSkip[int](3).Transform(OfSlice(sequence(6))), Consumer[int](c))

	if !done.IsResult() {
		t.Fatalf("unexpected error: %v", done.Err())
	}
	if !slices.Equal(c.List(), []int{3, 4, 5}) {
		t.Errorf("expected [3 4 5], got %v", c.List())
	}
}

func TestSkip_MoreThanAvailable(t *testing.T) {
	c := ToList[int]()
	done := StreamTo(NewSkip[int](10).Transform(Of(1, 2)), Consumer[int](c))

	if !done.IsResult() || len(c.List()) != 0 {
		t.Errorf("expected empty successful stream, got %v (%v)", c.List(), done.Err())
	}
}

func TestSkip_ErrorPropagation(t *testing.T) {
	boom := errors.New("boom")
	skipped := NewSkip[int](1).Transform(ClosingWithError[int](boom))

	if !errors.Is(skipped.EndOfStream().Err(), boom) {
		t.Errorf("expected %v, got %v", boom, skipped.EndOfStream().Err())
	}
}

func TestSkip_Name(t *testing.T) {
	if name := NewSkip[int](1).Name(); name != "skip" {
		t.Errorf("expected name 'skip', got %q", name)
	}
}
