package pushz

import (
	"errors"
	"slices"
	"strconv"
	"testing"
)

func TestMapper_BasicTransformation(t *testing.T) {
	// Create a mapper that doubles integers
	mapper := NewMapper("double", func(n int) int { return n * 2 })

	c := ToList[int]()
	done := StreamTo(mapper.Transform(Of(1, 2, 3)), Consumer[int](c))

	if !done.IsResult() {
		t.Fatalf("unexpected error: %v", done.Err())
	}
	if !slices.Equal(c.List(), []int{2, 4, 6}) {
		t.Errorf("expected [2 4 6], got %v", c.List())
	}
	if mapper.Name() != "double" {
		t.Errorf("expected name double, got %s", mapper.Name())
	}
}

func TestMapper_TypeConversion(t *testing.T) {
	c := ToList[string]()
	StreamTo(Map(Of(42, 100), strconv.Itoa), Consumer[string](c))

	if !slices.Equal(c.List(), []string{"42", "100"}) {
		t.Errorf("expected [42 100], got %v", c.List())
	}
}

func TestMapper_PanicBecomesStreamError(t *testing.T) {
	upstream := Of(1, 0, 2)
	mapper := NewMapper("reciprocal", func(n int) int { return 100 / n })

	c := ToList[int]()
	done := StreamTo(mapper.Transform(upstream), Consumer[int](c))

	var streamErr *StreamError[int]
	if !errors.As(done.Err(), &streamErr) {
		t.Fatalf("expected StreamError, got %v", done.Err())
	}
	if streamErr.Item != 0 || streamErr.ProcessorName != "reciprocal" {
		t.Errorf("unexpected error details: %s", streamErr)
	}
	if !slices.Equal(c.List(), []int{100}) {
		t.Errorf("expected [100] before the failure, got %v", c.List())
	}
	if !upstream.EndOfStream().IsError() {
		t.Error("expected upstream to be closed")
	}
}

func TestMapper_FlowControlPassesThrough(t *testing.T) {
	upstream := newManual[int]()
	mapped := Map[int, int](upstream, func(n int) int { return n + 1 })

	var got []int
	acceptor := NewAcceptor(func(n int) { got = append(got, n) })
	mapped.Resume(acceptor)
	if upstream.resumed != 1 {
		t.Fatalf("expected upstream to be resumed, got %d", upstream.resumed)
	}

	mapped.Resume(nil)
	if upstream.suspended != 1 {
		t.Errorf("expected upstream to be suspended, got %d", upstream.suspended)
	}
	upstream.Send(1)
	if len(got) != 0 {
		t.Error("expected no delivery while suspended")
	}

	mapped.Resume(acceptor)
	upstream.SendEndOfStream()
	if !slices.Equal(got, []int{2}) || !mapped.EndOfStream().IsResult() {
		t.Errorf("expected [2] and end-of-stream, got %v", got)
	}
}

func TestMapper_ErrorPropagation(t *testing.T) {
	boom := errors.New("boom")

	t.Run("upstream failure", func(t *testing.T) {
		mapped := Map(ClosingWithError[int](boom), strconv.Itoa)
		if !errors.Is(mapped.EndOfStream().Err(), boom) {
			t.Errorf("expected %v, got %v", boom, mapped.EndOfStream().Err())
		}
	})

	t.Run("downstream failure", func(t *testing.T) {
		upstream := newManual[int]()
		c := ToList[string]()
		StreamTo(Map[int, string](upstream, strconv.Itoa), Consumer[string](c))

		c.CloseWithError(boom)
		if !errors.Is(upstream.EndOfStream().Err(), boom) {
			t.Errorf("expected upstream to fail with %v, got %v", boom, upstream.EndOfStream().Err())
		}
	})
}
