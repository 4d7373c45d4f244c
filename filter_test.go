package pushz

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestFilter_BasicFiltering(t *testing.T) {
	// Create a filter that keeps positive numbers
	filter := NewFilter(func(n int) bool {
		return n > 0
	})

	c := ToList[int]()
	done := StreamTo(filter.Transform(Of(-2, -1, 0, 1, 2)), Consumer[int](c))

	if !done.IsResult() {
		t.Fatalf("unexpected error: %v", done.Err())
	}
	// Verify only positive numbers passed through
	if !slices.Equal(c.List(), []int{1, 2}) {
		t.Errorf("expected [1 2], got %v", c.List())
	}
}

func TestFilter_Name(t *testing.T) {
	filter := NewFilter(func(string) bool { return true })
	if filter.Name() != "filter" {
		t.Errorf("expected default name filter, got %s", filter.Name())
	}
	if filter.WithName("non-empty").Name() != "non-empty" {
		t.Errorf("expected custom name, got %s", filter.Name())
	}
}

func TestFilter_DropsEverything(t *testing.T) {
	filter := NewFilter(func(string) bool { return false })

	c := ToList[string]()
	done := StreamTo(filter.Transform(Of("a", "b")), Consumer[string](c))

	if !done.IsResult() || len(c.List()) != 0 {
		t.Errorf("expected empty successful stream, got %v (%v)", c.List(), done.Err())
	}
}

func TestFilter_PanicBecomesStreamError(t *testing.T) {
	filter := NewFilter(func(s string) bool {
		return strings.Split(s, "=")[1] != ""
	}).WithName("pairs")

	upstream := Of("a=1", "broken", "b=2")
	c := ToList[string]()
	done := StreamTo(filter.Transform(upstream), Consumer[string](c))

	var streamErr *StreamError[string]
	if !errors.As(done.Err(), &streamErr) || streamErr.Item != "broken" || streamErr.ProcessorName != "pairs" {
		t.Fatalf("expected StreamError for broken, got %v", done.Err())
	}
	if !slices.Equal(c.List(), []string{"a=1"}) {
		t.Errorf("expected [a=1] before the failure, got %v", c.List())
	}
	if !upstream.EndOfStream().IsError() {
		t.Error("expected upstream to be closed")
	}
}

func TestFilter_KeepsCapabilities(t *testing.T) {
	filtered := NewFilter(func(int) bool { return true }).Transform(Of(1))
	if !CapabilitiesOf(filtered).Has(LateBinding) {
		t.Error("expected late binding to carry over from the upstream")
	}
	if CapabilitiesOf(NewFilter(func(int) bool { return true }).Transform(newManual[int]())).Has(LateBinding) {
		t.Error("expected no late binding over an upstream without it")
	}
}
