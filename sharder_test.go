package pushz

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
)

func TestSharder_RoutesEveryItemOnce(t *testing.T) {
	s := NewSharder(identity)
	lists := make([]*ListConsumer[int], 3)
	for i := range lists {
		lists[i] = ToList[int]()
		StreamTo(s.NewOutput(), Consumer[int](lists[i]))
	}

	input := sequence(999)
	done := StreamTo(OfSlice(input), s.Input())

	if !done.IsResult() {
		t.Fatalf("expected input to be acknowledged, got %v", done.Err())
	}
	for shard, list := range lists {
		var expected []int
		for _, v := range input {
			if v%3 == shard {
				expected = append(expected, v)
			}
		}
		if !slices.Equal(list.List(), expected) {
			t.Errorf("shard %d: expected %d items in order, got %d", shard, len(expected), len(list.List()))
		}
		if !list.Acknowledgement().IsResult() {
			t.Errorf("shard %d: expected end-of-stream", shard)
		}
	}

	stats := s.Stats()
	if stats.TotalItems != 999 || stats.NumShards != 3 {
		t.Errorf("unexpected stats: %s", stats)
	}
	if stats.DistributionBalance() != 0 {
		t.Errorf("expected perfect balance, got %f", stats.DistributionBalance())
	}
}

func TestSharder_NegativePartition(t *testing.T) {
	s := NewSharder(func(v int) int { return -v })
	a, b := ToList[int](), ToList[int]()
	StreamTo(s.NewOutput(), Consumer[int](a))
	StreamTo(s.NewOutput(), Consumer[int](b))

	StreamTo(Of(1, 2, 3), s.Input())

	if !slices.Equal(a.List(), []int{2}) || !slices.Equal(b.List(), []int{1, 3}) {
		t.Errorf("expected [2] and [1 3], got %v and %v", a.List(), b.List())
	}
}

func TestSharder_WaitsForEveryOutput(t *testing.T) {
	s := NewSharder(identity)
	out0, out1 := s.NewOutput(), s.NewOutput()
	src := newManual[int]()
	StreamTo[int](src, s.Input())

	StreamTo(out0, Consumer[int](ToList[int]()))
	if src.resumed != 0 {
		t.Fatal("expected input to stay suspended while an output is not ready")
	}

	StreamTo(out1, Consumer[int](ToList[int]()))
	if src.resumed != 1 {
		t.Errorf("expected input to resume once all outputs are ready, got %d", src.resumed)
	}
}

func TestSharder_Backpressure(t *testing.T) {
	loop := NewEventloop()
	s := NewSharder(identity)

	slow := suspendingList[int](loop)
	fast := ToList[int]()
	StreamTo(s.NewOutput(), Consumer[int](slow))
	StreamTo(s.NewOutput(), Consumer[int](fast))

	src := newManual[int]()
	done := StreamTo[int](src, s.Input())

	src.Send(0)
	if src.suspended != 1 {
		t.Fatalf("expected a suspended output to suspend the input, got %d", src.suspended)
	}
	src.Send(1)
	if len(fast.List()) != 0 {
		t.Error("expected items to wait while any output is suspended")
	}

	loop.Run()
	src.SendEndOfStream()
	loop.Run()

	if !done.IsResult() {
		t.Fatalf("expected success, got %v", done.Err())
	}
	if !slices.Equal(slow.List(), []int{0}) || !slices.Equal(fast.List(), []int{1}) {
		t.Errorf("expected [0] and [1], got %v and %v", slow.List(), fast.List())
	}
}

func TestSharder_Failures(t *testing.T) {
	boom := errors.New("boom")

	t.Run("output failure closes input and siblings", func(t *testing.T) {
		s := NewSharder(identity)
		a, b := ToList[int](), ToList[int]()
		StreamTo(s.NewOutput(), Consumer[int](a))
		StreamTo(s.NewOutput(), Consumer[int](b))
		src := newManual[int]()
		StreamTo[int](src, s.Input())

		b.CloseWithError(boom)

		if !errors.Is(src.EndOfStream().Err(), boom) {
			t.Errorf("expected input supplier to fail with %v, got %v", boom, src.EndOfStream().Err())
		}
		if !errors.Is(a.Acknowledgement().Err(), boom) {
			t.Errorf("expected sibling output to fail with %v, got %v", boom, a.Acknowledgement().Err())
		}
	})

	t.Run("input failure closes outputs", func(t *testing.T) {
		s := NewSharder(identity)
		a := ToList[int]()
		StreamTo(s.NewOutput(), Consumer[int](a))
		src := newManual[int]()
		StreamTo[int](src, s.Input())

		src.CloseWithError(boom)

		if !errors.Is(a.Acknowledgement().Err(), boom) {
			t.Errorf("expected output to fail with %v, got %v", boom, a.Acknowledgement().Err())
		}
	})

	t.Run("partition panic", func(t *testing.T) {
		s := NewSharder(func(v int) int {
			if v == 2 {
				panic("no shard for 2")
			}
			return v
		}).WithName("orders")
		a := ToList[int]()
		StreamTo(s.NewOutput(), Consumer[int](a))
		src := Of(1, 2, 3)
		done := StreamTo(src, s.Input())

		var streamErr *StreamError[int]
		if !errors.As(done.Err(), &streamErr) || streamErr.Item != 2 || streamErr.ProcessorName != "orders" {
			t.Fatalf("expected StreamError for item 2, got %v", done.Err())
		}
		if !slices.Equal(a.List(), []int{1}) || !a.Acknowledgement().IsError() {
			t.Errorf("expected output to fail after [1], got %v", a.List())
		}
	})

	t.Run("items without outputs", func(t *testing.T) {
		s := NewSharder(identity)
		done := StreamTo(Of(1), s.Input())
		if !errors.Is(done.Err(), errNoOutputs) {
			t.Errorf("expected %v, got %v", errNoOutputs, done.Err())
		}
	})
}

func TestSharder_NoOutputsEmptyInput(t *testing.T) {
	s := NewSharder(identity)
	if done := StreamTo(Of[int](), s.Input()); !done.IsResult() {
		t.Errorf("expected empty input to be acknowledged, got %v", done.Err())
	}
}

func TestSharder_ClosedOutputDoesNotBlock(t *testing.T) {
	s := NewSharder(identity)
	a := ToList[int]()
	StreamTo(s.NewOutput(), Consumer[int](a))
	StreamTo(s.NewOutput(), ClosingConsumer[int]())

	done := StreamTo(Of(0, 1, 2, 3), s.Input())

	if !done.IsResult() {
		t.Fatalf("expected input to be acknowledged, got %v", done.Err())
	}
	if !slices.Equal(a.List(), []int{0, 2}) {
		t.Errorf("expected [0 2], got %v", a.List())
	}
}

func TestHashPartition(t *testing.T) {
	type order struct {
		customer string
		amount   int
	}
	partition := HashPartition(func(o order) string { return o.customer })

	for i := 0; i < 100; i++ {
		customer := fmt.Sprintf("customer-%d", i)
		first := partition(order{customer, 1})
		if first < 0 {
			t.Fatalf("expected non-negative partition, got %d", first)
		}
		if partition(order{customer, 2}) != first {
			t.Errorf("expected %s to always map to the same partition", customer)
		}
	}
}

func TestShardStats(t *testing.T) {
	skewed := ShardStats{TotalItems: 100, NumShards: 2, ItemsPerShard: []int64{100, 0}}
	if got := skewed.DistributionBalance(); got != 1 {
		t.Errorf("expected balance 1 for a fully skewed split, got %f", got)
	}
	if got := (ShardStats{}).DistributionBalance(); got != 0 {
		t.Errorf("expected 0 for empty stats, got %f", got)
	}
	if !strings.Contains(skewed.String(), "Balance: 1.00") {
		t.Errorf("unexpected String(): %s", skewed)
	}
}
