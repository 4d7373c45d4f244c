package pushz

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestEventloop_PostFromGoroutines(t *testing.T) {
	loop := NewEventloop()
	var wg sync.WaitGroup
	count := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop.Post(func() { count++ })
		}()
	}
	wg.Wait()
	loop.Run()

	if count != 50 {
		t.Errorf("expected 50 tasks, got %d", count)
	}
	if loop.Tick() != 50 {
		t.Errorf("expected tick 50, got %d", loop.Tick())
	}
}

func TestEventloop_RunPendingRunsNestedPosts(t *testing.T) {
	loop := NewEventloop()
	var order []int
	loop.Post(func() {
		order = append(order, 1)
		loop.Post(func() { order = append(order, 3) })
	})
	loop.Post(func() { order = append(order, 2) })

	if n := loop.RunPending(); n != 3 {
		t.Errorf("expected 3 tasks, got %d", n)
	}
	if !slices.Equal(order, []int{1, 2, 3}) {
		t.Errorf("expected FIFO order, got %v", order)
	}
}

func TestEventloop_Schedule(t *testing.T) {
	clock := clockz.NewFakeClock()
	loop := NewEventloop().WithClock(clock)

	fired := false
	loop.Schedule(time.Second, func() { fired = true })
	cancel := loop.Schedule(time.Second, func() { t.Error("cancelled task ran") })
	if loop.Pending() != 2 {
		t.Fatalf("expected 2 pending timers, got %d", loop.Pending())
	}

	cancel()
	cancel()
	if loop.Pending() != 1 {
		t.Fatalf("expected cancel to release its timer, got %d pending", loop.Pending())
	}

	fire(t, clock, loop, time.Second)
	if !fired {
		t.Error("expected scheduled task to run")
	}
	if loop.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", loop.Pending())
	}
}

func TestSubmit(t *testing.T) {
	loop := NewEventloop()

	t.Run("result is delivered on the loop", func(t *testing.T) {
		p := Submit(loop, func() (int, error) { return 42, nil })
		if p.IsComplete() {
			t.Fatal("expected promise to complete on the loop, not inline")
		}
		loop.Run()
		if v, err := p.Result(); v != 42 || err != nil {
			t.Errorf("expected (42, nil), got (%d, %v)", v, err)
		}
	})

	t.Run("errors and panics", func(t *testing.T) {
		boom := errors.New("boom")
		failed := Submit(loop, func() (int, error) { return 0, boom })
		panicked := Submit(loop, func() (int, error) { panic("worker crashed") })
		loop.Run()

		if !errors.Is(failed.Err(), boom) {
			t.Errorf("expected %v, got %v", boom, failed.Err())
		}
		if panicked.Err() == nil {
			t.Error("expected panic to become an error")
		}
	})

	t.Run("workers are bounded", func(t *testing.T) {
		loop := NewEventloop().WithWorkers(2)
		var running, peak atomic.Int32
		for i := 0; i < 10; i++ {
			Submit(loop, func() (struct{}, error) {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return struct{}{}, nil
			})
		}
		loop.Run()

		if peak.Load() > 2 {
			t.Errorf("expected at most 2 concurrent jobs, got %d", peak.Load())
		}
	})
}

func TestOfChannel(t *testing.T) {
	t.Run("buffered items are pushed synchronously", func(t *testing.T) {
		ch := make(chan int, 3)
		ch <- 1
		ch <- 2
		ch <- 3
		close(ch)

		c := ToList[int]()
		done := StreamTo(OfChannel(NewEventloop(), ch), Consumer[int](c))

		if !done.IsResult() || !slices.Equal(c.List(), []int{1, 2, 3}) {
			t.Errorf("expected [1 2 3], got %v (%v)", c.List(), done.Err())
		}
	})

	t.Run("blocking receives run off-loop", func(t *testing.T) {
		loop := NewEventloop()
		ch := make(chan int)
		go func() {
			for i := 0; i < 20; i++ {
				ch <- i
			}
			close(ch)
		}()

		c := ToList[int]()
		done := StreamTo(OfChannel(loop, ch), Consumer[int](c))
		loop.Run()

		if !done.IsResult() || !slices.Equal(c.List(), sequence(20)) {
			t.Errorf("expected 20 items in order, got %v (%v)", c.List(), done.Err())
		}
	})

	t.Run("closing releases a pending receive", func(t *testing.T) {
		loop := NewEventloop()
		boom := errors.New("boom")
		s := OfChannel(loop, make(chan int))
		done := StreamTo(s, Consumer[int](ToList[int]()))
		loop.Schedule(10*time.Millisecond, func() { s.CloseWithError(boom) })

		returned := make(chan struct{})
		go func() {
			loop.Run()
			close(returned)
		}()
		select {
		case <-returned:
		case <-time.After(2 * time.Second):
			t.Fatalf("Run still blocked after close, %d pending", loop.Pending())
		}

		if !errors.Is(done.Err(), boom) {
			t.Errorf("expected %v, got %v", boom, done.Err())
		}
	})
}

func TestWithTimeout(t *testing.T) {
	t.Run("closes streams when the deadline passes", func(t *testing.T) {
		clock := clockz.NewFakeClock()
		loop := NewEventloop().WithClock(clock)

		s := Idle[int]()
		c := ToList[int]()
		done := WithTimeout(loop, 5*time.Second, StreamTo(s, Consumer[int](c)), s, c)

		fire(t, clock, loop, 5*time.Second)

		if !errors.Is(done.Err(), ErrTimeout) {
			t.Errorf("expected %v, got %v", ErrTimeout, done.Err())
		}
		if !errors.Is(s.EndOfStream().Err(), ErrTimeout) {
			t.Errorf("expected supplier to be closed with %v, got %v", ErrTimeout, s.EndOfStream().Err())
		}
	})

	t.Run("completion cancels the deadline", func(t *testing.T) {
		loop := NewEventloop().WithClock(clockz.NewFakeClock())
		p := NewPromise[int]()
		result := WithTimeout(loop, time.Minute, p)

		p.Resolve(7)

		if v, err := result.Result(); v != 7 || err != nil {
			t.Errorf("expected (7, nil), got (%d, %v)", v, err)
		}
		if loop.Pending() != 0 {
			t.Errorf("expected deadline to be cancelled, got %d pending", loop.Pending())
		}
	})
}
