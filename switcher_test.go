package pushz

import (
	"errors"
	"slices"
	"testing"
)

func TestSwitcher_SurvivesUpstreamEnd(t *testing.T) {
	sw := NewSwitcher[int]()
	c := ToList[int]()
	done := StreamTo(sw.Output(), Consumer[int](c))

	sw.SwitchTo(Of(1, 2))
	if done.IsComplete() {
		t.Fatal("expected output to outlive its upstream")
	}
	if sw.Current() != nil {
		t.Error("expected no current upstream after it ended")
	}

	sw.SwitchTo(Of(3))
	sw.SendEndOfStream()

	if !done.IsResult() || !slices.Equal(c.List(), []int{1, 2, 3}) {
		t.Errorf("expected [1 2 3], got %v (%v)", c.List(), done.Err())
	}
	if sw.Switches() != 2 {
		t.Errorf("expected 2 switches, got %d", sw.Switches())
	}
}

func TestSwitcher_ReplacesUpstream(t *testing.T) {
	sw := NewSwitcher[int]()
	c := ToList[int]()
	StreamTo(sw.Output(), Consumer[int](c))

	first, second := newManual[int](), newManual[int]()
	sw.SwitchTo(first)
	first.Send(1)
	sw.SwitchTo(second)
	first.Send(2)
	second.Send(3)

	if !slices.Equal(c.List(), []int{1, 3}) {
		t.Errorf("expected [1 3], got %v", c.List())
	}
	if first.suspended != 1 || !first.EndOfStream().IsResult() {
		t.Error("expected previous upstream to be suspended and closed successfully")
	}
	if sw.Current() != Supplier[int](second) {
		t.Error("expected second upstream to be current")
	}
}

func TestSwitcher_AttachBeforeOutputIsBound(t *testing.T) {
	sw := NewSwitcher[int]()
	up := newManual[int]()
	sw.SwitchTo(up)

	if up.resumed != 0 {
		t.Fatal("expected upstream to wait for the output to be resumed")
	}

	c := ToList[int]()
	StreamTo(sw.Output(), Consumer[int](c))
	up.Send(1)

	if up.resumed != 1 || !slices.Equal(c.List(), []int{1}) {
		t.Errorf("expected upstream to be resumed and deliver [1], got %v", c.List())
	}
}

func TestSwitcher_ForwardsSuspension(t *testing.T) {
	sw := NewSwitcher[int]()
	c := ToList[int]()
	StreamTo(sw.Output(), Consumer[int](c))
	up := newManual[int]()
	sw.SwitchTo(up)

	c.Suspend()
	if up.suspended != 1 {
		t.Errorf("expected suspension to reach the upstream, got %d", up.suspended)
	}
	up.Send(1)
	if len(c.List()) != 0 {
		t.Error("expected no delivery while suspended")
	}
	c.Resume(c.acceptor)
	if !slices.Equal(c.List(), []int{1}) {
		t.Errorf("expected [1] after resume, got %v", c.List())
	}
}

func TestSwitcher_EndOfStreamWaitsForCurrent(t *testing.T) {
	sw := NewSwitcher[int]()
	c := ToList[int]()
	done := StreamTo(sw.Output(), Consumer[int](c))
	up := newManual[int]()
	sw.SwitchTo(up)

	sw.SendEndOfStream()
	if done.IsComplete() {
		t.Fatal("expected output to wait for the current upstream")
	}
	up.Send(1)
	up.SendEndOfStream()

	if !done.IsResult() || !slices.Equal(c.List(), []int{1}) {
		t.Errorf("expected [1] and end-of-stream, got %v (%v)", c.List(), done.Err())
	}

	late := newManual[int]()
	sw.SwitchTo(late)
	if !late.EndOfStream().IsResult() {
		t.Error("expected upstream attached after the end to be closed")
	}
}

func TestSwitcher_Failures(t *testing.T) {
	boom := errors.New("boom")

	t.Run("upstream failure closes output", func(t *testing.T) {
		sw := NewSwitcher[int]()
		c := ToList[int]()
		done := StreamTo(sw.Output(), Consumer[int](c))

		sw.SwitchTo(ClosingWithError[int](boom))

		if !errors.Is(done.Err(), boom) {
			t.Errorf("expected %v, got %v", boom, done.Err())
		}
	})

	t.Run("output failure closes upstream", func(t *testing.T) {
		sw := NewSwitcher[int]()
		c := ToList[int]()
		StreamTo(sw.Output(), Consumer[int](c))
		up := newManual[int]()
		sw.SwitchTo(up)

		c.CloseWithError(boom)

		if !errors.Is(up.EndOfStream().Err(), boom) {
			t.Errorf("expected upstream to fail with %v, got %v", boom, up.EndOfStream().Err())
		}

		late := newManual[int]()
		sw.SwitchTo(late)
		if !errors.Is(late.EndOfStream().Err(), boom) {
			t.Errorf("expected late upstream to fail with %v, got %v", boom, late.EndOfStream().Err())
		}
	})

	t.Run("replaced upstream failing later is ignored", func(t *testing.T) {
		sw := NewSwitcher[int]()
		c := ToList[int]()
		done := StreamTo(sw.Output(), Consumer[int](c))

		p := NewPromise[Supplier[int]]()
		stale := OfPromise(p)
		sw.SwitchTo(stale)
		sw.SwitchTo(Of(1))
		p.Reject(boom)

		if done.IsComplete() {
			t.Errorf("expected output to stay open, got %v", done.Err())
		}
	})
}
