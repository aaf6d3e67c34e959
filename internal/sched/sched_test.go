package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestPool_OneShotRunsOnce(t *testing.T) {
	p := NewPool(2, zap.NewNop())
	done := make(chan struct{}, 2)
	task := p.Schedule(func() { done <- struct{}{} }, 5*time.Millisecond)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("one-shot never ran")
	}
	deadline := time.Now().Add(time.Second)
	for !task.Done() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !task.Done() {
		t.Fatalf("one-shot not marked done")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestPool_CancelBeforeFire(t *testing.T) {
	p := NewPool(2, zap.NewNop())
	var ran atomic.Bool
	task := p.Schedule(func() { ran.Store(true) }, 50*time.Millisecond)
	task.Cancel()
	task.Cancel()
	time.Sleep(120 * time.Millisecond)
	if ran.Load() {
		t.Fatalf("cancelled task ran")
	}
	if p.Pending() != 0 {
		t.Fatalf("pending=%d want=0", p.Pending())
	}
}

func TestPool_FixedRateSurvivesPanic(t *testing.T) {
	p := NewPool(1, zap.NewNop())
	var runs atomic.Int32
	task := p.ScheduleAtFixedRate(func() {
		if runs.Add(1) == 1 {
			panic("boom")
		}
	}, 0, 5*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	task.Cancel()
	if runs.Load() < 3 {
		t.Fatalf("runs=%d want>=3", runs.Load())
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestPool_ScheduleAfterShutdownIsInert(t *testing.T) {
	p := NewPool(1, zap.NewNop())
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	var ran atomic.Bool
	task := p.Schedule(func() { ran.Store(true) }, 0)
	time.Sleep(20 * time.Millisecond)
	if ran.Load() || !task.Done() {
		t.Fatalf("task scheduled after shutdown should be inert")
	}
}

type countingTask struct{ cancels int }

func (c *countingTask) Cancel()    { c.cancels++ }
func (c *countingTask) Done() bool { return c.cancels > 0 }

func TestSlot_RebindCancelsPrevious(t *testing.T) {
	var s Slot
	first := &countingTask{}
	second := &countingTask{}
	s.Rebind(func() Task { return first })
	if !s.Active() {
		t.Fatalf("slot should be active")
	}
	s.Rebind(func() Task { return second })
	if first.cancels != 1 {
		t.Fatalf("first cancels=%d want=1", first.cancels)
	}
	s.Cancel()
	s.Cancel()
	if second.cancels != 1 {
		t.Fatalf("second cancels=%d want=1", second.cancels)
	}
	if s.Active() {
		t.Fatalf("slot should be idle after cancel")
	}
}
