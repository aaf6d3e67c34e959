// Package sched is the process-wide task scheduler. Callers schedule one-shot
// or fixed-rate callbacks and keep the returned Task to cancel them later;
// nothing here blocks the caller waiting for a callback to run.
package sched

import (
	"sync"
	"time"
)

// Task is a handle to a scheduled callback.
type Task interface {
	// Cancel stops future runs. Safe to call more than once.
	Cancel()
	// Done reports whether the task was cancelled or, for one-shot tasks,
	// has already run.
	Done() bool
}

// Scheduler runs callbacks after a delay or at a fixed rate.
type Scheduler interface {
	Now() time.Time
	Schedule(fn func(), delay time.Duration) Task
	ScheduleAtFixedRate(fn func(), initialDelay, period time.Duration) Task
}

// Cancel cancels t if it is non-nil.
func Cancel(t Task) {
	if t != nil {
		t.Cancel()
	}
}

// Slot holds at most one outstanding task for a logical timer. Rebinding
// always cancels the previous task before the replacement is scheduled, so a
// slot never leaks a second live timer.
type Slot struct {
	mu   sync.Mutex
	task Task
}

// Rebind cancels the current task and stores the one returned by start.
// start runs while the slot is locked; it must not touch the same slot.
func (s *Slot) Rebind(start func() Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task != nil {
		s.task.Cancel()
		s.task = nil
	}
	s.task = start()
}

// Cancel cancels and clears the current task, if any.
func (s *Slot) Cancel() {
	s.mu.Lock()
	t := s.task
	s.task = nil
	s.mu.Unlock()
	Cancel(t)
}

// Active reports whether the slot holds a task that has not finished.
func (s *Slot) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task != nil && !s.task.Done()
}
