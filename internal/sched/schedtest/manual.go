// Package schedtest provides a deterministic Scheduler driven by a virtual
// clock, for tests of code that schedules timers.
package schedtest

import (
	"sort"
	"sync"
	"time"

	"github.com/l1jgo/gamecore/internal/sched"
)

// Manual is a sched.Scheduler whose clock only moves when Advance is called.
// Due callbacks run synchronously on the goroutine calling Advance.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks []*manualTask
}

// NewManual returns a scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

type manualTask struct {
	m      *Manual
	fn     func()
	due    time.Time
	period time.Duration
	seq    uint64
	done   bool
}

func (t *manualTask) Cancel() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.done = true
}

func (t *manualTask) Done() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	return t.done
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Schedule(fn func(), delay time.Duration) sched.Task {
	return m.add(fn, delay, 0)
}

func (m *Manual) ScheduleAtFixedRate(fn func(), initialDelay, period time.Duration) sched.Task {
	if period <= 0 {
		period = time.Millisecond
	}
	return m.add(fn, initialDelay, period)
}

func (m *Manual) add(fn func(), delay, period time.Duration) *manualTask {
	if delay < 0 {
		delay = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{m: m, fn: fn, due: m.now.Add(delay), period: period, seq: m.seq}
	m.tasks = append(m.tasks, t)
	return t
}

// Advance moves the clock forward by d, running every callback that comes
// due on the way in deadline order. Callbacks may schedule or cancel tasks.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		t.fn()

		m.mu.Lock()
		if t.period > 0 && !t.done {
			t.due = t.due.Add(t.period)
		} else {
			t.done = true
		}
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.now = target
	m.compact()
	m.mu.Unlock()
}

func (m *Manual) nextDue(target time.Time) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compact()
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].due.Equal(m.tasks[j].due) {
			return m.tasks[i].seq < m.tasks[j].seq
		}
		return m.tasks[i].due.Before(m.tasks[j].due)
	})
	if len(m.tasks) == 0 || m.tasks[0].due.After(target) {
		return nil
	}
	t := m.tasks[0]
	if t.due.After(m.now) {
		m.now = t.due
	}
	return t
}

func (m *Manual) compact() {
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.done {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(m.tasks); i++ {
		m.tasks[i] = nil
	}
	m.tasks = live
}

// Pending returns the number of tasks that have not finished or been cancelled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.done {
			n++
		}
	}
	return n
}
