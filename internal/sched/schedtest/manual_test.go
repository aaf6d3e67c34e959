package schedtest

import (
	"testing"
	"time"
)

func TestManual_RunsInDeadlineOrder(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var order []string
	m.Schedule(func() { order = append(order, "b") }, 2*time.Second)
	m.Schedule(func() { order = append(order, "a") }, time.Second)
	m.Schedule(func() { order = append(order, "c") }, 3*time.Second)

	m.Advance(2 * time.Second)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order=%v want=[a b]", order)
	}
	m.Advance(time.Second)
	if len(order) != 3 {
		t.Fatalf("order=%v want 3 entries", order)
	}
	if m.Pending() != 0 {
		t.Fatalf("pending=%d want=0", m.Pending())
	}
}

func TestManual_FixedRateAndCancel(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	runs := 0
	task := m.ScheduleAtFixedRate(func() { runs++ }, 0, time.Second)

	m.Advance(3 * time.Second)
	if runs != 4 {
		t.Fatalf("runs=%d want=4", runs)
	}
	task.Cancel()
	task.Cancel()
	m.Advance(5 * time.Second)
	if runs != 4 {
		t.Fatalf("runs after cancel=%d want=4", runs)
	}
	if !task.Done() {
		t.Fatalf("cancelled task not done")
	}
}

func TestManual_CallbackSeesItsOwnDeadline(t *testing.T) {
	start := time.Unix(100, 0)
	m := NewManual(start)
	var seen time.Time
	m.Schedule(func() { seen = m.Now() }, 1500*time.Millisecond)
	m.Advance(10 * time.Second)
	if want := start.Add(1500 * time.Millisecond); !seen.Equal(want) {
		t.Fatalf("now in callback=%v want=%v", seen, want)
	}
	if want := start.Add(10 * time.Second); !m.Now().Equal(want) {
		t.Fatalf("now=%v want=%v", m.Now(), want)
	}
}
