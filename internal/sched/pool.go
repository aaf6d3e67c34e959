package sched

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/remeh/sizedwaitgroup"
	"go.uber.org/zap"
)

// Pool is the production Scheduler. Timers are armed with time.AfterFunc and
// fired callbacks run on goroutines bounded by a sized wait group, so at most
// `workers` callbacks execute at once. A fixed-rate task is re-armed only
// after its previous run returns, so it never overlaps itself.
type Pool struct {
	swg sizedwaitgroup.SizedWaitGroup
	log *zap.Logger

	mu     sync.Mutex
	tasks  map[*poolTask]struct{}
	closed bool
}

// NewPool creates a pool running at most workers callbacks concurrently.
func NewPool(workers int, log *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		swg:   sizedwaitgroup.New(workers),
		log:   log,
		tasks: make(map[*poolTask]struct{}),
	}
}

type poolTask struct {
	pool   *Pool
	fn     func()
	period time.Duration // 0 = one-shot

	mu    sync.Mutex
	next  time.Time
	timer *time.Timer
	done  bool
}

func (t *poolTask) Cancel() {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.done = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.mu.Unlock()
	t.pool.forget(t)
}

func (t *poolTask) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (p *Pool) Now() time.Time { return time.Now() }

// Schedule runs fn once after delay.
func (p *Pool) Schedule(fn func(), delay time.Duration) Task {
	return p.arm(fn, delay, 0)
}

// ScheduleAtFixedRate runs fn after initialDelay and then every period.
func (p *Pool) ScheduleAtFixedRate(fn func(), initialDelay, period time.Duration) Task {
	if period <= 0 {
		period = time.Millisecond
	}
	return p.arm(fn, initialDelay, period)
}

func (p *Pool) arm(fn func(), delay, period time.Duration) Task {
	if delay < 0 {
		delay = 0
	}
	t := &poolTask{pool: p, fn: fn, period: period}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		t.done = true
		return t
	}
	p.tasks[t] = struct{}{}
	p.mu.Unlock()

	t.mu.Lock()
	t.next = time.Now().Add(delay)
	t.timer = time.AfterFunc(delay, func() { p.dispatch(t) })
	t.mu.Unlock()
	return t
}

func (p *Pool) dispatch(t *poolTask) {
	if t.Done() {
		return
	}
	p.swg.Add()
	go func() {
		defer p.swg.Done()
		p.run(t)
	}()
}

func (p *Pool) run(t *poolTask) {
	if t.Done() {
		return
	}
	p.invoke(t.fn)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	if t.period == 0 {
		t.done = true
		p.forget(t)
		return
	}
	// Fixed rate: keep the original cadence, run immediately when late.
	t.next = t.next.Add(t.period)
	delay := time.Until(t.next)
	if delay < 0 {
		delay = 0
		t.next = time.Now()
	}
	t.timer = time.AfterFunc(delay, func() { p.dispatch(t) })
}

// invoke runs fn and keeps a panicking callback from taking the worker down.
func (p *Pool) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("scheduled task panic",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	fn()
}

func (p *Pool) forget(t *poolTask) {
	p.mu.Lock()
	delete(p.tasks, t)
	p.mu.Unlock()
}

// Pending returns the number of live tasks.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// Shutdown cancels every outstanding task and waits for running callbacks
// to return or for ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	live := make([]*poolTask, 0, len(p.tasks))
	for t := range p.tasks {
		live = append(live, t)
	}
	p.mu.Unlock()

	for _, t := range live {
		t.Cancel()
	}

	waited := make(chan struct{})
	go func() {
		p.swg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
