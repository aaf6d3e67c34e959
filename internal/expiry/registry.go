// Package expiry tracks objects that must disappear after a while: items
// dropped on the ground and limited-lifetime items.
package expiry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/l1jgo/gamecore/internal/sched"
	"github.com/l1jgo/gamecore/internal/world"
	"go.uber.org/zap"
)

// Policy decides when a tracked item is due and what expiring it means.
type Policy interface {
	// Deadline returns the moment after which item expires. ok=false drops
	// the item from tracking without expiring it.
	Deadline(item *world.GroundItem, stamp time.Time) (deadline time.Time, ok bool)
	// Expire is the item's terminal action.
	Expire(item *world.GroundItem)
}

// releaser is implemented by policies that must hear about explicit untracks.
type releaser interface {
	Release(item *world.GroundItem)
}

// Stats is a point-in-time summary for operators.
type Stats struct {
	Name    string
	Tracked int
	Expired int64 // finalized by a sweep
	Dropped int64 // removed by a sweep without finalization
}

// Registry is a concurrent set of tracked items swept on a fixed period.
// Sweeps are single-flight: a tick that finds a sweep in progress returns
// and leaves newly due items for the next tick.
type Registry struct {
	name   string
	sched  sched.Scheduler
	period time.Duration
	policy Policy
	log    *zap.Logger

	items   sync.Map // *world.GroundItem → time.Time stamp
	working atomic.Bool
	expired atomic.Int64
	dropped atomic.Int64

	task sched.Slot
}

// New creates a registry. Call Start to begin sweeping.
func New(name string, s sched.Scheduler, period time.Duration, p Policy, log *zap.Logger) *Registry {
	return &Registry{name: name, sched: s, period: period, policy: p, log: log}
}

func (r *Registry) Name() string { return r.name }

// Track registers item with the given stamp. Re-tracking an item already
// present leaves the first stamp untouched and returns false.
func (r *Registry) Track(item *world.GroundItem, stamp time.Time) bool {
	_, loaded := r.items.LoadOrStore(item, stamp)
	return !loaded
}

// Untrack removes item. Safe for items that are not tracked.
func (r *Registry) Untrack(item *world.GroundItem) {
	if _, ok := r.items.LoadAndDelete(item); !ok {
		return
	}
	if rel, ok := r.policy.(releaser); ok {
		rel.Release(item)
	}
}

// Tracked reports whether item is in the registry.
func (r *Registry) Tracked(item *world.GroundItem) bool {
	_, ok := r.items.Load(item)
	return ok
}

// Len returns the number of tracked items.
func (r *Registry) Len() int {
	n := 0
	r.items.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (r *Registry) Stats() Stats {
	return Stats{
		Name:    r.name,
		Tracked: r.Len(),
		Expired: r.expired.Load(),
		Dropped: r.dropped.Load(),
	}
}

// Sweep expires every due item. Returns false if another sweep was
// already running.
func (r *Registry) Sweep() bool {
	if !r.working.CompareAndSwap(false, true) {
		return false
	}
	defer r.working.Store(false)

	now := r.sched.Now()
	var expired, dropped int
	r.items.Range(func(k, v any) bool {
		item := k.(*world.GroundItem)
		deadline, ok := r.policy.Deadline(item, v.(time.Time))
		if !ok {
			if r.items.CompareAndDelete(k, v) {
				dropped++
			}
			return true
		}
		if !now.After(deadline) {
			return true
		}
		// An Untrack racing this sweep wins: no expiry for it.
		if r.items.CompareAndDelete(k, v) {
			r.policy.Expire(item)
			expired++
		}
		return true
	})

	if expired > 0 || dropped > 0 {
		r.expired.Add(int64(expired))
		r.dropped.Add(int64(dropped))
		r.log.Debug("expiry sweep",
			zap.String("registry", r.name),
			zap.Int("expired", expired),
			zap.Int("dropped", dropped),
		)
	}
	return true
}

// Start schedules the periodic sweep. Restarting replaces the old task.
func (r *Registry) Start() {
	r.task.Rebind(func() sched.Task {
		return r.sched.ScheduleAtFixedRate(func() { r.Sweep() }, r.period, r.period)
	})
}

// Stop cancels the periodic sweep. Tracked items stay tracked.
func (r *Registry) Stop() {
	r.task.Cancel()
}
