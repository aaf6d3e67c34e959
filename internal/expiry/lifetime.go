package expiry

import (
	"time"

	"github.com/l1jgo/gamecore/internal/sched"
	"github.com/l1jgo/gamecore/internal/world"
	"go.uber.org/zap"
)

// EndOfLifer destroys a limited-time item wherever it is.
type EndOfLifer interface {
	EndOfLife(item *world.GroundItem)
}

type lifetime struct {
	world EndOfLifer
}

func (p lifetime) Deadline(_ *world.GroundItem, end time.Time) (time.Time, bool) {
	return end, !end.IsZero()
}

func (p lifetime) Expire(item *world.GroundItem) {
	p.world.EndOfLife(item)
}

// Lifetime is the registry for limited-time items.
type Lifetime struct {
	*Registry
}

// NewLifetime builds the limited-time item registry.
func NewLifetime(s sched.Scheduler, period time.Duration, w EndOfLifer, log *zap.Logger) *Lifetime {
	if period <= 0 {
		period = time.Second
	}
	return &Lifetime{Registry: New("lifetime", s, period, lifetime{world: w}, log)}
}

// TrackUntil registers item to end its life at end. An item already
// tracked keeps its first end time.
func (l *Lifetime) TrackUntil(item *world.GroundItem, end time.Time) bool {
	return l.Track(item, end)
}
