package expiry

import (
	"context"
	"time"

	"github.com/l1jgo/gamecore/internal/config"
	"github.com/l1jgo/gamecore/internal/sched"
	"github.com/l1jgo/gamecore/internal/world"
	"go.uber.org/zap"
)

// Decayer removes an expired item from the world.
type Decayer interface {
	DecayGroundItem(item *world.GroundItem)
}

// Store is the optional items-on-ground persistence. It only has to forget
// items; saving is the dropper's business.
type Store interface {
	RemoveObject(ctx context.Context, objectID int32) error
}

// storeTimeout bounds a single persistence call made from a sweep.
const storeTimeout = 5 * time.Second

type autoDestroy struct {
	cfg   config.ItemsConfig
	world Decayer
	store Store
	log   *zap.Logger
}

// AutoDestroy is the registry for items lying on the ground.
type AutoDestroy struct {
	*Registry
	sched sched.Scheduler
}

// NewAutoDestroy builds the ground item registry. store may be nil.
func NewAutoDestroy(s sched.Scheduler, cfg config.ItemsConfig, w Decayer, store Store, log *zap.Logger) *AutoDestroy {
	p := &autoDestroy{cfg: cfg, world: w, store: store, log: log}
	period := cfg.AutoDestroySweep
	if period <= 0 {
		period = 5 * time.Second
	}
	return &AutoDestroy{Registry: New("autodestroy", s, period, p, log), sched: s}
}

// Add starts the destroy clock for a freshly dropped item.
func (a *AutoDestroy) Add(item *world.GroundItem) bool {
	if a.Tracked(item) {
		return false
	}
	now := a.sched.Now()
	item.SetDropTime(now)
	return a.Track(item, now)
}

// Restore tracks an item loaded from storage, keeping its saved drop time.
func (a *AutoDestroy) Restore(item *world.GroundItem) bool {
	return a.Track(item, item.DropTime())
}

// Window returns how long item may lie on the ground.
func (p *autoDestroy) Window(item *world.GroundItem) time.Duration {
	switch {
	case item.AutoDestroyTime > 0:
		return item.AutoDestroyTime
	case item.ImmediateEffect:
		return p.cfg.HerbAutoDestroyTime
	default:
		return p.cfg.DefaultAutoDestroy()
	}
}

func (p *autoDestroy) Deadline(item *world.GroundItem, _ time.Time) (time.Time, bool) {
	drop := item.DropTime()
	if drop.IsZero() || item.Location() != world.LocVoid {
		return time.Time{}, false
	}
	return drop.Add(p.Window(item)), true
}

func (p *autoDestroy) Expire(item *world.GroundItem) {
	p.world.DecayGroundItem(item)
	p.forget(item)
}

func (p *autoDestroy) Release(item *world.GroundItem) {
	p.forget(item)
}

func (p *autoDestroy) forget(item *world.GroundItem) {
	if !p.cfg.SaveDroppedItem || p.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := p.store.RemoveObject(ctx, item.ID); err != nil {
		p.log.Error("移除地面物品記錄失敗", zap.Int32("id", item.ID), zap.Error(err))
	}
}
