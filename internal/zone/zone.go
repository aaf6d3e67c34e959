// Package zone runs effect zones: areas that periodically cast their
// configured skills on whoever stands inside them.
package zone

import (
	"maps"
	"math/rand"
	"slices"
	"time"

	"github.com/l1jgo/gamecore/internal/data"
	"github.com/l1jgo/gamecore/internal/sched"
	"github.com/l1jgo/gamecore/internal/skill"
	"github.com/l1jgo/gamecore/internal/world"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

// Target kinds a zone can affect.
const (
	TargetPlayable = "Playable"
	TargetPlayer   = "Player"
	TargetNpc      = "Npc"
	TargetCreature = "Creature"
)

// Settings is the load-time configuration of an effect zone.
type Settings struct {
	Chance           int // percent per occupant per tick
	InitialDelay     time.Duration
	Reuse            time.Duration
	BypassConditions bool
	ShowDangerIcon   bool
	TargetType       string
}

// SettingsFrom converts a zone_list entry.
func SettingsFrom(info data.ZoneInfo) Settings {
	return Settings{
		Chance:           info.Chance,
		InitialDelay:     time.Duration(info.InitialDelay) * time.Millisecond,
		Reuse:            time.Duration(info.Reuse) * time.Millisecond,
		BypassConditions: info.BypassConditions,
		ShowDangerIcon:   info.ShowDangerIcon,
		TargetType:       info.TargetType,
	}
}

// EffectZone applies its skills to occupants on a fixed-rate task. The task
// exists only while the zone has occupants and at least one skill.
type EffectZone struct {
	ID     int32
	Name   string
	Bounds data.Bounds

	set    Settings
	sched  sched.Scheduler
	skills *skill.Table
	roll   func(n int) int
	log    *zap.Logger

	mu        deadlock.Mutex
	enabled   bool
	occupants map[int32]*world.Creature
	levels    map[int32]int // skill id -> level
	task      sched.Task
	ticks     uint64
}

// New builds a zone from its definition. roll may be nil.
func New(info data.ZoneInfo, s sched.Scheduler, skills *skill.Table, roll func(n int) int, log *zap.Logger) *EffectZone {
	if roll == nil {
		roll = rand.Intn
	}
	z := &EffectZone{
		ID:        info.ID,
		Name:      info.Name,
		Bounds:    info.Bounds,
		set:       SettingsFrom(info),
		sched:     s,
		skills:    skills,
		roll:      roll,
		log:       log.With(zap.Int32("zone", info.ID)),
		enabled:   info.Enabled,
		occupants: make(map[int32]*world.Creature),
		levels:    make(map[int32]int, len(info.Skills)),
	}
	for _, sk := range info.Skills {
		if sk.Level >= 1 {
			z.levels[sk.SkillID] = sk.Level
		}
	}
	return z
}

func (z *EffectZone) Settings() Settings { return z.set }

// Affects reports whether c is of a kind this zone tracks.
func (z *EffectZone) Affects(c *world.Creature) bool {
	switch z.set.TargetType {
	case TargetPlayer:
		return c.IsPlayer()
	case TargetNpc:
		return c.Kind == world.KindNpc
	case TargetCreature:
		return true
	default:
		return c.IsPlayable()
	}
}

// Contains reports whether c currently stands inside the zone bounds.
func (z *EffectZone) Contains(c *world.Creature) bool {
	loc := c.Loc()
	return z.Bounds.Contains(loc.X, loc.Y, loc.Z)
}

// IsInside reports whether c is tracked as an occupant.
func (z *EffectZone) IsInside(c *world.Creature) bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	_, ok := z.occupants[c.ID]
	return ok
}

// OnEnter adds c to the zone. Returns false if c was already inside.
func (z *EffectZone) OnEnter(c *world.Creature) bool {
	z.mu.Lock()
	if _, ok := z.occupants[c.ID]; ok {
		z.mu.Unlock()
		return false
	}
	z.occupants[c.ID] = c
	z.syncTaskLocked()
	z.mu.Unlock()

	if !c.IsPlayer() {
		return true
	}
	c.SetInsideZone(world.ZoneAltered, true)
	if z.set.ShowDangerIcon {
		c.SetInsideZone(world.ZoneDangerArea, true)
		c.Sink().EtcStatusUpdate(c)
	}
	return true
}

// OnExit removes c from the zone. Returns false if c was not inside.
func (z *EffectZone) OnExit(c *world.Creature) bool {
	z.mu.Lock()
	if _, ok := z.occupants[c.ID]; !ok {
		z.mu.Unlock()
		return false
	}
	delete(z.occupants, c.ID)
	z.syncTaskLocked()
	z.mu.Unlock()

	if !c.IsPlayer() {
		return true
	}
	c.SetInsideZone(world.ZoneAltered, false)
	if z.set.ShowDangerIcon {
		c.SetInsideZone(world.ZoneDangerArea, false)
		// another danger zone may still cover the player
		if !c.IsInsideZone(world.ZoneDangerArea) {
			c.Sink().EtcStatusUpdate(c)
		}
	}
	return true
}

// syncTaskLocked starts or stops the apply task so that it runs iff the zone
// has occupants and skills. Caller holds z.mu.
func (z *EffectZone) syncTaskLocked() {
	want := len(z.occupants) > 0 && len(z.levels) > 0
	switch {
	case want && z.task == nil:
		z.task = z.sched.ScheduleAtFixedRate(z.tick, z.set.InitialDelay, z.set.Reuse)
		z.log.Debug("效果區域啟動", zap.Int("occupants", len(z.occupants)))
	case !want && z.task != nil:
		z.task.Cancel()
		z.task = nil
		z.log.Debug("效果區域停止")
	}
}

// Active reports whether the apply task is scheduled.
func (z *EffectZone) Active() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.task != nil
}

// tick casts every skill on every occupant that wins the chance roll. The
// occupant and skill sets are copied first; effects run without z.mu held
// because a kill can re-enter the zone through the death hooks.
func (z *EffectZone) tick() {
	z.mu.Lock()
	if !z.enabled {
		z.mu.Unlock()
		return
	}
	z.ticks++
	occupants := slices.Collect(maps.Values(z.occupants))
	ids := slices.Sorted(maps.Keys(z.levels))
	levels := make([]int, len(ids))
	for i, id := range ids {
		levels[i] = z.levels[id]
	}
	z.mu.Unlock()

	for _, c := range occupants {
		if c.IsDead() || z.roll(100) >= z.set.Chance {
			continue
		}
		for i, id := range ids {
			if c.IsDead() {
				break
			}
			sk := z.skills.Get(id, levels[i])
			if sk == nil {
				continue
			}
			if !z.set.BypassConditions && !sk.CheckCondition(c, c) {
				continue
			}
			if c.IsAffectedBySkill(id) {
				continue
			}
			sk.ApplyEffects(c, c)
		}
	}
}

// Ticks returns how many enabled ticks have run.
func (z *EffectZone) Ticks() uint64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.ticks
}

func (z *EffectZone) Enabled() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.enabled
}

// SetEnabled toggles the zone. A disabled zone keeps its task but casts
// nothing.
func (z *EffectZone) SetEnabled(v bool) {
	z.mu.Lock()
	z.enabled = v
	z.mu.Unlock()
}

// AddSkill sets a skill level. A level below 1 removes the skill.
func (z *EffectZone) AddSkill(id int32, level int) {
	if level < 1 {
		z.RemoveSkill(id)
		return
	}
	z.mu.Lock()
	z.levels[id] = level
	z.syncTaskLocked()
	z.mu.Unlock()
}

func (z *EffectZone) RemoveSkill(id int32) {
	z.mu.Lock()
	delete(z.levels, id)
	z.syncTaskLocked()
	z.mu.Unlock()
}

func (z *EffectZone) ClearSkills() {
	z.mu.Lock()
	clear(z.levels)
	z.syncTaskLocked()
	z.mu.Unlock()
}

// SkillLevel returns the configured level of id, 0 if absent.
func (z *EffectZone) SkillLevel(id int32) int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.levels[id]
}

// Skills returns a copy of the configured skills ordered by id.
func (z *EffectZone) Skills() []data.ZoneSkill {
	z.mu.Lock()
	defer z.mu.Unlock()
	out := make([]data.ZoneSkill, 0, len(z.levels))
	for _, id := range slices.Sorted(maps.Keys(z.levels)) {
		out = append(out, data.ZoneSkill{SkillID: id, Level: z.levels[id]})
	}
	return out
}

// Occupants returns a snapshot of the creatures inside.
func (z *EffectZone) Occupants() []*world.Creature {
	z.mu.Lock()
	defer z.mu.Unlock()
	return slices.Collect(maps.Values(z.occupants))
}

// Close cancels the task and forgets every occupant without touching their
// zone flags. Used on shutdown.
func (z *EffectZone) Close() {
	z.mu.Lock()
	sched.Cancel(z.task)
	z.task = nil
	clear(z.occupants)
	z.mu.Unlock()
}
