package world

import (
	"math/rand"
	"sync/atomic"

	"github.com/l1jgo/gamecore/internal/sched"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

// Kind distinguishes players from NPCs and summons.
type Kind byte

const (
	KindPlayer Kind = iota
	KindNpc
	KindSummon
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindNpc:
		return "npc"
	case KindSummon:
		return "summon"
	default:
		return "unknown"
	}
}

// Location is a world coordinate.
type Location struct {
	X, Y, Z int32
}

// Runtime bundles the collaborators every creature shares.
type Runtime struct {
	Sched sched.Scheduler
	Stats StatEngine
	Roll  func(n int) int // uniform in [0,n); nil = math/rand
	Log   *zap.Logger
}

func (rt Runtime) roll(n int) int {
	if rt.Roll != nil {
		return rt.Roll(n)
	}
	return rand.Intn(n)
}

func (rt Runtime) log() *zap.Logger {
	if rt.Log != nil {
		return rt.Log
	}
	return zap.NewNop()
}

// Hooks lets the owning layer react to combat state changes.
type Hooks struct {
	AbortAttack func(c *Creature)
	AbortCast   func(c *Creature)
	OnDeath     func(c, killer *Creature)
	OnMove      func(c *Creature) // after a spawn or teleport, for zone revalidation
	OnRemove    func(c *Creature) // after leaving the world
}

// Spec describes a creature at spawn time.
type Spec struct {
	ID    int32
	Name  string
	Kind  Kind
	Level int
	Loc   Location
	MaxHP float64
	MaxMP float64
	MaxCP float64 // players only
}

// Creature is any living actor. Resource values live in Status; everything
// else here is either immutable after spawn or guarded by mu / atomics.
type Creature struct {
	ID    int32
	Name  string
	Kind  Kind
	Level int

	rt    Runtime
	hooks Hooks

	mu      deadlock.RWMutex
	loc     Location
	maxHP   float64
	maxMP   float64
	maxCP   float64
	party   *Party
	sink    Sink
	effects map[int32]*Effect

	gm            atomic.Bool
	canGiveDamage atomic.Bool
	dead          atomic.Bool
	invul         atomic.Bool
	immortal      atomic.Bool
	stunned       atomic.Bool
	attacking     atomic.Bool
	casting       atomic.Bool

	zones [ZoneIDCount]atomic.Int32

	status *Status
}

// NewCreature spawns a creature at full HP/MP/CP.
func NewCreature(spec Spec, rt Runtime, hooks Hooks) *Creature {
	c := &Creature{
		ID:      spec.ID,
		Name:    spec.Name,
		Kind:    spec.Kind,
		Level:   spec.Level,
		rt:      rt,
		hooks:   hooks,
		loc:     spec.Loc,
		maxHP:   spec.MaxHP,
		maxMP:   spec.MaxMP,
		maxCP:   spec.MaxCP,
		effects: make(map[int32]*Effect),
	}
	c.canGiveDamage.Store(true)
	c.status = newStatus(c, spec.MaxHP, spec.MaxMP, spec.MaxCP)
	return c
}

// Status returns the creature's resource controller.
func (c *Creature) Status() *Status { return c.status }

func (c *Creature) IsPlayer() bool { return c.Kind == KindPlayer }

// IsPlayable is true for players and their summons.
func (c *Creature) IsPlayable() bool { return c.Kind == KindPlayer || c.Kind == KindSummon }

func (c *Creature) IsDead() bool     { return c.dead.Load() }
func (c *Creature) IsInvul() bool    { return c.invul.Load() }
func (c *Creature) SetInvul(v bool)  { c.invul.Store(v) }
func (c *Creature) IsMortal() bool   { return !c.immortal.Load() }
func (c *Creature) SetMortal(v bool) { c.immortal.Store(!v) }
func (c *Creature) IsStunned() bool  { return c.stunned.Load() }
func (c *Creature) SetStunned(v bool) {
	c.stunned.Store(v)
}

// StopStunning clears the stun state.
func (c *Creature) StopStunning() { c.stunned.Store(false) }

func (c *Creature) IsGM() bool { return c.gm.Load() }

// SetGM marks the creature as a game master; canGiveDamage=false makes its
// hits harmless.
func (c *Creature) SetGM(gm, canGiveDamage bool) {
	c.gm.Store(gm)
	c.canGiveDamage.Store(canGiveDamage)
}

func (c *Creature) CanGiveDamage() bool { return c.canGiveDamage.Load() }

func (c *Creature) SetAttacking(v bool) { c.attacking.Store(v) }
func (c *Creature) IsAttacking() bool   { return c.attacking.Load() }
func (c *Creature) SetCasting(v bool)   { c.casting.Store(v) }
func (c *Creature) IsCasting() bool     { return c.casting.Load() }

// AbortAttack cancels the current attack.
func (c *Creature) AbortAttack() {
	c.attacking.Store(false)
	if c.hooks.AbortAttack != nil {
		c.hooks.AbortAttack(c)
	}
}

// AbortCast cancels the current cast.
func (c *Creature) AbortCast() {
	c.casting.Store(false)
	if c.hooks.AbortCast != nil {
		c.hooks.AbortCast(c)
	}
}

func (c *Creature) MaxHP() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxHP
}

func (c *Creature) MaxMP() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxMP
}

func (c *Creature) MaxCP() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxCP
}

// SetMaxStats updates the stat-derived maximums. Current values above a
// new maximum are clamped down; a raised maximum starts regeneration.
func (c *Creature) SetMaxStats(hp, mp, cp float64) {
	c.mu.Lock()
	c.maxHP, c.maxMP, c.maxCP = hp, mp, cp
	c.mu.Unlock()
	c.status.resync()
}

func (c *Creature) Loc() Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loc
}

// TeleportTo moves the creature and fires the move hook.
func (c *Creature) TeleportTo(loc Location) {
	c.mu.Lock()
	c.loc = loc
	c.mu.Unlock()
	if c.hooks.OnMove != nil {
		c.hooks.OnMove(c)
	}
}

func (c *Creature) Party() *Party {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.party
}

func (c *Creature) setParty(p *Party) {
	c.mu.Lock()
	c.party = p
	c.mu.Unlock()
}

// Sink returns where this creature's client notifications go. Creatures
// without a client get a sink that drops everything.
func (c *Creature) Sink() Sink {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sink == nil {
		return nopSink{}
	}
	return c.sink
}

func (c *Creature) SetSink(s Sink) {
	c.mu.Lock()
	c.sink = s
	c.mu.Unlock()
}

// SetInsideZone increments or decrements the counter for id.
func (c *Creature) SetInsideZone(id ZoneID, inside bool) {
	if id >= ZoneIDCount {
		return
	}
	if inside {
		c.zones[id].Add(1)
		return
	}
	for {
		n := c.zones[id].Load()
		if n <= 0 || c.zones[id].CompareAndSwap(n, n-1) {
			return
		}
	}
}

func (c *Creature) IsInsideZone(id ZoneID) bool {
	if id >= ZoneIDCount {
		return false
	}
	return c.zones[id].Load() > 0
}

// DoDie runs the death transition. Only the first caller wins; later calls
// return false and do nothing.
func (c *Creature) DoDie(killer *Creature) bool {
	if !c.dead.CompareAndSwap(false, true) {
		return false
	}
	c.AbortAttack()
	c.AbortCast()
	c.status.StopRegeneration()

	if c.hooks.OnDeath != nil {
		c.hooks.OnDeath(c, killer)
	}
	if p := c.Party(); p != nil {
		if inst := p.Instance(); inst != nil {
			inst.MemberDead(c)
		}
	}

	killerName := ""
	if killer != nil {
		killerName = killer.Name
	}
	c.rt.log().Debug("creature died",
		zap.Int32("id", c.ID),
		zap.String("name", c.Name),
		zap.String("killer", killerName),
	)
	return true
}

// Revive brings a dead creature back with the given HP/MP.
func (c *Creature) Revive(hp, mp float64) bool {
	if !c.dead.CompareAndSwap(true, false) {
		return false
	}
	c.status.revive(hp, mp)
	if p := c.Party(); p != nil {
		if inst := p.Instance(); inst != nil {
			inst.MemberRevived(c)
		}
	}
	return true
}

// BroadcastStatusUpdate sends the current resource values to the creature's
// own client and to every status listener.
func (c *Creature) BroadcastStatusUpdate() {
	snap := c.status.Snapshot()
	if c.IsPlayer() {
		c.Sink().StatusUpdate(c, snap)
	}
	for _, l := range c.status.StatusListeners() {
		l.Sink().StatusUpdate(c, snap)
	}
}
