package world

import (
	"math"

	"github.com/l1jgo/gamecore/internal/sched"
	"github.com/sasha-s/go-deadlock"
)

// Regen flags, one bit per resource below its maximum.
const (
	regenFlagHP byte = 1
	regenFlagMP byte = 2
	regenFlagCP byte = 4
)

// deathThreshold is the HP below which a mortal creature dies. Kept above
// zero so float rounding on the subtraction cannot leave a 0.0001 HP corpse.
const deathThreshold = 0.5

type resource byte

const (
	resHP resource = iota
	resMP
	resCP
)

func (r resource) flag() byte {
	switch r {
	case resHP:
		return regenFlagHP
	case resMP:
		return regenFlagMP
	default:
		return regenFlagCP
	}
}

// DamageOpts qualifies a ReduceHP call.
type DamageOpts struct {
	Awake         bool // hit wakes the target (stops break-on-damage effects)
	DOT           bool // damage over time; ignores invulnerability
	HPConsumption bool // skill HP cost; ignores invulnerability
}

// Status owns a creature's current HP/MP/CP and its regeneration task.
//
// All resource mutation and task start/stop happen inside mu, so a damage
// event racing a regen tick can never leave a task running with no flag set
// or a flag set with no task. The task exists iff flags != 0 and the
// creature is alive.
type Status struct {
	c *Creature

	mu    deadlock.Mutex
	hp    float64
	mp    float64
	cp    float64
	flags byte
	task  sched.Task

	lmu       deadlock.Mutex
	listeners map[*Creature]struct{}
}

func newStatus(c *Creature, hp, mp, cp float64) *Status {
	return &Status{c: c, hp: hp, mp: mp, cp: cp}
}

// AddStatusListener registers o to receive this creature's status updates,
// typically because o has it targeted.
func (s *Status) AddStatusListener(o *Creature) {
	if o == nil || o == s.c {
		return
	}
	s.lmu.Lock()
	if s.listeners == nil {
		s.listeners = make(map[*Creature]struct{})
	}
	s.listeners[o] = struct{}{}
	s.lmu.Unlock()
}

func (s *Status) RemoveStatusListener(o *Creature) {
	s.lmu.Lock()
	delete(s.listeners, o)
	s.lmu.Unlock()
}

// StatusListeners returns a snapshot of the registered listeners.
func (s *Status) StatusListeners() []*Creature {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	out := make([]*Creature, 0, len(s.listeners))
	for l := range s.listeners {
		out = append(out, l)
	}
	return out
}

func (s *Status) CurrentHP() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hp
}

func (s *Status) CurrentMP() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mp
}

func (s *Status) CurrentCP() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cp
}

// Snapshot returns the current and maximum values together.
func (s *Status) Snapshot() StatusSnapshot {
	maxHP, maxMP, maxCP := s.c.MaxHP(), s.c.MaxMP(), s.c.MaxCP()
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatusSnapshot{
		HP: s.hp, MaxHP: maxHP,
		MP: s.mp, MaxMP: maxMP,
		CP: s.cp, MaxCP: maxCP,
	}
}

// RegenFlags returns the bitset of resources below maximum.
func (s *Status) RegenFlags() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags
}

// Regenerating reports whether the regeneration task is scheduled.
func (s *Status) Regenerating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task != nil
}

// ReduceHP applies damage from attacker. See DamageOpts for the
// invulnerability rules. Dropping below deathThreshold kills a mortal
// creature exactly once.
func (s *Status) ReduceHP(value float64, attacker *Creature, opts DamageOpts) {
	c := s.c
	if c.IsDead() {
		return
	}
	if c.IsInvul() && !(opts.DOT || opts.HPConsumption) {
		return
	}
	if attacker != nil && attacker.IsGM() && !attacker.CanGiveDamage() {
		return
	}

	if !opts.DOT && !opts.HPConsumption {
		c.StopEffectsOnDamage(opts.Awake)
		if c.IsStunned() && c.rt.roll(10) == 0 {
			c.StopStunning()
		}
	}

	if value > 0 {
		maxHP := c.MaxHP()
		s.mu.Lock()
		changed := false
		if !c.IsDead() {
			changed = s.setLocked(resHP, math.Max(s.hp-value, 0), maxHP)
		}
		s.mu.Unlock()
		if changed {
			c.BroadcastStatusUpdate()
		}
	}

	if s.CurrentHP() < deathThreshold && c.IsMortal() {
		c.DoDie(attacker)
	}
}

// ReduceMP subtracts value from MP, flooring at zero.
func (s *Status) ReduceMP(value float64) {
	s.reduce(resMP, value, s.c.MaxMP())
}

// ReduceCP subtracts value from CP, flooring at zero.
func (s *Status) ReduceCP(value float64) {
	s.reduce(resCP, value, s.c.MaxCP())
}

func (s *Status) reduce(res resource, value, limit float64) {
	s.mu.Lock()
	changed := false
	if !s.c.IsDead() {
		changed = s.setLocked(res, math.Max(*s.field(res)-value, 0), limit)
	}
	s.mu.Unlock()
	if changed {
		s.c.BroadcastStatusUpdate()
	}
}

// SetCurrentHP clamps v to [0, MaxHP] and stores it. Returns whether the
// stored value changed; broadcasts the change when asked to.
func (s *Status) SetCurrentHP(v float64, broadcast bool) bool {
	return s.set(resHP, v, s.c.MaxHP(), broadcast)
}

func (s *Status) SetCurrentMP(v float64, broadcast bool) bool {
	return s.set(resMP, v, s.c.MaxMP(), broadcast)
}

func (s *Status) SetCurrentCP(v float64, broadcast bool) bool {
	return s.set(resCP, v, s.c.MaxCP(), broadcast)
}

// SetCurrentHPMP sets both values and sends at most one update.
func (s *Status) SetCurrentHPMP(hp, mp float64) {
	hpChanged := s.SetCurrentHP(hp, false)
	mpChanged := s.SetCurrentMP(mp, false)
	if hpChanged || mpChanged {
		s.c.BroadcastStatusUpdate()
	}
}

// AddHP adds delta to HP in one critical section, so a concurrent regen
// tick is never lost. The result is clamped like SetCurrentHP.
func (s *Status) AddHP(delta float64, broadcast bool) bool {
	return s.update(resHP, func(cur float64) float64 { return cur + delta }, s.c.MaxHP(), broadcast)
}

func (s *Status) AddMP(delta float64, broadcast bool) bool {
	return s.update(resMP, func(cur float64) float64 { return cur + delta }, s.c.MaxMP(), broadcast)
}

func (s *Status) set(res resource, v, limit float64, broadcast bool) bool {
	return s.update(res, func(float64) float64 { return v }, limit, broadcast)
}

func (s *Status) update(res resource, next func(cur float64) float64, limit float64, broadcast bool) bool {
	s.mu.Lock()
	if s.c.IsDead() {
		s.mu.Unlock()
		return false
	}
	changed := s.setLocked(res, next(*s.field(res)), limit)
	s.mu.Unlock()

	if changed && broadcast {
		s.c.BroadcastStatusUpdate()
	}
	return changed
}

func (s *Status) field(res resource) *float64 {
	switch res {
	case resHP:
		return &s.hp
	case resMP:
		return &s.mp
	default:
		return &s.cp
	}
}

// setLocked stores v and keeps flags and task in step. Caller holds mu.
func (s *Status) setLocked(res resource, v, limit float64) bool {
	cur := s.field(res)
	old := *cur
	if v >= limit {
		*cur = limit
		s.flags &^= res.flag()
		if s.flags == 0 {
			s.stopLocked()
		}
	} else {
		if v < 0 {
			v = 0
		}
		*cur = v
		s.flags |= res.flag()
		s.startLocked()
	}
	return old != *cur
}

// StartRegeneration re-derives the regen flags from the stored values and
// runs the task iff one of them is below its maximum.
func (s *Status) StartRegeneration() {
	s.resync()
}

// resync re-checks every resource against the current maximums. Values
// above a lowered maximum are clamped down.
func (s *Status) resync() {
	maxHP, maxMP, maxCP := s.c.MaxHP(), s.c.MaxMP(), s.c.MaxCP()
	s.mu.Lock()
	changed := false
	if !s.c.IsDead() {
		changed = s.resyncLocked(maxHP, maxMP, maxCP)
	}
	s.mu.Unlock()
	if changed {
		s.c.BroadcastStatusUpdate()
	}
}

// resyncLocked rebuilds flags from scratch and starts or stops the task
// once. Caller holds mu.
func (s *Status) resyncLocked(maxHP, maxMP, maxCP float64) bool {
	changed := false
	s.flags = 0
	for _, r := range [...]struct {
		res   resource
		limit float64
	}{{resHP, maxHP}, {resMP, maxMP}, {resCP, maxCP}} {
		cur := s.field(r.res)
		if *cur >= r.limit {
			changed = changed || *cur != r.limit
			*cur = r.limit
			continue
		}
		s.flags |= r.res.flag()
	}
	if s.flags == 0 {
		s.stopLocked()
	} else {
		s.startLocked()
	}
	return changed
}

// revive stores the revival HP/MP and re-arms regeneration for every
// resource, CP included: death cleared all flags.
func (s *Status) revive(hp, mp float64) {
	maxHP, maxMP, maxCP := s.c.MaxHP(), s.c.MaxMP(), s.c.MaxCP()
	s.mu.Lock()
	if s.c.IsDead() {
		s.mu.Unlock()
		return
	}
	s.hp = math.Max(hp, 0)
	s.mp = math.Max(mp, 0)
	s.resyncLocked(maxHP, maxMP, maxCP)
	s.mu.Unlock()
	s.c.BroadcastStatusUpdate()
}

// StopRegeneration cancels the regen task and clears every flag.
func (s *Status) StopRegeneration() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
}

// RestartRegeneration reschedules a running task so a changed regen period
// takes effect.
func (s *Status) RestartRegeneration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task == nil {
		return
	}
	s.task.Cancel()
	s.task = nil
	s.startLocked()
}

func (s *Status) startLocked() {
	if s.task != nil || s.c.IsDead() {
		return
	}
	period := s.c.rt.Stats.RegenPeriod(s.c)
	s.task = s.c.rt.Sched.ScheduleAtFixedRate(s.doRegeneration, period, period)
}

func (s *Status) stopLocked() {
	if s.task == nil {
		return
	}
	s.task.Cancel()
	s.task = nil
	s.flags = 0
}

func (s *Status) doRegeneration() {
	c := s.c
	stats := c.rt.Stats
	maxHP, maxMP, maxCP := c.MaxHP(), c.MaxMP(), c.MaxCP()
	capHP := math.Min(stats.MaxRecoverableHP(c), maxHP)
	capMP := math.Min(stats.MaxRecoverableMP(c), maxMP)
	capCP, cpDelta := 0.0, 0.0
	if c.IsPlayer() {
		capCP = math.Min(stats.MaxRecoverableCP(c), maxCP)
		cpDelta = stats.CPRegen(c)
	}
	// The stat engine may call back into the creature, so it is never
	// consulted with mu held.
	hpDelta, mpDelta := stats.HPRegen(c), stats.MPRegen(c)

	s.mu.Lock()
	if c.IsDead() || (s.hp >= capHP && s.mp >= capMP && s.cp >= capCP) {
		s.stopLocked()
		s.mu.Unlock()
		return
	}
	changed := false
	if s.hp < capHP {
		changed = s.setLocked(resHP, math.Min(s.hp+hpDelta, capHP), maxHP) || changed
	}
	if s.mp < capMP {
		changed = s.setLocked(resMP, math.Min(s.mp+mpDelta, capMP), maxMP) || changed
	}
	if s.cp < capCP {
		changed = s.setLocked(resCP, math.Min(s.cp+cpDelta, capCP), maxCP) || changed
	}
	s.mu.Unlock()

	if changed {
		c.BroadcastStatusUpdate()
	}
}
