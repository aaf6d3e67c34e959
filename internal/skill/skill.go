// Package skill turns skill templates into effects on creatures.
package skill

import (
	"sync/atomic"
	"time"

	"github.com/l1jgo/gamecore/internal/data"
	"github.com/l1jgo/gamecore/internal/sched"
	"github.com/l1jgo/gamecore/internal/world"
	"go.uber.org/zap"
)

// Skill is one resolved skill level.
type Skill struct {
	info *data.SkillInfo
	tbl  *Table
}

func (s *Skill) ID() int32    { return s.info.SkillID }
func (s *Skill) Level() int   { return s.info.Level }
func (s *Skill) Name() string { return s.info.Name }

// Table resolves (id, level) pairs and owns the effect expiry timers.
type Table struct {
	skills *data.SkillTable
	sched  sched.Scheduler
	log    *zap.Logger
	seq    atomic.Uint64
}

func NewTable(skills *data.SkillTable, s sched.Scheduler, log *zap.Logger) *Table {
	return &Table{skills: skills, sched: s, log: log}
}

// Get returns the skill, or nil when the pair is not defined.
func (t *Table) Get(id int32, level int) *Skill {
	info := t.skills.Get(id, level)
	if info == nil {
		return nil
	}
	return &Skill{info: info, tbl: t}
}

// CheckCondition reports whether the skill may land on target.
func (s *Skill) CheckCondition(caster, target *world.Creature) bool {
	if target == nil || target.IsDead() {
		return false
	}
	switch s.info.Target {
	case "self":
		if caster != target {
			return false
		}
	case "player":
		if !target.IsPlayer() {
			return false
		}
	case "playable":
		if !target.IsPlayable() {
			return false
		}
	case "npc":
		if target.Kind != world.KindNpc {
			return false
		}
	}
	if s.info.MinTargetLevel > 0 && target.Level < s.info.MinTargetLevel {
		return false
	}
	if s.info.MaxTargetLevel > 0 && target.Level > s.info.MaxTargetLevel {
		return false
	}
	if s.info.MinHPPercent > 0 {
		maxHP := target.MaxHP()
		if maxHP <= 0 || target.Status().CurrentHP()*100/maxHP < float64(s.info.MinHPPercent) {
			return false
		}
	}
	return true
}

// ApplyEffects puts the skill's effect on target and applies its HP/MP
// change. Timed effects are removed by the scheduler when they run out.
func (s *Skill) ApplyEffects(caster, target *world.Creature) {
	info := s.info
	if info.Duration > 0 {
		seq := s.tbl.seq.Add(1)
		target.AddEffect(world.Effect{
			SkillID:       info.SkillID,
			Level:         info.Level,
			BreakOnDamage: info.BreakOnDamage,
			Seq:           seq,
		})
		id := info.SkillID
		s.tbl.sched.Schedule(func() {
			target.ExpireEffect(id, seq)
		}, time.Duration(info.Duration)*time.Second)
	}

	st := target.Status()
	switch {
	case info.HPChange < 0:
		st.ReduceHP(float64(-info.HPChange), caster, world.DamageOpts{DOT: true})
	case info.HPChange > 0:
		st.AddHP(float64(info.HPChange), true)
	}
	switch {
	case info.MPChange < 0:
		st.ReduceMP(float64(-info.MPChange))
	case info.MPChange > 0:
		st.AddMP(float64(info.MPChange), true)
	}

	s.tbl.log.Debug("skill applied",
		zap.Int32("skill", info.SkillID),
		zap.Int("level", info.Level),
		zap.Int32("target", target.ID),
	)
}
