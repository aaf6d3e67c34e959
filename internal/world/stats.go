package world

import "time"

// StatEngine supplies the regeneration figures derived from a creature's
// stats. Implementations must be safe for concurrent use: regeneration ticks
// run on scheduler goroutines.
type StatEngine interface {
	// RegenPeriod is asked while the creature's Status is locked; it must
	// not read current HP/MP/CP.
	RegenPeriod(c *Creature) time.Duration
	HPRegen(c *Creature) float64
	MPRegen(c *Creature) float64
	CPRegen(c *Creature) float64
	// MaxRecoverable* may sit below the absolute maximum, e.g. under a
	// debuff that caps natural recovery.
	MaxRecoverableHP(c *Creature) float64
	MaxRecoverableMP(c *Creature) float64
	MaxRecoverableCP(c *Creature) float64
}

// FixedStats is a StatEngine returning the same figures for every creature.
// A zero cap means "the creature's maximum".
type FixedStats struct {
	Period              time.Duration
	HP, MP, CP          float64
	CapHP, CapMP, CapCP float64
}

func (f FixedStats) RegenPeriod(*Creature) time.Duration {
	if f.Period <= 0 {
		return 3 * time.Second
	}
	return f.Period
}

func (f FixedStats) HPRegen(*Creature) float64 { return f.HP }
func (f FixedStats) MPRegen(*Creature) float64 { return f.MP }
func (f FixedStats) CPRegen(*Creature) float64 { return f.CP }

func (f FixedStats) MaxRecoverableHP(c *Creature) float64 { return capOr(f.CapHP, c.MaxHP()) }
func (f FixedStats) MaxRecoverableMP(c *Creature) float64 { return capOr(f.CapMP, c.MaxMP()) }
func (f FixedStats) MaxRecoverableCP(c *Creature) float64 { return capOr(f.CapCP, c.MaxCP()) }

func capOr(c, limit float64) float64 {
	if c <= 0 || c > limit {
		return limit
	}
	return c
}
