package world

// Effect is a skill effect currently applied to a creature.
type Effect struct {
	SkillID       int32
	Level         int
	BreakOnDamage bool // removed by plain (non-DOT) damage
	Seq           uint64
}

// AddEffect applies e, replacing any effect of the same skill.
func (c *Creature) AddEffect(e Effect) {
	c.mu.Lock()
	c.effects[e.SkillID] = &e
	c.mu.Unlock()
}

// RemoveEffect drops the effect of skillID. Returns false if none was active.
func (c *Creature) RemoveEffect(skillID int32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.effects[skillID]; !ok {
		return false
	}
	delete(c.effects, skillID)
	return true
}

// ExpireEffect drops the effect of skillID only if it is still the
// application identified by seq; a later re-application survives.
func (c *Creature) ExpireEffect(skillID int32, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.effects[skillID]
	if !ok || e.Seq != seq {
		return false
	}
	delete(c.effects, skillID)
	return true
}

// IsAffectedBySkill reports whether an effect of skillID is active.
func (c *Creature) IsAffectedBySkill(skillID int32) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.effects[skillID]
	return ok
}

// EffectLevel returns the level of the active effect of skillID, or 0.
func (c *Creature) EffectLevel(skillID int32) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.effects[skillID]; ok {
		return e.Level
	}
	return 0
}

// EffectCount returns the number of active effects.
func (c *Creature) EffectCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.effects)
}

// StopEffectsOnDamage removes break-on-damage effects (sleep, hold and the
// like) when the hit wakes the target.
func (c *Creature) StopEffectsOnDamage(awake bool) {
	if !awake {
		return
	}
	c.mu.Lock()
	for id, e := range c.effects {
		if e.BreakOnDamage {
			delete(c.effects, id)
		}
	}
	c.mu.Unlock()
}
