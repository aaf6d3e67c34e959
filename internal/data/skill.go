package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SkillInfo holds one level of a skill template.
type SkillInfo struct {
	SkillID int32
	Level   int
	Name    string

	// Target kind the skill may land on: "self", "player", "playable",
	// "npc", "creature".
	Target string
	// Applicability condition.
	MinTargetLevel int // 0 = no minimum
	MaxTargetLevel int // 0 = no maximum
	MinHPPercent   int // target HP% must be at or above this (0 = any)

	Duration      int  // seconds the effect stays (0 = instant)
	BreakOnDamage bool // effect removed by plain damage
	HPChange      int  // per application; negative damages as DOT
	MPChange      int
}

type skillKey struct {
	id    int32
	level int
}

// SkillTable holds all skills indexed by (SkillID, Level).
type SkillTable struct {
	skills map[skillKey]*SkillInfo
	ids    map[int32]struct{}
}

// Get returns a skill level, or nil if not found.
func (t *SkillTable) Get(skillID int32, level int) *SkillInfo {
	return t.skills[skillKey{id: skillID, level: level}]
}

// Has reports whether any level of skillID exists.
func (t *SkillTable) Has(skillID int32) bool {
	_, ok := t.ids[skillID]
	return ok
}

// Count returns total loaded skill levels.
func (t *SkillTable) Count() int {
	return len(t.skills)
}

// --- YAML loading ---

type skillEntry struct {
	SkillID        int32  `yaml:"skill_id"`
	Level          int    `yaml:"level"`
	Name           string `yaml:"name"`
	Target         string `yaml:"target"`
	MinTargetLevel int    `yaml:"min_target_level"`
	MaxTargetLevel int    `yaml:"max_target_level"`
	MinHPPercent   int    `yaml:"min_hp_percent"`
	Duration       int    `yaml:"duration"`
	BreakOnDamage  bool   `yaml:"break_on_damage"`
	HPChange       int    `yaml:"hp_change"`
	MPChange       int    `yaml:"mp_change"`
}

type skillListFile struct {
	Skills []skillEntry `yaml:"skills"`
}

// LoadSkillTable loads skill definitions from YAML.
func LoadSkillTable(path string) (*SkillTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skills: %w", err)
	}
	return parseSkillTable(raw)
}

func parseSkillTable(raw []byte) (*SkillTable, error) {
	var f skillListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse skills: %w", err)
	}
	t := &SkillTable{
		skills: make(map[skillKey]*SkillInfo, len(f.Skills)),
		ids:    make(map[int32]struct{}, len(f.Skills)),
	}
	for i := range f.Skills {
		e := &f.Skills[i]
		if e.Level < 1 {
			e.Level = 1
		}
		target := e.Target
		if target == "" {
			target = "creature"
		}
		t.skills[skillKey{id: e.SkillID, level: e.Level}] = &SkillInfo{
			SkillID:        e.SkillID,
			Level:          e.Level,
			Name:           e.Name,
			Target:         target,
			MinTargetLevel: e.MinTargetLevel,
			MaxTargetLevel: e.MaxTargetLevel,
			MinHPPercent:   e.MinHPPercent,
			Duration:       e.Duration,
			BreakOnDamage:  e.BreakOnDamage,
			HPChange:       e.HPChange,
			MPChange:       e.MPChange,
		}
		t.ids[e.SkillID] = struct{}{}
	}
	return t, nil
}
