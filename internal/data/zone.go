package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Bounds is an axis-aligned box. MinZ == MaxZ == 0 ignores height.
type Bounds struct {
	MinX int32 `yaml:"min_x"`
	MinY int32 `yaml:"min_y"`
	MaxX int32 `yaml:"max_x"`
	MaxY int32 `yaml:"max_y"`
	MinZ int32 `yaml:"min_z"`
	MaxZ int32 `yaml:"max_z"`
}

// Contains reports whether (x, y, z) lies inside b, edges included.
func (b Bounds) Contains(x, y, z int32) bool {
	if x < b.MinX || x > b.MaxX || y < b.MinY || y > b.MaxY {
		return false
	}
	if b.MinZ == 0 && b.MaxZ == 0 {
		return true
	}
	return z >= b.MinZ && z <= b.MaxZ
}

// ZoneSkill is one (skill, level) pair applied by an effect zone.
type ZoneSkill struct {
	SkillID int32 `yaml:"skill_id"`
	Level   int   `yaml:"level"`
}

// ZoneInfo is an effect zone definition.
type ZoneInfo struct {
	ID     int32       `yaml:"id"`
	Name   string      `yaml:"name"`
	Bounds Bounds      `yaml:"bounds"`
	Skills []ZoneSkill `yaml:"skills"`

	Chance           int    `yaml:"chance"`        // percent per occupant per tick
	InitialDelay     int    `yaml:"initial_delay"` // ms
	Reuse            int    `yaml:"reuse"`         // ms
	BypassConditions bool   `yaml:"bypass_skill_conditions"`
	ShowDangerIcon   bool   `yaml:"show_danger_icon"`
	TargetType       string `yaml:"target_type"` // Playable, Player, Npc, Creature
	Enabled          bool   `yaml:"enabled"`
}

// UnmarshalYAML fills omitted fields with the stock effect zone defaults.
func (z *ZoneInfo) UnmarshalYAML(n *yaml.Node) error {
	type plain ZoneInfo
	v := plain{
		Chance:         100,
		Reuse:          30000,
		ShowDangerIcon: true,
		TargetType:     "Playable",
		Enabled:        true,
	}
	if err := n.Decode(&v); err != nil {
		return err
	}
	*z = ZoneInfo(v)
	return nil
}

type zoneListFile struct {
	Zones []ZoneInfo `yaml:"zones"`
}

// LoadZoneList loads effect zone definitions.
func LoadZoneList(path string) ([]ZoneInfo, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zone_list: %w", err)
	}
	var f zoneListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse zone_list: %w", err)
	}
	seen := make(map[int32]bool, len(f.Zones))
	for _, z := range f.Zones {
		if seen[z.ID] {
			return nil, fmt.Errorf("parse zone_list: duplicate zone id %d", z.ID)
		}
		seen[z.ID] = true
		if z.Reuse <= 0 {
			return nil, fmt.Errorf("parse zone_list: zone %d reuse must be positive", z.ID)
		}
	}
	return f.Zones, nil
}
