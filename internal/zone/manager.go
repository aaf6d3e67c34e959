package zone

import (
	"fmt"
	"maps"
	"slices"

	"github.com/l1jgo/gamecore/internal/data"
	"github.com/l1jgo/gamecore/internal/sched"
	"github.com/l1jgo/gamecore/internal/skill"
	"github.com/l1jgo/gamecore/internal/world"
	"go.uber.org/zap"
)

// Manager owns every effect zone and moves creatures in and out of them as
// they change position.
type Manager struct {
	zones map[int32]*EffectZone
	log   *zap.Logger
}

// NewManager builds zones from their definitions. roll may be nil.
func NewManager(infos []data.ZoneInfo, s sched.Scheduler, skills *skill.Table, roll func(n int) int, log *zap.Logger) (*Manager, error) {
	m := &Manager{zones: make(map[int32]*EffectZone, len(infos)), log: log}
	for _, info := range infos {
		if _, dup := m.zones[info.ID]; dup {
			return nil, fmt.Errorf("zone %d defined twice", info.ID)
		}
		if info.Reuse <= 0 {
			return nil, fmt.Errorf("zone %d: reuse must be positive", info.ID)
		}
		m.zones[info.ID] = New(info, s, skills, roll, log)
	}
	log.Info("效果區域載入完成", zap.Int("count", len(m.zones)))
	return m, nil
}

func (m *Manager) Get(id int32) *EffectZone { return m.zones[id] }

// List returns all zones ordered by id.
func (m *Manager) List() []*EffectZone {
	out := make([]*EffectZone, 0, len(m.zones))
	for _, id := range slices.Sorted(maps.Keys(m.zones)) {
		out = append(out, m.zones[id])
	}
	return out
}

// Revalidate enters c into zones whose bounds now contain it and exits it
// from the ones it left.
func (m *Manager) Revalidate(c *world.Creature) {
	for _, z := range m.zones {
		if !z.Affects(c) {
			continue
		}
		if z.Contains(c) {
			z.OnEnter(c)
		} else {
			z.OnExit(c)
		}
	}
}

// RemoveCreature exits c from every zone, e.g. on despawn or logout.
func (m *Manager) RemoveCreature(c *world.Creature) {
	for _, z := range m.zones {
		z.OnExit(c)
	}
}

// Hooks returns creature hooks that keep zone membership in step with
// spawns, moves and removals.
func (m *Manager) Hooks() world.Hooks {
	return world.Hooks{OnMove: m.Revalidate, OnRemove: m.RemoveCreature}
}

// Close stops every zone task.
func (m *Manager) Close() {
	for _, z := range m.zones {
		z.Close()
	}
}
