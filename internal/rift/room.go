package rift

import (
	"github.com/l1jgo/gamecore/internal/data"
	"github.com/l1jgo/gamecore/internal/world"
	"github.com/sasha-s/go-deadlock"
)

// Spawner places and removes room monsters. *world.State satisfies it.
type Spawner interface {
	SpawnNpc(name string, level int, loc world.Location, maxHP, maxMP float64) *world.Creature
	DespawnNpc(c *world.Creature)
}

// Room is one rift room. At most one party is inside at a time.
type Room struct {
	Type     byte
	ID       byte
	Bounds   data.Bounds
	Teleport world.Location
	Boss     bool

	spawns []data.RiftSpawn

	mu       deadlock.Mutex
	occupied bool
	live     []*world.Creature
}

func newRoom(typ byte, info data.RiftRoomInfo) *Room {
	return &Room{
		Type:     typ,
		ID:       info.Room,
		Bounds:   info.Bounds,
		Teleport: world.Location{X: info.Teleport.X, Y: info.Teleport.Y, Z: info.Teleport.Z},
		Boss:     info.Boss,
		spawns:   info.Spawns,
	}
}

// TryOccupy marks the room taken. Returns false if a party is already
// inside.
func (r *Room) TryOccupy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.occupied {
		return false
	}
	r.occupied = true
	return true
}

func (r *Room) PartyInside() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.occupied
}

func (r *Room) setPartyInside(v bool) {
	r.mu.Lock()
	r.occupied = v
	r.mu.Unlock()
}

// Spawned returns how many room monsters are alive in the world.
func (r *Room) Spawned() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// spawn fills the room with its monsters. A room that is already spawned is
// left alone.
func (r *Room) spawn(sp Spawner, npcs *data.NpcTable) int {
	r.mu.Lock()
	if len(r.live) > 0 {
		r.mu.Unlock()
		return 0
	}
	r.mu.Unlock()

	var live []*world.Creature
	for _, s := range r.spawns {
		tpl := npcs.Get(s.NpcID)
		if tpl == nil {
			continue
		}
		loc := world.Location{X: s.Loc.X, Y: s.Loc.Y, Z: s.Loc.Z}
		for i := 0; i < s.Count; i++ {
			live = append(live, sp.SpawnNpc(tpl.Name, tpl.Level, loc, float64(tpl.HP), float64(tpl.MP)))
		}
	}

	r.mu.Lock()
	r.live = append(r.live, live...)
	r.mu.Unlock()
	return len(live)
}

// unspawn removes every monster the room spawned.
func (r *Room) unspawn(sp Spawner) {
	r.mu.Lock()
	live := r.live
	r.live = nil
	r.mu.Unlock()
	for _, c := range live {
		sp.DespawnNpc(c)
	}
}
