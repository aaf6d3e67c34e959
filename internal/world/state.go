package world

import (
	"sync/atomic"
	"time"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

// npcIDCounter hands out object IDs for spawned NPCs.
var npcIDCounter atomic.Int32

func init() {
	npcIDCounter.Store(200_000_000)
}

// State is the world registry: live creatures and items on the ground.
// Safe for concurrent use; scheduler callbacks and request handlers both
// reach it.
type State struct {
	rt Runtime

	mu        deadlock.RWMutex
	creatures map[int32]*Creature
	indexed   map[int32]Location // position last written to aoi
	aoi       *aoiGrid
	ground    map[int32]*GroundItem
	npcHooks  Hooks

	Parties *PartyManager
}

func NewState(rt Runtime) *State {
	return &State{
		rt:        rt,
		creatures: make(map[int32]*Creature),
		indexed:   make(map[int32]Location),
		aoi:       newAOIGrid(),
		ground:    make(map[int32]*GroundItem),
		Parties:   NewPartyManager(),
	}
}

// Runtime returns the shared collaborators new creatures should use.
func (s *State) Runtime() Runtime { return s.rt }

// AddCreature registers c in the world.
func (s *State) AddCreature(c *Creature) {
	loc := c.Loc()
	s.mu.Lock()
	s.creatures[c.ID] = c
	s.indexed[c.ID] = loc
	s.aoi.add(c.ID, loc)
	s.mu.Unlock()
}

// SetNpcHooks sets the hooks given to NPCs spawned from now on.
func (s *State) SetNpcHooks(h Hooks) {
	s.mu.Lock()
	s.npcHooks = h
	s.mu.Unlock()
}

// RemoveCreature unregisters c and stops its regeneration.
func (s *State) RemoveCreature(c *Creature) {
	s.mu.Lock()
	if loc, ok := s.indexed[c.ID]; ok {
		s.aoi.remove(c.ID, loc)
		delete(s.indexed, c.ID)
	}
	delete(s.creatures, c.ID)
	s.mu.Unlock()
	c.Status().StopRegeneration()
	if c.hooks.OnRemove != nil {
		c.hooks.OnRemove(c)
	}
}

func (s *State) Creature(id int32) *Creature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creatures[id]
}

func (s *State) CreatureCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.creatures)
}

// Teleport moves c to loc, keeping the visibility index in step.
func (s *State) Teleport(c *Creature, loc Location) {
	s.mu.Lock()
	if old, ok := s.indexed[c.ID]; ok {
		s.aoi.move(c.ID, old, loc)
		s.indexed[c.ID] = loc
	}
	s.mu.Unlock()
	c.TeleportTo(loc)
}

// NearbyPlayers returns players within recognize range of loc.
func (s *State) NearbyPlayers(loc Location) []*Creature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.aoi.nearbyInto(loc, make([]int32, 0, 16))
	out := make([]*Creature, 0, len(ids))
	for _, id := range ids {
		c := s.creatures[id]
		if c == nil || !c.IsPlayer() {
			continue
		}
		if chebyshev(s.indexed[id], loc) <= recognizeRange {
			out = append(out, c)
		}
	}
	return out
}

// SpawnNpc creates and registers an NPC.
func (s *State) SpawnNpc(name string, level int, loc Location, maxHP, maxMP float64) *Creature {
	c := NewCreature(Spec{
		ID:    npcIDCounter.Add(1),
		Name:  name,
		Kind:  KindNpc,
		Level: level,
		Loc:   loc,
		MaxHP: maxHP,
		MaxMP: maxMP,
	}, s.rt, s.npcHooksSnapshot())
	s.AddCreature(c)
	if c.hooks.OnMove != nil {
		c.hooks.OnMove(c)
	}
	return c
}

func (s *State) npcHooksSnapshot() Hooks {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.npcHooks
}

// DespawnNpc removes an NPC and tells nearby players it is gone.
func (s *State) DespawnNpc(c *Creature) {
	s.RemoveCreature(c)
	for _, p := range s.NearbyPlayers(c.Loc()) {
		p.Sink().RemoveObject(c.ID)
	}
}

// --- Ground items ---

// DropItem puts item on the ground at the current time. A zero now keeps
// the item protected from expiry.
func (s *State) DropItem(item *GroundItem, now time.Time) {
	item.SetLocation(LocVoid)
	item.SetDropTime(now)
	s.mu.Lock()
	s.ground[item.ID] = item
	s.mu.Unlock()
}

// PickupItem moves the item into by's inventory. Returns nil if it is no
// longer on the ground.
func (s *State) PickupItem(id int32, by *Creature) *GroundItem {
	s.mu.Lock()
	item, ok := s.ground[id]
	if ok {
		delete(s.ground, id)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	item.SetLocation(LocInventory)
	if by != nil {
		item.SetOwnerID(by.ID)
	}
	return item
}

func (s *State) GroundItem(id int32) *GroundItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ground[id]
}

// GroundItems returns a snapshot of every item on the ground.
func (s *State) GroundItems() []*GroundItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*GroundItem, 0, len(s.ground))
	for _, it := range s.ground {
		out = append(out, it)
	}
	return out
}

// DecayGroundItem deletes an expired item from the world and removes it from
// nearby clients.
func (s *State) DecayGroundItem(item *GroundItem) {
	s.mu.Lock()
	_, ok := s.ground[item.ID]
	delete(s.ground, item.ID)
	s.mu.Unlock()
	if !ok {
		return
	}
	for _, p := range s.NearbyPlayers(item.Loc) {
		p.Sink().RemoveObject(item.ID)
	}
	s.rt.log().Debug("地面物品消失",
		zap.Int32("id", item.ID),
		zap.Int32("item_id", item.ItemID),
		zap.String("name", item.Name),
	)
}

// EndOfLife destroys a limited-time item: off the ground if it lies there,
// out of its owner's inventory otherwise.
func (s *State) EndOfLife(item *GroundItem) {
	if item.Location() == LocVoid {
		s.DecayGroundItem(item)
		return
	}
	item.SetLocation(LocVoid)
	if owner := s.Creature(item.OwnerID()); owner != nil {
		owner.Sink().RemoveObject(item.ID)
	}
	s.rt.log().Debug("限時物品到期",
		zap.Int32("id", item.ID),
		zap.Int32("owner", item.OwnerID()),
	)
}
