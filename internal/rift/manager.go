// Package rift runs the dimensional rift: a party is moved through a series
// of monster rooms on randomized timers until its jump budget runs out.
package rift

import (
	"errors"
	"maps"
	"math/rand"
	"slices"

	"github.com/l1jgo/gamecore/internal/config"
	"github.com/l1jgo/gamecore/internal/data"
	"github.com/l1jgo/gamecore/internal/sched"
	"github.com/l1jgo/gamecore/internal/world"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

// HTML notices shown by the rift NPCs.
const (
	PageNoParty           = "seven_signs/rift/NoParty.htm"
	PageNotPartyLeader    = "seven_signs/rift/NotPartyLeader.htm"
	PageAlreadyTeleported = "seven_signs/rift/AlreadyTeleported.htm"
	PageSmallParty        = "seven_signs/rift/SmallParty.htm"
	PageFull              = "seven_signs/rift/Full.htm"
	PageAlreadyIn         = "seven_signs/rift/AlreadyIn.htm"
)

var (
	ErrNoParty       = errors.New("rift: player has no party")
	ErrNotLeader     = errors.New("rift: player is not the party leader")
	ErrAlreadyInRift = errors.New("rift: party is already inside a rift")
	ErrSmallParty    = errors.New("rift: party too small")
	ErrUnknownType   = errors.New("rift: unknown rift type")
	ErrFull          = errors.New("rift: no free room")
)

// Teleporter moves a creature, keeping the world index in step.
// *world.State satisfies it.
type Teleporter interface {
	Teleport(c *world.Creature, loc world.Location)
}

// Deps are the collaborators a Manager drives.
type Deps struct {
	Sched    sched.Scheduler
	Teleport Teleporter
	Spawner  Spawner
	Npcs     *data.NpcTable
	Roll     func(n int) int // uniform in [0,n); nil = math/rand
}

// Manager owns the rooms of every rift type and the live rifts.
type Manager struct {
	cfg     config.RiftConfig
	deps    Deps
	log     *zap.Logger
	waiting world.Location
	rooms   map[byte]map[byte]*Room

	mu   deadlock.Mutex
	live map[*Rift]struct{}
}

func NewManager(d *data.RiftData, cfg config.RiftConfig, deps Deps, log *zap.Logger) *Manager {
	if deps.Roll == nil {
		deps.Roll = rand.Intn
	}
	m := &Manager{
		cfg:     cfg,
		deps:    deps,
		log:     log,
		waiting: world.Location{X: d.WaitingRoom.X, Y: d.WaitingRoom.Y, Z: d.WaitingRoom.Z},
		rooms:   make(map[byte]map[byte]*Room, len(d.Types)),
		live:    make(map[*Rift]struct{}),
	}
	n := 0
	for _, t := range d.Types {
		rooms := make(map[byte]*Room, len(t.Rooms))
		for _, info := range t.Rooms {
			rooms[info.Room] = newRoom(t.Type, info)
			n++
		}
		m.rooms[t.Type] = rooms
	}
	log.Info("次元裂縫房間載入完成", zap.Int("types", len(m.rooms)), zap.Int("rooms", n))
	return m
}

func (m *Manager) Config() config.RiftConfig { return m.cfg }

// Room returns a room, or nil.
func (m *Manager) Room(typ, id byte) *Room {
	return m.rooms[typ][id]
}

// FreeRooms returns the ids of unoccupied rooms of typ, ascending.
func (m *Manager) FreeRooms(typ byte) []byte {
	var out []byte
	for _, id := range slices.Sorted(maps.Keys(m.rooms[typ])) {
		if !m.rooms[typ][id].PartyInside() {
			out = append(out, id)
		}
	}
	return out
}

// WaitingRoom is where parties are sent when they leave a rift.
func (m *Manager) WaitingRoom() world.Location { return m.waiting }

// TeleportToWaitingRoom sends c to the waiting room.
func (m *Manager) TeleportToWaitingRoom(c *world.Creature) {
	m.deps.Teleport.Teleport(c, m.waiting)
}

// ShowHTML opens an NPC dialog page on c's client.
func (m *Manager) ShowHTML(c *world.Creature, page string, npcObjID int32) {
	c.Sink().ShowHTML(page, npcObjID)
}

// Start sends the leader's party into a random free room of typ. Rejections
// are shown to the player and returned as errors.
func (m *Manager) Start(player *world.Creature, typ byte, npcObjID int32) (*Rift, error) {
	p := player.Party()
	if p == nil {
		m.ShowHTML(player, PageNoParty, npcObjID)
		return nil, ErrNoParty
	}
	if !p.IsLeader(player) {
		m.ShowHTML(player, PageNotPartyLeader, npcObjID)
		return nil, ErrNotLeader
	}
	if p.Instance() != nil {
		m.ShowHTML(player, PageAlreadyIn, npcObjID)
		return nil, ErrAlreadyInRift
	}
	if p.MemberCount() < m.cfg.MinPartySize {
		m.ShowHTML(player, PageSmallParty, npcObjID)
		return nil, ErrSmallParty
	}
	if _, ok := m.rooms[typ]; !ok {
		return nil, ErrUnknownType
	}

	// Claim the party before taking a room: of two concurrent starts only
	// one gets past here.
	r := newRift(m, p, typ)
	r.mu.Lock()
	defer r.mu.Unlock()
	if !p.TrySetInstance(r) {
		m.ShowHTML(player, PageAlreadyIn, npcObjID)
		return nil, ErrAlreadyInRift
	}
	room := m.occupyRandom(typ, nil)
	if room == nil {
		r.killed = true
		p.ClearInstance(r)
		m.ShowHTML(player, PageFull, npcObjID)
		return nil, ErrFull
	}

	m.mu.Lock()
	m.live[r] = struct{}{}
	m.mu.Unlock()
	m.log.Info("隊伍進入次元裂縫",
		zap.Int32("party", p.ID),
		zap.Uint8("type", typ),
		zap.Uint8("room", room.ID),
	)
	r.enterLocked(room)
	return r, nil
}

// occupyRandom picks a free room of typ not in skip, falling back to any
// free room, and marks it occupied. Returns nil when every room is taken.
func (m *Manager) occupyRandom(typ byte, skip []byte) *Room {
	for {
		free := m.FreeRooms(typ)
		if len(free) == 0 {
			return nil
		}
		fresh := slices.DeleteFunc(slices.Clone(free), func(id byte) bool {
			return slices.Contains(skip, id)
		})
		if len(fresh) > 0 {
			free = fresh
		}
		room := m.rooms[typ][free[m.deps.Roll(len(free))]]
		if room.TryOccupy() {
			return room
		}
	}
}

// release unspawns room and marks it free.
func (m *Manager) release(room *Room) {
	room.unspawn(m.deps.Spawner)
	room.setPartyInside(false)
}

func (m *Manager) spawn(room *Room) {
	n := room.spawn(m.deps.Spawner, m.deps.Npcs)
	m.log.Debug("次元裂縫房間生怪", zap.Uint8("type", room.Type), zap.Uint8("room", room.ID), zap.Int("count", n))
}

func (m *Manager) forget(r *Rift) {
	m.mu.Lock()
	delete(m.live, r)
	m.mu.Unlock()
}

// Rifts returns the live rifts.
func (m *Manager) Rifts() []*Rift {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Collect(maps.Keys(m.live))
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Shutdown sends every party in a rift to the waiting room and tears the
// rifts down.
func (m *Manager) Shutdown() {
	for _, r := range m.Rifts() {
		r.Exit()
	}
}
