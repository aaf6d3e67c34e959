package rift

import (
	"slices"
	"time"

	"github.com/l1jgo/gamecore/internal/sched"
	"github.com/l1jgo/gamecore/internal/world"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

// Earthquake warning sent shortly before an automatic jump.
const (
	quakeIntensity = 65
	quakeDuration  = 9
)

// Rift is one party's run through a rift type. It implements
// world.PartyInstance so membership changes reach it.
//
// Every timer callback carries the generation it was armed with and does
// nothing if the rift has rearmed or died since.
type Rift struct {
	m   *Manager
	typ byte

	mu        deadlock.Mutex
	party     *world.Party
	room      *Room // nil between rooms
	boss      bool
	completed []byte
	jumps     int
	hasJumped bool
	dead      map[int32]struct{}
	revived   map[int32]struct{} // revived in the waiting room
	killed    bool
	gen       uint64

	teleport sched.Slot
	spawn    sched.Slot
	quake    sched.Slot
}

var _ world.PartyInstance = (*Rift)(nil)

// newRift builds a rift for p that has no room yet. Start claims the party
// and a room before entering.
func newRift(m *Manager, p *world.Party, typ byte) *Rift {
	return &Rift{
		m:       m,
		typ:     typ,
		party:   p,
		dead:    make(map[int32]struct{}),
		revived: make(map[int32]struct{}),
	}
}

// enterLocked moves everyone into the first room and arms the timers. The
// party must already point at r.
func (r *Rift) enterLocked(room *Room) {
	r.room = room
	r.boss = room.Boss
	for _, c := range r.party.Members() {
		r.m.deps.Teleport.Teleport(c, room.Teleport)
	}
	r.armSpawnLocked()
	r.armTeleporterLocked(true)
}

func (r *Rift) Type() byte { return r.typ }

// CurrentRoom returns the room id, or -1 between rooms and after teardown.
func (r *Rift) CurrentRoom() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.room == nil {
		return -1
	}
	return int(r.room.ID)
}

func (r *Rift) Jumps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jumps
}

// Completed returns the rooms already visited, in order.
func (r *Rift) Completed() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.completed)
}

func (r *Rift) HasJumped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasJumped
}

func (r *Rift) IsBossRoom() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.boss
}

func (r *Rift) DeadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dead)
}

func (r *Rift) RevivedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.revived)
}

// Alive reports whether the rift has not been torn down.
func (r *Rift) Alive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.killed
}

// PartyID returns the owning party id, 0 after teardown.
func (r *Rift) PartyID() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.party == nil {
		return 0
	}
	return r.party.ID
}

// timeToNextJump draws the automatic jump delay.
func (r *Rift) timeToNextJump() time.Duration {
	cfg := r.m.cfg
	lo, hi := cfg.AutoJumpMin, cfg.AutoJumpMax
	if hi < lo {
		hi = lo
	}
	secs := lo + r.m.deps.Roll(hi-lo+1)
	d := time.Duration(secs) * time.Second
	if r.boss {
		d = time.Duration(float64(d) * cfg.BossRoomTimeMultiply)
	}
	return d
}

// armTeleporterLocked replaces the teleport and warning timers. With jump
// set the timer moves the party on; otherwise it fires after the kick delay
// and ends the rift.
func (r *Rift) armTeleporterLocked(jump bool) {
	if r.party == nil {
		return
	}
	r.gen++
	gen := r.gen
	s := r.m.deps.Sched
	r.quake.Cancel()

	if !jump {
		r.teleport.Rebind(func() sched.Task {
			return s.Schedule(func() { r.onTeleport(gen, false) }, r.m.cfg.KickDelay)
		})
		return
	}

	d := r.timeToNextJump()
	r.teleport.Rebind(func() sched.Task {
		return s.Schedule(func() { r.onTeleport(gen, true) }, d)
	})
	r.quake.Rebind(func() sched.Task {
		return s.Schedule(func() { r.onWarning(gen) }, max(d-r.m.cfg.WarningLead, 0))
	})
}

// armSpawnLocked schedules the current room's monsters. The spawn happens
// under mu so a jump or teardown cannot release the room halfway.
func (r *Rift) armSpawnLocked() {
	room := r.room
	if room == nil {
		return
	}
	r.spawn.Rebind(func() sched.Task {
		return r.m.deps.Sched.Schedule(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if !r.killed && r.room == room {
				r.m.spawn(room)
			}
		}, r.m.cfg.SpawnDelay)
	})
}

func (r *Rift) onWarning(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.killed || gen != r.gen {
		return
	}
	for _, c := range r.party.Members() {
		if _, ok := r.revived[c.ID]; ok {
			continue
		}
		c.Sink().Earthquake(c.Loc(), quakeIntensity, quakeDuration)
	}
}

func (r *Rift) onTeleport(gen uint64, jump bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.killed || gen != r.gen {
		return
	}
	prev := r.releaseRoomLocked()

	members := r.party.Members()
	if jump && r.jumps < r.m.cfg.MaxJumpCount() && len(members) > len(r.dead) {
		r.jumps++
		if r.moveOnLocked(prev, members) {
			return
		}
	}
	r.evacuateLocked(members, true)
	r.killLocked()
}

// moveOnLocked marks prev completed, occupies the next room and brings
// members there. Members revived in the waiting room stay behind. Returns
// false if no room was free; the caller then ends the rift.
func (r *Rift) moveOnLocked(prev *Room, members []*world.Creature) bool {
	if prev != nil {
		r.markCompletedLocked(prev.ID)
	}
	next := r.m.occupyRandom(r.typ, r.completed)
	if next == nil {
		r.m.log.Warn("次元裂縫沒有空房間", zap.Uint8("type", r.typ), zap.Int32("party", r.party.ID))
		return false
	}
	r.room = next
	r.boss = next.Boss
	for _, c := range members {
		if _, ok := r.revived[c.ID]; ok {
			continue
		}
		r.m.deps.Teleport.Teleport(c, next.Teleport)
	}
	r.armTeleporterLocked(true)
	r.armSpawnLocked()
	r.m.log.Debug("次元裂縫跳躍",
		zap.Int32("party", r.party.ID),
		zap.Uint8("room", next.ID),
		zap.Int("jumps", r.jumps),
		zap.Bool("boss", next.Boss),
	)
	return true
}

func (r *Rift) markCompletedLocked(id byte) {
	if !slices.Contains(r.completed, id) {
		r.completed = append(r.completed, id)
	}
}

// releaseRoomLocked frees the current room and returns it. The room is
// forgotten at once so a later teardown cannot free it a second time after
// another party took it.
func (r *Rift) releaseRoomLocked() *Room {
	prev := r.room
	if prev != nil {
		r.m.release(prev)
		r.room = nil
	}
	return prev
}

// evacuateLocked sends members to the waiting room. Members already revived
// there are skipped when skipRevived is set.
func (r *Rift) evacuateLocked(members []*world.Creature, skipRevived bool) {
	for _, c := range members {
		if _, ok := r.revived[c.ID]; skipRevived && ok {
			continue
		}
		r.m.TeleportToWaitingRoom(c)
	}
}

// killLocked tears the rift down: timers, room, party link, registry.
func (r *Rift) killLocked() {
	if r.killed {
		return
	}
	r.killed = true
	r.gen++
	r.teleport.Cancel()
	r.spawn.Cancel()
	r.quake.Cancel()

	r.releaseRoomLocked()
	r.completed = nil
	clear(r.dead)
	clear(r.revived)

	partyID := int32(0)
	if r.party != nil {
		partyID = r.party.ID
		r.party.ClearInstance(r)
		r.party = nil
	}
	r.m.forget(r)
	r.m.log.Info("次元裂縫結束", zap.Int32("party", partyID), zap.Int("jumps", r.jumps))
}

// ManualTeleport lets the leader jump to the next room once per rift. The
// jump does not count against the automatic jump budget.
func (r *Rift) ManualTeleport(player *world.Creature, npcObjID int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.killed || player.Party() != r.party {
		return
	}
	if !r.party.IsLeader(player) {
		r.m.ShowHTML(player, PageNotPartyLeader, npcObjID)
		return
	}
	if r.hasJumped {
		r.m.ShowHTML(player, PageAlreadyTeleported, npcObjID)
		return
	}
	r.hasJumped = true
	prev := r.releaseRoomLocked()

	members := r.party.Members()
	if !r.moveOnLocked(prev, members) {
		r.evacuateLocked(members, true)
		r.killLocked()
	}
}

// ManualExit lets the leader take the whole party out at once.
func (r *Rift) ManualExit(player *world.Creature, npcObjID int32) {
	r.mu.Lock()
	if r.killed || player.Party() != r.party {
		r.mu.Unlock()
		return
	}
	if !r.party.IsLeader(player) {
		r.mu.Unlock()
		r.m.ShowHTML(player, PageNotPartyLeader, npcObjID)
		return
	}
	r.mu.Unlock()
	r.Exit()
}

// Exit sends every member to the waiting room and ends the rift.
func (r *Rift) Exit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.killed {
		return
	}
	r.evacuateLocked(r.party.Members(), false)
	r.killLocked()
}

// MemberInvited arms the kick timer: a party that takes on a newcomer
// mid-rift is sent out after the kick delay.
func (r *Rift) MemberInvited(_ *world.Party, c *world.Creature) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.killed {
		return
	}
	r.m.log.Debug("次元裂縫中邀請隊員", zap.Int32("member", c.ID))
	r.armTeleporterLocked(false)
}

// MemberExited ends the rift when the party drops below the minimum size
// or to a single member. p has already lost c.
func (r *Rift) MemberExited(p *world.Party, c *world.Creature) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.killed {
		return
	}
	delete(r.dead, c.ID)
	delete(r.revived, c.ID)

	n := p.MemberCount()
	if n < r.m.cfg.MinPartySize || n == 1 {
		r.evacuateLocked(p.Members(), false)
		r.killLocked()
	}
}

func (r *Rift) MemberDead(c *world.Creature) {
	r.mu.Lock()
	if !r.killed {
		r.dead[c.ID] = struct{}{}
	}
	r.mu.Unlock()
}

func (r *Rift) MemberRevived(c *world.Creature) {
	r.mu.Lock()
	delete(r.dead, c.ID)
	r.mu.Unlock()
}

// UsedTeleport records a member who revived in the waiting room. Such a
// member counts as dead and is no longer brought along on jumps. If too few
// members are left in the rift, it ends.
func (r *Rift) UsedTeleport(c *world.Creature) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.killed {
		return
	}
	r.revived[c.ID] = struct{}{}
	r.dead[c.ID] = struct{}{}

	if r.party.MemberCount()-len(r.revived) < r.m.cfg.MinPartySize {
		r.evacuateLocked(r.party.Members(), true)
		r.killLocked()
	}
}
