package world

import (
	"testing"
	"time"
)

func TestState_NearbyPlayersUsesRecognizeRange(t *testing.T) {
	rt, _ := newTestRuntime(t, FixedStats{})
	s := NewState(rt)

	near := NewCreature(Spec{ID: 1, Kind: KindPlayer, Loc: Location{X: 100, Y: 100}, MaxHP: 1}, rt, Hooks{})
	far := NewCreature(Spec{ID: 2, Kind: KindPlayer, Loc: Location{X: 100 + recognizeRange + 1, Y: 100}, MaxHP: 1}, rt, Hooks{})
	s.AddCreature(near)
	s.AddCreature(far)
	npc := s.SpawnNpc("guard", 10, Location{X: 110, Y: 90}, 100, 10)

	got := s.NearbyPlayers(Location{X: 100, Y: 100})
	if len(got) != 1 || got[0] != near {
		t.Fatalf("nearby=%v want only the near player", got)
	}

	s.Teleport(far, Location{X: 90, Y: 100})
	if n := len(s.NearbyPlayers(Location{X: 100, Y: 100})); n != 2 {
		t.Fatalf("nearby=%d want=2 after teleport", n)
	}
	if s.CreatureCount() != 3 {
		t.Fatalf("creatures=%d want=3", s.CreatureCount())
	}

	sink := &recordingSink{}
	near.SetSink(sink)
	s.DespawnNpc(npc)
	if s.Creature(npc.ID) != nil {
		t.Fatalf("npc still registered")
	}
	if len(sink.removed) != 1 || sink.removed[0] != npc.ID {
		t.Fatalf("removed=%v want=[%d]", sink.removed, npc.ID)
	}
}

func TestState_GroundItemLifecycle(t *testing.T) {
	rt, _ := newTestRuntime(t, FixedStats{})
	s := NewState(rt)
	watcher := NewCreature(Spec{ID: 1, Kind: KindPlayer, MaxHP: 1}, rt, Hooks{})
	sink := &recordingSink{}
	watcher.SetSink(sink)
	s.AddCreature(watcher)

	a := &GroundItem{ID: NextGroundItemID(), ItemID: 57, Count: 100, Name: "Adena"}
	b := &GroundItem{ID: NextGroundItemID(), ItemID: 8600, Count: 1, Name: "Herb"}
	s.DropItem(a, epoch)
	s.DropItem(b, time.Time{})

	if !a.DropTime().Equal(epoch) || !b.DropTime().IsZero() {
		t.Fatalf("drop times a=%v b=%v", a.DropTime(), b.DropTime())
	}
	if got := s.PickupItem(b.ID, watcher); got != b || b.Location() != LocInventory {
		t.Fatalf("pickup failed: %v loc=%v", got, b.Location())
	}
	if s.PickupItem(b.ID, watcher) != nil {
		t.Fatalf("picked up twice")
	}

	s.DecayGroundItem(a)
	s.DecayGroundItem(a)
	if s.GroundItem(a.ID) != nil || len(s.GroundItems()) != 0 {
		t.Fatalf("item still on the ground")
	}
	if len(sink.removed) != 1 {
		t.Fatalf("remove notices=%d want=1", len(sink.removed))
	}
}

func TestState_EndOfLifeFromInventory(t *testing.T) {
	rt, _ := newTestRuntime(t, FixedStats{})
	s := NewState(rt)
	owner := NewCreature(Spec{ID: 4, Kind: KindPlayer, MaxHP: 1}, rt, Hooks{})
	sink := &recordingSink{}
	owner.SetSink(sink)
	s.AddCreature(owner)

	item := &GroundItem{ID: NextGroundItemID(), ItemID: 20200, Count: 1}
	s.DropItem(item, epoch)
	s.PickupItem(item.ID, owner)
	if item.OwnerID() != owner.ID {
		t.Fatalf("owner=%d want=%d", item.OwnerID(), owner.ID)
	}

	s.EndOfLife(item)
	if len(sink.removed) != 1 || sink.removed[0] != item.ID {
		t.Fatalf("removed=%v want=[%d]", sink.removed, item.ID)
	}
}

func TestState_NpcHooksFireOnSpawnMoveAndRemove(t *testing.T) {
	rt, _ := newTestRuntime(t, FixedStats{})
	s := NewState(rt)
	var moved, removed []int32
	s.SetNpcHooks(Hooks{
		OnMove:   func(c *Creature) { moved = append(moved, c.ID) },
		OnRemove: func(c *Creature) { removed = append(removed, c.ID) },
	})

	npc := s.SpawnNpc("imp", 5, Location{X: 10, Y: 10}, 50, 0)
	if len(moved) != 1 || moved[0] != npc.ID {
		t.Fatalf("moved=%v want spawn revalidation", moved)
	}
	s.Teleport(npc, Location{X: 20, Y: 20})
	if len(moved) != 2 {
		t.Fatalf("moved=%v want=2 entries after teleport", moved)
	}
	s.DespawnNpc(npc)
	if len(removed) != 1 || removed[0] != npc.ID {
		t.Fatalf("removed=%v want=[%d]", removed, npc.ID)
	}
}
