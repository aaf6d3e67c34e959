package world

import (
	"testing"
)

type instanceLog struct {
	invited, exited, dead, revived []int32
	countOnExit                    []int
}

func (l *instanceLog) MemberInvited(_ *Party, c *Creature) { l.invited = append(l.invited, c.ID) }
func (l *instanceLog) MemberExited(p *Party, c *Creature) {
	l.exited = append(l.exited, c.ID)
	l.countOnExit = append(l.countOnExit, p.MemberCount())
}
func (l *instanceLog) MemberDead(c *Creature)    { l.dead = append(l.dead, c.ID) }
func (l *instanceLog) MemberRevived(c *Creature) { l.revived = append(l.revived, c.ID) }

func newPlayer(rt Runtime, id int32) *Creature {
	return NewCreature(Spec{ID: id, Name: "p", Kind: KindPlayer, MaxHP: 100, MaxMP: 10}, rt, Hooks{})
}

func TestParty_InstanceSeesMembershipChanges(t *testing.T) {
	rt, _ := newTestRuntime(t, FixedStats{})
	pm := NewPartyManager()
	a, b, c := newPlayer(rt, 1), newPlayer(rt, 2), newPlayer(rt, 3)

	p := pm.CreateParty(a, b)
	log := &instanceLog{}
	p.SetInstance(log)

	if !pm.AddMember(p, c) {
		t.Fatalf("add member failed")
	}
	if pm.AddMember(p, c) {
		t.Fatalf("member added twice")
	}
	if len(log.invited) != 1 || log.invited[0] != 3 {
		t.Fatalf("invited=%v want=[3]", log.invited)
	}

	c.DoDie(nil)
	c.Revive(50, 5)
	if len(log.dead) != 1 || len(log.revived) != 1 {
		t.Fatalf("dead=%v revived=%v", log.dead, log.revived)
	}

	pm.RemoveMember(c)
	if len(log.exited) != 1 || log.countOnExit[0] != 2 {
		t.Fatalf("exited=%v count=%v want one exit seen at size 2", log.exited, log.countOnExit)
	}
	if c.Party() != nil {
		t.Fatalf("removed member still linked")
	}
}

func TestParty_LeaderLeavingPromotesAndLastPairDissolves(t *testing.T) {
	rt, _ := newTestRuntime(t, FixedStats{})
	pm := NewPartyManager()
	a, b, c := newPlayer(rt, 1), newPlayer(rt, 2), newPlayer(rt, 3)
	p := pm.CreateParty(a, b)
	pm.AddMember(p, c)

	pm.RemoveMember(a)
	if p.LeaderID() != 2 {
		t.Fatalf("leader=%d want=2", p.LeaderID())
	}
	pm.RemoveMember(b)
	if pm.Count() != 0 {
		t.Fatalf("parties=%d want=0 after dropping to one member", pm.Count())
	}
	if c.Party() != nil {
		t.Fatalf("last member still linked to a dissolved party")
	}
}

type nopInstance struct{ id int }

func (nopInstance) MemberInvited(*Party, *Creature) {}
func (nopInstance) MemberExited(*Party, *Creature)  {}
func (nopInstance) MemberDead(*Creature)            {}
func (nopInstance) MemberRevived(*Creature)         {}

func TestParty_TrySetInstanceClaimsOnce(t *testing.T) {
	rt, _ := newTestRuntime(t, FixedStats{})
	pm := NewPartyManager()
	p := pm.CreateParty(newPlayer(rt, 1), newPlayer(rt, 2))

	a, b := &nopInstance{id: 1}, &nopInstance{id: 2}
	if !p.TrySetInstance(a) {
		t.Fatalf("first claim failed")
	}
	if p.TrySetInstance(b) {
		t.Fatalf("second claim succeeded")
	}
	if p.ClearInstance(b) || p.Instance() != PartyInstance(a) {
		t.Fatalf("clear by a stranger detached the instance")
	}
	if !p.ClearInstance(a) || p.Instance() != nil {
		t.Fatalf("owner could not detach")
	}
}
