package zone

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/l1jgo/gamecore/internal/data"
	"github.com/l1jgo/gamecore/internal/sched/schedtest"
	"github.com/l1jgo/gamecore/internal/skill"
	"github.com/l1jgo/gamecore/internal/world"
	"go.uber.org/zap/zaptest"
)

const shipped = "../../data/yaml"

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type iconSink struct {
	etc int
}

func (s *iconSink) StatusUpdate(*world.Creature, world.StatusSnapshot) {}
func (s *iconSink) EtcStatusUpdate(*world.Creature)                    { s.etc++ }
func (s *iconSink) Earthquake(world.Location, int, int)                {}
func (s *iconSink) ShowHTML(string, int32)                             {}
func (s *iconSink) RemoveObject(int32)                                 {}

type fixture struct {
	m      *schedtest.Manual
	skills *skill.Table
	zones  map[int32]data.ZoneInfo
	rt     world.Runtime
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := data.LoadSkillTable(filepath.Join(shipped, "skill_list.yaml"))
	if err != nil {
		t.Fatalf("skills: %v", err)
	}
	infos, err := data.LoadZoneList(filepath.Join(shipped, "zone_list.yaml"))
	if err != nil {
		t.Fatalf("zones: %v", err)
	}
	m := schedtest.NewManual(epoch)
	f := &fixture{
		m:      m,
		skills: skill.NewTable(st, m, zaptest.NewLogger(t)),
		zones:  make(map[int32]data.ZoneInfo),
		rt:     world.Runtime{Sched: m, Stats: world.FixedStats{}},
	}
	for _, z := range infos {
		f.zones[z.ID] = z
	}
	return f
}

func (f *fixture) creature(id int32, kind world.Kind, level int, loc world.Location) (*world.Creature, *iconSink) {
	c := world.NewCreature(world.Spec{ID: id, Kind: kind, Level: level, Loc: loc, MaxHP: 1000, MaxMP: 100}, f.rt, world.Hooks{})
	sink := &iconSink{}
	c.SetSink(sink)
	return c, sink
}

var swamp = world.Location{X: 69000, Y: -60000}

func TestZone_EveryLivingOccupantOncePerEffect(t *testing.T) {
	f := newFixture(t)
	mgr, err := NewManager([]data.ZoneInfo{f.zones[60001]}, f.m, f.skills, nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	a, _ := f.creature(1, world.KindPlayer, 10, swamp)
	b, _ := f.creature(2, world.KindSummon, 10, swamp)
	npc, _ := f.creature(3, world.KindNpc, 10, swamp)
	for _, c := range []*world.Creature{a, b, npc} {
		mgr.Revalidate(c)
	}
	z := mgr.Get(60001)
	if len(z.Occupants()) != 2 {
		t.Fatalf("occupants=%d want=2 (npc is not playable)", len(z.Occupants()))
	}

	f.m.Advance(0)
	for _, c := range []*world.Creature{a, b} {
		if hp := c.Status().CurrentHP(); hp != 985 {
			t.Fatalf("creature %d hp=%v want=985", c.ID, hp)
		}
	}
	if npc.Status().CurrentHP() != 1000 {
		t.Fatalf("npc outside the target type was hit")
	}

	// still affected: the ticks at 5s..30s must not stack
	f.m.Advance(34 * time.Second)
	if hp := a.Status().CurrentHP(); hp != 985 {
		t.Fatalf("hp=%v want=985 while affected", hp)
	}
	f.m.Advance(time.Second)
	if hp := a.Status().CurrentHP(); hp != 970 {
		t.Fatalf("hp=%v want=970 after the effect ran out", hp)
	}
	if z.Ticks() != 8 {
		t.Fatalf("ticks=%d want=8", z.Ticks())
	}
}

func TestZone_TaskExistsIffOccupied(t *testing.T) {
	f := newFixture(t)
	z := New(f.zones[60001], f.m, f.skills, nil, zaptest.NewLogger(t))
	a, sa := f.creature(1, world.KindPlayer, 10, swamp)
	b, sb := f.creature(2, world.KindPlayer, 10, swamp)

	if z.Active() {
		t.Fatalf("empty zone has a task")
	}
	z.OnEnter(a)
	if z.OnEnter(a) {
		t.Fatalf("double enter accepted")
	}
	z.OnEnter(b)
	if !z.Active() || f.m.Pending() != 1 {
		t.Fatalf("active=%v pending=%d want one task", z.Active(), f.m.Pending())
	}
	if !a.IsInsideZone(world.ZoneAltered) || !a.IsInsideZone(world.ZoneDangerArea) || sa.etc != 1 {
		t.Fatalf("entry flags not applied: etc=%d", sa.etc)
	}

	z.OnExit(a)
	if !z.Active() {
		t.Fatalf("task stopped with an occupant left")
	}
	if a.IsInsideZone(world.ZoneAltered) || a.IsInsideZone(world.ZoneDangerArea) || sa.etc != 2 {
		t.Fatalf("exit flags not cleared: etc=%d", sa.etc)
	}
	z.OnExit(b)
	z.OnExit(b)
	if z.Active() || f.m.Pending() != 0 {
		t.Fatalf("last exit left the task running")
	}
	if sb.etc != 2 {
		t.Fatalf("etc=%d want=2", sb.etc)
	}
}

func TestZone_OverlappingDangerZonesKeepIcon(t *testing.T) {
	f := newFixture(t)
	outer := New(f.zones[60001], f.m, f.skills, nil, zaptest.NewLogger(t))
	inner := f.zones[60001]
	inner.ID = 60099
	z2 := New(inner, f.m, f.skills, nil, zaptest.NewLogger(t))

	p, sink := f.creature(1, world.KindPlayer, 10, swamp)
	outer.OnEnter(p)
	z2.OnEnter(p)
	z2.OnExit(p)
	if !p.IsInsideZone(world.ZoneDangerArea) {
		t.Fatalf("danger flag lost while still inside another zone")
	}
	if sink.etc != 2 {
		t.Fatalf("etc=%d want=2 (no update while the icon stays)", sink.etc)
	}
	outer.OnExit(p)
	if p.IsInsideZone(world.ZoneDangerArea) || sink.etc != 3 {
		t.Fatalf("icon not cleared: etc=%d", sink.etc)
	}
}

func TestZone_ChanceAndTargetType(t *testing.T) {
	f := newFixture(t)
	roll := 50
	z := New(f.zones[60002], f.m, f.skills, func(int) int { return roll }, zaptest.NewLogger(t))
	loc := world.Location{X: 45000, Y: 41000}
	p, sink := f.creature(1, world.KindPlayer, 10, loc)
	p.Status().SetCurrentHP(500, false)

	if z.Affects(&world.Creature{Kind: world.KindSummon}) {
		t.Fatalf("player-only zone affects summons")
	}
	z.OnEnter(p)
	if sink.etc != 0 || !p.IsInsideZone(world.ZoneAltered) {
		t.Fatalf("icon sent with show_danger_icon off")
	}

	f.m.Advance(2 * time.Second)
	if p.IsAffectedBySkill(5108) {
		t.Fatalf("roll 50 passed a 50%% chance")
	}
	roll = 49
	f.m.Advance(10 * time.Second)
	if !p.IsAffectedBySkill(5108) || p.Status().CurrentHP() != 520 {
		t.Fatalf("blessing not applied: hp=%v", p.Status().CurrentHP())
	}
}

func TestZone_BypassConditionsAndEnabled(t *testing.T) {
	f := newFixture(t)
	info := f.zones[60003]
	loc := world.Location{X: 171000, Y: 21000}

	z := New(info, f.m, f.skills, nil, zaptest.NewLogger(t))
	low, _ := f.creature(1, world.KindPlayer, 5, loc)
	z.OnEnter(low)
	f.m.Advance(0)
	if z.Ticks() != 0 || low.EffectCount() != 0 {
		t.Fatalf("disabled zone cast skills")
	}
	z.SetEnabled(true)
	f.m.Advance(30 * time.Second)
	if !low.IsAffectedBySkill(4559) {
		t.Fatalf("bypass ignored: level 5 should get the fog")
	}
	z.Close()

	info.BypassConditions = false
	info.Enabled = true
	strict := New(info, f.m, f.skills, nil, zaptest.NewLogger(t))
	low2, _ := f.creature(2, world.KindPlayer, 5, loc)
	strict.OnEnter(low2)
	f.m.Advance(30 * time.Second)
	if low2.IsAffectedBySkill(4559) {
		t.Fatalf("min level condition ignored")
	}
	if !low2.IsAffectedBySkill(4558) {
		t.Fatalf("unconditional skill missing")
	}
}

func TestZone_SkillAdministration(t *testing.T) {
	f := newFixture(t)
	info := f.zones[60001]
	info.Skills = nil
	z := New(info, f.m, f.skills, nil, zaptest.NewLogger(t))
	p, _ := f.creature(1, world.KindPlayer, 10, swamp)

	z.OnEnter(p)
	if z.Active() {
		t.Fatalf("zone without skills started a task")
	}
	z.AddSkill(9999, 1) // unknown skill: skipped at tick time
	z.AddSkill(4515, 2)
	if !z.Active() || z.SkillLevel(4515) != 2 {
		t.Fatalf("add skill: active=%v level=%d", z.Active(), z.SkillLevel(4515))
	}
	f.m.Advance(0)
	if hp := p.Status().CurrentHP(); hp != 970 {
		t.Fatalf("hp=%v want=970 from level 2", hp)
	}

	z.AddSkill(4515, 0)
	if z.SkillLevel(4515) != 0 || len(z.Skills()) != 1 {
		t.Fatalf("level 0 did not remove: %v", z.Skills())
	}
	z.ClearSkills()
	if z.Active() {
		t.Fatalf("task survived clearing every skill")
	}
}

func TestZone_DeadOccupantSkipped(t *testing.T) {
	f := newFixture(t)
	z := New(f.zones[60001], f.m, f.skills, nil, zaptest.NewLogger(t))
	p, _ := f.creature(1, world.KindPlayer, 10, swamp)
	z.OnEnter(p)
	p.DoDie(nil)
	f.m.Advance(0)
	if p.IsAffectedBySkill(4515) {
		t.Fatalf("dead occupant received an effect")
	}
}

func TestManager_RevalidateFollowsMovement(t *testing.T) {
	f := newFixture(t)
	infos := []data.ZoneInfo{f.zones[60001], f.zones[60002]}
	mgr, err := NewManager(infos, f.m, f.skills, nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	p, _ := f.creature(1, world.KindPlayer, 10, swamp)
	mgr.Revalidate(p)
	if !mgr.Get(60001).IsInside(p) || mgr.Get(60002).IsInside(p) {
		t.Fatalf("wrong zones after spawn")
	}

	p.TeleportTo(world.Location{X: 45000, Y: 41000})
	mgr.Revalidate(p)
	if mgr.Get(60001).IsInside(p) || !mgr.Get(60002).IsInside(p) {
		t.Fatalf("wrong zones after teleport")
	}
	mgr.RemoveCreature(p)
	if mgr.Get(60002).IsInside(p) || mgr.Get(60001).Active() || mgr.Get(60002).Active() {
		t.Fatalf("creature not removed")
	}

	if _, err := NewManager([]data.ZoneInfo{infos[0], infos[0]}, f.m, f.skills, nil, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("duplicate zone accepted")
	}
	if got := mgr.List(); len(got) != 2 || got[0].ID != 60001 {
		t.Fatalf("list=%v", got)
	}
}

func TestManager_HooksTrackSpawnedNpcs(t *testing.T) {
	f := newFixture(t)
	info := f.zones[60001]
	info.TargetType = "Npc"
	mgr, err := NewManager([]data.ZoneInfo{info}, f.m, f.skills, nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	st := world.NewState(f.rt)
	st.SetNpcHooks(mgr.Hooks())
	z := mgr.Get(60001)

	npc := st.SpawnNpc("lizardman", 20, swamp, 1000, 100)
	if !z.IsInside(npc) || !z.Active() {
		t.Fatalf("spawned npc not entered: inside=%v active=%v", z.IsInside(npc), z.Active())
	}
	st.Teleport(npc, world.Location{X: 45000, Y: 41000})
	if z.IsInside(npc) {
		t.Fatalf("teleported npc still inside")
	}
	st.Teleport(npc, swamp)
	st.DespawnNpc(npc)
	if z.IsInside(npc) || z.Active() {
		t.Fatalf("despawned npc kept the zone running")
	}
}
