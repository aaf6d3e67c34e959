package scripting

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/l1jgo/gamecore/internal/sched/schedtest"
	"github.com/l1jgo/gamecore/internal/world"
	"go.uber.org/zap/zaptest"
)

func writeScript(t *testing.T, dir, sub, body string) {
	t.Helper()
	p := filepath.Join(dir, sub)
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(p, "test.lua"), []byte(body), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
}

func newCreature(e *Engine, kind world.Kind, level int) *world.Creature {
	rt := world.Runtime{Sched: schedtest.NewManual(time.Unix(0, 0)), Stats: e}
	return world.NewCreature(world.Spec{ID: 1, Kind: kind, Level: level, MaxHP: 500, MaxMP: 200, MaxCP: 300}, rt, world.Hooks{})
}

func TestEngine_ShippedRegenScript(t *testing.T) {
	e, err := NewEngine(filepath.Join("..", "..", "scripts"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	p := newCreature(e, world.KindPlayer, 20)
	if got := e.RegenPeriod(p); got != 3*time.Second {
		t.Fatalf("period=%s want=3s", got)
	}
	if got := e.HPRegen(p); got < 3.39 || got > 3.41 {
		t.Fatalf("hp regen=%v want=3.4", got)
	}
	if got := e.CPRegen(p); got <= 0 {
		t.Fatalf("player cp regen=%v want>0", got)
	}
	if got := e.MaxRecoverableHP(p); got != 500 {
		t.Fatalf("recoverable hp=%v want=500", got)
	}

	npc := newCreature(e, world.KindNpc, 20)
	if got := e.CPRegen(npc); got != 0 {
		t.Fatalf("npc cp regen=%v want=0", got)
	}
	if got := e.HPRegen(npc); got != 5 {
		t.Fatalf("npc hp regen=%v want=5 (1%% of 500)", got)
	}

	p.SetInsideZone(world.ZoneMotherTree, true)
	if got := e.HPRegen(p); got < 5.09 || got > 5.11 {
		t.Fatalf("mother tree hp regen=%v want=5.1", got)
	}
}

func TestEngine_FallbacksWhenScriptMissingOrBroken(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "regen", `
function get_regen_period(c) return -1 end
function calc_regen(c, res) error("boom") end
function max_recoverable(c, res) return "full" end
`)
	e, err := NewEngine(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	c := newCreature(e, world.KindPlayer, 1)
	if got := e.RegenPeriod(c); got != defaultRegenPeriod {
		t.Fatalf("period=%s want=%s", got, defaultRegenPeriod)
	}
	if got := e.HPRegen(c); got != 0 {
		t.Fatalf("hp regen=%v want=0 on error", got)
	}
	if got := e.MaxRecoverableMP(c); got != 200 {
		t.Fatalf("recoverable mp=%v want=200", got)
	}
}

func TestEngine_RecoverableCapBelowMax(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "regen", `
function get_regen_period(c) return 1000 end
function calc_regen(c, res) return 100 end
function max_recoverable(c, res) if res == "hp" then return c.max_hp * 0.5 end return c.max_mp end
`)
	e, err := NewEngine(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()

	m := schedtest.NewManual(time.Unix(0, 0))
	c := world.NewCreature(world.Spec{ID: 5, Kind: world.KindNpc, MaxHP: 500, MaxMP: 200},
		world.Runtime{Sched: m, Stats: e}, world.Hooks{})
	c.Status().SetCurrentHP(100, false)

	m.Advance(5 * time.Second)
	if hp := c.Status().CurrentHP(); hp != 250 {
		t.Fatalf("hp=%v want=250", hp)
	}
	if c.Status().Regenerating() {
		t.Fatalf("task still running at the scripted cap")
	}
}

func TestNewEngine_BadScriptFails(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "core", `function broken(`)
	if _, err := NewEngine(dir, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected load error")
	}
}
