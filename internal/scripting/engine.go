package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/l1jgo/gamecore/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Fallbacks used when a script is missing or fails.
const (
	defaultRegenPeriod = 3 * time.Second
)

// Engine wraps a single gopher-lua VM holding the regeneration formulas.
// Regen ticks arrive from many scheduler goroutines, so every VM call goes
// through mu.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

var _ world.StatEngine = (*Engine)(nil)

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	// core 先載入，其餘為可選目錄
	for _, sub := range []string{"core", "regen"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// creatureTable packs the stat inputs a formula may look at. Current
// resource values are deliberately absent (see world.StatEngine).
func (e *Engine) creatureTable(c *world.Creature) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("id", lua.LNumber(c.ID))
	t.RawSetString("level", lua.LNumber(c.Level))
	t.RawSetString("kind", lua.LString(c.Kind.String()))
	t.RawSetString("is_player", lua.LBool(c.IsPlayer()))
	t.RawSetString("max_hp", lua.LNumber(c.MaxHP()))
	t.RawSetString("max_mp", lua.LNumber(c.MaxMP()))
	t.RawSetString("max_cp", lua.LNumber(c.MaxCP()))
	t.RawSetString("in_mother_tree", lua.LBool(c.IsInsideZone(world.ZoneMotherTree)))
	t.RawSetString("in_peace", lua.LBool(c.IsInsideZone(world.ZonePeace)))
	t.RawSetString("in_clan_hall", lua.LBool(c.IsInsideZone(world.ZoneClanHall)))
	return t
}

// callNumber calls name(creature, args...) and returns its numeric result.
// ok is false when the function is missing, errors, or returns a non-number.
func (e *Engine) callNumber(name string, c *world.Creature, args ...lua.LValue) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return 0, false
	}

	lArgs := append([]lua.LValue{e.creatureTable(c)}, args...)
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lArgs...); err != nil {
		e.log.Error("lua call error", zap.String("func", name), zap.Int32("creature", c.ID), zap.Error(err))
		return 0, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Error("lua function returned non-number", zap.String("func", name), zap.String("type", result.Type().String()))
		return 0, false
	}
	return float64(n), true
}

// --- Regen Bridge ---

// RegenPeriod calls Lua get_regen_period(c) (milliseconds).
func (e *Engine) RegenPeriod(c *world.Creature) time.Duration {
	ms, ok := e.callNumber("get_regen_period", c)
	if !ok || ms <= 0 {
		return defaultRegenPeriod
	}
	return time.Duration(ms) * time.Millisecond
}

// HPRegen calls Lua calc_regen(c, "hp").
func (e *Engine) HPRegen(c *world.Creature) float64 { return e.regen(c, "hp") }

// MPRegen calls Lua calc_regen(c, "mp").
func (e *Engine) MPRegen(c *world.Creature) float64 { return e.regen(c, "mp") }

// CPRegen calls Lua calc_regen(c, "cp").
func (e *Engine) CPRegen(c *world.Creature) float64 { return e.regen(c, "cp") }

func (e *Engine) regen(c *world.Creature, res string) float64 {
	v, ok := e.callNumber("calc_regen", c, lua.LString(res))
	if !ok || v < 0 {
		return 0
	}
	return v
}

func (e *Engine) MaxRecoverableHP(c *world.Creature) float64 {
	return e.maxRecoverable(c, "hp", c.MaxHP())
}

func (e *Engine) MaxRecoverableMP(c *world.Creature) float64 {
	return e.maxRecoverable(c, "mp", c.MaxMP())
}

func (e *Engine) MaxRecoverableCP(c *world.Creature) float64 {
	return e.maxRecoverable(c, "cp", c.MaxCP())
}

// maxRecoverable calls Lua max_recoverable(c, res); no script means the
// absolute maximum.
func (e *Engine) maxRecoverable(c *world.Creature, res string, limit float64) float64 {
	v, ok := e.callNumber("max_recoverable", c, lua.LString(res))
	if !ok || v <= 0 || v > limit {
		return limit
	}
	return v
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
