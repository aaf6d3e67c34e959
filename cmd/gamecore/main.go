package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/gamecore/internal/admin"
	"github.com/l1jgo/gamecore/internal/config"
	"github.com/l1jgo/gamecore/internal/data"
	"github.com/l1jgo/gamecore/internal/expiry"
	"github.com/l1jgo/gamecore/internal/persist"
	"github.com/l1jgo/gamecore/internal/rift"
	"github.com/l1jgo/gamecore/internal/sched"
	"github.com/l1jgo/gamecore/internal/scripting"
	"github.com/l1jgo/gamecore/internal/skill"
	"github.com/l1jgo/gamecore/internal/world"
	"github.com/l1jgo/gamecore/internal/zone"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	hashPw := flag.String("hash-password", "", "print the bcrypt hash for admin.password_hash and exit")
	flag.Parse()
	if *hashPw != "" {
		h, err := admin.HashPassword(*hashPw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(h)
		return
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m          L1JGO-GameCore  v0.1.0           \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     排程 · 區域效果 · 次元裂縫 核心       \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m伺服器:\033[0m %s \033[90m(編號: %d)\033[0m\n\n", serverName, serverID)
}

// displayWidth counts CJK characters as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(title string) {
	lineLen := max(46-displayWidth(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-displayWidth(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

type tables struct {
	skills *data.SkillTable
	items  *data.ItemTable
	npcs   *data.NpcTable
	zones  []data.ZoneInfo
	rift   *data.RiftData
}

func loadTables(cfg config.DataConfig) (*tables, error) {
	var (
		t   tables
		err error
	)
	if t.skills, err = data.LoadSkillTable(cfg.SkillList); err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}
	if t.items, err = data.LoadItemTable(cfg.ItemList); err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	if t.npcs, err = data.LoadNpcTable(cfg.NpcList); err != nil {
		return nil, fmt.Errorf("load npcs: %w", err)
	}
	if t.zones, err = data.LoadZoneList(cfg.ZoneList); err != nil {
		return nil, fmt.Errorf("load zones: %w", err)
	}
	if t.rift, err = data.LoadRiftRooms(cfg.RiftRooms); err != nil {
		return nil, fmt.Errorf("load rift rooms: %w", err)
	}
	return &t, nil
}

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("GAMECORE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	deadlock.Opts.Disable = !cfg.Debug.DeadlockDetection
	deadlock.Opts.DeadlockTimeout = cfg.Debug.DeadlockTimeout
	deadlock.Opts.OnPotentialDeadlock = func() {
		log.Error("偵測到可能的死鎖")
	}

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Static data
	printSection("遊戲資料")
	tbl, err := loadTables(cfg.Data)
	if err != nil {
		return err
	}
	printStat("技能", tbl.skills.Count())
	printStat("物品", tbl.items.Count())
	printStat("NPC", tbl.npcs.Count())
	printStat("效果區域", len(tbl.zones))
	printStat("次元裂縫類型", len(tbl.rift.Types))

	engine, err := scripting.NewEngine(cfg.Data.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()
	printOK("Lua 腳本載入完成")
	fmt.Println()

	// 4. Scheduler and world
	pool := sched.NewPool(cfg.Scheduler.Workers, log)
	state := world.NewState(world.Runtime{Sched: pool, Stats: engine, Log: log})

	// 5. Items-on-ground storage
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var store persist.GroundStore
	if cfg.Items.SaveDroppedItem {
		printSection("資料庫")
		var closeDB func()
		store, closeDB, err = openStore(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer closeDB()
		printOK("資料庫遷移完成")
		fmt.Println()
	}

	// 6. Expiry registries
	autoDestroy := expiry.NewAutoDestroy(pool, cfg.Items, state, store, log)
	lifetime := expiry.NewLifetime(pool, cfg.Items.LifeTimeSweep, state, log)
	if store != nil {
		n, err := restoreGround(ctx, store, tbl.items, state, autoDestroy)
		if err != nil {
			return fmt.Errorf("restore ground items: %w", err)
		}
		printStat("地面物品", n)
	}
	autoDestroy.Start()
	lifetime.Start()

	// 7. Effect zones and rifts
	zones, err := zone.NewManager(tbl.zones, pool, skill.NewTable(tbl.skills, pool, log), nil, log)
	if err != nil {
		return fmt.Errorf("zones: %w", err)
	}
	state.SetNpcHooks(zones.Hooks())
	rifts := rift.NewManager(tbl.rift, cfg.Rift, rift.Deps{
		Sched:    pool,
		Teleport: state,
		Spawner:  state,
		Npcs:     tbl.npcs,
	}, log)

	// 8. Admin console
	var console *admin.Console
	if cfg.Admin.Enabled {
		console = admin.NewConsole(cfg.Admin, admin.Deps{
			World:    state,
			Zones:    zones,
			Rifts:    rifts,
			Registry: []*expiry.Registry{autoDestroy.Registry, lifetime.Registry},
		}, log)
		if err := console.Start(); err != nil {
			return fmt.Errorf("admin console: %w", err)
		}
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	printSection("伺服器就緒")
	printReady(fmt.Sprintf("排程執行緒 %d", cfg.Scheduler.Workers))
	if console != nil {
		printReady(fmt.Sprintf("管理介面 %s", cfg.Admin.BindAddress))
	}
	fmt.Println()

	sig := <-shutdownCh
	log.Info("收到關閉信號", zap.String("signal", sig.String()))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if console != nil {
		_ = console.Shutdown(stopCtx)
	}
	rifts.Shutdown()
	zones.Close()
	autoDestroy.Stop()
	lifetime.Stop()
	if store != nil {
		saveGround(stopCtx, store, state, log)
	}
	if err := pool.Shutdown(stopCtx); err != nil {
		log.Warn("排程器關閉逾時", zap.Error(err))
	}
	log.Info("伺服器已停止")
	return nil
}

// openStore connects the configured database, applies migrations and
// returns the ground item store with its closer.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (persist.GroundStore, func(), error) {
	switch cfg.Driver {
	case persist.DialectSQLite:
		db, err := persist.OpenSQLite(cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		if err := persist.RunMigrations(ctx, db, persist.DialectSQLite); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		printOK("SQLite 開啟成功")
		return persist.NewSQLiteGroundItemRepo(db), func() { db.Close() }, nil
	case persist.DialectPostgres, "":
		db, err := persist.NewDB(ctx, cfg, log)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		if err := persist.MigratePool(ctx, db.Pool); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		printOK("PostgreSQL 連線成功")
		return persist.NewGroundItemRepo(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// restoreGround puts saved items back on the ground with their original drop
// time so their destroy clock keeps running.
func restoreGround(ctx context.Context, store persist.GroundStore, items *data.ItemTable, state *world.State, reg *expiry.AutoDestroy) (int, error) {
	rows, err := store.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	for _, row := range rows {
		it := &world.GroundItem{
			ID:     row.ObjectID,
			ItemID: row.ItemID,
			Count:  row.Count,
			Loc:    world.Location{X: row.X, Y: row.Y, Z: row.Z},
		}
		if tpl := items.Get(row.ItemID); tpl != nil {
			it.Name = tpl.Name
			it.AutoDestroyTime = time.Duration(tpl.AutoDestroyTime) * time.Second
			it.ImmediateEffect = tpl.ExImmediateEffect
		}
		drop := row.DroppedAt()
		state.DropItem(it, drop)
		if !drop.IsZero() {
			reg.Restore(it)
		}
	}
	return len(rows), nil
}

func saveGround(ctx context.Context, store persist.GroundStore, state *world.State, log *zap.Logger) {
	var rows []persist.GroundItemRow
	for _, it := range state.GroundItems() {
		if it.Location() == world.LocVoid {
			rows = append(rows, persist.RowFromItem(it))
		}
	}
	if err := store.Save(ctx, rows); err != nil {
		log.Error("儲存地面物品失敗", zap.Error(err))
		return
	}
	log.Info("地面物品已儲存", zap.Int("count", len(rows)))
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
