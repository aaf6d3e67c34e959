package persist

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/l1jgo/gamecore/internal/world"
)

func TestSQLiteGroundItemRepo(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "ground.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()
	if err := RunMigrations(ctx, db, DialectSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// second run is a no-op
	if err := RunMigrations(ctx, db, DialectSQLite); err != nil {
		t.Fatalf("migrate again: %v", err)
	}

	drop := time.UnixMilli(1_700_000_000_123)
	a := &world.GroundItem{ID: 700_000_001, ItemID: 57, Count: 1000, Loc: world.Location{X: 1, Y: -2, Z: 3}}
	a.SetDropTime(drop)
	b := &world.GroundItem{ID: 700_000_002, ItemID: 8600, Count: 1}

	repo := NewSQLiteGroundItemRepo(db)
	if err := repo.Save(ctx, []GroundItemRow{RowFromItem(a), RowFromItem(b)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	a.Count = 500
	if err := repo.Save(ctx, []GroundItemRow{RowFromItem(a)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rows, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%d want=2", len(rows))
	}
	if rows[0].Count != 500 || rows[0].Y != -2 || !rows[0].DroppedAt().Equal(drop) {
		t.Fatalf("row a=%+v", rows[0])
	}
	if !rows[1].DroppedAt().IsZero() {
		t.Fatalf("protected item got a drop time: %+v", rows[1])
	}

	if err := repo.RemoveObject(ctx, a.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := repo.RemoveObject(ctx, a.ID); err != nil {
		t.Fatalf("remove twice: %v", err)
	}
	rows, _ = repo.LoadAll(ctx)
	if len(rows) != 1 || rows[0].ObjectID != b.ID {
		t.Fatalf("rows after remove=%+v", rows)
	}
}

func TestRunMigrations_UnknownDialect(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()
	if err := RunMigrations(context.Background(), db, "mysql"); err == nil {
		t.Fatalf("unknown dialect accepted")
	}
}
