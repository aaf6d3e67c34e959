package persist

import (
	"context"
	"database/sql"
	"time"

	"github.com/l1jgo/gamecore/internal/world"
)

// GroundItemRow is one persisted item lying on the ground.
type GroundItemRow struct {
	ObjectID int32
	ItemID   int32
	Count    int32
	X, Y, Z  int32
	DropTime int64 // unix ms, 0 = protected from auto-destroy
}

// RowFromItem snapshots a ground item for saving.
func RowFromItem(it *world.GroundItem) GroundItemRow {
	var drop int64
	if t := it.DropTime(); !t.IsZero() {
		drop = t.UnixMilli()
	}
	return GroundItemRow{
		ObjectID: it.ID,
		ItemID:   it.ItemID,
		Count:    it.Count,
		X:        it.Loc.X,
		Y:        it.Loc.Y,
		Z:        it.Loc.Z,
		DropTime: drop,
	}
}

// DroppedAt returns the drop time, zero for protected items.
func (r GroundItemRow) DroppedAt() time.Time {
	if r.DropTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(r.DropTime)
}

// GroundStore keeps the items-on-ground table that survives restarts.
type GroundStore interface {
	Save(ctx context.Context, rows []GroundItemRow) error
	RemoveObject(ctx context.Context, objectID int32) error
	LoadAll(ctx context.Context) ([]GroundItemRow, error)
}

// GroundItemRepo is the postgres GroundStore.
type GroundItemRepo struct {
	db *DB
}

var _ GroundStore = (*GroundItemRepo)(nil)

func NewGroundItemRepo(db *DB) *GroundItemRepo {
	return &GroundItemRepo{db: db}
}

// Save upserts rows in one transaction.
func (r *GroundItemRepo) Save(ctx context.Context, rows []GroundItemRow) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, it := range rows {
		if _, err := tx.Exec(ctx,
			`INSERT INTO items_on_ground (object_id, item_id, count, x, y, z, drop_time)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (object_id) DO UPDATE SET
			   item_id = EXCLUDED.item_id, count = EXCLUDED.count,
			   x = EXCLUDED.x, y = EXCLUDED.y, z = EXCLUDED.z, drop_time = EXCLUDED.drop_time`,
			it.ObjectID, it.ItemID, it.Count, it.X, it.Y, it.Z, it.DropTime,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *GroundItemRepo) RemoveObject(ctx context.Context, objectID int32) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM items_on_ground WHERE object_id = $1`, objectID)
	return err
}

func (r *GroundItemRepo) LoadAll(ctx context.Context) ([]GroundItemRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT object_id, item_id, count, x, y, z, drop_time FROM items_on_ground ORDER BY object_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GroundItemRow
	for rows.Next() {
		var it GroundItemRow
		if err := rows.Scan(&it.ObjectID, &it.ItemID, &it.Count, &it.X, &it.Y, &it.Z, &it.DropTime); err != nil {
			return nil, err
		}
		result = append(result, it)
	}
	return result, rows.Err()
}

// SQLiteGroundItemRepo is the GroundStore for single-node deployments.
type SQLiteGroundItemRepo struct {
	db *sql.DB
}

var _ GroundStore = (*SQLiteGroundItemRepo)(nil)

func NewSQLiteGroundItemRepo(db *sql.DB) *SQLiteGroundItemRepo {
	return &SQLiteGroundItemRepo{db: db}
}

func (r *SQLiteGroundItemRepo) Save(ctx context.Context, rows []GroundItemRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, it := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO items_on_ground (object_id, item_id, count, x, y, z, drop_time)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			it.ObjectID, it.ItemID, it.Count, it.X, it.Y, it.Z, it.DropTime,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteGroundItemRepo) RemoveObject(ctx context.Context, objectID int32) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM items_on_ground WHERE object_id = ?`, objectID)
	return err
}

func (r *SQLiteGroundItemRepo) LoadAll(ctx context.Context) ([]GroundItemRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT object_id, item_id, count, x, y, z, drop_time FROM items_on_ground ORDER BY object_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GroundItemRow
	for rows.Next() {
		var it GroundItemRow
		if err := rows.Scan(&it.ObjectID, &it.ItemID, &it.Count, &it.X, &it.Y, &it.Z, &it.DropTime); err != nil {
			return nil, err
		}
		result = append(result, it)
	}
	return result, rows.Err()
}
