package world

import (
	"sync/atomic"
	"time"
)

// groundItemIDCounter generates unique object IDs for ground items.
// Starts at 700_000_000 to avoid collision with char/NPC/inventory IDs.
var groundItemIDCounter atomic.Int32

func init() {
	groundItemIDCounter.Store(700_000_000)
}

// NextGroundItemID returns a unique object ID for a ground item.
func NextGroundItemID() int32 {
	return groundItemIDCounter.Add(1)
}

// ItemLocation says where an item object currently lives.
type ItemLocation int32

const (
	LocVoid      ItemLocation = iota // on the ground
	LocInventory                     // picked up
)

// GroundItem is an item object lying in the world.
type GroundItem struct {
	ID     int32 // unique ground object ID
	ItemID int32 // template ID
	Count  int32
	Name   string
	Loc    Location

	// Per-template destroy window, 0 = use the herb/global default.
	AutoDestroyTime time.Duration
	// Herbs (immediate-effect items) use their own, shorter window.
	ImmediateEffect bool

	location atomic.Int32
	dropTime atomic.Int64 // unix ms, 0 = protected
	ownerID  atomic.Int32 // 0 = anyone can pick up
}

func (g *GroundItem) Location() ItemLocation     { return ItemLocation(g.location.Load()) }
func (g *GroundItem) SetLocation(l ItemLocation) { g.location.Store(int32(l)) }

// DropTime returns when the item hit the ground, or the zero time for items
// that never expire.
func (g *GroundItem) DropTime() time.Time {
	ms := g.dropTime.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// SetDropTime stamps the drop moment; the zero time protects the item.
func (g *GroundItem) SetDropTime(t time.Time) {
	if t.IsZero() {
		g.dropTime.Store(0)
		return
	}
	g.dropTime.Store(t.UnixMilli())
}

func (g *GroundItem) OwnerID() int32     { return g.ownerID.Load() }
func (g *GroundItem) SetOwnerID(v int32) { g.ownerID.Store(v) }
