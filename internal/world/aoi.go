package world

// aoiGrid is a cell index over creature positions. A 3x3 neighbourhood of
// cells covers the recognize range. Callers hold State.mu.

const (
	cellSize       = 2048
	recognizeRange = 2048
)

type cellKey struct {
	cx int32
	cy int32
}

func toCellCoord(v int32) int32 {
	if v < 0 {
		return (v - cellSize + 1) / cellSize
	}
	return v / cellSize
}

func keyOf(loc Location) cellKey {
	return cellKey{cx: toCellCoord(loc.X), cy: toCellCoord(loc.Y)}
}

type aoiGrid struct {
	cells map[cellKey]map[int32]struct{} // cellKey → creature IDs
}

func newAOIGrid() *aoiGrid {
	return &aoiGrid{cells: make(map[cellKey]map[int32]struct{})}
}

func (g *aoiGrid) add(id int32, loc Location) {
	k := keyOf(loc)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[int32]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

func (g *aoiGrid) remove(id int32, loc Location) {
	k := keyOf(loc)
	if cell := g.cells[k]; cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

func (g *aoiGrid) move(id int32, from, to Location) {
	if keyOf(from) == keyOf(to) {
		return
	}
	g.remove(id, from)
	g.add(id, to)
}

// nearbyInto appends every ID in the 3x3 neighbourhood of loc to buf.
// Caller does the fine-grained distance check.
func (g *aoiGrid) nearbyInto(loc Location, buf []int32) []int32 {
	buf = buf[:0]
	k := keyOf(loc)
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for id := range g.cells[cellKey{cx: k.cx + dx, cy: k.cy + dy}] {
				buf = append(buf, id)
			}
		}
	}
	return buf
}

// chebyshev returns the Chebyshev distance between a and b on the XY plane.
func chebyshev(a, b Location) int32 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dy > dx {
		return dy
	}
	return dx
}
