package world

import (
	"math"
	"sort"

	"github.com/l1jgo/combatcore/internal/core/ecs"
	"github.com/l1jgo/combatcore/internal/geom"
)

// DefaultCellSize covers a typical attack or chain radius with a 3x3
// neighbourhood.
const DefaultCellSize = 4.0

type cellKey struct {
	cx int32
	cy int32
}

// AOIGrid is a uniform-grid spatial index of entity positions.
// Accessed only from the game loop goroutine; no locks.
type AOIGrid struct {
	size  float64
	cells map[cellKey]map[ecs.EntityID]struct{}
	where map[ecs.EntityID]cellKey
}

func NewAOIGrid(cellSize float64) *AOIGrid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &AOIGrid{
		size:  cellSize,
		cells: make(map[cellKey]map[ecs.EntityID]struct{}),
		where: make(map[ecs.EntityID]cellKey),
	}
}

func (g *AOIGrid) coord(v float64) int32 {
	return int32(math.Floor(v / g.size))
}

func (g *AOIGrid) key(p geom.Vec) cellKey {
	return cellKey{cx: g.coord(p.X), cy: g.coord(p.Y)}
}

// Add places an entity into the grid, moving it if already present.
func (g *AOIGrid) Add(id ecs.EntityID, p geom.Vec) {
	if _, ok := g.where[id]; ok {
		g.Move(id, p)
		return
	}
	k := g.key(p)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
	g.where[id] = k
}

// Remove takes an entity out of the grid.
func (g *AOIGrid) Remove(id ecs.EntityID) {
	k, ok := g.where[id]
	if !ok {
		return
	}
	delete(g.where, id)
	if cell := g.cells[k]; cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates an entity's cell when its position changes.
func (g *AOIGrid) Move(id ecs.EntityID, p geom.Vec) {
	oldK, ok := g.where[id]
	if !ok {
		g.Add(id, p)
		return
	}
	if g.key(p) == oldK {
		return
	}
	g.Remove(id)
	g.Add(id, p)
}

// Len returns the number of indexed entities.
func (g *AOIGrid) Len() int { return len(g.where) }

// Nearby returns the IDs in every cell touched by the square around
// center with half-width radius, in ascending ID order. Caller does
// fine-grained distance filtering.
func (g *AOIGrid) Nearby(center geom.Vec, radius float64) []ecs.EntityID {
	if radius < 0 {
		return nil
	}
	minX, maxX := g.coord(center.X-radius), g.coord(center.X+radius)
	minY, maxY := g.coord(center.Y-radius), g.coord(center.Y+radius)
	var result []ecs.EntityID
	for cx := minX; cx <= maxX; cx++ {
		for cy := minY; cy <= maxY; cy++ {
			for id := range g.cells[cellKey{cx: cx, cy: cy}] {
				result = append(result, id)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
