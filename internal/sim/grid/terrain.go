package grid

import (
	"sync"

	"swarmstation.dev/internal/sim/resource"
)

// Terrain is the ground-truth world map. The station loop is its only
// writer; robot goroutines scan it concurrently, so access goes through an
// internal RWMutex. The coordination protocol itself never shares memory;
// the lock exists only on this collaborator boundary.
type Terrain struct {
	width  int
	height int
	seed   int64

	mu    sync.RWMutex
	tiles []Tile
}

// NewTerrain builds an all-empty terrain of the given dimensions.
func NewTerrain(width, height int) *Terrain {
	return &Terrain{
		width:  width,
		height: height,
		tiles:  make([]Tile, width*height),
	}
}

// NewSeededTerrain is NewTerrain carrying the worldgen seed, for
// generation and for snapshot restore.
func NewSeededTerrain(width, height int, seed int64) *Terrain {
	t := NewTerrain(width, height)
	t.seed = seed
	return t
}

func (t *Terrain) Width() int  { return t.width }
func (t *Terrain) Height() int { return t.height }
func (t *Terrain) Seed() int64 { return t.seed }

func (t *Terrain) index(p Position) int { return p.Y*t.width + p.X }

// TileAt returns the tile at p. ok is false out of bounds.
func (t *Terrain) TileAt(p Position) (Tile, bool) {
	if !p.In(t.width, t.height) {
		return Tile{}, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tiles[t.index(p)], true
}

// SetTile overwrites the tile at p, ignoring out-of-bounds positions.
func (t *Terrain) SetTile(p Position, tile Tile) {
	if !p.In(t.width, t.height) {
		return
	}
	t.mu.Lock()
	t.tiles[t.index(p)] = tile
	t.mu.Unlock()
}

// Walkable reports whether p is in bounds and not an obstacle.
func (t *Terrain) Walkable(p Position) bool {
	tile, ok := t.TileAt(p)
	return ok && tile.Walkable()
}

// ResourceAt reports the resource present at p, if any.
func (t *Terrain) ResourceAt(p Position) (kind resource.Kind, amount uint32, ok bool) {
	tile, inBounds := t.TileAt(p)
	if !inBounds {
		return 0, 0, false
	}
	return tile.Resource()
}

// Consume removes up to amount units of kind at p and returns how much was
// actually taken. The deposit tile reverts to empty once exhausted.
// ScientificData is all-or-nothing regardless of amount.
func (t *Terrain) Consume(kind resource.Kind, p Position, amount uint32) uint32 {
	if kind == resource.ScientificData {
		value, ok := t.ClaimScience(p)
		if !ok {
			return 0
		}
		return value
	}
	if !p.In(t.width, t.height) {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	tile := t.tiles[t.index(p)]
	present, remaining, ok := tile.Resource()
	if !ok || present != kind {
		return 0
	}
	consumed := amount
	if consumed > remaining {
		consumed = remaining
	}
	remaining -= consumed
	if remaining == 0 {
		t.tiles[t.index(p)] = Tile{Kind: TileEmpty}
	} else {
		t.tiles[t.index(p)] = TileFor(kind, remaining)
	}
	return consumed
}

// ClaimScience takes the science point at p whole. ok is false when no
// science point is present.
func (t *Terrain) ClaimScience(p Position) (value uint32, ok bool) {
	if !p.In(t.width, t.height) {
		return 0, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	tile := t.tiles[t.index(p)]
	if tile.Kind != TileScience {
		return 0, false
	}
	t.tiles[t.index(p)] = Tile{Kind: TileEmpty}
	return tile.Amount, true
}

// CountResources tallies deposit sites and total units per kind.
func (t *Terrain) CountResources() (sites map[resource.Kind]int, units map[resource.Kind]uint64) {
	sites = make(map[resource.Kind]int, len(resource.Kinds))
	units = make(map[resource.Kind]uint64, len(resource.Kinds))
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, tile := range t.tiles {
		if kind, amount, ok := tile.Resource(); ok {
			sites[kind]++
			units[kind] += uint64(amount)
		}
	}
	return sites, units
}

// NearestWalkable spirals outward from center until it finds a walkable
// cell, falling back to the origin corner. Used for station placement.
func (t *Terrain) NearestWalkable(center Position) Position {
	maxRadius := t.width
	if t.height > maxRadius {
		maxRadius = t.height
	}
	for radius := 0; radius < maxRadius; radius++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if abs(dx) != radius && abs(dy) != radius {
					continue
				}
				p := Position{X: center.X + dx, Y: center.Y + dy}
				if p.In(t.width, t.height) && t.Walkable(p) {
					return p
				}
			}
		}
	}
	return Position{}
}

// ClearArea flattens every tile within radius of center to empty. The
// station clears its surroundings before settling.
func (t *Terrain) ClearArea(center Position, radius int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			p := Position{X: center.X + dx, Y: center.Y + dy}
			if p.In(t.width, t.height) {
				t.tiles[t.index(p)] = Tile{Kind: TileEmpty}
			}
		}
	}
}
