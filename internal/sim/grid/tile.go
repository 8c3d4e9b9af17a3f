package grid

import (
	"fmt"

	"swarmstation.dev/internal/sim/resource"
)

// TileKind tags the closed set of tile variants.
type TileKind uint8

const (
	TileEmpty TileKind = iota
	TileObstacle
	TileStation
	TileEnergy
	TileMineral
	TileScience
)

func (k TileKind) String() string {
	switch k {
	case TileEmpty:
		return "EMPTY"
	case TileObstacle:
		return "OBSTACLE"
	case TileStation:
		return "STATION"
	case TileEnergy:
		return "ENERGY"
	case TileMineral:
		return "MINERAL"
	case TileScience:
		return "SCIENCE"
	}
	return fmt.Sprintf("TILE_%d", uint8(k))
}

// Tile is one grid cell. Amount is meaningful only for resource kinds:
// remaining units for energy/mineral deposits, the claim value for science
// points. Tiles compare with ==, which knowledge conflict detection relies on.
type Tile struct {
	Kind   TileKind `json:"kind"`
	Amount uint32   `json:"amount,omitempty"`
}

// Walkable reports whether a robot may stand on the tile.
func (t Tile) Walkable() bool {
	return t.Kind != TileObstacle
}

// Resource maps a resource tile to its kind. ok is false for terrain tiles.
func (t Tile) Resource() (kind resource.Kind, amount uint32, ok bool) {
	switch t.Kind {
	case TileEnergy:
		return resource.Energy, t.Amount, true
	case TileMineral:
		return resource.Minerals, t.Amount, true
	case TileScience:
		return resource.ScientificData, t.Amount, true
	}
	return 0, 0, false
}

// TileFor returns the tile variant holding amount units of kind.
func TileFor(kind resource.Kind, amount uint32) Tile {
	switch kind {
	case resource.Energy:
		return Tile{Kind: TileEnergy, Amount: amount}
	case resource.Minerals:
		return Tile{Kind: TileMineral, Amount: amount}
	case resource.ScientificData:
		return Tile{Kind: TileScience, Amount: amount}
	}
	return Tile{Kind: TileEmpty}
}
