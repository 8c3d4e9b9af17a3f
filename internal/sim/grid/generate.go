package grid

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Worldgen thresholds. Obstacle carving matches the historical tuning;
// deposit layers use a tighter threshold so sites stay sparse.
const (
	obstacleThreshold = 0.4
	noiseScale        = 0.2
	depositThreshold  = 0.78
)

// GenConfig holds terrain generation parameters.
type GenConfig struct {
	Width  int
	Height int
	Seed   int64

	// Deposit sizing, in units rolled uniformly within [Min, Max].
	EnergyMin, EnergyMax   uint32
	MineralMin, MineralMax uint32
	ScienceMin, ScienceMax uint32
}

// DefaultGenConfig returns the standard world tuning.
func DefaultGenConfig(width, height int, seed int64) GenConfig {
	return GenConfig{
		Width:  width,
		Height: height,
		Seed:   seed,

		EnergyMin: 200, EnergyMax: 1200,
		MineralMin: 100, MineralMax: 800,
		ScienceMin: 50, ScienceMax: 400,
	}
}

// Generate builds a terrain from layered simplex noise: one layer carves
// obstacles, three independent layers seed resource deposits on the
// remaining open ground. Deterministic for a given config.
func Generate(cfg GenConfig) *Terrain {
	t := NewSeededTerrain(cfg.Width, cfg.Height, cfg.Seed)

	obstacles := opensimplex.New(cfg.Seed)
	energy := opensimplex.NewNormalized(cfg.Seed + 1)
	minerals := opensimplex.NewNormalized(cfg.Seed + 2)
	science := opensimplex.NewNormalized(cfg.Seed + 3)
	amounts := rand.New(rand.NewSource(cfg.Seed + 4))

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			fx := float64(x) * noiseScale
			fy := float64(y) * noiseScale

			if obstacles.Eval2(fx, fy) > obstacleThreshold {
				t.tiles[y*cfg.Width+x] = Tile{Kind: TileObstacle}
				continue
			}

			// Science is the rarest layer and wins over the others so a
			// deposit never hides a science point.
			switch {
			case science.Eval2(fx, fy) > depositThreshold+0.08:
				t.tiles[y*cfg.Width+x] = Tile{
					Kind:   TileScience,
					Amount: rollAmount(amounts, cfg.ScienceMin, cfg.ScienceMax),
				}
			case energy.Eval2(fx, fy) > depositThreshold:
				t.tiles[y*cfg.Width+x] = Tile{
					Kind:   TileEnergy,
					Amount: rollAmount(amounts, cfg.EnergyMin, cfg.EnergyMax),
				}
			case minerals.Eval2(fx, fy) > depositThreshold:
				t.tiles[y*cfg.Width+x] = Tile{
					Kind:   TileMineral,
					Amount: rollAmount(amounts, cfg.MineralMin, cfg.MineralMax),
				}
			}
		}
	}
	return t
}

func rollAmount(rng *rand.Rand, min, max uint32) uint32 {
	if max <= min {
		return min
	}
	return min + uint32(rng.Int63n(int64(max-min+1)))
}

// PlaceStation settles the station near preferred: it picks the nearest
// walkable cell, clears the surrounding area, and marks the tile.
func PlaceStation(t *Terrain, preferred Position, clearRadius int) Position {
	pos := t.NearestWalkable(preferred)
	t.ClearArea(pos, clearRadius)
	t.SetTile(pos, Tile{Kind: TileStation})
	return pos
}
