package grid

import (
	"testing"

	"swarmstation.dev/internal/sim/resource"
)

func TestGenerateDimensionsAndReproducibility(t *testing.T) {
	cfg := DefaultGenConfig(40, 30, 42)
	a := Generate(cfg)
	b := Generate(cfg)

	if a.Width() != 40 || a.Height() != 30 {
		t.Fatalf("unexpected dimensions: %dx%d", a.Width(), a.Height())
	}
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			p := Position{X: x, Y: y}
			ta, _ := a.TileAt(p)
			tb, _ := b.TileAt(p)
			if ta != tb {
				t.Fatalf("same seed diverged at %+v: %+v vs %+v", p, ta, tb)
			}
		}
	}
}

func TestGenerateHasObstaclesButNotOnly(t *testing.T) {
	terr := Generate(DefaultGenConfig(60, 60, 42))
	obstacles := 0
	for y := 0; y < 60; y++ {
		for x := 0; x < 60; x++ {
			tile, _ := terr.TileAt(Position{X: x, Y: y})
			if tile.Kind == TileObstacle {
				obstacles++
			}
		}
	}
	if obstacles == 0 {
		t.Fatalf("expected at least one obstacle")
	}
	if obstacles == 60*60 {
		t.Fatalf("map must not be all obstacles")
	}
}

func TestTileAtOutOfBounds(t *testing.T) {
	terr := NewTerrain(10, 10)
	if _, ok := terr.TileAt(Position{X: 10, Y: 0}); ok {
		t.Fatalf("x out of bounds should miss")
	}
	if _, ok := terr.TileAt(Position{X: 0, Y: -1}); ok {
		t.Fatalf("negative y should miss")
	}
}

func TestConsumeSaturates(t *testing.T) {
	terr := NewTerrain(10, 10)
	pos := Position{X: 3, Y: 3}
	terr.SetTile(pos, Tile{Kind: TileEnergy, Amount: 100})

	if got := terr.Consume(resource.Energy, pos, 40); got != 40 {
		t.Fatalf("consumed %d, want 40", got)
	}
	// Over-consume: clamp to the remaining 60, never negative.
	if got := terr.Consume(resource.Energy, pos, 500); got != 60 {
		t.Fatalf("consumed %d, want 60", got)
	}
	tile, _ := terr.TileAt(pos)
	if tile.Kind != TileEmpty {
		t.Fatalf("depleted deposit should revert to empty, got %v", tile.Kind)
	}
	if got := terr.Consume(resource.Energy, pos, 1); got != 0 {
		t.Fatalf("empty tile consumed %d", got)
	}
}

func TestConsumeWrongKindIsNoop(t *testing.T) {
	terr := NewTerrain(5, 5)
	pos := Position{X: 1, Y: 1}
	terr.SetTile(pos, Tile{Kind: TileMineral, Amount: 50})
	if got := terr.Consume(resource.Energy, pos, 10); got != 0 {
		t.Fatalf("kind mismatch must consume nothing, got %d", got)
	}
	tile, _ := terr.TileAt(pos)
	if tile.Amount != 50 {
		t.Fatalf("deposit mutated on mismatch: %+v", tile)
	}
}

func TestClaimScienceAllOrNothing(t *testing.T) {
	terr := NewTerrain(5, 5)
	pos := Position{X: 2, Y: 2}
	terr.SetTile(pos, Tile{Kind: TileScience, Amount: 300})

	// Any consume amount claims the whole point.
	if got := terr.Consume(resource.ScientificData, pos, 1); got != 300 {
		t.Fatalf("science claim returned %d, want 300", got)
	}
	if _, ok := terr.ClaimScience(pos); ok {
		t.Fatalf("science point should be gone")
	}
}

func TestPlaceStationClearsArea(t *testing.T) {
	terr := Generate(DefaultGenConfig(50, 50, 7))
	pos := PlaceStation(terr, Position{X: 10, Y: 10}, 3)

	tile, ok := terr.TileAt(pos)
	if !ok || tile.Kind != TileStation {
		t.Fatalf("station tile missing at %+v: %+v", pos, tile)
	}
	for dy := -3; dy <= 3; dy++ {
		for dx := -3; dx <= 3; dx++ {
			p := Position{X: pos.X + dx, Y: pos.Y + dy}
			if p == pos || !p.In(50, 50) {
				continue
			}
			tile, _ := terr.TileAt(p)
			if tile.Kind == TileObstacle {
				t.Fatalf("obstacle left inside cleared area at %+v", p)
			}
		}
	}
}

func TestManhattan(t *testing.T) {
	a := Position{X: 2, Y: 3}
	b := Position{X: 5, Y: 1}
	if d := a.Manhattan(b); d != 5 {
		t.Fatalf("distance %d, want 5", d)
	}
}
