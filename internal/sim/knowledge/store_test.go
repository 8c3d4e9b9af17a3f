package knowledge

import (
	"testing"
	"time"

	"swarmstation.dev/internal/sim/grid"
)

func fixedClock() func() time.Time {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestMergeInsertsUnknownCells(t *testing.T) {
	s := NewStore(WithClock(fixedClock()))
	incoming := map[grid.Position]Cell{
		{X: 1, Y: 1}: {Tile: grid.Tile{Kind: grid.TileEnergy, Amount: 100}, Version: 3},
		{X: 2, Y: 2}: {Tile: grid.Tile{Kind: grid.TileObstacle}, Version: 1},
	}

	updated := s.Merge(incoming, "R0001")
	if len(updated) != 2 {
		t.Fatalf("updated %d positions, want 2", len(updated))
	}
	if s.Version != 1 {
		t.Fatalf("one merge must bump version exactly once, got %d", s.Version)
	}
	if len(s.Log) != 1 || s.Log[0].Source != "R0001" || s.Log[0].Version != 1 {
		t.Fatalf("unexpected merge record: %+v", s.Log)
	}
}

func TestMergeStrictlyGreaterWins(t *testing.T) {
	s := NewStore(WithClock(fixedClock()))
	pos := grid.Position{X: 5, Y: 5}
	s.Cells[pos] = Cell{Tile: grid.Tile{Kind: grid.TileEmpty}, Version: 4}

	// Equal version: no overwrite, even with different content.
	updated := s.Merge(map[grid.Position]Cell{
		pos: {Tile: grid.Tile{Kind: grid.TileObstacle}, Version: 4},
	}, "R0002")
	if len(updated) != 0 {
		t.Fatalf("equal version must not update")
	}
	if s.Cells[pos].Tile.Kind != grid.TileEmpty {
		t.Fatalf("cell overwritten on version tie")
	}

	// Strictly greater: overwrite.
	updated = s.Merge(map[grid.Position]Cell{
		pos: {Tile: grid.Tile{Kind: grid.TileObstacle}, Version: 5},
	}, "R0002")
	if len(updated) != 1 || s.Cells[pos].Version != 5 {
		t.Fatalf("strictly greater version must win: %+v", s.Cells[pos])
	}
}

func TestMergeEmptyIsNoop(t *testing.T) {
	s := NewStore(WithClock(fixedClock()))
	s.Observe(grid.Position{X: 0, Y: 0}, grid.Tile{Kind: grid.TileEmpty}, "R0001")
	versionBefore := s.Version

	if updated := s.Merge(nil, "R0002"); len(updated) != 0 {
		t.Fatalf("empty merge updated %d cells", len(updated))
	}
	if s.Version != versionBefore || len(s.Log) != 0 {
		t.Fatalf("empty merge mutated store: version=%d log=%d", s.Version, len(s.Log))
	}
}

func TestMergeIdempotentUnderNoChange(t *testing.T) {
	s := NewStore(WithClock(fixedClock()))
	incoming := map[grid.Position]Cell{
		{X: 9, Y: 9}: {Tile: grid.Tile{Kind: grid.TileMineral, Amount: 10}, Version: 2},
	}
	s.Merge(incoming, "R0003")
	versionAfterFirst := s.Version

	// Same (position, version) again: the tie rule rejects it.
	if updated := s.Merge(incoming, "R0003"); len(updated) != 0 {
		t.Fatalf("second identical merge updated cells")
	}
	if s.Version != versionAfterFirst {
		t.Fatalf("second identical merge bumped version")
	}
}

func TestObserveSkipsUnchangedTile(t *testing.T) {
	s := NewStore()
	pos := grid.Position{X: 1, Y: 0}
	tile := grid.Tile{Kind: grid.TileEnergy, Amount: 70}
	s.Observe(pos, tile, "R0001")
	v := s.Version
	s.Observe(pos, tile, "R0001")
	if s.Version != v {
		t.Fatalf("re-observing the same tile bumped version")
	}
	s.Observe(pos, grid.Tile{Kind: grid.TileEnergy, Amount: 30}, "R0001")
	if s.Version != v+1 {
		t.Fatalf("changed tile should bump version once, got %d want %d", s.Version, v+1)
	}
}

func TestHasConflicts(t *testing.T) {
	pos := grid.Position{X: 3, Y: 3}
	a := NewStore()
	b := NewStore()
	a.Cells[pos] = Cell{Tile: grid.Tile{Kind: grid.TileEnergy, Amount: 10}, Version: 3}
	b.Cells[pos] = Cell{Tile: grid.Tile{Kind: grid.TileMineral, Amount: 10}, Version: 3}

	if !a.HasConflicts(b) || !b.HasConflicts(a) {
		t.Fatalf("same version, different content must conflict")
	}

	// Different versions never conflict.
	b.Cells[pos] = Cell{Tile: grid.Tile{Kind: grid.TileMineral, Amount: 10}, Version: 4}
	if a.HasConflicts(b) {
		t.Fatalf("differing versions must not conflict")
	}
}

func TestResolvePrefersOtherOnlyWhenStrictlyNewer(t *testing.T) {
	pos := grid.Position{X: 3, Y: 3}
	tie := grid.Position{X: 4, Y: 4}

	a := NewStore()
	a.Version = 6
	a.Cells[pos] = Cell{Tile: grid.Tile{Kind: grid.TileEmpty}, Version: 2}
	a.Cells[tie] = Cell{Tile: grid.Tile{Kind: grid.TileEmpty}, Version: 3}

	b := NewStore()
	b.Version = 9
	b.Cells[pos] = Cell{Tile: grid.Tile{Kind: grid.TileObstacle}, Version: 5}
	b.Cells[tie] = Cell{Tile: grid.Tile{Kind: grid.TileObstacle}, Version: 3}

	a.Resolve(b)

	if a.Cells[pos].Tile.Kind != grid.TileObstacle {
		t.Fatalf("strictly newer cell not adopted")
	}
	if a.Cells[tie].Tile.Kind != grid.TileEmpty {
		t.Fatalf("tie must keep self's value")
	}
	// Resolution lands strictly ahead of both inputs.
	if a.Version != 10 {
		t.Fatalf("resolved version %d, want max(6,9)+1=10", a.Version)
	}
}

func TestResolveThenMergeDoesNotReconflict(t *testing.T) {
	pos := grid.Position{X: 1, Y: 1}
	a := NewStore()
	b := NewStore()
	a.Version = 3
	b.Version = 3
	a.Cells[pos] = Cell{Tile: grid.Tile{Kind: grid.TileEnergy, Amount: 5}, Version: 3}
	b.Cells[pos] = Cell{Tile: grid.Tile{Kind: grid.TileMineral, Amount: 5}, Version: 3}

	if !a.HasConflicts(b) {
		t.Fatalf("precondition: stores should conflict")
	}
	a.Resolve(b)
	if a.Version <= 3 {
		t.Fatalf("resolution must exceed both inputs, got %d", a.Version)
	}
	if a.HasConflicts(b) {
		t.Fatalf("resolved store still conflicts with input")
	}
	if a.Cells[pos].Tile.Kind != grid.TileEnergy {
		t.Fatalf("tie must keep self's value, got %v", a.Cells[pos].Tile.Kind)
	}

	// The losing input cannot win a later merge either.
	if applied := a.Merge(b.CellsCopy(), "b"); len(applied) != 0 {
		t.Fatalf("merge after resolve reapplied %d cells", len(applied))
	}
}

func TestPartialTerrainOnlyKnownCells(t *testing.T) {
	s := NewStore()
	in := grid.Position{X: 2, Y: 2}
	out := grid.Position{X: 40, Y: 2}
	s.Observe(in, grid.Tile{Kind: grid.TileMineral, Amount: 9}, "R0001")
	s.Observe(out, grid.Tile{Kind: grid.TileEnergy, Amount: 9}, "R0001")

	t10 := s.PartialTerrain(10, 10)
	tile, ok := t10.TileAt(in)
	if !ok || tile.Kind != grid.TileMineral {
		t.Fatalf("known cell missing from partial terrain: %+v", tile)
	}
	// Everything unexplored stays at the baseline.
	baseline, _ := t10.TileAt(grid.Position{X: 5, Y: 5})
	if baseline.Kind != grid.TileEmpty {
		t.Fatalf("unexplored cell fabricated: %+v", baseline)
	}
}
