package station

import (
	"fmt"

	"swarmstation.dev/internal/persistence/snapshot"
	"swarmstation.dev/internal/sim/grid"
	"swarmstation.dev/internal/sim/knowledge"
	"swarmstation.dev/internal/sim/resource"
)

// SetSnapshotSink wires the periodic snapshot channel: every everyTicks
// ticks the loop pushes a full state capture, dropping it when the sink
// is full so snapshotting never stalls the tick. Call before Run.
func (s *Station) SetSnapshotSink(ch chan<- snapshot.SnapshotV1, everyTicks uint64) {
	s.snapSink = ch
	s.snapEvery = everyTicks
}

// buildSnapshot captures the complete station state. Loop goroutine only.
func (s *Station) buildSnapshot() snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:   snapshot.FormatVersion,
			StationID: s.cfg.ID,
			Tick:      s.tick.Load(),
		},
		Seed:     s.terrain.Seed(),
		Width:    s.terrain.Width(),
		Height:   s.terrain.Height(),
		StationX: s.pos.X,
		StationY: s.pos.Y,

		KnowledgeVersion: s.know.Version,
		Stock:            stockV1(s.stock.Bundle),
		Collected:        stockV1(s.hist.TotalCollected()),
		Spent:            stockV1(s.hist.TotalSpent()),
		NextRobotNum:     s.nextRobotNum.Load(),
	}

	for y := 0; y < snap.Height; y++ {
		for x := 0; x < snap.Width; x++ {
			tile, _ := s.terrain.TileAt(grid.Position{X: x, Y: y})
			if tile.Kind == grid.TileEmpty {
				continue
			}
			snap.Tiles = append(snap.Tiles, snapshot.TileV1{
				X: x, Y: y, Kind: uint8(tile.Kind), Amount: tile.Amount,
			})
		}
	}

	led := s.ledger.Snapshot()
	for _, kind := range resource.Kinds {
		for p, remaining := range led.Table(kind) {
			snap.Ledger = append(snap.Ledger, snapshot.SiteV1{
				Kind: kind.String(), X: p.X, Y: p.Y, Remaining: remaining,
			})
		}
	}

	for p, cell := range s.know.Cells {
		snap.Knowledge = append(snap.Knowledge, snapshot.CellV1{
			X: p.X, Y: p.Y,
			Kind: uint8(cell.Tile.Kind), Amount: cell.Tile.Amount,
			Version: cell.Version, Explorer: cell.Explorer,
		})
	}
	return snap
}

// RestoreTerrain rebuilds the ground-truth map from a snapshot.
func RestoreTerrain(snap snapshot.SnapshotV1) *grid.Terrain {
	t := grid.NewSeededTerrain(snap.Width, snap.Height, snap.Seed)
	for _, row := range snap.Tiles {
		t.SetTile(grid.Position{X: row.X, Y: row.Y}, grid.Tile{
			Kind: grid.TileKind(row.Kind), Amount: row.Amount,
		})
	}
	return t
}

// RestoreSnapshot reloads ledger, knowledge, bank and counters from a
// snapshot. Must run before Run, on a station built over RestoreTerrain
// of the same snapshot.
func (s *Station) RestoreSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.StationID != "" && snap.Header.StationID != s.cfg.ID {
		return fmt.Errorf("snapshot station id mismatch: have %s, snapshot %s", s.cfg.ID, snap.Header.StationID)
	}

	s.tick.Store(snap.Header.Tick)
	s.nextRobotNum.Store(snap.NextRobotNum)
	s.stock.Bundle = bundleFromV1(snap.Stock)

	for _, site := range snap.Ledger {
		kind, err := resource.KindFromWire(site.Kind)
		if err != nil {
			return fmt.Errorf("snapshot ledger row (%d,%d): %w", site.X, site.Y, err)
		}
		s.ledger.Record(kind, grid.Position{X: site.X, Y: site.Y}, site.Remaining)
	}

	s.know.Version = snap.KnowledgeVersion
	for _, cell := range snap.Knowledge {
		s.know.Cells[grid.Position{X: cell.X, Y: cell.Y}] = knowledge.Cell{
			Tile:     grid.Tile{Kind: grid.TileKind(cell.Kind), Amount: cell.Amount},
			Version:  cell.Version,
			Explorer: cell.Explorer,
		}
	}

	// The per-entry history does not survive a restart; carry the totals
	// forward as one synthetic entry each so conservation accounting holds.
	collected := bundleFromV1(snap.Collected)
	for _, kind := range resource.Kinds {
		if amount := collected.Get(kind); amount > 0 {
			s.hist.AddCollected(snap.Header.Tick, kind, amount)
		}
	}
	if spent := bundleFromV1(snap.Spent); !spent.IsZero() {
		s.hist.AddSpent(snap.Header.Tick, spent)
	}
	return nil
}

func stockV1(b resource.Bundle) snapshot.StockV1 {
	return snapshot.StockV1{Energy: b.Energy, Minerals: b.Minerals, Science: b.Science}
}

func bundleFromV1(s snapshot.StockV1) resource.Bundle {
	return resource.Bundle{Energy: s.Energy, Minerals: s.Minerals, Science: s.Science}
}
