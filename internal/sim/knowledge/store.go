// Package knowledge implements the versioned explored-cell store shared by
// the station and every robot. Each owner grows its copy independently;
// reconciliation is a deterministic last-writer-wins merge keyed on cell
// version numbers, never on wall-clock time.
package knowledge

import (
	"time"

	"swarmstation.dev/internal/sim/grid"
)

// Cell is one owner's belief about a single grid cell.
type Cell struct {
	Tile     grid.Tile `json:"tile"`
	Version  uint64    `json:"version"`
	Explorer string    `json:"explorer,omitempty"`
}

// MergeRecord is one entry of the append-only merge audit trail.
type MergeRecord struct {
	Version   uint64          `json:"version"`
	Positions []grid.Position `json:"positions"`
	At        time.Time       `json:"at"`
	Source    string          `json:"source"`
}

// Store is a versioned map of explored cells. Version is monotonically
// non-decreasing and bumps exactly once per merge that changes a cell.
type Store struct {
	Version uint64
	Cells   map[grid.Position]Cell
	Log     []MergeRecord

	now func() time.Time
}

type Option func(*Store)

// WithClock overrides the merge-record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		Cells: make(map[grid.Position]Cell),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Observe records a first-hand observation by the owning explorer. A
// changed tile gets a fresh version one past the store's current one; an
// unchanged re-observation is a no-op so idle scanning never inflates
// versions.
func (s *Store) Observe(pos grid.Position, tile grid.Tile, explorer string) {
	if existing, ok := s.Cells[pos]; ok && existing.Tile == tile {
		return
	}
	s.Version++
	s.Cells[pos] = Cell{Tile: tile, Version: s.Version, Explorer: explorer}
}

// Merge folds incoming cells from source into the store. A cell is
// adopted when the position is unknown or the incoming version is
// strictly greater; equal versions are left untouched, since an equal
// version with different content is a conflict, not an update. If
// anything changed, the store version bumps exactly once and one
// MergeRecord is appended. Returns the updated positions.
func (s *Store) Merge(incoming map[grid.Position]Cell, source string) []grid.Position {
	var updated []grid.Position
	for pos, cell := range incoming {
		existing, ok := s.Cells[pos]
		if !ok || cell.Version > existing.Version {
			s.Cells[pos] = cell
			updated = append(updated, pos)
		}
	}
	if len(updated) > 0 {
		s.Version++
		s.Log = append(s.Log, MergeRecord{
			Version:   s.Version,
			Positions: updated,
			At:        s.now(),
			Source:    source,
		})
	}
	return updated
}

// HasConflicts reports whether any shared position carries the same
// version but different tile content in the two stores. Read-only.
func (s *Store) HasConflicts(other *Store) bool {
	for pos, cell := range s.Cells {
		if theirs, ok := other.Cells[pos]; ok {
			if cell.Version == theirs.Version && cell.Tile != theirs.Tile {
				return true
			}
		}
	}
	return false
}

// Resolve merges other into s, treating other as more authoritative only
// where its version is strictly greater; ties keep s's value. Tied cells
// that actually disagreed are re-stamped at the resolved store version,
// so the kept value strictly outranks the losing input and neither a
// HasConflicts check nor a later merge can raise the same conflict again.
func (s *Store) Resolve(other *Store) {
	v := s.Version
	if other.Version > v {
		v = other.Version
	}
	v++
	for pos, theirs := range other.Cells {
		ours, ok := s.Cells[pos]
		switch {
		case !ok || theirs.Version > ours.Version:
			s.Cells[pos] = theirs
		case theirs.Version == ours.Version && theirs.Tile != ours.Tile:
			ours.Version = v
			s.Cells[pos] = ours
		}
	}
	s.Version = v
}

// PartialTerrain materializes a terrain of the given dimensions holding
// only what the store has actually explored; every other cell stays at
// the unexplored baseline. Cells outside the bounds are skipped, never
// fabricated.
func (s *Store) PartialTerrain(width, height int) *grid.Terrain {
	t := grid.NewTerrain(width, height)
	for pos, cell := range s.Cells {
		if pos.In(width, height) {
			t.SetTile(pos, cell.Tile)
		}
	}
	return t
}

// CellsCopy returns a copy of the cell map, safe to ship in a message.
func (s *Store) CellsCopy() map[grid.Position]Cell {
	out := make(map[grid.Position]Cell, len(s.Cells))
	for pos, cell := range s.Cells {
		out[pos] = cell
	}
	return out
}
