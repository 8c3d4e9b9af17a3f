// Package ledger holds the station's authoritative record of discovered
// resource sites and their remaining amounts. The ledger mirrors the
// terrain but is independent of it: it only knows what robots have
// reported. It is owned exclusively by the station loop goroutine and
// needs no locking.
package ledger

import (
	"swarmstation.dev/internal/sim/grid"
	"swarmstation.dev/internal/sim/resource"
)

type Ledger struct {
	energy   map[grid.Position]uint32
	minerals map[grid.Position]uint32
	science  map[grid.Position]uint32
}

func New() *Ledger {
	return &Ledger{
		energy:   make(map[grid.Position]uint32),
		minerals: make(map[grid.Position]uint32),
		science:  make(map[grid.Position]uint32),
	}
}

func (l *Ledger) table(kind resource.Kind) map[grid.Position]uint32 {
	switch kind {
	case resource.Energy:
		return l.energy
	case resource.Minerals:
		return l.minerals
	case resource.ScientificData:
		return l.science
	}
	return nil
}

// Record inserts or overwrites the entry for (kind, pos). A zero amount
// removes the entry: the ledger never tracks empty sites.
func (l *Ledger) Record(kind resource.Kind, pos grid.Position, amount uint32) {
	t := l.table(kind)
	if t == nil {
		return
	}
	if amount == 0 {
		delete(t, pos)
		return
	}
	t[pos] = amount
}

// Remaining returns the recorded amount at (kind, pos), zero if absent.
func (l *Ledger) Remaining(kind resource.Kind, pos grid.Position) uint32 {
	t := l.table(kind)
	if t == nil {
		return 0
	}
	return t[pos]
}

// Consume debits up to amount from (kind, pos), clamping to the recorded
// remainder. The entry is removed once it reaches zero. ScientificData is
// all-or-nothing: the first consume takes the whole value. Subtraction
// saturates; the result is never negative.
func (l *Ledger) Consume(kind resource.Kind, pos grid.Position, amount uint32) (consumed, remaining uint32) {
	t := l.table(kind)
	if t == nil {
		return 0, 0
	}
	current, ok := t[pos]
	if !ok {
		return 0, 0
	}
	if kind == resource.ScientificData {
		delete(t, pos)
		return current, 0
	}
	consumed = amount
	if consumed > current {
		consumed = current
	}
	remaining = current - consumed
	if remaining == 0 {
		delete(t, pos)
	} else {
		t[pos] = remaining
	}
	return consumed, remaining
}

// Sites returns the number of recorded sites for kind.
func (l *Ledger) Sites(kind resource.Kind) int {
	return len(l.table(kind))
}

// Snapshot is a deep copy of all three tables, safe to hand to another
// goroutine inside a broadcast payload.
type Snapshot struct {
	Energy   map[grid.Position]uint32
	Minerals map[grid.Position]uint32
	Science  map[grid.Position]uint32
}

func (l *Ledger) Snapshot() Snapshot {
	return Snapshot{
		Energy:   copyTable(l.energy),
		Minerals: copyTable(l.minerals),
		Science:  copyTable(l.science),
	}
}

// Table returns the snapshot table for kind.
func (s Snapshot) Table(kind resource.Kind) map[grid.Position]uint32 {
	switch kind {
	case resource.Energy:
		return s.Energy
	case resource.Minerals:
		return s.Minerals
	case resource.ScientificData:
		return s.Science
	}
	return nil
}

func copyTable(t map[grid.Position]uint32) map[grid.Position]uint32 {
	out := make(map[grid.Position]uint32, len(t))
	for p, a := range t {
		out[p] = a
	}
	return out
}
