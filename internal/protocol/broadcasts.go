package protocol

import (
	"sort"

	"swarmstation.dev/internal/sim/grid"
	"swarmstation.dev/internal/sim/resource"
)

// Broadcast is the closed set of station -> robot messages.
type Broadcast interface {
	BroadcastType() string
}

// ResourceEntry is one ledger row in transit.
type ResourceEntry struct {
	Pos    grid.Position `json:"pos"`
	Amount uint32        `json:"amount"`
}

// Snapshot carries a full copy of all three ledger tables. Receivers
// replace their caches wholesale; the last snapshot wins.
type Snapshot struct {
	Tick     uint64          `json:"tick"`
	Energy   []ResourceEntry `json:"energy"`
	Minerals []ResourceEntry `json:"minerals"`
	Science  []ResourceEntry `json:"science"`
}

func (Snapshot) BroadcastType() string { return TypeSnapshot }

// Entries returns the snapshot rows for one kind.
func (s Snapshot) Entries(kind resource.Kind) []ResourceEntry {
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

// SnapshotFromTables builds a snapshot with deterministically ordered rows.
func SnapshotFromTables(tick uint64, energy, minerals, science map[grid.Position]uint32) Snapshot {
	return Snapshot{
		Tick:     tick,
		Energy:   sortedEntries(energy),
		Minerals: sortedEntries(minerals),
		Science:  sortedEntries(science),
	}
}

func sortedEntries(table map[grid.Position]uint32) []ResourceEntry {
	entries := make([]ResourceEntry, 0, len(table))
	for pos, amount := range table {
		entries = append(entries, ResourceEntry{Pos: pos, Amount: amount})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Pos.Y != entries[j].Pos.Y {
			return entries[i].Pos.Y < entries[j].Pos.Y
		}
		return entries[i].Pos.X < entries[j].Pos.X
	})
	return entries
}

// ResourceUpdate announces the post-consumption remainder at one site.
// Remaining == 0 means the site is gone and caches must drop it.
type ResourceUpdate struct {
	Kind      resource.Kind `json:"kind"`
	Pos       grid.Position `json:"pos"`
	Remaining uint32        `json:"remaining"`
}

func (ResourceUpdate) BroadcastType() string { return TypeResourceUpdate }

// Ack confirms a processed report to its originator. Code is empty on
// success and one of the E_* constants otherwise. Robots never block on
// acks; a lost ack changes nothing.
type Ack struct {
	For     string `json:"ack_for"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Tick    uint64 `json:"tick,omitempty"`
}

func (Ack) BroadcastType() string { return TypeAck }
