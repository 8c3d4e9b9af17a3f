package resource

// History is an append-only record of what the swarm collected and what
// production spent, keyed by station tick. It feeds the telemetry index
// and is never consulted on the decision path.
type History struct {
	collected []CollectedEntry
	spent     []SpentEntry
}

type CollectedEntry struct {
	Tick   uint64 `json:"tick"`
	Kind   Kind   `json:"kind"`
	Amount uint32 `json:"amount"`
}

type SpentEntry struct {
	Tick uint64 `json:"tick"`
	Cost Bundle `json:"cost"`
}

func (h *History) AddCollected(tick uint64, kind Kind, amount uint32) {
	h.collected = append(h.collected, CollectedEntry{Tick: tick, Kind: kind, Amount: amount})
}

func (h *History) AddSpent(tick uint64, cost Bundle) {
	h.spent = append(h.spent, SpentEntry{Tick: tick, Cost: cost})
}

// TotalCollected sums all collection entries per kind.
func (h *History) TotalCollected() Bundle {
	var total Bundle
	for _, e := range h.collected {
		total.Add(e.Kind, e.Amount)
	}
	return total
}

// TotalSpent sums all production debits.
func (h *History) TotalSpent() Bundle {
	var total Bundle
	for _, e := range h.spent {
		total.Energy += e.Cost.Energy
		total.Minerals += e.Cost.Minerals
		total.Science += e.Cost.Science
	}
	return total
}

// Collected returns the raw collection log.
func (h *History) Collected() []CollectedEntry { return h.collected }
