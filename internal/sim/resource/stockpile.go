package resource

// Bundle is a flat amount per kind. It is used both for robot inventories
// and for production costs.
type Bundle struct {
	Energy   uint32 `json:"energy"`
	Minerals uint32 `json:"minerals"`
	Science  uint32 `json:"science"`
}

// IsZero reports whether the bundle carries nothing.
func (b Bundle) IsZero() bool {
	return b.Energy == 0 && b.Minerals == 0 && b.Science == 0
}

// Get returns the amount of one kind.
func (b Bundle) Get(k Kind) uint32 {
	switch k {
	case Energy:
		return b.Energy
	case Minerals:
		return b.Minerals
	case ScientificData:
		return b.Science
	}
	return 0
}

// Add accumulates amount into the bundle entry for k.
func (b *Bundle) Add(k Kind, amount uint32) {
	switch k {
	case Energy:
		b.Energy += amount
	case Minerals:
		b.Minerals += amount
	case ScientificData:
		b.Science += amount
	}
}

// Stockpile is the station's bank of collected resources. It is owned by
// the station loop and mutated only there.
type Stockpile struct {
	Bundle
}

// CanAfford reports whether the stockpile covers the cost.
func (s *Stockpile) CanAfford(cost Bundle) bool {
	return s.Energy >= cost.Energy && s.Minerals >= cost.Minerals && s.Science >= cost.Science
}

// Spend debits cost from the stockpile. It reports false and leaves the
// stockpile untouched when the cost is not covered.
func (s *Stockpile) Spend(cost Bundle) bool {
	if !s.CanAfford(cost) {
		return false
	}
	s.Energy -= cost.Energy
	s.Minerals -= cost.Minerals
	s.Science -= cost.Science
	return true
}

// Credit deposits an entire bundle, draining it.
func (s *Stockpile) Credit(b *Bundle) {
	s.Energy += b.Energy
	s.Minerals += b.Minerals
	s.Science += b.Science
	*b = Bundle{}
}
