package resource

import "fmt"

// Kind is the closed set of collectible resource kinds. Energy and
// Minerals are depletable counters; ScientificData is claimed whole.
type Kind uint8

const (
	Energy Kind = iota
	Minerals
	ScientificData
)

// Kinds lists every kind in a stable order, for exhaustive iteration.
var Kinds = [3]Kind{Energy, Minerals, ScientificData}

const (
	wireEnergy   = "ENERGY"
	wireMinerals = "MINERALS"
	wireScience  = "SCIENCE"
)

func (k Kind) String() string {
	switch k {
	case Energy:
		return wireEnergy
	case Minerals:
		return wireMinerals
	case ScientificData:
		return wireScience
	}
	return fmt.Sprintf("KIND_%d", uint8(k))
}

// KindFromWire parses the wire tag produced by Kind.String.
func KindFromWire(s string) (Kind, error) {
	switch s {
	case wireEnergy:
		return Energy, nil
	case wireMinerals:
		return Minerals, nil
	case wireScience:
		return ScientificData, nil
	}
	return 0, fmt.Errorf("unknown resource kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := KindFromWire(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
