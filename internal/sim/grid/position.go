package grid

// Position is a cell coordinate on the world grid. It is a value type and
// is used directly as a map key.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Manhattan returns the L1 distance between two positions.
func (p Position) Manhattan(o Position) int {
	return abs(p.X-o.X) + abs(p.Y-o.Y)
}

// In reports whether the position lies inside a width x height grid.
func (p Position) In(width, height int) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < width && p.Y < height
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
