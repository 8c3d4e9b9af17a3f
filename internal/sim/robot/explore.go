package robot

import (
	"math/rand"

	"swarmstation.dev/internal/sim/grid"
	"swarmstation.dev/internal/sim/resource"
)

// Exploration tuning. Values carried over from the historical behavior.
const (
	drainEverySteps  = 15
	drainAmount      = 10.0
	returnStepCost   = 0.5
	lowEnergyFloor   = 10.0
	inventoryCeiling = 200

	strategicStepSize = 2
)

var directions = [8][2]int{
	{0, 1}, {1, 0}, {0, -1}, {-1, 0},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

// MoveRandomly takes one step in a random direction, staying in bounds
// and off obstacles.
func (r *Robot) MoveRandomly(t *grid.Terrain, rng *rand.Rand) {
	pos := r.Pos()
	next := grid.Position{
		X: pos.X + rng.Intn(3) - 1,
		Y: pos.Y + rng.Intn(3) - 1,
	}
	if t.Walkable(next) {
		r.setPos(next)
	}
}

// strategicMove strides several cells in one of the eight directions,
// shuffled, stopping at the first blocked cell. Longer strides than the
// random walk cover fresh ground faster.
func (r *Robot) strategicMove(t *grid.Terrain, rng *rand.Rand) {
	distance := 4 + rng.Intn(5)

	shuffled := directions
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	pos := r.Pos()
	for _, dir := range shuffled {
		final := pos
		for step := 0; step < distance/strategicStepSize; step++ {
			next := grid.Position{
				X: final.X + dir[0]*strategicStepSize,
				Y: final.Y + dir[1]*strategicStepSize,
			}
			if !t.Walkable(next) {
				break
			}
			final = next
		}
		if final != pos {
			r.setPos(final)
			return
		}
	}
}

// stepToward moves one cell toward target, diagonal first.
func (r *Robot) stepToward(target grid.Position) {
	pos := r.Pos()
	next := grid.Position{
		X: pos.X + sign(target.X-pos.X),
		Y: pos.Y + sign(target.Y-pos.Y),
	}
	r.setPos(next)
	r.Energy -= returnStepCost
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// collectKind maps a class to the resource it gathers. ok is false for
// the pure explorer.
func (r *Robot) collectKind() (resource.Kind, bool) {
	switch r.Class {
	case Harvester:
		return resource.Energy, true
	case Miner:
		return resource.Minerals, true
	case Scientist:
		return resource.ScientificData, true
	}
	return 0, false
}

// collectRate is how many units one collection step takes.
func (r *Robot) collectRate() uint32 {
	for _, m := range r.Modules {
		switch m.Kind {
		case EnergyHarvester, DeepDrill:
			return uint32(m.Power * 10)
		}
	}
	return 10
}

// ExploreStep advances the robot one behavior step: bookkeeping, scan,
// optional collection, then movement. Consumption goes through the
// session's optimistic path; the station settles it later.
func (r *Robot) ExploreStep(t *grid.Terrain, s *Session, stationPos grid.Position, rng *rand.Rand) {
	if r.phase == phaseReturning {
		return
	}

	if r.Energy < lowEnergyFloor {
		r.phase = phaseReturning
		return
	}
	r.stepsSinceDrain++
	if r.stepsSinceDrain >= drainEverySteps {
		r.Energy -= drainAmount
		r.stepsSinceDrain = 0
	}

	// Keep enough energy to walk home.
	pos := r.Pos()
	if r.Energy <= float64(pos.Manhattan(stationPos))*returnStepCost+1 {
		r.phase = phaseReturning
		return
	}

	r.scan(t, s)
	r.collect(s)

	if r.Inventory.Energy+r.Inventory.Minerals+r.Inventory.Science >= inventoryCeiling {
		r.phase = phaseReturning
		return
	}

	r.strategicMove(t, rng)
}

// scan records the current tile into the robot's knowledge store and
// reports any resource sighting.
func (r *Robot) scan(t *grid.Terrain, s *Session) {
	pos := r.Pos()
	tile, ok := t.TileAt(pos)
	if !ok {
		return
	}
	s.Know.Observe(pos, tile, r.ID)
	if kind, _, isResource := tile.Resource(); isResource {
		s.ReportDiscovered(kind, pos)
	}
}

// collect takes from the current tile when the robot's class matches and
// the cache believes the site still holds something.
func (r *Robot) collect(s *Session) {
	kind, ok := r.collectKind()
	if !ok {
		return
	}
	pos := r.Pos()
	if !s.Available(kind, pos, 1) {
		return
	}
	var amount uint32
	if kind == resource.ScientificData {
		amount = s.Cached(kind, pos)
	} else {
		amount = min32(r.collectRate(), s.Cached(kind, pos))
	}
	if amount == 0 {
		return
	}
	r.Inventory.Add(kind, amount)
	s.RegisterConsumed(kind, pos, amount)
}

// ReturnStep walks one cell toward home. It reports true on arrival.
func (r *Robot) ReturnStep(stationPos grid.Position) (arrived bool) {
	if r.Pos() == stationPos {
		return true
	}
	r.stepToward(stationPos)
	return r.Pos() == stationPos
}

// Dockside resets the robot for the next sortie after its inventory has
// been credited and its knowledge synced.
func (r *Robot) Dockside() {
	r.phase = phaseExploring
	r.Energy = 100
	r.stepsSinceDrain = 0
}
