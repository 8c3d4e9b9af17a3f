// Package robot holds per-robot state and the session endpoint used to
// talk to the station. Each robot runs in its own goroutine; its state is
// owned by that goroutine, except for the position, which the observer
// transport reads under a small mutex.
package robot

import (
	"fmt"
	"sync"

	"swarmstation.dev/internal/sim/grid"
	"swarmstation.dev/internal/sim/resource"
)

// Class is the closed set of robot build classes.
type Class uint8

const (
	Explorer Class = iota
	Harvester
	Miner
	Scientist
)

func (c Class) String() string {
	switch c {
	case Explorer:
		return "EXPLORER"
	case Harvester:
		return "HARVESTER"
	case Miner:
		return "MINER"
	case Scientist:
		return "SCIENTIST"
	}
	return fmt.Sprintf("CLASS_%d", uint8(c))
}

// ModuleKind tags the hardware fitted to a robot.
type ModuleKind uint8

const (
	TerrainScanner ModuleKind = iota
	EnergyHarvester
	DeepDrill
	SpectralAnalyzer
)

// Module is one piece of fitted hardware. Power is the module's working
// rate (scan efficiency, harvest rate, drill speed, analysis accuracy);
// Range applies to scanners only.
type Module struct {
	Kind  ModuleKind `json:"kind"`
	Power float64    `json:"power"`
	Range int        `json:"range,omitempty"`
}

// ModulesFor returns the standard loadout for a class.
func ModulesFor(c Class) []Module {
	switch c {
	case Explorer:
		return []Module{{Kind: TerrainScanner, Power: 0.9, Range: 20}}
	case Harvester:
		return []Module{
			{Kind: EnergyHarvester, Power: 2.0},
			{Kind: TerrainScanner, Power: 0.6, Range: 10},
		}
	case Miner:
		return []Module{
			{Kind: DeepDrill, Power: 2.0},
			{Kind: TerrainScanner, Power: 0.6, Range: 10},
		}
	case Scientist:
		return []Module{
			{Kind: SpectralAnalyzer, Power: 0.95},
			{Kind: TerrainScanner, Power: 0.7, Range: 15},
		}
	}
	return nil
}

// Spec describes a robot to be instantiated. Production emits specs; the
// sim driver turns them into running robots.
type Spec struct {
	ID      string
	Class   Class
	Pos     grid.Position
	Modules []Module
	Energy  float64
}

type phase uint8

const (
	phaseIdle phase = iota
	phaseExploring
	phaseReturning
)

// Robot is one swarm member.
type Robot struct {
	ID      string
	Class   Class
	Modules []Module

	mu  sync.Mutex
	pos grid.Position

	Energy    float64
	Inventory resource.Bundle

	phase           phase
	visited         map[grid.Position]bool
	stepsSinceDrain int
}

func New(spec Spec) *Robot {
	r := &Robot{
		ID:      spec.ID,
		Class:   spec.Class,
		Modules: spec.Modules,
		pos:     spec.Pos,
		Energy:  spec.Energy,
		visited: map[grid.Position]bool{spec.Pos: true},
	}
	if r.Energy == 0 {
		r.Energy = 100
	}
	return r
}

// Pos returns the robot's position. Safe for cross-goroutine reads.
func (r *Robot) Pos() grid.Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

func (r *Robot) setPos(p grid.Position) {
	r.mu.Lock()
	r.pos = p
	r.mu.Unlock()
	r.visited[p] = true
}

// Returning reports whether the robot is heading home.
func (r *Robot) Returning() bool { return r.phase == phaseReturning }
