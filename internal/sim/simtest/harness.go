// Package simtest is a black-box harness for driving a station and its
// robots through exported APIs only, so scenario tests can live outside
// the sim packages.
package simtest

import (
	"testing"

	"swarmstation.dev/internal/protocol"
	"swarmstation.dev/internal/sim/grid"
	"swarmstation.dev/internal/sim/resource"
	"swarmstation.dev/internal/sim/robot"
	"swarmstation.dev/internal/sim/station"
)

type Harness struct {
	T       *testing.T
	Terrain *grid.Terrain
	Station *station.Station

	sessions map[string]*robot.Session
}

func NewHarness(t *testing.T, width, height int) *Harness {
	t.Helper()
	terrain := grid.NewTerrain(width, height)
	st := station.New(station.Config{
		ID:           "station_sim",
		PreferredPos: grid.Position{X: 5, Y: 5},
		StartStock:   resource.Bundle{Energy: 10000, Minerals: 5000},
	}, terrain, nil)
	return &Harness{
		T:        t,
		Terrain:  terrain,
		Station:  st,
		sessions: map[string]*robot.Session{},
	}
}

// Attach registers a robot and returns its session, wired to the
// station's inbox and its own broadcast channel.
func (h *Harness) Attach(robotID string) *robot.Session {
	h.T.Helper()
	out := h.Station.AttachEndpoint(robotID)
	sess := robot.NewSession(robotID, h.Station.Inbox(), out)
	h.sessions[robotID] = sess
	return sess
}

// Seed places a resource deposit on the terrain.
func (h *Harness) Seed(kind resource.Kind, pos grid.Position, amount uint32) {
	h.Terrain.SetTile(pos, grid.TileFor(kind, amount))
}

// Step advances the station one tick and lets every session apply what
// it was sent.
func (h *Harness) Step(envs ...protocol.Envelope) {
	h.T.Helper()
	h.Station.StepOnce(envs...)
	for _, sess := range h.sessions {
		sess.ProcessBroadcasts()
	}
}

func (h *Harness) Session(robotID string) *robot.Session {
	h.T.Helper()
	sess := h.sessions[robotID]
	if sess == nil {
		h.T.Fatalf("unknown robot id %q", robotID)
	}
	return sess
}
