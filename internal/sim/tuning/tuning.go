// Package tuning loads the runtime tuning file. Missing values fall back
// to defaults; a zero-value Tuning is never used directly.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	World      World      `yaml:"world"`
	Station    Station    `yaml:"station"`
	Robots     Robots     `yaml:"robots"`
	Production Production `yaml:"production"`
	Observer   Observer   `yaml:"observer"`
}

type World struct {
	Width  int   `yaml:"width"`
	Height int   `yaml:"height"`
	Seed   int64 `yaml:"seed"`
}

type Station struct {
	TickRateHz  int `yaml:"tick_rate_hz"`
	MaxRobots   int `yaml:"max_robots"`
	InboxSize   int `yaml:"inbox_size"`
	OutboxSize  int `yaml:"outbox_size"`
	ClearRadius int `yaml:"clear_radius"`

	// Starting bank.
	StartEnergy   uint32 `yaml:"start_energy"`
	StartMinerals uint32 `yaml:"start_minerals"`

	// State snapshot cadence. Zero disables snapshotting.
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
}

type Robots struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	InitialExplorers  int `yaml:"initial_explorers"`
	InitialHarvesters int `yaml:"initial_harvesters"`
	InitialMiners     int `yaml:"initial_miners"`
	InitialScientists int `yaml:"initial_scientists"`
}

type Production struct {
	Explorer  ClassTuning `yaml:"explorer"`
	Harvester ClassTuning `yaml:"harvester"`
	Miner     ClassTuning `yaml:"miner"`
	Scientist ClassTuning `yaml:"scientist"`
}

type ClassTuning struct {
	EnergyCost  uint32  `yaml:"energy_cost"`
	MineralCost uint32  `yaml:"mineral_cost"`
	BuildTicks  uint32  `yaml:"build_ticks"`
	StartEnergy float64 `yaml:"start_energy"`
}

type Observer struct {
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
}

// Load reads path and overlays it onto the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func Defaults() Tuning {
	return Tuning{
		World: World{
			Width:  200,
			Height: 100,
			Seed:   0, // 0 = random at startup
		},
		Station: Station{
			TickRateHz:         10,
			MaxRobots:          10,
			InboxSize:          1024,
			OutboxSize:         64,
			ClearRadius:        3,
			StartEnergy:        10000,
			StartMinerals:      5000,
			SnapshotEveryTicks: 600,
		},
		Robots: Robots{
			TickRateHz:       10,
			InitialExplorers: 2,
			InitialMiners:    1,
		},
		Production: Production{
			Explorer:  ClassTuning{EnergyCost: 20, MineralCost: 100, BuildTicks: 50, StartEnergy: 100},
			Harvester: ClassTuning{EnergyCost: 150, MineralCost: 150, BuildTicks: 40, StartEnergy: 100},
			Miner:     ClassTuning{EnergyCost: 150, MineralCost: 200, BuildTicks: 45, StartEnergy: 100},
			Scientist: ClassTuning{EnergyCost: 250, MineralCost: 150, BuildTicks: 60, StartEnergy: 100},
		},
		Observer: Observer{
			SnapshotEveryTicks: 10,
		},
	}
}

func (t Tuning) Validate() error {
	if t.World.Width <= 0 || t.World.Height <= 0 {
		return fmt.Errorf("world dimensions must be positive, got %dx%d", t.World.Width, t.World.Height)
	}
	if t.Station.TickRateHz <= 0 {
		return fmt.Errorf("station tick_rate_hz must be positive, got %d", t.Station.TickRateHz)
	}
	if t.Robots.TickRateHz <= 0 {
		return fmt.Errorf("robots tick_rate_hz must be positive, got %d", t.Robots.TickRateHz)
	}
	if t.Station.MaxRobots <= 0 {
		return fmt.Errorf("max_robots must be positive, got %d", t.Station.MaxRobots)
	}
	if t.Station.InboxSize <= 0 || t.Station.OutboxSize <= 0 {
		return fmt.Errorf("channel sizes must be positive")
	}
	return nil
}
