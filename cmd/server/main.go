package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"swarmstation.dev/internal/persistence/indexdb"
	persistlog "swarmstation.dev/internal/persistence/log"
	"swarmstation.dev/internal/persistence/snapshot"
	"swarmstation.dev/internal/sim/grid"
	"swarmstation.dev/internal/sim/resource"
	"swarmstation.dev/internal/sim/robot"
	"swarmstation.dev/internal/sim/station"
	"swarmstation.dev/internal/sim/tuning"
	"swarmstation.dev/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		stationID  = flag.String("station", "station_1", "station id")
		seed       = flag.Int64("seed", 0, "terrain seed (0 = take from tuning, or the clock)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model index")
		snapPath   = flag.String("snapshot", "", "snapshot file to resume from")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	worldSeed := *seed
	if worldSeed == 0 {
		worldSeed = tune.World.Seed
	}
	if worldSeed == 0 {
		worldSeed = time.Now().UnixNano()
	}

	var resume *snapshot.SnapshotV1
	var terrain *grid.Terrain
	preferredPos := grid.Position{X: tune.World.Width / 2, Y: tune.World.Height / 2}
	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.StationID != "" && snap.Header.StationID != *stationID {
			logger.Fatalf("snapshot station id mismatch: flag=%s snap=%s", *stationID, snap.Header.StationID)
		}
		resume = &snap
		worldSeed = snap.Seed
		terrain = station.RestoreTerrain(snap)
		preferredPos = grid.Position{X: snap.StationX, Y: snap.StationY}
		logger.Printf("resumed terrain %dx%d seed=%d tick=%d", snap.Width, snap.Height, snap.Seed, snap.Header.Tick)
	} else {
		terrain = grid.Generate(grid.DefaultGenConfig(tune.World.Width, tune.World.Height, worldSeed))
		logger.Printf("terrain %dx%d seed=%d", tune.World.Width, tune.World.Height, worldSeed)
	}

	st := station.New(station.Config{
		ID:           *stationID,
		TickRateHz:   tune.Station.TickRateHz,
		MaxRobots:    tune.Station.MaxRobots,
		InboxSize:    tune.Station.InboxSize,
		OutboxSize:   tune.Station.OutboxSize,
		ClearRadius:  tune.Station.ClearRadius,
		PreferredPos: preferredPos,
		StartStock: resource.Bundle{
			Energy:   tune.Station.StartEnergy,
			Minerals: tune.Station.StartMinerals,
		},
		Production: productionCosts(tune.Production),
	}, terrain, logger)
	if resume != nil {
		if err := st.RestoreSnapshot(*resume); err != nil {
			logger.Fatalf("restore snapshot: %v", err)
		}
	}
	logger.Printf("station %s settled at (%d,%d)", *stationID, st.Pos().X, st.Pos().Y)

	stationDir := filepath.Join(*dataDir, "stations", *stationID)
	_ = os.MkdirAll(stationDir, 0o755)

	tickLog := persistlog.NewTickLogger(stationDir)
	mergeLog := persistlog.NewMergeLogger(stationDir)
	defer tickLog.Close()
	defer mergeLog.Close()
	st.SetTickLogger(tickLog)
	st.SetMergeLogger(mergeLog)

	if !*disableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(stationDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index db: upsert tuning: %v", err)
		}
		st.SetIndexer(idx)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if tune.Station.SnapshotEveryTicks > 0 {
		snapCh := make(chan snapshot.SnapshotV1, 2)
		st.SetSnapshotSink(snapCh, uint64(tune.Station.SnapshotEveryTicks))
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case snap := <-snapCh:
					path := filepath.Join(stationDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
					if err := snapshot.WriteSnapshot(path, snap); err != nil {
						logger.Printf("snapshot write: %v", err)
					}
				}
			}
		}()
	}

	go func() {
		if err := st.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("station stopped: %v", err)
		}
	}()

	robotInterval := time.Second / time.Duration(tune.Robots.TickRateHz)
	var swarm sync.WaitGroup
	var robotSeq int64
	launch := func(spec robot.Spec) {
		out, err := st.Register(spec.ID)
		if err != nil {
			logger.Printf("register %s: %v", spec.ID, err)
			return
		}
		r := robot.New(spec)
		sess := robot.NewSession(spec.ID, st.Inbox(), out)
		robotSeq++
		d := robot.NewDriver(r, sess, terrain, st, robotInterval, logger, worldSeed+robotSeq)
		swarm.Add(1)
		go func() {
			defer swarm.Done()
			defer st.Unregister(spec.ID)
			d.Run(ctx)
		}()
		logger.Printf("robot %s (%s) deployed at (%d,%d)", spec.ID, spec.Class, spec.Pos.X, spec.Pos.Y)
	}

	for class, n := range map[robot.Class]int{
		robot.Explorer:  tune.Robots.InitialExplorers,
		robot.Harvester: tune.Robots.InitialHarvesters,
		robot.Miner:     tune.Robots.InitialMiners,
		robot.Scientist: tune.Robots.InitialScientists,
	} {
		for i := 0; i < n; i++ {
			launch(robot.Spec{
				ID:      st.NewRobotID(),
				Class:   class,
				Pos:     terrain.NearestWalkable(st.Pos()),
				Modules: robot.ModulesFor(class),
				Energy:  100,
			})
		}
	}

	// Robots finished by the production bay join the swarm as they roll out.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case spec := <-st.Produced():
				launch(spec)
			}
		}
	}()

	obsSrv := observer.NewServer(st, observer.WorldInfo{
		TickRateHz: tune.Station.TickRateHz,
		Width:      terrain.Width(),
		Height:     terrain.Height(),
		Seed:       worldSeed,
	}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		st2, err := st.State()
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP swarm_station_tick Current station tick.\n")
		fmt.Fprintf(rw, "# TYPE swarm_station_tick gauge\n")
		fmt.Fprintf(rw, "swarm_station_tick{station=%q} %d\n", st2.ID, st2.Tick)

		fmt.Fprintf(rw, "# HELP swarm_station_robots Registered robot count.\n")
		fmt.Fprintf(rw, "# TYPE swarm_station_robots gauge\n")
		fmt.Fprintf(rw, "swarm_station_robots{station=%q} %d\n", st2.ID, len(st2.Robots))

		fmt.Fprintf(rw, "# HELP swarm_station_stock Stockpile levels per resource.\n")
		fmt.Fprintf(rw, "# TYPE swarm_station_stock gauge\n")
		fmt.Fprintf(rw, "swarm_station_stock{station=%q,kind=%q} %d\n", st2.ID, "ENERGY", st2.Stock.Energy)
		fmt.Fprintf(rw, "swarm_station_stock{station=%q,kind=%q} %d\n", st2.ID, "MINERALS", st2.Stock.Minerals)
		fmt.Fprintf(rw, "swarm_station_stock{station=%q,kind=%q} %d\n", st2.ID, "SCIENCE", st2.Stock.Science)

		fmt.Fprintf(rw, "# HELP swarm_station_ledger_sites Known resource sites per kind.\n")
		fmt.Fprintf(rw, "# TYPE swarm_station_ledger_sites gauge\n")
		fmt.Fprintf(rw, "swarm_station_ledger_sites{station=%q,kind=%q} %d\n", st2.ID, "ENERGY", len(st2.Ledger.Energy))
		fmt.Fprintf(rw, "swarm_station_ledger_sites{station=%q,kind=%q} %d\n", st2.ID, "MINERALS", len(st2.Ledger.Minerals))
		fmt.Fprintf(rw, "swarm_station_ledger_sites{station=%q,kind=%q} %d\n", st2.ID, "SCIENCE", len(st2.Ledger.Science))

		fmt.Fprintf(rw, "# HELP swarm_station_production_queue Robots waiting in the production bay.\n")
		fmt.Fprintf(rw, "# TYPE swarm_station_production_queue gauge\n")
		fmt.Fprintf(rw, "swarm_station_production_queue{station=%q} %d\n", st2.ID, st2.QueueLen)

		fmt.Fprintf(rw, "# HELP swarm_station_knowledge_cells Cells in the authoritative map.\n")
		fmt.Fprintf(rw, "# TYPE swarm_station_knowledge_cells gauge\n")
		fmt.Fprintf(rw, "swarm_station_knowledge_cells{station=%q} %d\n", st2.ID, st2.KnownCells)
	})
	mux.HandleFunc("/observer/v1/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/observer/v1/ws", obsSrv.WSHandler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	swarm.Wait()
}

func productionCosts(p tuning.Production) map[robot.Class]station.ClassCost {
	conv := func(c tuning.ClassTuning) station.ClassCost {
		return station.ClassCost{
			Cost:        resource.Bundle{Energy: c.EnergyCost, Minerals: c.MineralCost},
			BuildTicks:  c.BuildTicks,
			StartEnergy: c.StartEnergy,
		}
	}
	return map[robot.Class]station.ClassCost{
		robot.Explorer:  conv(p.Explorer),
		robot.Harvester: conv(p.Harvester),
		robot.Miner:     conv(p.Miner),
		robot.Scientist: conv(p.Scientist),
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
