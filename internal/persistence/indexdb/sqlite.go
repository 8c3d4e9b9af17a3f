// Package indexdb maintains a queryable SQLite read model of the tick
// and collection history. It is fed asynchronously and is allowed to
// drop writes under pressure; the JSONL logs remain the source of truth.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"swarmstation.dev/internal/sim/grid"
	"swarmstation.dev/internal/sim/resource"
	"swarmstation.dev/internal/sim/station"
	"swarmstation.dev/internal/sim/tuning"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqCollection
)

type req struct {
	kind reqKind

	tick       station.TickLogEntry
	collection collectionRow
}

type collectionRow struct {
	Tick    uint64
	RobotID string
	Kind    resource.Kind
	Pos     grid.Position
	Amount  uint32
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads; NORMAL is enough
	// durability for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			reports INTEGER NOT NULL,
			broadcasts INTEGER NOT NULL,
			energy_sites INTEGER NOT NULL,
			mineral_sites INTEGER NOT NULL,
			science_sites INTEGER NOT NULL,
			stock_energy INTEGER NOT NULL,
			stock_minerals INTEGER NOT NULL,
			stock_science INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS collections (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			robot_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_collections_robot_tick ON collections(robot_id, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_collections_kind_tick ON collections(kind, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// IndexTick queues one tick entry. Never blocks the station loop.
func (s *SQLiteIndex) IndexTick(entry station.TickLogEntry) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
	}
}

// IndexCollection queues one consumption row. Never blocks.
func (s *SQLiteIndex) IndexCollection(tick uint64, robotID string, kind resource.Kind, pos grid.Position, amount uint32) {
	if s == nil || s.closed.Load() {
		return
	}
	r := collectionRow{Tick: tick, RobotID: robotID, Kind: kind, Pos: pos, Amount: amount}
	select {
	case s.ch <- req{kind: reqCollection, collection: r}:
	default:
	}
}

// UpsertTuning records the tuning actually applied this run, keyed by a
// digest of its canonical JSON so config drift is visible across runs.
func (s *SQLiteIndex) UpsertTuning(tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('tuning_digest',?)`, hex.EncodeToString(sum[:])); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('tuning_json',?)`, string(b)); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('tuning_updated_at',?)`, now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,reports,broadcasts,energy_sites,mineral_sites,science_sites,stock_energy,stock_minerals,stock_science,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertCollection, _ := s.db.Prepare(`INSERT OR REPLACE INTO collections(tick,seq,robot_id,kind,x,y,amount) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		if insertTick != nil {
			_ = insertTick.Close()
		}
		if insertCollection != nil {
			_ = insertCollection.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second

		lastCollTick uint64
		collSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			raw, _ := json.Marshal(r.tick)
			if insertTick != nil {
				if _, err := tx.Stmt(insertTick).Exec(
					r.tick.Tick,
					r.tick.Reports,
					r.tick.Broadcasts,
					r.tick.EnergySites,
					r.tick.MineralSites,
					r.tick.ScienceSites,
					r.tick.StockEnergy,
					r.tick.StockMinerals,
					r.tick.StockScience,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqCollection:
			c := r.collection
			if c.Tick != lastCollTick {
				lastCollTick = c.Tick
				collSeq = 0
			}
			seq := collSeq
			collSeq++
			if insertCollection != nil {
				if _, err := tx.Stmt(insertCollection).Exec(
					int64(c.Tick),
					seq,
					c.RobotID,
					c.Kind.String(),
					c.Pos.X,
					c.Pos.Y,
					int64(c.Amount),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
