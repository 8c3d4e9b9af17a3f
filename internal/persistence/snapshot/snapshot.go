// Package snapshot persists the full station state as a single compressed
// file: a one-line JSON header for cheap inspection, followed by a gob
// payload. Row types are deliberately decoupled from the sim packages so
// old snapshots keep decoding as the sim types evolve.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const FormatVersion = 1

type Header struct {
	Version   int    `json:"version"`
	StationID string `json:"station_id"`
	Tick      uint64 `json:"tick"`
}

// SnapshotV1 captures everything needed to resume a station: the ground
// truth map, the resource ledger, the merged knowledge map, and the bank.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed     int64 `json:"seed"`
	Width    int   `json:"width"`
	Height   int   `json:"height"`
	StationX int   `json:"station_x"`
	StationY int   `json:"station_y"`

	// Row-major sparse tile list; empty tiles are omitted.
	Tiles []TileV1 `json:"tiles"`

	Ledger           []SiteV1 `json:"ledger"`
	Knowledge        []CellV1 `json:"knowledge"`
	KnowledgeVersion uint64   `json:"knowledge_version"`

	Stock     StockV1 `json:"stock"`
	Collected StockV1 `json:"collected"`
	Spent     StockV1 `json:"spent"`

	NextRobotNum uint64 `json:"next_robot_num"`
}

type TileV1 struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Kind   uint8  `json:"kind"`
	Amount uint32 `json:"amount,omitempty"`
}

type SiteV1 struct {
	Kind      string `json:"kind"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Remaining uint32 `json:"remaining"`
}

type CellV1 struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Kind     uint8  `json:"kind"`
	Amount   uint32 `json:"amount,omitempty"`
	Version  uint64 `json:"version"`
	Explorer string `json:"explorer,omitempty"`
}

type StockV1 struct {
	Energy   uint32 `json:"energy"`
	Minerals uint32 `json:"minerals"`
	Science  uint32 `json:"science"`
}

// WriteSnapshot atomically is not attempted; callers that need crash
// safety should write to a temp path and rename.
func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Skip the header line; the gob payload repeats it.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, err
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != FormatVersion {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the JSON header line, without touching the gob
// payload. Cheap enough for listing snapshot directories.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReaderSize(dec, 4096).ReadBytes('\n')
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, err
	}
	return h, nil
}
