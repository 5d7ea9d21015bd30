package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	runID := fs.String("run", "", "run id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	cx := fs.Int("cx", 0, "chunk x (history)")
	cy := fs.Int("cy", 0, "chunk y (history)")
	_ = fs.Parse(args)

	q := "runs"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*runID) == "" {
			fmt.Fprintln(os.Stderr, "missing -run or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "runs", *runID, "index", "chunks.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := runQuery(db, os.Stdout, q, *limit, *cx, *cy); err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
}

type loadRow struct {
	Tick       int64  `json:"tick"`
	CX         int    `json:"cx"`
	CY         int    `json:"cy"`
	Buildings  int    `json:"buildings"`
	Footprints string `json:"footprints"`
	Digest     string `json:"digest"`
}

type unloadRow struct {
	Tick int64 `json:"tick"`
	CX   int   `json:"cx"`
	CY   int   `json:"cy"`
}

type runRow struct {
	RunID     string `json:"run_id"`
	Seed      int64  `json:"seed"`
	ChunkSize int    `json:"chunk_size"`
	Radius    int    `json:"radius"`
	NoiseKind string `json:"noise_kind"`
	StartedAt string `json:"started_at"`
}

type historyRow struct {
	Tick  int64  `json:"tick"`
	Event string `json:"event"`
}

// runQuery writes one JSON object per row.
func runQuery(db *sql.DB, w io.Writer, q string, limit, cx, cy int) error {
	if limit <= 0 {
		limit = 20
	}
	enc := json.NewEncoder(w)
	switch q {
	case "runs":
		rows, err := db.Query(`SELECT run_id,seed,chunk_size,radius,noise_kind,started_at FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r runRow
			if err := rows.Scan(&r.RunID, &r.Seed, &r.ChunkSize, &r.Radius, &r.NoiseKind, &r.StartedAt); err != nil {
				return err
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	case "loads":
		rows, err := db.Query(`SELECT tick,cx,cy,buildings,footprints,digest FROM chunk_loads ORDER BY tick DESC, cx, cy LIMIT ?`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r loadRow
			if err := rows.Scan(&r.Tick, &r.CX, &r.CY, &r.Buildings, &r.Footprints, &r.Digest); err != nil {
				return err
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	case "unloads":
		rows, err := db.Query(`SELECT tick,cx,cy FROM chunk_unloads ORDER BY tick DESC, cx, cy LIMIT ?`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r unloadRow
			if err := rows.Scan(&r.Tick, &r.CX, &r.CY); err != nil {
				return err
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	case "chunk":
		rows, err := db.Query(`
			SELECT tick, 'LOAD' FROM chunk_loads WHERE cx=? AND cy=?
			UNION ALL
			SELECT tick, 'UNLOAD' FROM chunk_unloads WHERE cx=? AND cy=?
			ORDER BY 1 LIMIT ?`, cx, cy, cx, cy, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r historyRow
			if err := rows.Scan(&r.Tick, &r.Event); err != nil {
				return err
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	default:
		return fmt.Errorf("unknown query %q (runs|loads|unloads|chunk)", q)
	}
}
