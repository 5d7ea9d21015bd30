package indexdb

import (
	"context"
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

	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/chunk"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrainview"
)

const defaultQueue = 65536

// SQLiteIndex is a queryable record of chunk loads and unloads. It is a write-only audit
// trail: nothing reads it back into the chunk store.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropLoad   atomic.Uint64
	dropUnload atomic.Uint64
	dropRun    atomic.Uint64
}

type reqKind int

const (
	reqLoad reqKind = iota + 1
	reqUnload
	reqRun
)

type req struct {
	kind reqKind

	load   loadRow
	unload unloadRow
	run    RunInfo
}

type loadRow struct {
	Tick       uint64
	CX, CY     int
	Buildings  int
	Footprints string
	Digest     string
}

type unloadRow struct {
	Tick   uint64
	CX, CY int
}

type RunInfo struct {
	RunID     string
	Seed      int64
	ChunkSize int
	Radius    int
	NoiseKind string
	StartedAt time.Time
}

type Stats struct {
	QueueDepth      int
	QueueCapacity   int
	DropLoadTotal   uint64
	DropUnloadTotal uint64
	DropRunTotal    uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, defaultQueue)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
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
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
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
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			chunk_size INTEGER NOT NULL,
			radius INTEGER NOT NULL,
			noise_kind TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chunk_loads (
			tick INTEGER NOT NULL,
			cx INTEGER NOT NULL,
			cy INTEGER NOT NULL,
			buildings INTEGER NOT NULL,
			footprints TEXT NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (tick, cx, cy)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunk_loads_pos ON chunk_loads(cx, cy, tick);`,
		`CREATE TABLE IF NOT EXISTS chunk_unloads (
			tick INTEGER NOT NULL,
			cx INTEGER NOT NULL,
			cy INTEGER NOT NULL,
			PRIMARY KEY (tick, cx, cy)
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
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

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:      len(s.ch),
		QueueCapacity:   cap(s.ch),
		DropLoadTotal:   s.dropLoad.Load(),
		DropUnloadTotal: s.dropUnload.Load(),
		DropRunTotal:    s.dropRun.Load(),
	}
}

func (s *SQLiteIndex) RecordRun(r RunInfo) {
	if s == nil || s.closed.Load() {
		return
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	select {
	case s.ch <- req{kind: reqRun, run: r}:
	default:
		s.dropRun.Add(1)
	}
}

// Apply queues one row per loaded and unloaded chunk. It never blocks: if the writer falls
// behind, rows are dropped and counted, and the instruction log remains the full record.
func (s *SQLiteIndex) Apply(b terrainview.Batch) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	for _, c := range b.Clears {
		select {
		case s.ch <- req{kind: reqUnload, unload: unloadRow{Tick: b.Tick, CX: c.Coord.CX, CY: c.Coord.CY}}:
		default:
			s.dropUnload.Add(1)
		}
	}
	for _, p := range b.Paints {
		row, err := loadRowFor(b.Tick, p)
		if err != nil {
			return err
		}
		select {
		case s.ch <- req{kind: reqLoad, load: row}:
		default:
			s.dropLoad.Add(1)
		}
	}
	return nil
}

func loadRowFor(tick uint64, p terrainview.ChunkPaint) (loadRow, error) {
	row := loadRow{Tick: tick, CX: p.Coord.CX, CY: p.Coord.CY, Footprints: "[]"}
	if p.Source == nil {
		for _, t := range p.Tiles {
			if t.Class == chunk.Building {
				row.Buildings++
			}
		}
		return row, nil
	}
	rects := p.Source.Footprints()
	fps := make([][4]int, 0, len(rects))
	for _, r := range rects {
		fps = append(fps, [4]int{r.X, r.Y, r.W, r.H})
	}
	b, err := json.Marshal(fps)
	if err != nil {
		return loadRow{}, err
	}
	sum := p.Source.Digest()
	row.Buildings = p.Source.BuildingCount()
	row.Footprints = string(b)
	row.Digest = hex.EncodeToString(sum[:])
	return row, nil
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertLoad, _ := s.db.Prepare(`INSERT OR REPLACE INTO chunk_loads(tick,cx,cy,buildings,footprints,digest) VALUES(?,?,?,?,?,?)`)
	insertUnload, _ := s.db.Prepare(`INSERT OR REPLACE INTO chunk_unloads(tick,cx,cy) VALUES(?,?,?)`)
	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,seed,chunk_size,radius,noise_kind,started_at) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertLoad, insertUnload, insertRun} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
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
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqLoad:
			l := r.load
			exec(insertLoad, int64(l.Tick), l.CX, l.CY, l.Buildings, l.Footprints, l.Digest)
		case reqUnload:
			u := r.unload
			exec(insertUnload, int64(u.Tick), u.CX, u.CY)
		case reqRun:
			ru := r.run
			exec(insertRun, ru.RunID, ru.Seed, ru.ChunkSize, ru.Radius, ru.NoiseKind, ru.StartedAt.UTC().Format(time.RFC3339Nano))
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
