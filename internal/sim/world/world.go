package world

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/chunk"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/store"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrainview"
)

type WorldConfig struct {
	TickRateHz int
	Logger     *log.Logger
}

// Snapshot is the loaded set as of the last completed step.
type Snapshot struct {
	Tick      uint64
	Center    chunk.Coord
	HasCenter bool
	Chunks    []*chunk.Chunk
}

// Paints renders the snapshot as paint instructions for a viewer that has nothing yet.
func (s Snapshot) Paints() []terrainview.ChunkPaint {
	out := make([]terrainview.ChunkPaint, 0, len(s.Chunks))
	for _, ch := range s.Chunks {
		out = append(out, terrainview.Paints(ch))
	}
	return out
}

type attachReq struct {
	fn   func(Snapshot)
	done chan struct{}
}

type Stats struct {
	Ticks     uint64
	Crossings uint64
	Loaded    uint64
	Unloaded  uint64
	Buildings uint64
	ViewErrs  uint64
}

// World drives a ChunkStore from observer positions and forwards every change to a view.
// Step must not be called concurrently with Run.
type World struct {
	cfg   WorldConfig
	store *store.ChunkStore
	view  terrainview.View
	log   *log.Logger

	tick atomic.Uint64

	statsMu sync.Mutex
	stats   Stats

	attach   chan attachReq
	stop     chan struct{}
	stopOnce sync.Once
	exited   chan struct{}
	exitOnce sync.Once
}

func New(cfg WorldConfig, s *store.ChunkStore, view terrainview.View) (*World, error) {
	if s == nil {
		return nil, fmt.Errorf("world: nil chunk store")
	}
	if cfg.TickRateHz <= 0 {
		return nil, fmt.Errorf("world: tick rate must be > 0, got %d", cfg.TickRateHz)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &World{
		cfg:    cfg,
		store:  s,
		view:   view,
		log:    logger,
		attach: make(chan attachReq),
		stop:   make(chan struct{}),
		exited: make(chan struct{}),
	}, nil
}

// SetView replaces the view. It must be called before Run.
func (w *World) SetView(v terrainview.View) { w.view = v }

func (w *World) TickRateHz() int { return w.cfg.TickRateHz }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) Store() *store.ChunkStore { return w.store }

func (w *World) Stats() Stats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.stats
}

// Loaded returns the current loaded set. Outside the loop goroutine it may race with a step in
// progress; use Attach for a view-consistent snapshot.
func (w *World) Loaded() Snapshot {
	c, ok := w.store.Center()
	return Snapshot{
		Tick:      w.tick.Load(),
		Center:    c,
		HasCenter: ok,
		Chunks:    w.store.Loaded(),
	}
}

// Step advances one tick with the observer at (x, y). Views see the change before Step
// returns. View errors are logged, not returned: the store has already moved on.
func (w *World) Step(ctx context.Context, x, y float64) (store.Delta, error) {
	tick := w.tick.Add(1)
	d, err := w.store.OnObserverMoved(ctx, x, y)
	if err != nil {
		return store.Delta{}, fmt.Errorf("tick %d: %w", tick, err)
	}

	buildings := 0
	for _, ch := range d.Loaded {
		buildings += ch.BuildingCount()
	}

	w.statsMu.Lock()
	w.stats.Ticks++
	if d.Moved {
		w.stats.Crossings++
	}
	w.stats.Loaded += uint64(len(d.Loaded))
	w.stats.Unloaded += uint64(len(d.Unloaded))
	w.stats.Buildings += uint64(buildings)
	w.statsMu.Unlock()

	if d.Moved {
		w.log.Printf("tick=%d chunk=%s loaded=%d unloaded=%d building_cells=%d", tick, d.Center, len(d.Loaded), len(d.Unloaded), buildings)
	}
	if d.Empty() || w.view == nil {
		return d, nil
	}
	b := terrainview.FromDelta(tick, [2]float64{x, y}, d, w.store.ChunkSize())
	if err := w.view.Apply(b); err != nil {
		w.statsMu.Lock()
		w.stats.ViewErrs++
		w.statsMu.Unlock()
		w.log.Printf("tick=%d view: %v", tick, err)
	}
	return d, nil
}
