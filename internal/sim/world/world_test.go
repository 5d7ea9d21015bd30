package world

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/A-G0D/RotBound-Unity/internal/sim/tuning"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/gen"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/store"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrainview"
)

func newTestWorld(t *testing.T, view terrainview.View, logger *log.Logger) *World {
	t.Helper()
	tu := tuning.Defaults()
	tu.ChunkSize = 8
	g, err := gen.New(gen.ConfigFromTuning(tu))
	if err != nil {
		t.Fatalf("gen: %v", err)
	}
	s, err := store.NewChunkStore(g, 1, 2)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	w, err := New(WorldConfig{TickRateHz: 200, Logger: logger}, s, view)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}

func TestWorld_StepDrivesViews(t *testing.T) {
	rec := terrainview.NewRecorder()
	var buf bytes.Buffer
	w := newTestWorld(t, rec, log.New(&buf, "", 0))
	ctx := context.Background()

	d, err := w.Step(ctx, 0.5, 0.5)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(d.Loaded) != 9 || len(d.Unloaded) != 0 {
		t.Fatalf("initial load: loaded=%d unloaded=%d", len(d.Loaded), len(d.Unloaded))
	}
	if rec.Len() != 9*8*8 {
		t.Fatalf("painted tiles: got %d want %d", rec.Len(), 9*8*8)
	}

	// Same chunk: nothing happens.
	d, _ = w.Step(ctx, 7.9, 7.9)
	if d.Moved || !d.Empty() {
		t.Fatalf("expected no-op, got %+v", d)
	}

	d, err = w.Step(ctx, 8, 0)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(d.Loaded) != 3 || len(d.Unloaded) != 3 {
		t.Fatalf("crossing: loaded=%d unloaded=%d", len(d.Loaded), len(d.Unloaded))
	}
	if rec.Len() != 9*8*8 {
		t.Fatalf("painted tiles after crossing: got %d", rec.Len())
	}
	if _, ok := rec.Tile(terrainview.Pos{X: -8, Y: 0}); ok {
		t.Fatalf("tile of evicted chunk still painted")
	}
	if _, ok := rec.Tile(terrainview.Pos{X: 23, Y: 0}); !ok {
		t.Fatalf("tile of new chunk not painted")
	}

	st := w.Stats()
	if st.Ticks != 3 || st.Crossings != 2 || st.Loaded != 12 || st.Unloaded != 3 || st.ViewErrs != 0 {
		t.Fatalf("stats: %+v", st)
	}
	if w.CurrentTick() != 3 {
		t.Fatalf("tick: got %d", w.CurrentTick())
	}
	if !strings.Contains(buf.String(), "chunk=(1,0) loaded=3 unloaded=3") {
		t.Fatalf("missing crossing log line: %q", buf.String())
	}
}

func TestWorld_ViewErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	boom := terrainview.ViewFunc(func(terrainview.Batch) error { return errors.New("boom") })
	w := newTestWorld(t, boom, log.New(&buf, "", 0))
	if _, err := w.Step(context.Background(), 0, 0); err != nil {
		t.Fatalf("view errors must not fail the step: %v", err)
	}
	if w.Stats().ViewErrs != 1 || !strings.Contains(buf.String(), "boom") {
		t.Fatalf("view error not recorded: stats=%+v log=%q", w.Stats(), buf.String())
	}
	if w.Store().Len() != 9 {
		t.Fatalf("store should have loaded despite view error")
	}
}

func TestWorld_CancelledStepLeavesStore(t *testing.T) {
	w := newTestWorld(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.Step(ctx, 0, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if w.Store().Len() != 0 {
		t.Fatalf("store changed on cancelled step")
	}
	if _, ok := w.Store().Center(); ok {
		t.Fatalf("center set on cancelled step")
	}
}

func TestWorld_NewRejectsBadConfig(t *testing.T) {
	if _, err := New(WorldConfig{TickRateHz: 10}, nil, nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
	w := newTestWorld(t, nil, nil)
	if _, err := New(WorldConfig{TickRateHz: 0}, w.Store(), nil); err == nil {
		t.Fatalf("expected error for zero tick rate")
	}
}

type lineSource struct {
	mu sync.Mutex
	x  float64
}

func (s *lineSource) Advance(dt time.Duration) (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.x += 400 * dt.Seconds()
	return s.x, 0
}

func TestWorld_RunAndAttach(t *testing.T) {
	rec := terrainview.NewRecorder()

	// A viewer attached mid-run replays the snapshot and then follows batches; its tile map
	// must agree with the recorder that saw everything.
	viewer := terrainview.NewRecorder()
	var mu sync.Mutex
	attached := false
	follow := terrainview.ViewFunc(func(b terrainview.Batch) error {
		mu.Lock()
		defer mu.Unlock()
		if !attached {
			return nil
		}
		return viewer.Apply(b)
	})
	w := newTestWorld(t, terrainview.Multi{rec, follow}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, &lineSource{}) }()

	time.Sleep(20 * time.Millisecond)
	err := w.Attach(ctx, func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if err := viewer.Apply(terrainview.Batch{Tick: s.Tick, Paints: s.Paints()}); err != nil {
			t.Errorf("snapshot apply: %v", err)
		}
		attached = true
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	w.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}

	if w.Stats().ViewErrs != 0 {
		t.Fatalf("view errors: %d", w.Stats().ViewErrs)
	}
	if viewer.Len() != rec.Len() {
		t.Fatalf("viewer tiles %d != recorder tiles %d", viewer.Len(), rec.Len())
	}
	snap := w.Loaded()
	if !snap.HasCenter || len(snap.Chunks) != 9 {
		t.Fatalf("snapshot: center=%v chunks=%d", snap.HasCenter, len(snap.Chunks))
	}
	if snap.Chunks[4].Coord != snap.Center {
		t.Fatalf("center %v not the middle of the loaded set %v", snap.Center, snap.Chunks[4].Coord)
	}
}

func TestWorld_RunStopsOnCancel(t *testing.T) {
	w := newTestWorld(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, &lineSource{}) }()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}
	if err := w.Attach(context.Background(), func(Snapshot) {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped after the loop exited, got %v", err)
	}
}

// badSource walks right and then reports a position no chunk can hold.
type badSource struct {
	mu    sync.Mutex
	calls int
}

func (s *badSource) Advance(time.Duration) (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls >= 3 {
		return math.NaN(), 0
	}
	return float64(s.calls * 8), 0
}

func TestWorld_RunReturnsStepError(t *testing.T) {
	w := newTestWorld(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, &badSource{}) }()
	select {
	case err := <-done:
		if !errors.Is(err, store.ErrBadPosition) {
			t.Fatalf("expected ErrBadPosition, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop on a failing step")
	}
	if ctx.Err() != nil {
		t.Fatalf("parent context should still be live")
	}

	attached := make(chan error, 1)
	go func() { attached <- w.Attach(context.Background(), func(Snapshot) {}) }()
	select {
	case err := <-attached:
		if !errors.Is(err, ErrStopped) {
			t.Fatalf("expected ErrStopped, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("attach blocked after the loop exited")
	}
}

func TestStepErrKeepsCauseWhileParentIsLive(t *testing.T) {
	inner := fmt.Errorf("tick 4: %w", context.Canceled)
	if err := stepErr(context.Background(), inner); err != inner {
		t.Fatalf("stepErr = %v, want the step error", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := stepErr(ctx, errors.New("boom")); err != context.Canceled {
		t.Fatalf("stepErr = %v, want context.Canceled", err)
	}
}
