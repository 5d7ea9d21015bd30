package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	persistlog "github.com/A-G0D/RotBound-Unity/internal/persistence/log"
	"github.com/A-G0D/RotBound-Unity/internal/sim/tuning"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/chunk"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/gen"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/store"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrainview"
)

func recordRun(t *testing.T, dir string, tune tuning.Tuning, path [][2]float64) {
	t.Helper()
	g, err := gen.New(gen.ConfigFromTuning(tune))
	if err != nil {
		t.Fatalf("gen: %v", err)
	}
	s, err := store.NewChunkStore(g, tune.ChunkLoadRadius, 2)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	l := persistlog.NewInstructionLogger(dir)
	w, err := world.New(world.WorldConfig{TickRateHz: 20}, s, l)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	for _, p := range path {
		if _, err := w.Step(context.Background(), p[0], p[1]); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close log: %v", err)
	}
}

func TestReplay_ConsistentRun(t *testing.T) {
	tune := tuning.Defaults()
	tune.ChunkSize = 8
	tune.ChunkLoadRadius = 1
	dir := t.TempDir()
	recordRun(t, dir, tune, [][2]float64{{0, 0}, {3, 3}, {9, 0}, {17, 0}, {17, -9}, {-40, 25}})

	g, err := gen.New(gen.ConfigFromTuning(tune))
	if err != nil {
		t.Fatalf("gen: %v", err)
	}
	sum, err := replay(dir, g)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	// (3,3) stays in chunk (0,0) and logs nothing.
	if sum.Entries != 5 || sum.FirstTick != 1 || sum.LastTick != 6 {
		t.Fatalf("summary: %+v", sum)
	}
	if sum.Stats.Live != 9*8*8 {
		t.Fatalf("live tiles: got %d want %d", sum.Stats.Live, 9*8*8)
	}
	if sum.Stats.Painted-sum.Stats.Cleared != uint64(sum.Stats.Live) {
		t.Fatalf("painted-cleared != live: %+v", sum.Stats)
	}
	if sum.Regenerated == 0 {
		t.Fatalf("nothing regenerated")
	}

	var buf bytes.Buffer
	sum.print(&buf)
	if !strings.HasPrefix(buf.String(), "replay ok: files=1 entries=5") {
		t.Fatalf("print: %q", buf.String())
	}
}

func TestReplay_DetectsSeedMismatch(t *testing.T) {
	tune := tuning.Defaults()
	tune.ChunkSize = 8
	tune.ChunkLoadRadius = 1
	tune.BuildingThreshold = 0.2
	dir := t.TempDir()
	recordRun(t, dir, tune, [][2]float64{{0, 0}})

	other := tune
	other.Seed = tune.Seed + 1
	g, err := gen.New(gen.ConfigFromTuning(other))
	if err != nil {
		t.Fatalf("gen: %v", err)
	}
	if _, err := replay(dir, g); err == nil {
		t.Fatalf("expected regeneration mismatch")
	}
	if _, err := replay(dir, nil); err != nil {
		t.Fatalf("consistency-only replay: %v", err)
	}
}

func TestReplay_DetectsClearOfUnpaintedChunk(t *testing.T) {
	dir := t.TempDir()
	l := persistlog.NewInstructionLogger(dir)
	_ = l.Apply(terrainview.Batch{Tick: 1, Clears: []terrainview.ChunkClear{terrainview.Clears(chunk.Coord{CX: 4}, 2)}})
	_ = l.Close()
	_, err := replay(dir, nil)
	if err == nil || !strings.Contains(err.Error(), "unpainted") {
		t.Fatalf("expected unpainted clear error, got %v", err)
	}
}

func TestReplay_NoLogs(t *testing.T) {
	if _, err := replay(t.TempDir(), nil); err == nil {
		t.Fatalf("expected error")
	}
}
