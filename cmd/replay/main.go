package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	persistlog "github.com/A-G0D/RotBound-Unity/internal/persistence/log"
	"github.com/A-G0D/RotBound-Unity/internal/sim/tuning"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/gen"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrainview"
)

func main() {
	var (
		runDir     = flag.String("run", "", "run directory (data/runs/<run_id>)")
		tuningPath = flag.String("tuning", "", "tuning.yaml used for the run (enables regeneration check)")
		seed       = flag.Int64("seed", 0, "seed override used for the run (0 keeps tuning.yaml)")
		regen      = flag.Bool("regen", false, "regenerate every painted chunk and compare tiles")
	)
	flag.Parse()

	if *runDir == "" {
		fmt.Fprintln(os.Stderr, "missing -run")
		os.Exit(2)
	}

	var g *gen.Generator
	if *regen || *tuningPath != "" {
		tune, err := tuning.Load(*tuningPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		if *seed != 0 {
			tune.Seed = *seed
		}
		g, err = gen.New(gen.ConfigFromTuning(tune))
		if err != nil {
			fmt.Fprintln(os.Stderr, "generator:", err)
			os.Exit(1)
		}
	}

	sum, err := replay(*runDir, g)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	sum.print(os.Stdout)
}

type summary struct {
	Files       int
	Entries     int
	FirstTick   uint64
	LastTick    uint64
	Regenerated int
	Stats       terrainview.RecorderStats
}

func (s summary) print(w io.Writer) {
	fmt.Fprintf(w, "replay ok: files=%d entries=%d ticks=%d..%d painted=%d cleared=%d live=%d regenerated=%d\n",
		s.Files, s.Entries, s.FirstTick, s.LastTick, s.Stats.Painted, s.Stats.Cleared, s.Stats.Live, s.Regenerated)
}

// replay feeds every logged batch through a Recorder, which rejects a clear of an unpainted tile
// and a paint over a live one. With g set, each painted chunk is regenerated and compared.
func replay(runDir string, g *gen.Generator) (summary, error) {
	files, err := persistlog.InstructionFiles(runDir)
	if err != nil {
		return summary{}, err
	}
	if len(files) == 0 {
		return summary{}, fmt.Errorf("no instruction logs under %s", runDir)
	}

	rec := terrainview.NewRecorder()
	sum := summary{Files: len(files)}
	for _, path := range files {
		err := persistlog.ReadEntries(path, func(e persistlog.InstructionEntry) error {
			if sum.Entries > 0 && e.Tick <= sum.LastTick {
				return fmt.Errorf("%s: tick %d after %d", filepath.Base(path), e.Tick, sum.LastTick)
			}
			if sum.Entries == 0 {
				sum.FirstTick = e.Tick
			}
			sum.Entries++
			sum.LastTick = e.Tick

			b, err := e.Batch()
			if err != nil {
				return err
			}
			if err := rec.Apply(b); err != nil {
				return err
			}
			if g == nil {
				return nil
			}
			for _, p := range b.Paints {
				if err := compareRegenerated(g, p); err != nil {
					return fmt.Errorf("tick %d: %w", e.Tick, err)
				}
				sum.Regenerated++
			}
			return nil
		})
		if err != nil {
			return summary{}, err
		}
	}
	sum.Stats = rec.Stats()
	return sum, nil
}

func compareRegenerated(g *gen.Generator, p terrainview.ChunkPaint) error {
	if p.Size != g.ChunkSize() {
		return fmt.Errorf("chunk %s: logged size %d, generator size %d", p.Coord, p.Size, g.ChunkSize())
	}
	want := terrainview.Paints(g.Generate(p.Coord))
	for i, t := range p.Tiles {
		if t.Pos != want.Tiles[i].Pos || t.Value() != want.Tiles[i].Value() {
			return fmt.Errorf("chunk %s tile (%d,%d): logged %d, regenerated %d", p.Coord, t.X, t.Y, t.Value(), want.Tiles[i].Value())
		}
	}
	return nil
}
