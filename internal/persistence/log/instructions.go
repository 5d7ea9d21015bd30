package log

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/A-G0D/RotBound-Unity/internal/protocol"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/chunk"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrainview"
)

const instructionsPrefix = "instructions"

// InstructionEntry is one tick batch as written to disk.
type InstructionEntry struct {
	Tick     uint64                `json:"tick"`
	Observer [2]float64            `json:"observer"`
	Center   [2]int                `json:"center"`
	Clears   []protocol.ChunkRef   `json:"clears,omitempty"`
	Paints   []protocol.ChunkTiles `json:"paints,omitempty"`
}

func EntryFromBatch(b terrainview.Batch) InstructionEntry {
	e := InstructionEntry{
		Tick:     b.Tick,
		Observer: b.Observer,
		Center:   [2]int{b.Center.CX, b.Center.CY},
	}
	for _, c := range b.Clears {
		e.Clears = append(e.Clears, terrainview.ToWireClear(c))
	}
	for _, p := range b.Paints {
		e.Paints = append(e.Paints, terrainview.ToWirePaint(p))
	}
	return e
}

func (e InstructionEntry) Batch() (terrainview.Batch, error) {
	b := terrainview.Batch{
		Tick:     e.Tick,
		Observer: e.Observer,
		Center:   chunk.Coord{CX: e.Center[0], CY: e.Center[1]},
	}
	for _, ref := range e.Clears {
		c, err := terrainview.FromWireClear(ref)
		if err != nil {
			return terrainview.Batch{}, fmt.Errorf("tick %d: %w", e.Tick, err)
		}
		b.Clears = append(b.Clears, c)
	}
	for _, ct := range e.Paints {
		p, err := terrainview.FromWirePaint(ct)
		if err != nil {
			return terrainview.Batch{}, fmt.Errorf("tick %d: %w", e.Tick, err)
		}
		b.Paints = append(b.Paints, p)
	}
	return b, nil
}

// InstructionLogger is a terrainview.View that writes one entry per batch.
type InstructionLogger struct{ w *JSONLZstdWriter }

func NewInstructionLogger(runDir string) *InstructionLogger {
	return &InstructionLogger{w: NewJSONLZstdWriter(filepath.Join(runDir, "instructions"), instructionsPrefix)}
}

func (l *InstructionLogger) Apply(b terrainview.Batch) error { return l.w.Write(EntryFromBatch(b)) }
func (l *InstructionLogger) Close() error                    { return l.w.Close() }
func (l *InstructionLogger) Stats() WriterStats              { return l.w.Stats() }

// InstructionFiles lists the instruction logs under runDir in write order.
func InstructionFiles(runDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(runDir, "instructions", instructionsPrefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadEntries decodes every entry of one instruction log, stopping at the first error from fn.
func ReadEntries(path string, fn func(InstructionEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer zr.Close()

	dec := json.NewDecoder(zr)
	for n := 1; ; n++ {
		var e InstructionEntry
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%s entry %d: %w", path, n, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}
