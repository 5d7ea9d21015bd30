package main

import (
	"fmt"
	"io"

	"github.com/A-G0D/RotBound-Unity/internal/persistence/indexdb"
	persistlog "github.com/A-G0D/RotBound-Unity/internal/persistence/log"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world"
)

type metricsSnapshot struct {
	RunID        string
	Tick         uint64
	LoadedChunks int
	Viewers      int
	ViewersKick  uint64
	World        world.Stats
	Index        *indexdb.Stats
	Log          *persistlog.WriterStats
}

// writeMetrics renders the minimal Prometheus exposition format.
func writeMetrics(w io.Writer, m metricsSnapshot) {
	gauge := func(name, help string, v any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s gauge\n", name)
		fmt.Fprintf(w, "%s{run=%q} %v\n", name, m.RunID, v)
	}
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s counter\n", name)
		fmt.Fprintf(w, "%s{run=%q} %d\n", name, m.RunID, v)
	}

	gauge("rotbound_world_tick", "Current world tick.", m.Tick)
	gauge("rotbound_loaded_chunks", "Loaded chunk count.", m.LoadedChunks)
	gauge("rotbound_viewers", "Connected websocket viewers.", m.Viewers)
	counter("rotbound_viewers_kicked_total", "Viewers disconnected for a full queue.", m.ViewersKick)
	counter("rotbound_chunk_crossings_total", "Observer chunk crossings.", m.World.Crossings)
	counter("rotbound_chunks_loaded_total", "Chunks generated and loaded.", m.World.Loaded)
	counter("rotbound_chunks_unloaded_total", "Chunks evicted.", m.World.Unloaded)
	counter("rotbound_building_cells_total", "Building cells in loaded chunks.", m.World.Buildings)
	counter("rotbound_view_errors_total", "Failed view applies.", m.World.ViewErrs)

	if m.Log != nil {
		counter("rotbound_instruction_log_lines_total", "Batches written to the instruction log.", m.Log.Lines)
		counter("rotbound_instruction_log_files_total", "Instruction log files opened.", m.Log.Files)
	}
	if m.Index == nil {
		return
	}
	gauge("rotbound_index_queue_depth", "SQLite index queue depth.", m.Index.QueueDepth)
	counter("rotbound_index_dropped_total", "Index rows dropped on a full queue.", m.Index.DropLoadTotal+m.Index.DropUnloadTotal+m.Index.DropRunTotal)
}
