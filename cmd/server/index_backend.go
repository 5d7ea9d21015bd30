package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/A-G0D/RotBound-Unity/internal/persistence/indexdb"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrainview"
)

type runtimeIndex interface {
	terrainview.View
	Close() error
	RecordRun(r indexdb.RunInfo)
	Stats() indexdb.Stats
}

func openRuntimeIndex(runDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("RB_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(runDir, "index", "chunks.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported RB_INDEX_BACKEND: %s", backend)
	}
}
