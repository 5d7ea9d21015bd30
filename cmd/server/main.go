package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/A-G0D/RotBound-Unity/internal/persistence/indexdb"
	persistlog "github.com/A-G0D/RotBound-Unity/internal/persistence/log"
	"github.com/A-G0D/RotBound-Unity/internal/protocol"
	"github.com/A-G0D/RotBound-Unity/internal/sim/mover"
	"github.com/A-G0D/RotBound-Unity/internal/sim/tuning"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/gen"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/store"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrainview"
	"github.com/A-G0D/RotBound-Unity/internal/transport/observer"
)

func main() {
	var (
		addr        = flag.String("addr", "127.0.0.1:8080", "http listen address")
		configDir   = flag.String("configs", "./configs", "config directory")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		seed        = flag.Int64("seed", 0, "override tuning seed (0 keeps tuning.yaml)")
		radius      = flag.Int("radius", -1, "override chunk_load_radius (-1 keeps tuning.yaml)")
		noiseKind   = flag.String("noise", "", "override noise_kind (perlin|opensimplex)")
		startX      = flag.Float64("x", 0, "initial observer x")
		startY      = flag.Float64("y", 0, "initial observer y")
		patrolLeg   = flag.Duration("patrol", 0, "autopilot leg length (0: move only on viewer INPUT)")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite chunk index")
		disableLog  = flag.Bool("disable_log", false, "disable the instruction log")
		allowRemote = flag.Bool("allow_remote", false, "accept viewers from non-loopback addresses")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	// Registered first so it runs after every sink has been closed.
	exitCode := 0
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if *seed != 0 {
		tune.Seed = *seed
	}
	if *radius >= 0 {
		tune.ChunkLoadRadius = *radius
	}
	if *noiseKind != "" {
		tune.NoiseKind = *noiseKind
	}
	tune.Normalize()
	if err := tune.Validate(); err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	runID := uuid.NewString()
	runDir := filepath.Join(*dataDir, "runs", runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		logger.Fatalf("run dir: %v", err)
	}

	g, err := gen.New(gen.ConfigFromTuning(tune))
	if err != nil {
		logger.Fatalf("generator: %v", err)
	}
	cs, err := store.NewChunkStore(g, tune.ChunkLoadRadius, tune.GenWorkers)
	if err != nil {
		logger.Fatalf("chunk store: %v", err)
	}
	w, err := world.New(world.WorldConfig{TickRateHz: tune.TickRateHz, Logger: logger}, cs, nil)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	var views terrainview.Multi
	var instrLog *persistlog.InstructionLogger
	if !*disableLog {
		instrLog = persistlog.NewInstructionLogger(runDir)
		defer instrLog.Close()
		views = append(views, instrLog)
	}
	idx, err := openRuntimeIndex(runDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		idx.RecordRun(indexdb.RunInfo{
			RunID:     runID,
			Seed:      tune.Seed,
			ChunkSize: tune.ChunkSize,
			Radius:    tune.ChunkLoadRadius,
			NoiseKind: tune.NoiseKind,
		})
		views = append(views, idx)
	}

	mv := mover.New(*startX, *startY, tune.MoveSpeed)
	obsSrv := observer.NewServer(observer.Config{
		RunID: runID,
		Params: protocol.WorldParams{
			TickRateHz:      tune.TickRateHz,
			ChunkSize:       tune.ChunkSize,
			ChunkLoadRadius: tune.ChunkLoadRadius,
			Seed:            tune.Seed,
			NoiseKind:       tune.NoiseKind,
			NoiseScale:      tune.NoiseScale,
			NoiseOffset:     tune.NoiseOffset,
		},
		AllowRemote: *allowRemote,
	}, w, mv, logger)
	defer obsSrv.Close()
	views = append(views, obsSrv)
	w.SetView(views)

	logger.Printf("run=%s seed=%d chunk_size=%d radius=%d noise=%s data=%s", runID, tune.Seed, tune.ChunkSize, tune.ChunkLoadRadius, tune.NoiseKind, runDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *patrolLeg > 0 {
		go mover.Patrol(ctx, mv, *patrolLeg)
	}

	worldDone := make(chan struct{})
	var worldErr error
	go func() {
		defer close(worldDone)
		worldErr = runWorld(ctx, w, mv, logger, stop)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m := metricsSnapshot{
			RunID:        runID,
			Tick:         w.CurrentTick(),
			LoadedChunks: cs.Len(),
			Viewers:      obsSrv.Sessions(),
			ViewersKick:  obsSrv.Kicked(),
			World:        w.Stats(),
		}
		if idx != nil {
			st := idx.Stats()
			m.Index = &st
		}
		if instrLog != nil {
			st := instrLog.Stats()
			m.Log = &st
		}
		writeMetrics(rw, m)
	})
	mux.HandleFunc("/v1/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/ws", obsSrv.WSHandler())
	if envBool("RB_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	<-worldDone
	st := w.Stats()
	logger.Printf("stopped at tick=%d crossings=%d loaded=%d unloaded=%d", w.CurrentTick(), st.Crossings, st.Loaded, st.Unloaded)
	if worldErr != nil {
		exitCode = 1
	}
}

// runWorld drives w until ctx ends. A loop failure while ctx is still live is returned and
// cancels the process context through stop, which also shuts the HTTP server down.
func runWorld(ctx context.Context, w *world.World, src world.Source, logger *log.Logger, stop context.CancelFunc) error {
	err := w.Run(ctx, src)
	if err == nil || ctx.Err() != nil {
		return nil
	}
	logger.Printf("world stopped: %v", err)
	stop()
	return err
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
