package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"gridscout.ai/internal/agent"
	"gridscout.ai/internal/export/mapimage"
	"gridscout.ai/internal/persistence/indexdb"
	persistlog "gridscout.ai/internal/persistence/log"
	"gridscout.ai/internal/persistence/snapshot"
	"gridscout.ai/internal/planner/dispatch"
	"gridscout.ai/internal/sim/tuning"
	"gridscout.ai/internal/sim/world"
)

func main() {
	var (
		tuningPath  = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (missing file uses defaults)")
		seed        = flag.Int64("seed", 0, "world seed (0 keeps the tuning seed)")
		episodes    = flag.Int("episodes", 50, "planning episodes to run (0 = until the planner gives up)")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		exportDir   = flag.String("export", "", "write observed.png and full.png here when the run ends (optional)")
		exportScale = flag.Int("export_scale", 8, "pixels per cell in exported images")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite episode index")
		dumpMaps    = flag.Bool("dump_maps", false, "write the planner input of every episode to <data>/maps")
		noTicks     = flag.Bool("no_tick_log", false, "skip the per-tick JSONL log")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[scout] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.LoadOrDefault(*tuningPath)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	if *seed != 0 {
		tune.World.Seed = *seed
	}

	cat, err := tune.Catalog()
	if err != nil {
		logger.Fatalf("catalog: %v", err)
	}
	w, err := world.New(tune.WorldConfig(), cat, logger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	defer w.Close()

	orch, err := tune.Orchestrator(logger)
	if err != nil {
		logger.Fatalf("orchestrator: %v", err)
	}
	acfg, err := tune.AgentConfig()
	if err != nil {
		logger.Fatalf("agent config: %v", err)
	}
	ctrl, err := agent.NewController(w, cat, orch, agent.NewShared(), acfg, logger)
	if err != nil {
		logger.Fatalf("controller: %v", err)
	}
	runner := agent.NewRunner(ctrl, w, logger)

	episodeLog := persistlog.NewEpisodeLogger(*dataDir)
	defer episodeLog.Close()
	runner.AddEpisodeSink(episodeLog)
	if !*noTicks {
		tickLog := persistlog.NewTickLogger(*dataDir)
		defer tickLog.Close()
		ctrl.AddTickSink(tickLog)
	}

	// Optional read model; the JSONL logs stay authoritative.
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "episodes.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer func() {
			st := idx.Stats()
			if st.DropEpisodeTotal+st.DropTickTotal+st.DropSnapshotTotal > 0 {
				logger.Printf("index dropped episodes=%d ticks=%d snapshots=%d", st.DropEpisodeTotal, st.DropTickTotal, st.DropSnapshotTotal)
			}
			_ = idx.Close()
		}()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index: upsert tuning: %v", err)
		}
		runner.AddEpisodeSink(idx)
		ctrl.AddTickSink(idx)
	}

	if *dumpMaps {
		dir := filepath.Join(*dataDir, "maps")
		runner.OnPlan(func(ep uint64, req dispatch.Request) {
			dump := snapshot.Capture(ep, w.Tick(), req)
			path := snapshot.PathFor(dir, ep)
			if err := snapshot.Write(path, dump); err != nil {
				logger.Printf("map dump: %v", err)
				return
			}
			if idx != nil {
				idx.RecordSnapshot(path, dump, req.Map.ObservedCount())
			}
		})
	}

	ctx, cancel := signalContext()
	defer cancel()

	cfg := w.Config()
	logger.Printf("world size=%d seed=%d energy=%d start=%s episodes=%d", cfg.Size, cfg.Seed, w.Energy(), w.Position(), *episodes)
	err = runner.Run(ctx, *episodes)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		logger.Printf("interrupted")
	case errors.Is(err, dispatch.ErrNoConvergence), errors.Is(err, agent.ErrStalled):
		logger.Printf("run ended: %v", err)
	default:
		logger.Printf("run failed: %v", err)
	}

	if *exportDir != "" {
		observed, err := w.ObservedMap()
		if err != nil {
			logger.Printf("export: %v", err)
		} else if err := mapimage.Export(*exportDir, observed, w.FullMap(), w.Position(), *exportScale); err != nil {
			logger.Printf("export: %v", err)
		}
	}

	observed, _ := w.ObservedMap()
	logger.Printf("done tick=%d pos=%s energy=%d observed=%d backpack=%v interests=%d",
		w.Tick(), w.Position(), w.Energy(), observed.ObservedCount(), w.Backpack(), len(ctrl.Interests()))
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
