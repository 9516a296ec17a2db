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
	"time"

	"gridscout.ai/internal/agent"
	"gridscout.ai/internal/persistence/indexdb"
	persistlog "gridscout.ai/internal/persistence/log"
	"gridscout.ai/internal/planner/dispatch"
	"gridscout.ai/internal/sim/tuning"
	"gridscout.ai/internal/transport/ws"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name       = flag.String("name", "scout", "agent name")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (must match the server's catalog)")
		episodes   = flag.Int("episodes", 0, "planning episodes to run (0 = until the planner gives up)")
		dataDir    = flag.String("data", "./data/bot", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite episode index")
		timeout    = flag.Duration("timeout", 10*time.Second, "per-action reply timeout")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.LoadOrDefault(*tuningPath)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	cat, err := tune.Catalog()
	if err != nil {
		logger.Fatalf("catalog: %v", err)
	}
	orch, err := tune.Orchestrator(logger)
	if err != nil {
		logger.Fatalf("orchestrator: %v", err)
	}
	acfg, err := tune.AgentConfig()
	if err != nil {
		logger.Fatalf("agent config: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
	remote, err := ws.Dial(dialCtx, *url, *name, logger)
	dialCancel()
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer remote.Close()
	remote.SetTimeout(*timeout)
	p := remote.Params()
	logger.Printf("WELCOME agent_id=%s size=%d tick_rate=%d seed=%d", remote.AgentID(), p.WorldSize, p.TickRateHz, p.Seed)

	// The server paces the clock; local pacing delay would only add latency.
	acfg.PacingDelay = 0

	ctrl, err := agent.NewController(remote, cat, orch, agent.NewShared(), acfg, logger)
	if err != nil {
		logger.Fatalf("controller: %v", err)
	}
	runner := agent.NewRunner(ctrl, remote, logger)

	episodeLog := persistlog.NewEpisodeLogger(*dataDir)
	defer episodeLog.Close()
	runner.AddEpisodeSink(episodeLog)

	if !*disableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "episodes.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index: upsert tuning: %v", err)
		}
		runner.AddEpisodeSink(idx)
		ctrl.AddTickSink(idx)
	}

	go func() {
		select {
		case <-remote.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	err = runner.Run(ctx, *episodes)
	switch {
	case err == nil:
	case errors.Is(err, ws.ErrClosed):
		logger.Printf("connection closed")
	case errors.Is(err, context.Canceled):
		logger.Printf("stopped")
	case errors.Is(err, dispatch.ErrNoConvergence), errors.Is(err, agent.ErrStalled):
		logger.Printf("run ended: %v", err)
	default:
		logger.Printf("run failed: %v", err)
	}
	logger.Printf("done tick=%d pos=%s energy=%d interests=%d", remote.Tick(), remote.Position(), remote.Energy(), len(ctrl.Interests()))
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
