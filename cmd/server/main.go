package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gridscout.ai/internal/sim/tuning"
	"gridscout.ai/internal/sim/world"
	"gridscout.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (missing file uses defaults)")
		seed       = flag.Int64("seed", 0, "world seed (0 keeps the tuning seed)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

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

	ctx, cancel := signalContext()
	defer cancel()

	wsSrv := ws.NewServer(w, logger)
	go func() {
		if err := w.Run(ctx, wsSrv.BroadcastTick); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m := wsSrv.Metrics()
		observed, _ := w.ObservedMap()
		connected := 0
		if m.Connected {
			connected = 1
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP gridscout_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE gridscout_world_tick gauge\n")
		fmt.Fprintf(rw, "gridscout_world_tick %d\n", w.Tick())

		fmt.Fprintf(rw, "# HELP gridscout_agent_energy Agent energy.\n")
		fmt.Fprintf(rw, "# TYPE gridscout_agent_energy gauge\n")
		fmt.Fprintf(rw, "gridscout_agent_energy %d\n", w.Energy())

		fmt.Fprintf(rw, "# HELP gridscout_observed_cells Cells the agent has observed.\n")
		fmt.Fprintf(rw, "# TYPE gridscout_observed_cells gauge\n")
		fmt.Fprintf(rw, "gridscout_observed_cells %d\n", observed.ObservedCount())

		fmt.Fprintf(rw, "# HELP gridscout_agent_connected Whether an agent session is open.\n")
		fmt.Fprintf(rw, "# TYPE gridscout_agent_connected gauge\n")
		fmt.Fprintf(rw, "gridscout_agent_connected %d\n", connected)

		fmt.Fprintf(rw, "# HELP gridscout_sessions_total Agent sessions accepted.\n")
		fmt.Fprintf(rw, "# TYPE gridscout_sessions_total counter\n")
		fmt.Fprintf(rw, "gridscout_sessions_total %d\n", m.Joined)

		fmt.Fprintf(rw, "# HELP gridscout_dropped_ticks_total TICK messages dropped for a slow client.\n")
		fmt.Fprintf(rw, "# TYPE gridscout_dropped_ticks_total counter\n")
		fmt.Fprintf(rw, "gridscout_dropped_ticks_total %d\n", m.DroppedTicks)
	})
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

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

	cfg := w.Config()
	logger.Printf("listening on %s size=%d seed=%d tick_rate=%d", *addr, cfg.Size, cfg.Seed, cfg.TickRateHz)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
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
