package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gridscout.ai/internal/agent"
	"gridscout.ai/internal/export/mapimage"
	"gridscout.ai/internal/persistence/indexdb"
	persistlog "gridscout.ai/internal/persistence/log"
	"gridscout.ai/internal/persistence/snapshot"
	"gridscout.ai/internal/sim/grid"
	"gridscout.ai/internal/sim/tuning"
)

func main() {
	var (
		dumpPath   = flag.String("dump", "", "map dump (.snap.zst) to re-plan offline")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml for re-planning")
		seed       = flag.Uint64("seed", 0, "planner seed override for re-planning (0 keeps tuning)")
		exportDir  = flag.String("export", "", "render the dump's map as observed.png into this dir (optional)")
		dataDir    = flag.String("data", "", "data dir whose episode JSONL logs to print")
		indexPath  = flag.String("index", "", "sqlite episode index to list")
		failedOnly = flag.Bool("failed", false, "index: only episodes that ended in an error")
		direction  = flag.String("direction", "", "index: only episodes that committed to this direction")
		limit      = flag.Int("limit", 20, "index: max episodes to list")
	)
	flag.Parse()

	switch {
	case *dumpPath != "":
		if err := replan(*dumpPath, *tuningPath, *seed, *exportDir); err != nil {
			fail("replan", err)
		}
	case *dataDir != "":
		if err := printEpisodes(*dataDir); err != nil {
			fail("episodes", err)
		}
	case *indexPath != "":
		f := indexdb.EpisodeFilter{Direction: *direction, FailedOnly: *failedOnly, Limit: *limit}
		if err := listIndex(*indexPath, f); err != nil {
			fail("index", err)
		}
	default:
		fmt.Fprintln(os.Stderr, "one of -dump, -data or -index is required")
		os.Exit(2)
	}
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}

// replan runs the orchestrator again on a dumped planner input and prints
// the outcome as one JSON line.
func replan(path, tuningPath string, seed uint64, exportDir string) error {
	dump, err := snapshot.Read(path)
	if err != nil {
		return err
	}
	req, err := dump.Request()
	if err != nil {
		return err
	}
	fmt.Printf("dump v%d episode=%d tick=%d size=%d origin=%s weather=%s observed=%d directions=%v\n",
		dump.Header.Version, dump.Header.Episode, dump.Header.Tick, dump.Size, req.Origin, req.Weather,
		req.Map.ObservedCount(), dump.Directions)

	if exportDir != "" {
		img := mapimage.Render(req.Map, req.Origin, 8)
		if err := mapimage.WritePNG(filepath.Join(exportDir, "observed.png"), img); err != nil {
			return err
		}
	}

	tune, err := tuning.LoadOrDefault(tuningPath)
	if err != nil {
		return err
	}
	if seed != 0 {
		tune.Planner.Seed = seed
	}
	orch, err := tune.Orchestrator(nil)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := orch.Plan(context.Background(), req)
	out := agent.EpisodeRecord{
		Episode:    dump.Header.Episode,
		StartTick:  dump.Header.Tick,
		Origin:     dump.Origin,
		Weather:    dump.Weather,
		Observed:   req.Map.ObservedCount(),
		Directions: dump.Directions,
		Rounds:     res.Rounds,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if res.Best != nil {
		out.Direction = res.Direction.String()
		out.Target = [2]int{res.Target.Row, res.Target.Col}
		out.Remaining = res.Best.Remaining
		out.Cost = res.Best.Cost
		if !math.IsInf(res.Best.Fitness, 0) {
			out.Fitness = res.Best.Fitness
		}
		out.Plan = agent.FormatPlan(res.Best.Plan)
	}
	if err != nil {
		out.Error = err.Error()
	}
	return json.NewEncoder(os.Stdout).Encode(out)
}

func printEpisodes(dataDir string) error {
	recs, err := persistlog.ReadEpisodes(dataDir)
	enc := json.NewEncoder(os.Stdout)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	fmt.Fprintf(os.Stderr, "%d episodes\n", len(recs))
	return err
}

func listIndex(path string, f indexdb.EpisodeFilter) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer idx.Close()

	ctx := context.Background()
	sum, err := idx.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("episodes=%d failed=%d avg_rounds=%.2f avg_remaining=%.2f snapshots=%d last_tick=%d tuning=%s\n",
		sum.Episodes, sum.Failed, sum.AvgRounds, sum.AvgRemaining, sum.Snapshots, sum.LastTick, sum.TuningDigest)

	rows, err := idx.ListEpisodes(ctx, f)
	if err != nil {
		return err
	}
	for _, r := range rows {
		origin := grid.Pos{Row: r.Origin[0], Col: r.Origin[1]}
		status := "ok"
		if r.Error != "" {
			status = r.Error
		}
		fmt.Printf("#%d ticks=%d..%d origin=%s dir=%s remaining=%d cost=%d rounds=%d %s plan=[%s]\n",
			r.Episode, r.StartTick, r.EndTick, origin, r.Direction, r.Remaining, r.Cost, r.Rounds, status, r.Plan)
	}
	return nil
}
