package indexdb

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"gridscout.ai/internal/agent"
	"gridscout.ai/internal/persistence/snapshot"
	"gridscout.ai/internal/sim/tuning"
)

func TestSQLiteIndex_EpisodesAndSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.UpsertTuning(tuning.Defaults()); err != nil {
		t.Fatalf("tuning: %v", err)
	}
	_ = idx.WriteEpisode(agent.EpisodeRecord{Episode: 1, StartTick: 0, EndTick: 4, Direction: "UP", Rounds: 1, Remaining: 0, Plan: "UP UP"})
	_ = idx.WriteEpisode(agent.EpisodeRecord{Episode: 2, StartTick: 4, EndTick: 9, Direction: "RIGHT", Rounds: 3, Remaining: 2})
	_ = idx.WriteEpisode(agent.EpisodeRecord{Episode: 3, StartTick: 9, EndTick: 20, Rounds: 15, Error: "no convergence"})
	for i := uint64(1); i <= 5; i++ {
		_ = idx.WriteTick(agent.TickRecord{Tick: i, State: agent.StateReady})
	}
	idx.RecordSnapshot("ep1.snap.zst", snapshot.MapDumpV1{Header: snapshot.Header{Version: 1, Episode: 1, Tick: 0}, Size: 8}, 12)
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen: everything queued before Close was committed.
	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	ctx := context.Background()

	all, err := idx.ListEpisodes(ctx, EpisodeFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Episode != 3 || all[2].Plan != "UP UP" {
		t.Fatalf("unexpected episodes: %+v", all)
	}

	failed, err := idx.ListEpisodes(ctx, EpisodeFilter{FailedOnly: true})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 1 || failed[0].Error != "no convergence" {
		t.Fatalf("unexpected failed: %+v", failed)
	}

	right, err := idx.ListEpisodes(ctx, EpisodeFilter{Direction: "RIGHT", Limit: 5})
	if err != nil {
		t.Fatalf("list right: %v", err)
	}
	if len(right) != 1 || right[0].Episode != 2 {
		t.Fatalf("unexpected right: %+v", right)
	}

	sum, err := idx.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Episodes != 3 || sum.Failed != 1 || sum.Snapshots != 1 || sum.LastTick != 5 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if math.Abs(sum.AvgRounds-19.0/3) > 1e-9 {
		t.Fatalf("avg rounds: %v", sum.AvgRounds)
	}
	if len(sum.TuningDigest) != 64 {
		t.Fatalf("digest: %q", sum.TuningDigest)
	}
}

func TestSQLiteIndex_StatsCountDrops(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}

	_ = s.WriteEpisode(agent.EpisodeRecord{Episode: 1})
	_ = s.WriteEpisode(agent.EpisodeRecord{Episode: 2})
	_ = s.WriteTick(agent.TickRecord{Tick: 1})
	s.RecordSnapshot("x", snapshot.MapDumpV1{}, 0)

	st := s.Stats()
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue: %+v", st)
	}
	if st.DropEpisodeTotal != 1 || st.DropTickTotal != 1 || st.DropSnapshotTotal != 1 {
		t.Fatalf("drops: %+v", st)
	}
}

func TestSQLiteIndex_WritesAfterCloseAreIgnored(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := idx.WriteEpisode(agent.EpisodeRecord{Episode: 1}); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
