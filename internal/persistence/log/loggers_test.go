package log

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gridscout.ai/internal/agent"
)

func TestEpisodeLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewEpisodeLogger(dir)
	for i := 1; i <= 3; i++ {
		rec := agent.EpisodeRecord{Episode: uint64(i), Direction: "DOWN", Remaining: i - 1, Plan: "DOWN DOWN"}
		if err := l.WriteEpisode(rec); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := ReadEpisodes(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 episodes, got %d", len(got))
	}
	if got[2].Episode != 3 || got[2].Remaining != 2 || got[0].Plan != "DOWN DOWN" {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "ticks")
	clock := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	if err := w.Write(agent.TickRecord{Tick: 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	clock = clock.Add(2 * time.Minute)
	if err := w.Write(agent.TickRecord{Tick: 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := Files(dir, "ticks")
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 hourly files, got %v", files)
	}
	if filepath.Base(files[0]) != "ticks-2024-05-01-10.jsonl.zst" {
		t.Fatalf("unexpected name %s", files[0])
	}
	var ticks []uint64
	for _, f := range files {
		if err := ReadJSONL(f, func(r agent.TickRecord) error {
			ticks = append(ticks, r.Tick)
			return nil
		}); err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
	}
	if len(ticks) != 2 || ticks[0] != 1 || ticks[1] != 2 || w.Lines() != 2 {
		t.Fatalf("unexpected ticks %v (lines=%d)", ticks, w.Lines())
	}
}

func TestReadJSONL_StopsOnCallbackError(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	for i := 0; i < 5; i++ {
		_ = l.WriteTick(agent.TickRecord{Tick: uint64(i)})
	}
	_ = l.Close()
	files, _ := Files(filepath.Join(dir, "ticks"), "ticks")
	if len(files) == 0 {
		t.Fatalf("no tick files written")
	}
	stop := errors.New("stop")
	seen := 0
	err := ReadJSONL(files[0], func(agent.TickRecord) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) || seen != 2 {
		t.Fatalf("expected stop after 2, got %v after %d", err, seen)
	}
}

func TestReadEpisodes_EmptyDir(t *testing.T) {
	got, err := ReadEpisodes(t.TempDir())
	if err != nil || len(got) != 0 {
		t.Fatalf("expected nothing, got %v %v", got, err)
	}
}
