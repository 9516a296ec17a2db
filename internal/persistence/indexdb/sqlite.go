package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"gridscout.ai/internal/agent"
	"gridscout.ai/internal/persistence/snapshot"
	"gridscout.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable read model of the episode and tick logs. Writes
// are queued to a single writer goroutine and dropped when it falls behind;
// the JSONL logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEpisode  atomic.Uint64
	dropTick     atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqEpisode reqKind = iota + 1
	reqTick
	reqSnapshot
)

type req struct {
	kind reqKind

	episode  agent.EpisodeRecord
	tick     agent.TickRecord
	snapshot snapshotRow
}

type snapshotRow struct {
	Episode  uint64
	Tick     uint64
	Path     string
	Size     int
	Observed int
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS config (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS episodes (
			episode INTEGER PRIMARY KEY,
			start_tick INTEGER NOT NULL,
			end_tick INTEGER NOT NULL,
			origin_row INTEGER NOT NULL,
			origin_col INTEGER NOT NULL,
			direction TEXT NOT NULL,
			remaining INTEGER NOT NULL,
			cost INTEGER NOT NULL,
			fitness REAL NOT NULL,
			rounds INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			error TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_direction ON episodes(direction);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			state TEXT NOT NULL,
			row INTEGER NOT NULL,
			col INTEGER NOT NULL,
			energy INTEGER NOT NULL,
			pending INTEGER NOT NULL,
			projected INTEGER NOT NULL,
			executed INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ticks_state ON ticks(state, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			episode INTEGER PRIMARY KEY,
			tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			size INTEGER NOT NULL,
			observed INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the queue, commits and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteEpisode(rec agent.EpisodeRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEpisode, episode: rec}:
	default:
		s.dropEpisode.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteTick(rec agent.TickRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: rec}:
	default:
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, dump snapshot.MapDumpV1, observed int) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Episode:  dump.Header.Episode,
		Tick:     dump.Header.Tick,
		Path:     path,
		Size:     dump.Size,
		Observed: observed,
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropEpisodeTotal  uint64
	DropTickTotal     uint64
	DropSnapshotTotal uint64
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropEpisodeTotal:  s.dropEpisode.Load(),
		DropTickTotal:     s.dropTick.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

// UpsertTuning stores the tuning the run actually applies, keyed by digest.
func (s *SQLiteIndex) UpsertTuning(tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO config(name,digest,json,updated_at) VALUES(?,?,?,?)`,
		"tuning", hex.EncodeToString(sum[:]), string(b), now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertEpisode, _ := s.db.Prepare(`INSERT OR REPLACE INTO episodes(episode,start_tick,end_tick,origin_row,origin_col,direction,remaining,cost,fitness,rounds,duration_ms,error,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,state,row,col,energy,pending,projected,executed) VALUES(?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(episode,tick,path,size,observed) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertEpisode, insertTick, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	// Idle transactions are committed on a timer so readers sharing the
	// single connection are not starved.
	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()

	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			begin()
			if tx == nil {
				continue
			}
			s.apply(r, exec, insertEpisode, insertTick, insertSnapshot)
			if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
				commit()
			}
		case <-ticker.C:
			if tx != nil && time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		}
	}
}

func (s *SQLiteIndex) apply(r req, exec func(*sql.Stmt, ...any), insertEpisode, insertTick, insertSnapshot *sql.Stmt) {
	switch r.kind {
	case reqEpisode:
		e := r.episode
		raw, _ := json.Marshal(e)
		exec(insertEpisode,
			int64(e.Episode),
			int64(e.StartTick),
			int64(e.EndTick),
			e.Origin[0], e.Origin[1],
			e.Direction,
			e.Remaining,
			e.Cost,
			e.Fitness,
			e.Rounds,
			e.DurationMS,
			e.Error,
			string(raw),
		)
	case reqTick:
		t := r.tick
		exec(insertTick, int64(t.Tick), t.State, t.Pos[0], t.Pos[1], t.Energy, t.Pending, t.Projected, t.Executed)
	case reqSnapshot:
		sn := r.snapshot
		exec(insertSnapshot, int64(sn.Episode), int64(sn.Tick), sn.Path, sn.Size, sn.Observed)
	}
}

var (
	_ agent.EpisodeSink = (*SQLiteIndex)(nil)
	_ agent.TickSink    = (*SQLiteIndex)(nil)
)
