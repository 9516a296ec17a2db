package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"gridscout.ai/internal/agent"
)

type EpisodeFilter struct {
	// Direction restricts to episodes that committed to this direction.
	Direction  string
	FailedOnly bool
	Limit      int
}

// ListEpisodes returns episodes newest first.
func (s *SQLiteIndex) ListEpisodes(ctx context.Context, f EpisodeFilter) ([]agent.EpisodeRecord, error) {
	q := `SELECT raw_json FROM episodes WHERE 1=1`
	var args []any
	if f.Direction != "" {
		q += ` AND direction = ?`
		args = append(args, f.Direction)
	}
	if f.FailedOnly {
		q += ` AND error != ''`
	}
	q += ` ORDER BY episode DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []agent.EpisodeRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var r agent.EpisodeRecord
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type Summary struct {
	Episodes     int
	Failed       int
	AvgRounds    float64
	AvgRemaining float64
	Snapshots    int
	LastTick     uint64
	TuningDigest string
}

func (s *SQLiteIndex) Summary(ctx context.Context) (Summary, error) {
	var out Summary
	var avgRounds, avgRemaining sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(error != ''),0), AVG(rounds), AVG(remaining) FROM episodes`).
		Scan(&out.Episodes, &out.Failed, &avgRounds, &avgRemaining)
	if err != nil {
		return Summary{}, err
	}
	out.AvgRounds = avgRounds.Float64
	out.AvgRemaining = avgRemaining.Float64

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&out.Snapshots); err != nil {
		return Summary{}, err
	}
	var last sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(tick) FROM ticks`).Scan(&last); err != nil {
		return Summary{}, err
	}
	if last.Valid {
		out.LastTick = uint64(last.Int64)
	}
	err = s.db.QueryRowContext(ctx, `SELECT digest FROM config WHERE name = 'tuning'`).Scan(&out.TuningDigest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Summary{}, err
	}
	return out, nil
}
