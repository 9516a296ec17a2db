package agent

import (
	"strings"

	"gridscout.ai/internal/planner/action"
)

// TickRecord is one controller tick, as written to the tick log.
type TickRecord struct {
	Tick      uint64 `json:"tick"`
	State     string `json:"state"`
	Pos       [2]int `json:"pos"`
	Energy    int    `json:"energy"`
	Weather   string `json:"weather"`
	Pending   int    `json:"pending"`
	Projected int    `json:"projected"`
	Executed  int    `json:"executed"`
}

// EpisodeRecord summarizes one planning episode.
type EpisodeRecord struct {
	Episode    uint64   `json:"episode"`
	StartTick  uint64   `json:"start_tick"`
	EndTick    uint64   `json:"end_tick"`
	Origin     [2]int   `json:"origin"`
	Weather    string   `json:"weather"`
	Energy     int      `json:"energy"`
	Observed   int      `json:"observed"`
	Directions []string `json:"directions"`

	Direction string  `json:"direction,omitempty"`
	Target    [2]int  `json:"target"`
	Remaining int     `json:"remaining"`
	Fitness   float64 `json:"fitness"`
	Cost      int     `json:"cost"`
	Rounds    int     `json:"rounds"`
	Plan      string  `json:"plan"`

	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

type TickSink interface {
	WriteTick(TickRecord) error
}

type EpisodeSink interface {
	WriteEpisode(EpisodeRecord) error
}

// FormatPlan renders a plan as space separated actions, skipping NoOps.
func FormatPlan(plan []action.Action) string {
	var b strings.Builder
	for _, a := range plan {
		if a.IsNoOp() {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(a.String())
	}
	return b.String()
}
