package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"gridscout.ai/internal/planner/dispatch"
	"gridscout.ai/internal/sim/host"
)

var ErrStalled = errors.New("agent stalled")

// Clock advances the host simulation by one tick.
type Clock interface {
	Advance(ctx context.Context) error
}

// PlanHook is called with each request before it is handed to the
// orchestrator. The request's map must not be modified.
type PlanHook func(episode uint64, req dispatch.Request)

// Runner drives episodes: tick until the controller is ready, search in the
// background while pacing the clock, then install the result.
type Runner struct {
	ctrl  *Controller
	clock Clock
	cfg   Config
	log   *log.Logger

	sinks   []EpisodeSink
	onPlan  []PlanHook
	episode uint64
}

func NewRunner(ctrl *Controller, clock Clock, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Runner{ctrl: ctrl, clock: clock, cfg: ctrl.cfg, log: logger}
}

func (r *Runner) AddEpisodeSink(s EpisodeSink) {
	if s != nil {
		r.sinks = append(r.sinks, s)
	}
}

func (r *Runner) OnPlan(h PlanHook) {
	if h != nil {
		r.onPlan = append(r.onPlan, h)
	}
}

// Run plays episodes until n have completed (n <= 0 means no limit), the
// orchestrator gives up, or ctx ends. The last installed plan is drained
// before returning.
func (r *Runner) Run(ctx context.Context, n int) error {
	for i := 0; n <= 0 || i < n; i++ {
		if _, err := r.RunEpisode(ctx); err != nil {
			if errors.Is(err, dispatch.ErrNoConvergence) {
				r.log.Printf("episode ended without convergence: %v", err)
			}
			return err
		}
	}
	return r.WaitReady(ctx)
}

// WaitReady ticks until the controller has drained its queue and published
// a frontier, bounded by MaxWaitTicks.
func (r *Runner) WaitReady(ctx context.Context) error {
	for waited := 0; ; waited++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.ctrl.ProcessTick(ctx); err != nil {
			return err
		}
		if r.ctrl.shared.Ready() {
			return nil
		}
		if waited >= r.cfg.MaxWaitTicks {
			return fmt.Errorf("%w: not ready after %d ticks", ErrStalled, waited)
		}
		if err := r.clock.Advance(ctx); err != nil {
			return fmt.Errorf("advance: %w", err)
		}
	}
}

type planOutcome struct {
	res dispatch.Result
	err error
}

// RunEpisode runs one planning episode end to end. The plan is installed
// but executed by the ticks of the next episode (or by WaitReady).
func (r *Runner) RunEpisode(ctx context.Context) (EpisodeRecord, error) {
	start := time.Now()
	if err := r.WaitReady(ctx); err != nil {
		return EpisodeRecord{}, err
	}
	req, ok := r.ctrl.StartSearch()
	if !ok {
		return EpisodeRecord{}, fmt.Errorf("start search: controller not ready")
	}
	r.episode++
	rec := r.newRecord(req)
	for _, h := range r.onPlan {
		h(rec.Episode, req)
	}

	done := make(chan planOutcome, 1)
	go func() {
		res, err := r.ctrl.Search(ctx, req)
		done <- planOutcome{res: res, err: err}
	}()

	paceErr := r.pace(ctx)
	out := <-done

	rec.EndTick = r.ctrl.Tick()
	rec.DurationMS = time.Since(start).Milliseconds()
	fill(&rec, out.res)
	if out.err != nil {
		r.ctrl.Abort()
		rec.Error = out.err.Error()
		r.write(rec)
		return rec, out.err
	}
	r.ctrl.Install(out.res)
	r.write(rec)
	r.log.Printf("episode %d: %s -> %v remaining=%d cost=%d rounds=%d plan=[%s]",
		rec.Episode, req.Origin, out.res.Target, rec.Remaining, rec.Cost, rec.Rounds, rec.Plan)
	if paceErr != nil {
		return rec, paceErr
	}
	return rec, nil
}

// pace keeps the simulation ticking for PacingTicks while the search runs.
// The caller always joins the search afterwards.
func (r *Runner) pace(ctx context.Context) error {
	for i := 0; i < r.cfg.PacingTicks; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.cfg.PacingDelay):
		}
		if err := r.clock.Advance(ctx); err != nil {
			return fmt.Errorf("advance: %w", err)
		}
		if _, err := r.ctrl.ProcessTick(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) newRecord(req dispatch.Request) EpisodeRecord {
	st := host.StatusOf(r.ctrl.host)
	rec := EpisodeRecord{
		Episode:   r.episode,
		StartTick: r.ctrl.Tick(),
		Origin:    [2]int{req.Origin.Row, req.Origin.Col},
		Weather:   req.Weather.String(),
		Energy:    st.Energy,
		Observed:  req.Map.ObservedCount(),
	}
	for _, d := range req.Directions {
		rec.Directions = append(rec.Directions, d.String())
	}
	return rec
}

func fill(rec *EpisodeRecord, res dispatch.Result) {
	rec.Rounds = res.Rounds
	if res.Best == nil {
		return
	}
	rec.Direction = res.Direction.String()
	rec.Target = [2]int{res.Target.Row, res.Target.Col}
	rec.Remaining = res.Best.Remaining
	rec.Cost = res.Best.Cost
	if !math.IsInf(res.Best.Fitness, 0) && !math.IsNaN(res.Best.Fitness) {
		rec.Fitness = res.Best.Fitness
	}
	rec.Plan = FormatPlan(res.Best.Plan)
}

func (r *Runner) write(rec EpisodeRecord) {
	for _, s := range r.sinks {
		if err := s.WriteEpisode(rec); err != nil {
			r.log.Printf("episode sink: %v", err)
		}
	}
}
