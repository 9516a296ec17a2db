package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"

	"gridscout.ai/internal/planner/action"
	"gridscout.ai/internal/planner/dispatch"
	"gridscout.ai/internal/planner/frontier"
	"gridscout.ai/internal/sim/grid"
	"gridscout.ai/internal/sim/host"
)

// Tick states reported by ProcessTick.
const (
	StateSearching = "searching"
	StateDeferred  = "deferred"
	StateLowEnergy = "low_energy"
	StateReady     = "ready"
	StateWaiting   = "waiting"
)

// Interest is a notable interactable seen near the agent.
type Interest struct {
	Pos     grid.Pos
	Content grid.Interactable
	Amount  int
}

// Controller is the tick-synchronous side of the agent. ProcessTick must be
// called from a single goroutine.
type Controller struct {
	host   host.Host
	cat    *grid.Catalog
	orch   *dispatch.Orchestrator
	shared *Shared
	cfg    Config
	log    *log.Logger

	offsets  frontier.Offsets
	boring   map[grid.Interactable]bool
	visited  map[grid.Pos]struct{}
	interest map[grid.Pos]Interest
	cargo    map[grid.Interactable]int
	ticks    []TickSink
	tick     uint64
}

func NewController(h host.Host, cat *grid.Catalog, orch *dispatch.Orchestrator, shared *Shared, cfg Config, logger *log.Logger) (*Controller, error) {
	if h == nil || orch == nil {
		return nil, fmt.Errorf("controller needs a host and an orchestrator")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cat == nil {
		cat = grid.DefaultCatalog()
	}
	if shared == nil {
		shared = NewShared()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	c := &Controller{
		host:     h,
		cat:      cat,
		orch:     orch,
		shared:   shared,
		cfg:      cfg,
		log:      logger,
		offsets:  orch.Offsets(),
		boring:   map[grid.Interactable]bool{grid.NoContent: true},
		visited:  map[grid.Pos]struct{}{},
		interest: map[grid.Pos]Interest{},
		cargo:    map[grid.Interactable]int{},
	}
	for _, k := range cfg.Uninteresting {
		c.boring[k] = true
	}
	return c, nil
}

func (c *Controller) Shared() *Shared { return c.shared }
func (c *Controller) Tick() uint64    { return c.tick }

// AddTickSink registers a sink for per-tick records.
func (c *Controller) AddTickSink(s TickSink) {
	if s != nil {
		c.ticks = append(c.ticks, s)
	}
}

// ProcessTick runs one tick of the state machine: wait while a search runs,
// gate on projected energy, drain the queue, then sense and publish the
// frontier for the next search.
func (c *Controller) ProcessTick(ctx context.Context) (TickRecord, error) {
	c.tick++
	rec, err := c.processTick(ctx)
	rec.Tick = c.tick
	if rec.State != StateSearching && rec.State != StateWaiting {
		st := host.StatusOf(c.host)
		rec.Pos = [2]int{st.Pos.Row, st.Pos.Col}
		rec.Energy = st.Energy
		rec.Weather = st.Weather.String()
		for _, s := range c.ticks {
			if werr := s.WriteTick(rec); werr != nil {
				c.log.Printf("tick sink: %v", werr)
			}
		}
	}
	return rec, err
}

func (c *Controller) processTick(ctx context.Context) (TickRecord, error) {
	if c.shared.Searching() {
		return TickRecord{State: StateSearching}, nil
	}
	if c.shared.Ready() {
		return TickRecord{State: StateWaiting}, nil
	}

	m, err := c.host.ObservedMap()
	if errors.Is(err, host.ErrMapUnavailable) {
		c.log.Printf("tick %d: map unavailable, deferring", c.tick)
		return TickRecord{State: StateDeferred}, nil
	}
	if err != nil {
		return TickRecord{}, fmt.Errorf("observed map: %w", err)
	}

	queue, _ := c.shared.Queue()
	need := c.ProjectCost(m, c.host.Position(), c.host.Weather(), queue)
	rec := TickRecord{Pending: pending(queue), Projected: need}
	if need > c.host.Energy() {
		c.shared.SetInsufficientEnergy(true)
		rec.State = StateLowEnergy
		return rec, nil
	}
	c.shared.SetInsufficientEnergy(false)

	n, err := c.drain(m, queue)
	rec.Executed = n
	if errors.Is(err, host.ErrInsufficientEnergy) {
		c.shared.SetInsufficientEnergy(true)
		rec.State = StateLowEnergy
		rec.Pending = c.shared.Pending()
		return rec, nil
	}
	if err != nil {
		return rec, err
	}
	c.shared.clearQueue()

	if err := c.observe(ctx); err != nil {
		if errors.Is(err, host.ErrInsufficientEnergy) {
			c.shared.SetInsufficientEnergy(true)
			rec.State = StateLowEnergy
			return rec, nil
		}
		if errors.Is(err, host.ErrMapUnavailable) {
			rec.State = StateDeferred
			return rec, nil
		}
		return rec, err
	}
	rec.State = StateReady
	rec.Pending = 0
	return rec, nil
}

// drain executes the queue in order, retiring each executed action. It stops
// on ErrInsufficientEnergy so the rest of the queue survives to the next tick.
func (c *Controller) drain(m *grid.Map, queue []action.Action) (int, error) {
	executed := 0
	for i, a := range queue {
		if a.IsNoOp() {
			continue
		}
		err := c.execute(m, a)
		switch {
		case errors.Is(err, host.ErrInsufficientEnergy):
			return executed, err
		case rejected(err):
			c.log.Printf("tick %d: %s rejected: %v", c.tick, a, err)
		case err != nil:
			return executed, err
		}
		c.shared.Retire(i)
		c.shared.SetPosition(c.host.Position())
		executed++
	}
	if executed > 0 {
		c.visited[c.host.Position()] = struct{}{}
	}
	return executed, nil
}

func rejected(err error) bool {
	return errors.Is(err, host.ErrBlocked) || errors.Is(err, host.ErrOutOfBounds) || errors.Is(err, host.ErrNotAllowed)
}

func (c *Controller) execute(m *grid.Map, a action.Action) error {
	h, ok := a.Heading()
	if !ok {
		return nil
	}
	target := c.host.Position().Add(a.Offset())

	if a.Deposit() {
		k, n := c.cargoToDeposit()
		if n == 0 {
			return nil
		}
		if err := c.host.Deposit(k, n, h); err != nil {
			return err
		}
		c.cargo[k] -= n
		return nil
	}

	if a.Destroy() {
		cell, _ := m.Cell(target)
		err := c.host.Destroy(h)
		switch {
		case errors.Is(err, host.ErrInsufficientEnergy):
			return err
		case err != nil:
			c.log.Printf("tick %d: destroy %s at %s: %v", c.tick, cell.Content, target, err)
		case cell.Content != grid.NoContent:
			c.cargo[cell.Content] += max(cell.Amount, 1)
		}
	}

	_, err := c.host.Step(h)
	return err
}

// cargoToDeposit picks the carried content with the most units.
func (c *Controller) cargoToDeposit() (grid.Interactable, int) {
	var (
		best grid.Interactable
		n    int
	)
	for k, v := range c.cargo {
		if v > n || (v == n && v > 0 && k < best) {
			best, n = k, v
		}
	}
	return best, n
}

// Cargo returns what the agent believes it carries.
func (c *Controller) Cargo() map[grid.Interactable]int {
	out := make(map[grid.Interactable]int, len(c.cargo))
	for k, v := range c.cargo {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

// observe senses around the agent, records interest points and publishes the
// frontier directions for the next search.
func (c *Controller) observe(ctx context.Context) error {
	pos := c.host.Position()
	before, err := c.host.ObservedMap()
	if err != nil {
		return err
	}
	unexplored := frontier.Unexplored(before, pos, c.offsets)

	if needsLocalSense(unexplored) {
		if err := c.host.SenseLocal(c.cfg.LocalRadius); err != nil {
			if !rejected(err) {
				return err
			}
			c.log.Printf("tick %d: local sense: %v", c.tick, err)
		}
	}
	for _, d := range unexplored {
		h, ok := d.Heading()
		if !ok || !before.InBounds(c.offsets.Raw(pos, d)) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.host.Sense(h, c.cfg.SenseRange); err != nil {
			if !rejected(err) {
				return err
			}
			c.log.Printf("tick %d: sense %s: %v", c.tick, h, err)
		}
	}

	m, err := c.host.ObservedMap()
	if err != nil {
		return err
	}
	dirs := c.frontierAfterSensing(m, pos, unexplored)
	c.recordInterest(m, pos)
	c.visited[pos] = struct{}{}

	c.shared.Publish(m, pos, c.host.Weather())
	c.shared.MarkReady(dirs)
	c.log.Printf("tick %d: at %s energy=%d observed=%d directions=%v", c.tick, pos, c.host.Energy(), m.ObservedCount(), dirs)
	return nil
}

// frontierAfterSensing keeps the unexplored directions whose target turned
// out walkable, falling back to the revisit set.
func (c *Controller) frontierAfterSensing(m *grid.Map, pos grid.Pos, unexplored []frontier.Direction) []frontier.Direction {
	reach := map[frontier.Direction]bool{}
	for _, d := range frontier.Reachable(m, pos, c.offsets, c.cat) {
		reach[d] = true
	}
	var dirs []frontier.Direction
	for _, d := range unexplored {
		if reach[d] {
			dirs = append(dirs, d)
		}
	}
	if len(dirs) > 0 {
		return dirs
	}
	return frontier.Revisit(m, pos, c.offsets, c.cat, c.visitedFunc(), c.cfg.Revisit)
}

// visitedFunc returns a lookup over a copy of the visited set, safe to hand
// to the search goroutine.
func (c *Controller) visitedFunc() func(grid.Pos) bool {
	seen := make(map[grid.Pos]struct{}, len(c.visited))
	for p := range c.visited {
		seen[p] = struct{}{}
	}
	return func(p grid.Pos) bool {
		_, ok := seen[p]
		return ok
	}
}

func (c *Controller) Visited(p grid.Pos) bool {
	_, ok := c.visited[p]
	return ok
}

func (c *Controller) recordInterest(m *grid.Map, pos grid.Pos) {
	r := c.cfg.SenseRange + 1
	for row := pos.Row - r; row <= pos.Row+r; row++ {
		for col := pos.Col - r; col <= pos.Col+r; col++ {
			p := grid.Pos{Row: row, Col: col}
			cell, ok := m.Cell(p)
			if !ok {
				continue
			}
			if c.boring[cell.Content] {
				delete(c.interest, p)
				continue
			}
			if old, seen := c.interest[p]; !seen || old.Content != cell.Content {
				c.log.Printf("tick %d: %s x%d at %s", c.tick, cell.Content, cell.Amount, p)
			}
			c.interest[p] = Interest{Pos: p, Content: cell.Content, Amount: cell.Amount}
		}
	}
}

// Interests lists recorded interest points in row-major order.
func (c *Controller) Interests() []Interest {
	out := make([]Interest, 0, len(c.interest))
	for _, v := range c.interest {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pos.Row != out[j].Pos.Row {
			return out[i].Pos.Row < out[j].Pos.Row
		}
		return out[i].Pos.Col < out[j].Pos.Col
	})
	return out
}

// StartSearch moves the shared state to searching and builds the request for
// the orchestrator. It reports false when the tick loop is not ready.
func (c *Controller) StartSearch() (dispatch.Request, bool) {
	if !c.shared.BeginSearch() {
		return dispatch.Request{}, false
	}
	m, pos, w := c.shared.Snapshot()
	visited := c.visitedFunc()
	offsets, cat, policy := c.offsets, c.cat, c.cfg.Revisit
	return dispatch.Request{
		Map:        m,
		Origin:     pos,
		Weather:    w,
		Directions: c.shared.Directions(),
		Revisit: func() []frontier.Direction {
			return frontier.Revisit(m, pos, offsets, cat, visited, policy)
		},
	}, true
}

// Search runs the orchestrator for req. It may be called from any goroutine.
func (c *Controller) Search(ctx context.Context, req dispatch.Request) (dispatch.Result, error) {
	return c.orch.Plan(ctx, req)
}

// Install queues the winning plan and ends the search.
func (c *Controller) Install(res dispatch.Result) {
	if res.Best == nil {
		c.shared.Install(nil, 0)
		return
	}
	c.shared.Install(res.Best.Plan, res.Best.Cost)
}

// Abort ends a failed search with an empty queue.
func (c *Controller) Abort() { c.shared.Abort() }
