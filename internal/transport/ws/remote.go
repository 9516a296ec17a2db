package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gridscout.ai/internal/protocol"
	"gridscout.ai/internal/sim/encoding"
	"gridscout.ai/internal/sim/grid"
	"gridscout.ai/internal/sim/host"
)

var (
	ErrWorldBusy = errors.New("world busy")
	ErrClosed    = errors.New("connection closed")
)

// Remote is a host.Host backed by a websocket session. Calls are
// synchronous round trips; vitals are cached from the latest TICK or RESULT.
type Remote struct {
	conn    *websocket.Conn
	log     *log.Logger
	timeout time.Duration

	agentID string
	params  protocol.WorldParams

	writeMu sync.Mutex

	// mu guards timeout and the fields below.
	mu      sync.Mutex
	pending map[string]chan protocol.ResultMsg
	nextID  uint64
	tick    uint64
	energy  int
	weather grid.Weather
	pos     grid.Pos
	tickCh  chan struct{}
	done    chan struct{}
	err     error
}

// Dial connects to url, performs the HELLO/WELCOME handshake and reads the
// agent's initial status.
func Dial(ctx context.Context, url, name string, logger *log.Logger) (*Remote, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send HELLO: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read WELCOME: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read WELCOME: %w", err)
	}
	switch base.Type {
	case protocol.TypeWelcome:
	case protocol.TypeResult:
		var res protocol.ResultMsg
		_ = json.Unmarshal(msg, &res)
		conn.Close()
		if res.Code == protocol.ErrWorldBusy {
			return nil, ErrWorldBusy
		}
		return nil, fmt.Errorf("handshake rejected: %s %s", res.Code, res.Message)
	default:
		conn.Close()
		return nil, fmt.Errorf("expected WELCOME, got %s", base.Type)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &welcome); err != nil {
		conn.Close()
		return nil, fmt.Errorf("decode WELCOME: %w", err)
	}

	r := &Remote{
		conn:    conn,
		log:     logger,
		timeout: 10 * time.Second,
		agentID: welcome.AgentID,
		params:  welcome.WorldParams,
		pending: map[string]chan protocol.ResultMsg{},
		tickCh:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go r.readLoop()
	if _, err := r.call(protocol.ActMsg{Op: protocol.OpStatus}); err != nil {
		r.Close()
		return nil, fmt.Errorf("status: %w", err)
	}
	logger.Printf("WELCOME agent_id=%s world_size=%d tick_rate=%d seed=%d",
		welcome.AgentID, welcome.WorldParams.WorldSize, welcome.WorldParams.TickRateHz, welcome.WorldParams.Seed)
	return r, nil
}

func (r *Remote) AgentID() string              { return r.agentID }
func (r *Remote) Params() protocol.WorldParams { return r.params }
func (r *Remote) Done() <-chan struct{}        { return r.done }

// SetTimeout bounds how long each action waits for its RESULT. It is safe to
// call while actions are in flight; those keep their old deadline.
func (r *Remote) SetTimeout(d time.Duration) {
	r.mu.Lock()
	r.timeout = d
	r.mu.Unlock()
}

func (r *Remote) Close() error {
	r.writeMu.Lock()
	_ = r.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	r.writeMu.Unlock()
	err := r.conn.Close()
	<-r.done
	return err
}

func (r *Remote) readLoop() {
	defer func() {
		r.mu.Lock()
		if r.err == nil {
			r.err = ErrClosed
		}
		r.mu.Unlock()
		close(r.done)
	}()
	for {
		_, msg, err := r.conn.ReadMessage()
		if err != nil {
			r.mu.Lock()
			r.err = fmt.Errorf("%w: %v", ErrClosed, err)
			r.mu.Unlock()
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeTick:
			var t protocol.TickMsg
			if err := json.Unmarshal(msg, &t); err != nil {
				continue
			}
			r.mu.Lock()
			if t.Tick > r.tick {
				r.tick = t.Tick
			}
			r.energy = t.Energy
			if w, err := grid.ParseWeather(t.Weather); err == nil {
				r.weather = w
			}
			r.mu.Unlock()
			select {
			case r.tickCh <- struct{}{}:
			default:
			}
		case protocol.TypeResult:
			var res protocol.ResultMsg
			if err := json.Unmarshal(msg, &res); err != nil {
				continue
			}
			r.mu.Lock()
			r.energy = res.Energy
			if w, err := grid.ParseWeather(res.Weather); err == nil {
				r.weather = w
			}
			if res.Pos != nil {
				r.pos = grid.Pos{Row: res.Pos[0], Col: res.Pos[1]}
			}
			ch := r.pending[res.ID]
			delete(r.pending, res.ID)
			r.mu.Unlock()
			if ch != nil {
				ch <- res
			}
		}
	}
}

// call sends act and waits for its RESULT. A failed RESULT is mapped back to
// the host sentinels.
func (r *Remote) call(act protocol.ActMsg) (protocol.ResultMsg, error) {
	act.Type = protocol.TypeAct
	act.ProtocolVersion = protocol.Version
	ch := make(chan protocol.ResultMsg, 1)

	r.mu.Lock()
	if r.err != nil {
		err := r.err
		r.mu.Unlock()
		return protocol.ResultMsg{}, err
	}
	r.nextID++
	act.ID = "a" + strconv.FormatUint(r.nextID, 10)
	r.pending[act.ID] = ch
	timeout := r.timeout
	r.mu.Unlock()

	r.writeMu.Lock()
	_ = r.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	err := r.conn.WriteJSON(act)
	r.writeMu.Unlock()
	if err != nil {
		r.forget(act.ID)
		return protocol.ResultMsg{}, fmt.Errorf("send %s: %w", act.Op, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		if !res.OK {
			return res, host.ErrorOf(res.Code, res.Message)
		}
		return res, nil
	case <-r.done:
		return protocol.ResultMsg{}, r.closedErr()
	case <-timer.C:
		r.forget(act.ID)
		return protocol.ResultMsg{}, fmt.Errorf("%s %s: timed out after %s", act.Op, act.ID, timeout)
	}
}

func (r *Remote) forget(id string) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

func (r *Remote) closedErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Advance blocks until the server reports a tick newer than the last one
// seen.
func (r *Remote) Advance(ctx context.Context) error {
	r.mu.Lock()
	start := r.tick
	r.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.done:
			return r.closedErr()
		case <-r.tickCh:
		}
		r.mu.Lock()
		now := r.tick
		r.mu.Unlock()
		if now > start {
			return nil
		}
	}
}

// Tick is the latest server tick seen.
func (r *Remote) Tick() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tick
}

func (r *Remote) Sense(h grid.Heading, rng int) error {
	_, err := r.call(protocol.ActMsg{Op: protocol.OpSense, Heading: h.String(), Range: rng})
	return err
}

func (r *Remote) SenseLocal(radius int) error {
	_, err := r.call(protocol.ActMsg{Op: protocol.OpSenseLocal, Range: radius})
	return err
}

func (r *Remote) LocalSenseCost(radius int) (int, error) {
	res, err := r.call(protocol.ActMsg{Op: protocol.OpSenseCost, Range: radius})
	if err != nil {
		return 0, err
	}
	if res.Cost == nil {
		return 0, fmt.Errorf("%s: result without cost", protocol.OpSenseCost)
	}
	return *res.Cost, nil
}

func (r *Remote) Step(h grid.Heading) (grid.Pos, error) {
	_, err := r.call(protocol.ActMsg{Op: protocol.OpStep, Heading: h.String()})
	return r.Position(), err
}

func (r *Remote) Destroy(h grid.Heading) error {
	_, err := r.call(protocol.ActMsg{Op: protocol.OpDestroy, Heading: h.String()})
	return err
}

func (r *Remote) Deposit(content grid.Interactable, amount int, h grid.Heading) error {
	_, err := r.call(protocol.ActMsg{Op: protocol.OpDeposit, Heading: h.String(), Content: content.String(), Amount: amount})
	return err
}

func (r *Remote) ObservedMap() (*grid.Map, error) {
	res, err := r.call(protocol.ActMsg{Op: protocol.OpMap})
	if err != nil {
		return nil, err
	}
	if res.Map == nil {
		return nil, fmt.Errorf("%w: result without map", host.ErrMapUnavailable)
	}
	m, err := encoding.DecodeMap(res.Map.Size, res.Map.CellsRLE, res.Map.ElevRLE)
	if err != nil {
		return nil, fmt.Errorf("decode map: %w", err)
	}
	return m, nil
}

func (r *Remote) Energy() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.energy
}

func (r *Remote) Weather() grid.Weather {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.weather
}

func (r *Remote) Position() grid.Pos {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

var _ host.Host = (*Remote)(nil)
