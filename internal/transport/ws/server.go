package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"gridscout.ai/internal/protocol"
	"gridscout.ai/internal/sim/world"
)

// Server hosts one world for one agent session at a time. Further
// connections are turned away with E_WORLD_BUSY.
type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	session *session
	joined  uint64

	droppedTicks atomic.Uint64
}

type session struct {
	agentID string
	out     chan []byte
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.handshake(conn)
		if sess == nil {
			return
		}
		defer s.release(sess)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeAct {
				continue
			}
			var act protocol.ActMsg
			var res protocol.ResultMsg
			if err := json.Unmarshal(msg, &act); err != nil {
				res = s.reject("", protocol.ErrBadRequest, "malformed ACT")
			} else if act.ProtocolVersion != protocol.Version {
				res = s.reject(act.ID, protocol.ErrBadRequest, "bad protocol_version")
			} else {
				res = s.apply(act)
			}
			b, err := json.Marshal(res)
			if err != nil {
				s.log.Printf("marshal result: %v", err)
				continue
			}
			select {
			case sess.out <- b:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		s.log.Printf("agent %s left", sess.agentID)
	}
}

func (s *Server) handshake(conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil
	}
	if hello.AgentName == "" {
		hello.AgentName = "agent"
	}

	s.mu.Lock()
	if s.session != nil {
		s.mu.Unlock()
		_ = writeJSON(conn, s.reject("", protocol.ErrWorldBusy, "world already has an agent"))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, protocol.ErrWorldBusy), time.Now().Add(time.Second))
		return nil
	}
	s.joined++
	sess := &session{
		agentID: fmt.Sprintf("A%d", s.joined),
		out:     make(chan []byte, 64),
	}
	s.session = sess
	s.mu.Unlock()

	cfg := s.world.Config()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		AgentID:         sess.agentID,
		WorldParams: protocol.WorldParams{
			WorldSize:  cfg.Size,
			TickRateHz: cfg.TickRateHz,
			Seed:       cfg.Seed,
		},
	}
	if err := writeJSON(conn, welcome); err != nil {
		s.release(sess)
		return nil
	}
	s.log.Printf("agent %s (%s) joined", sess.agentID, hello.AgentName)
	return sess
}

func (s *Server) release(sess *session) {
	s.mu.Lock()
	if s.session == sess {
		s.session = nil
	}
	s.mu.Unlock()
}

// BroadcastTick sends a TICK to the connected agent, if any. A slow client
// misses ticks rather than stalling the world.
func (s *Server) BroadcastTick(tick uint64) {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess == nil {
		return
	}
	b, err := json.Marshal(protocol.TickMsg{
		Type:            protocol.TypeTick,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Energy:          s.world.Energy(),
		Weather:         s.world.Weather().String(),
	})
	if err != nil {
		return
	}
	select {
	case sess.out <- b:
	default:
		s.droppedTicks.Add(1)
	}
}

type Metrics struct {
	Connected    bool
	Joined       uint64
	DroppedTicks uint64
}

func (s *Server) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Metrics{
		Connected:    s.session != nil,
		Joined:       s.joined,
		DroppedTicks: s.droppedTicks.Load(),
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
