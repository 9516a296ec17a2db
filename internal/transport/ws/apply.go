package ws

import (
	"errors"
	"fmt"

	"gridscout.ai/internal/protocol"
	"gridscout.ai/internal/sim/encoding"
	"gridscout.ai/internal/sim/grid"
	"gridscout.ai/internal/sim/host"
)

// apply runs one ACT against the world. Every RESULT carries the agent's
// position, energy and weather after the operation.
func (s *Server) apply(act protocol.ActMsg) protocol.ResultMsg {
	if act.ID == "" {
		return s.reject("", protocol.ErrBadRequest, "missing id")
	}
	if !protocol.IsKnownOp(act.Op) {
		return s.reject(act.ID, protocol.ErrBadRequest, fmt.Sprintf("unknown op %q", act.Op))
	}

	res := protocol.ResultMsg{ID: act.ID}
	var err error
	switch act.Op {
	case protocol.OpStep:
		var h grid.Heading
		if h, err = parseHeading(act); err == nil {
			_, err = s.world.Step(h)
		}
	case protocol.OpDestroy:
		var h grid.Heading
		if h, err = parseHeading(act); err == nil {
			err = s.world.Destroy(h)
		}
	case protocol.OpDeposit:
		var (
			h grid.Heading
			k grid.Interactable
		)
		if h, err = parseHeading(act); err == nil {
			if k, err = grid.ParseInteractable(act.Content); err != nil {
				err = fmt.Errorf("%w: %v", errBadRequest, err)
			} else {
				err = s.world.Deposit(k, act.Amount, h)
			}
		}
	case protocol.OpSense:
		var h grid.Heading
		if h, err = parseHeading(act); err == nil {
			err = s.world.Sense(h, act.Range)
		}
	case protocol.OpSenseLocal:
		err = s.world.SenseLocal(act.Range)
	case protocol.OpSenseCost:
		var cost int
		if cost, err = s.world.LocalSenseCost(act.Range); err == nil {
			res.Cost = &cost
		}
	case protocol.OpMap:
		var m *grid.Map
		if m, err = s.world.ObservedMap(); err == nil {
			cells, elev := encoding.EncodeMap(m)
			res.Map = &protocol.MapPayload{Size: m.Size(), CellsRLE: cells, ElevRLE: elev}
		}
	case protocol.OpStatus:
	}

	if err != nil {
		code := host.CodeOf(err)
		if errors.Is(err, errBadRequest) {
			code = protocol.ErrBadRequest
		}
		return s.reject(act.ID, code, err.Error())
	}
	res.OK = true
	s.stamp(&res)
	return res
}

func (s *Server) reject(id, code, message string) protocol.ResultMsg {
	res := protocol.ResultMsg{ID: id, Code: code, Message: message}
	s.stamp(&res)
	return res
}

func (s *Server) stamp(res *protocol.ResultMsg) {
	res.Type = protocol.TypeResult
	res.ProtocolVersion = protocol.Version
	p := s.world.Position()
	res.Pos = &[2]int{p.Row, p.Col}
	res.Energy = s.world.Energy()
	res.Weather = s.world.Weather().String()
}

var errBadRequest = errors.New("bad request")

func parseHeading(act protocol.ActMsg) (grid.Heading, error) {
	h, err := grid.ParseHeading(act.Heading)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return h, nil
}
