// Package host is the boundary between the agent and the simulation it runs
// in. The in-process world and the websocket client both implement Host.
package host

import (
	"errors"

	"gridscout.ai/internal/protocol"
	"gridscout.ai/internal/sim/grid"
)

var (
	ErrInsufficientEnergy = errors.New("insufficient energy")
	ErrBlocked            = errors.New("blocked")
	ErrOutOfBounds        = errors.New("out of bounds")
	ErrMapUnavailable     = errors.New("map unavailable")
	ErrNotAllowed         = errors.New("not allowed")
)

// Host is what the agent consumes from the simulation. Every call that
// spends energy fails with ErrInsufficientEnergy when it cannot be paid for.
type Host interface {
	// Sense reveals up to rng cells in a straight line from the agent.
	Sense(h grid.Heading, rng int) error
	// SenseLocal reveals the square of the given radius around the agent.
	SenseLocal(radius int) error
	// LocalSenseCost is the energy SenseLocal(radius) would spend now.
	LocalSenseCost(radius int) (int, error)

	Step(h grid.Heading) (grid.Pos, error)
	Destroy(h grid.Heading) error
	Deposit(content grid.Interactable, amount int, h grid.Heading) error

	// ObservedMap returns a snapshot the caller owns.
	ObservedMap() (*grid.Map, error)
	Energy() int
	Weather() grid.Weather
	Position() grid.Pos
}

// Status is a point-in-time read of the agent's vitals.
type Status struct {
	Pos     grid.Pos
	Energy  int
	Weather grid.Weather
}

func StatusOf(h Host) Status {
	return Status{Pos: h.Position(), Energy: h.Energy(), Weather: h.Weather()}
}

var codes = []struct {
	err  error
	code string
}{
	{ErrInsufficientEnergy, protocol.ErrNoEnergy},
	{ErrBlocked, protocol.ErrBlocked},
	{ErrOutOfBounds, protocol.ErrOutOfBounds},
	{ErrMapUnavailable, protocol.ErrMapUnavailable},
	{ErrNotAllowed, protocol.ErrNotAllowed},
}

// CodeOf maps an error to its wire code. Unrecognized errors are internal.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return protocol.ErrInternal
}

// ErrorOf maps a wire code back to a sentinel so callers can use errors.Is
// regardless of transport. Codes without a sentinel become a CodeError.
func ErrorOf(code, message string) error {
	if code == "" {
		return nil
	}
	for _, c := range codes {
		if c.code == code {
			if message == "" {
				return c.err
			}
			return &CodeError{Code: code, Message: message, err: c.err}
		}
	}
	return &CodeError{Code: code, Message: message}
}

type CodeError struct {
	Code    string
	Message string
	err     error
}

func (e *CodeError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

func (e *CodeError) Unwrap() error { return e.err }
