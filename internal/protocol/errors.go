package protocol

const (
	// Protocol/transport validation.
	ErrBadRequest = "E_BAD_REQUEST"

	// World routing/state.
	ErrWorldBusy      = "E_WORLD_BUSY"
	ErrMapUnavailable = "E_MAP_UNAVAILABLE"

	// Action layer.
	ErrNoEnergy    = "E_NO_ENERGY"
	ErrBlocked     = "E_BLOCKED"
	ErrOutOfBounds = "E_OUT_OF_BOUNDS"
	ErrNotAllowed  = "E_NOT_ALLOWED"
	ErrInternal    = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:     {},
	ErrWorldBusy:      {},
	ErrMapUnavailable: {},
	ErrNoEnergy:       {},
	ErrBlocked:        {},
	ErrOutOfBounds:    {},
	ErrNotAllowed:     {},
	ErrInternal:       {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
