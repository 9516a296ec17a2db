package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeTick    = "TICK"
	TypeAct     = "ACT"
	TypeResult  = "RESULT"
)

// Act operations.
const (
	OpStep       = "STEP"
	OpDestroy    = "DESTROY"
	OpDeposit    = "DEPOSIT"
	OpSense      = "SENSE"
	OpSenseLocal = "SENSE_LOCAL"
	OpSenseCost  = "SENSE_COST"
	OpMap        = "MAP"
	OpStatus     = "STATUS"
)

var knownOps = map[string]struct{}{
	OpStep:       {},
	OpDestroy:    {},
	OpDeposit:    {},
	OpSense:      {},
	OpSenseLocal: {},
	OpSenseCost:  {},
	OpMap:        {},
	OpStatus:     {},
}

func IsKnownOp(op string) bool {
	_, ok := knownOps[op]
	return ok
}

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
