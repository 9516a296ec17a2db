package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentName       string `json:"agent_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	AgentID         string      `json:"agent_id"`
	WorldParams     WorldParams `json:"world_params"`
}

type WorldParams struct {
	WorldSize  int   `json:"world_size"`
	TickRateHz int   `json:"tick_rate_hz"`
	Seed       int64 `json:"seed"`
}

// TICK (server -> client), once per world tick.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Energy          int    `json:"energy"`
	Weather         string `json:"weather"`
}

// ACT (client -> server). One operation per message; the server answers
// with a RESULT carrying the same id.
type ActMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Op              string `json:"op"`
	Heading         string `json:"heading,omitempty"`
	Range           int    `json:"range,omitempty"`
	Content         string `json:"content,omitempty"`
	Amount          int    `json:"amount,omitempty"`
}

// RESULT (server -> client)
type ResultMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	ID              string      `json:"id"`
	OK              bool        `json:"ok"`
	Code            string      `json:"code,omitempty"`
	Message         string      `json:"message,omitempty"`
	Pos             *[2]int     `json:"pos,omitempty"`
	Energy          int         `json:"energy"`
	Weather         string      `json:"weather"`
	Cost            *int        `json:"cost,omitempty"`
	Map             *MapPayload `json:"map,omitempty"`
}

// MapPayload is the observed map: cells_rle packs terrain, content and
// amount per cell (0 = unobserved), elev_rle carries elevations.
type MapPayload struct {
	Size     int    `json:"size"`
	CellsRLE string `json:"cells_rle"`
	ElevRLE  string `json:"elev_rle"`
}
