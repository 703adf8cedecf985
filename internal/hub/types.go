package hub

import (
	"sync"
	"time"

	"github.com/eclesh/welford"

	"github.com/hackfest/realtime/internal/envelope"
	"github.com/hackfest/realtime/internal/scope"
)

// Conn represents one live client connection. The hub owns every Conn
// exclusively; scope membership holds only the connection id, so removal
// invalidates all references at once.
type Conn struct {

	// ID is the opaque server-generated connection identifier
	ID string

	// Identity is the authenticated subject, or "anonymous"
	Identity string

	ConnectedAt time.Time

	// Send carries outbound envelopes to the transport write pump. Sends
	// are non-blocking; a recipient with a full buffer is skipped.
	Send chan envelope.Envelope

	// denormalized scope fields, maintained by Join/Leave under the hub
	// lock so presence queries need not re-scan the membership index
	eventScope   scope.Scope
	judging      bool
	judgingScope scope.Scope
}

// JudgeReport is one entry in a presence snapshot
type JudgeReport struct {
	Identity    string    `json:"identity"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// Stats holds running statistics for the hub
type Stats struct {
	mu sync.Mutex

	Audience *welford.Stats
	Bytes    *welford.Stats
	Latency  *welford.Stats
	Last     time.Time
}

// StatsReport represents hub statistics for external reporting
type StatsReport struct {
	Connections int     `json:"connections"`
	Scopes      int     `json:"scopes"`
	AudienceAvg float64 `json:"audienceAvg"`
	BytesAvg    float64 `json:"bytesAvg"`
	LatencyAvg  float64 `json:"latencyAvg"` //seconds
	Published   uint64  `json:"published"`
	Last        string  `json:"last"` //how many seconds ago...
}
