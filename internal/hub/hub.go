// Package hub tracks live connections, their scope memberships and judge
// presence, and fans typed envelopes out to every member of a scope.
//
// All shared state lives behind one instance-owned mutex, so tests get
// isolation by constructing a fresh hub. Delivery is best effort: a
// recipient that is not keeping up is skipped, never waited for, and a
// failed delivery never aborts delivery to other members.
package hub

import (
	"sort"
	"sync"
	"time"

	"github.com/eclesh/welford"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	log "github.com/sirupsen/logrus"

	"github.com/hackfest/realtime/internal/envelope"
	"github.com/hackfest/realtime/internal/metrics"
	"github.com/hackfest/realtime/internal/scope"
)

// DefaultSendBuffer is the per-connection outbound buffer length
const DefaultSendBuffer = 256

// Hub is the connection registry, membership index and broadcast router
type Hub struct {
	mu sync.RWMutex

	// conns is the registry of live connections by id
	conns map[string]*Conn

	// scopes is the membership index; empty sets are deleted, not
	// tombstoned, so a scope exists only while someone is in it
	scopes map[scope.Scope]map[string]struct{}

	sendBuffer int

	m *metrics.Metrics

	Stats Stats
}

// New returns a pointer to an initialised Hub
func New() *Hub {
	return &Hub{
		conns:      make(map[string]*Conn),
		scopes:     make(map[scope.Scope]map[string]struct{}),
		sendBuffer: DefaultSendBuffer,
		Stats: Stats{
			Audience: welford.New(),
			Bytes:    welford.New(),
			Latency:  welford.New(),
		},
	}
}

// WithMetrics sets the prometheus collectors the hub updates
func (h *Hub) WithMetrics(m *metrics.Metrics) *Hub {
	h.m = m
	return h
}

// WithSendBuffer sets the per-connection outbound buffer length
func (h *Hub) WithSendBuffer(n int) *Hub {
	h.sendBuffer = n
	return h
}

// Admit allocates a connection record for an identity and returns it.
// Safe under concurrent admission; there is no capacity limit.
func (h *Hub) Admit(identity string) *Conn {

	if identity == "" {
		identity = "anonymous"
	}

	c := &Conn{
		ID:          uuid.New().String(),
		Identity:    identity,
		ConnectedAt: time.Now(),
		Send:        make(chan envelope.Envelope, h.sendBuffer),
	}

	h.mu.Lock()
	h.conns[c.ID] = c
	h.mu.Unlock()

	if h.m != nil {
		h.m.Connections.Inc()
	}

	log.WithFields(log.Fields{"id": c.ID, "identity": c.Identity}).Debug("connection admitted")

	return c
}

// Get looks up a connection by id
func (h *Hub) Get(id string) (*Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[id]
	return c, ok
}

// Remove deletes the connection and purges it from every scope in one
// critical section, so a broadcast never observes a half-removed
// connection. If the connection was an online judge, a JudgeOffline
// envelope goes to its judging scope before Remove returns. Unknown ids
// are a no-op.
func (h *Hub) Remove(id string) {

	h.mu.Lock()

	c, ok := h.conns[id]
	if !ok {
		h.mu.Unlock()
		return
	}

	wasJudging := c.judging && !c.judgingScope.IsZero()
	judgingScope := c.judgingScope
	identity := c.Identity

	for s, members := range h.scopes {
		delete(members, id)
		if len(members) == 0 {
			delete(h.scopes, s)
		}
	}

	delete(h.conns, id)

	h.mu.Unlock()

	if h.m != nil {
		h.m.Connections.Dec()
	}

	log.WithFields(log.Fields{"id": id, "identity": identity}).Debug("connection removed")

	if wasJudging {
		h.Publish(judgingScope, envelope.JudgeOffline, envelope.JudgePresence{Identity: identity, At: time.Now()})
	}
}

// Join adds the connection to a scope. Idempotent; a stale join after
// disconnect is a no-op. A connection holds at most one scope of the
// event family and one of the judging family, so joining a new scope of
// either family leaves the previous one; a judge switching judging
// scopes is announced offline to the scope it left.
func (h *Hub) Join(id string, s scope.Scope) {

	h.mu.Lock()

	left, identity := h.join(id, s)

	h.mu.Unlock()

	if !left.IsZero() {
		h.Publish(left, envelope.JudgeOffline, envelope.JudgePresence{Identity: identity, At: time.Now()})
	}
}

// join requires the caller to hold the write lock. When non-zero, left is
// a judging scope the connection was online in and has now departed; the
// caller must announce it after releasing the lock.
func (h *Hub) join(id string, s scope.Scope) (left scope.Scope, identity string) {

	c, ok := h.conns[id]
	if !ok {
		return
	}

	identity = c.Identity

	switch s.Family() {
	case scope.FamilyEvent:
		if !c.eventScope.IsZero() && c.eventScope != s {
			h.drop(id, c.eventScope)
		}
		c.eventScope = s
	case scope.FamilyJudging:
		if !c.judgingScope.IsZero() && c.judgingScope != s {
			h.drop(id, c.judgingScope)
			if c.judging {
				left = c.judgingScope
			}
		}
		c.judgingScope = s
	}

	members, ok := h.scopes[s]
	if !ok {
		members = make(map[string]struct{})
		h.scopes[s] = members
	}
	members[id] = struct{}{}

	return
}

// drop removes the connection from a scope set, deleting the set when it
// empties. Caller must hold the write lock.
func (h *Hub) drop(id string, s scope.Scope) {

	members, ok := h.scopes[s]
	if !ok {
		return
	}

	delete(members, id)
	if len(members) == 0 {
		delete(h.scopes, s)
	}
}

// Leave removes the connection from a scope. Removing a non-member is a
// no-op.
func (h *Hub) Leave(id string, s scope.Scope) {

	h.mu.Lock()
	defer h.mu.Unlock()

	h.drop(id, s)

	c, ok := h.conns[id]
	if !ok {
		return
	}

	switch s.Family() {
	case scope.FamilyEvent:
		if c.eventScope == s {
			c.eventScope = scope.Scope{}
		}
	case scope.FamilyJudging:
		if c.judgingScope == s {
			c.judgingScope = scope.Scope{}
		}
	}
}

// Publish fans an envelope out to every current member of the scope.
// Membership is snapshotted under the read lock then delivery happens
// outside it, so join/leave never wait on slow fan-out and fan-out never
// sees a half-updated set. Delivery to each recipient is non-blocking.
func (h *Hub) Publish(s scope.Scope, t envelope.EventType, payload interface{}) {

	env, err := envelope.New(t, s.String(), payload)
	if err != nil {
		log.WithFields(log.Fields{"scope": s.String(), "type": t, "error": err}).Error("dropping unmarshalable payload")
		return
	}

	h.mu.RLock()
	members := h.scopes[s]
	targets := make([]*Conn, 0, len(members))
	for id := range members {
		if c, ok := h.conns[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	if h.m != nil {
		h.m.Published.WithLabelValues(string(t)).Inc()
	}

	delivered := 0

	for _, c := range targets {
		select {
		case c.Send <- env:
			delivered++
			if h.m != nil {
				h.m.Delivered.Inc()
			}
		default:
			if h.m != nil {
				h.m.Dropped.Inc()
			}
			log.WithFields(log.Fields{"id": c.ID, "scope": s.String(), "type": t}).Debug("skipping unresponsive connection")
		}
	}

	h.Stats.mu.Lock()
	h.Stats.Audience.Add(float64(len(targets)))
	h.Stats.Last = time.Now()
	h.Stats.Bytes.Add(float64(len(env.Payload)))
	h.Stats.Latency.Add(time.Since(env.Sent).Seconds())
	h.Stats.mu.Unlock()

	log.WithFields(log.Fields{"scope": s.String(), "type": t, "delivered": delivered}).Trace("published")
}

// MarkJudgeOnline flags the connection as judging for an event, joins it
// to the judging scope and announces it to that scope. A judge already
// online for another event is announced offline there first.
func (h *Hub) MarkJudgeOnline(id string, eventID int64) {

	judgingScope := scope.Judging(eventID)

	h.mu.Lock()

	c, ok := h.conns[id]
	if !ok {
		h.mu.Unlock()
		return
	}

	left, identity := h.join(id, judgingScope)
	c.judging = true

	h.mu.Unlock()

	if !left.IsZero() {
		h.Publish(left, envelope.JudgeOffline, envelope.JudgePresence{Identity: identity, At: time.Now()})
	}

	h.Publish(judgingScope, envelope.JudgeOnline, envelope.JudgePresence{Identity: identity, At: time.Now()})
}

// MarkJudgeOffline clears the judging state, announces the departure to
// the judging scope, then leaves it. No-op for connections that are not
// judging.
func (h *Hub) MarkJudgeOffline(id string) {

	h.mu.Lock()

	c, ok := h.conns[id]
	if !ok || !c.judging || c.judgingScope.IsZero() {
		h.mu.Unlock()
		return
	}

	judgingScope := c.judgingScope
	identity := c.Identity
	c.judging = false

	h.mu.Unlock()

	h.Publish(judgingScope, envelope.JudgeOffline, envelope.JudgePresence{Identity: identity, At: time.Now()})

	h.Leave(id, judgingScope)
}

// ListOnlineJudges returns a point-in-time snapshot of the judges online
// for an event, ordered by connection time. An event with no online
// judges yields an empty slice. Reports are copies so callers never
// alias registry state.
func (h *Hub) ListOnlineJudges(eventID int64) []JudgeReport {

	judgingScope := scope.Judging(eventID)

	h.mu.RLock()

	judges := []*Conn{}
	for id := range h.scopes[judgingScope] {
		if c, ok := h.conns[id]; ok && c.judging {
			judges = append(judges, c)
		}
	}

	h.mu.RUnlock()

	sort.Slice(judges, func(i, j int) bool {
		return judges[i].ConnectedAt.Before(judges[j].ConnectedAt)
	})

	reports := []JudgeReport{}

	for _, c := range judges {
		report := JudgeReport{}
		if err := copier.Copy(&report, c); err != nil {
			log.WithField("error", err).Error("judge report copy error")
			continue
		}
		reports = append(reports, report)
	}

	return reports
}

// Report returns a snapshot of hub statistics
func (h *Hub) Report() StatsReport {

	h.mu.RLock()
	connections := len(h.conns)
	scopes := len(h.scopes)
	h.mu.RUnlock()

	h.Stats.mu.Lock()
	defer h.Stats.mu.Unlock()

	last := ""
	if !h.Stats.Last.IsZero() {
		last = time.Since(h.Stats.Last).String()
	}

	return StatsReport{
		Connections: connections,
		Scopes:      scopes,
		AudienceAvg: h.Stats.Audience.Mean(),
		BytesAvg:    h.Stats.Bytes.Mean(),
		LatencyAvg:  h.Stats.Latency.Mean(),
		Published:   h.Stats.Audience.Count(),
		Last:        last,
	}
}
