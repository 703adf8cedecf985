package hub

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/hackfest/realtime/internal/envelope"
	"github.com/hackfest/realtime/internal/metrics"
	"github.com/hackfest/realtime/internal/scope"
)

func TestAdmitAndGet(t *testing.T) {

	h := New()

	c := h.Admit("alice")

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "alice", c.Identity)

	if time.Since(c.ConnectedAt) > time.Second {
		t.Error("connectedAt not set")
	}

	got, ok := h.Get(c.ID)
	assert.True(t, ok)
	assert.Equal(t, c, got)

	_, ok = h.Get("no-such-id")
	assert.False(t, ok)
}

func TestAdmitEmptyIdentityIsAnonymous(t *testing.T) {

	h := New()

	c := h.Admit("")
	assert.Equal(t, "anonymous", c.Identity)
}

func TestConcurrentAdmitRemove(t *testing.T) {

	h := New()

	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c := h.Admit(fmt.Sprintf("user-%d", n))
			h.Join(c.ID, scope.Event(int64(n%5)))
			h.Remove(c.ID)
		}(i)
	}

	wg.Wait()

	h.mu.RLock()
	defer h.mu.RUnlock()
	assert.Equal(t, 0, len(h.conns))
	assert.Equal(t, 0, len(h.scopes))
}

func TestPublishReachesMembersOnly(t *testing.T) {

	h := New()

	a := h.Admit("a")
	b := h.Admit("b")
	c := h.Admit("c")

	h.Join(a.ID, scope.Event(7))
	h.Join(b.ID, scope.Event(7))
	h.Join(c.ID, scope.Event(8))

	h.Publish(scope.Event(7), envelope.SubmissionCreated, envelope.SubmissionSummary{ID: 1, EventID: 7, Title: "demo"})

	for _, conn := range []*Conn{a, b} {
		select {
		case env := <-conn.Send:
			assert.Equal(t, envelope.SubmissionCreated, env.Type)
			assert.Equal(t, "event:7", env.Scope)
		default:
			t.Errorf("member %s did not receive envelope", conn.Identity)
		}
	}

	select {
	case <-c.Send:
		t.Error("non-member received envelope")
	default:
	}
}

func TestJoinNewEventScopeLeavesPrevious(t *testing.T) {

	// a connection holds one home event at a time; joining another
	// moves it rather than accumulating memberships
	h := New()

	c := h.Admit("alice")

	h.Join(c.ID, scope.Event(7))
	h.Join(c.ID, scope.Event(8))

	h.Publish(scope.Event(7), envelope.SubmissionCreated, envelope.SubmissionSummary{ID: 1, EventID: 7})

	select {
	case <-c.Send:
		t.Error("received envelope for abandoned event scope")
	default:
	}

	h.Publish(scope.Event(8), envelope.SubmissionCreated, envelope.SubmissionSummary{ID: 2, EventID: 8})

	select {
	case env := <-c.Send:
		assert.Equal(t, "event:8", env.Scope)
	default:
		t.Error("did not receive envelope for current event scope")
	}

	// the abandoned scope's member set is gone, not tombstoned
	h.mu.RLock()
	_, ok := h.scopes[scope.Event(7)]
	h.mu.RUnlock()
	assert.False(t, ok)

	// submission and team scopes still accumulate
	h.Join(c.ID, scope.Submission(42))
	h.Join(c.ID, scope.Submission(43))

	h.Publish(scope.Submission(42), envelope.CommentAdded, envelope.CommentSummary{ID: 1, SubmissionID: 42})
	h.Publish(scope.Submission(43), envelope.CommentAdded, envelope.CommentSummary{ID: 2, SubmissionID: 43})
	assert.Equal(t, 2, len(c.Send))
}

func TestPublishToEmptyScopeIsNoop(t *testing.T) {

	h := New()

	// no members; should not panic or block
	h.Publish(scope.Event(404), envelope.WinnerAnnounced, envelope.WinnerSummary{EventID: 404})
}

func TestMembershipPurgeOnRemove(t *testing.T) {

	h := New()

	c := h.Admit("carol")
	watcher := h.Admit("watcher")

	scopes := []scope.Scope{scope.Event(7), scope.Submission(42), scope.Submission(43), scope.Team(3)}

	for _, s := range scopes {
		h.Join(c.ID, s)
		h.Join(watcher.ID, s)
	}

	h.Remove(c.ID)

	for _, s := range scopes {
		h.Publish(s, envelope.SubmissionStatusChanged, envelope.StatusChange{SubmissionID: 42, Status: "approved"})
	}

	// the removed connection must receive nothing
	select {
	case <-c.Send:
		t.Error("removed connection received envelope")
	default:
	}

	// the surviving member receives one envelope per scope
	assert.Equal(t, len(scopes), len(watcher.Send))
}

func TestJoinIsIdempotent(t *testing.T) {

	h := New()

	c := h.Admit("dana")

	h.Join(c.ID, scope.Submission(42))
	h.Join(c.ID, scope.Submission(42))

	h.Publish(scope.Submission(42), envelope.CommentAdded, envelope.CommentSummary{ID: 1, SubmissionID: 42, Author: "eve"})

	// present exactly once, so exactly one copy arrives
	assert.Equal(t, 1, len(c.Send))
}

func TestLeaveNonMemberIsNoop(t *testing.T) {

	h := New()

	c := h.Admit("erin")

	h.Leave(c.ID, scope.Event(7))          // never joined
	h.Leave("no-such-id", scope.Event(7)) // never admitted

	h.Join(c.ID, scope.Event(7))
	h.Leave(c.ID, scope.Event(7))
	h.Leave(c.ID, scope.Event(7)) // second leave is a no-op

	h.Publish(scope.Event(7), envelope.SubmissionDeleted, envelope.SubmissionRef{SubmissionID: 9})

	assert.Equal(t, 0, len(c.Send))
}

func TestStaleJoinAfterRemoveIsNoop(t *testing.T) {

	h := New()

	c := h.Admit("frank")
	h.Remove(c.ID)

	h.Join(c.ID, scope.Event(7)) // arrives after disconnect

	h.mu.RLock()
	defer h.mu.RUnlock()
	assert.Equal(t, 0, len(h.scopes))
}

func TestPerConnectionFIFO(t *testing.T) {

	h := New()

	c := h.Admit("gail")
	h.Join(c.ID, scope.Event(7))

	for i := 0; i < 10; i++ {
		h.Publish(scope.Event(7), envelope.SubmissionStatusChanged, envelope.StatusChange{SubmissionID: int64(i), Status: "approved"})
	}

	for i := 0; i < 10; i++ {
		env := <-c.Send
		p, err := env.DecodePayload()
		assert.NoError(t, err)
		assert.Equal(t, int64(i), p.(*envelope.StatusChange).SubmissionID)
	}
}

func TestSlowConnectionIsSkipped(t *testing.T) {

	h := New().WithSendBuffer(1)

	slow := h.Admit("slow")
	fast := h.Admit("fast")

	h.Join(slow.ID, scope.Event(7))
	h.Join(fast.ID, scope.Event(7))

	// nobody drains slow.Send; second publish overflows its buffer but
	// must still reach the healthy connection
	h.Publish(scope.Event(7), envelope.SubmissionDeleted, envelope.SubmissionRef{SubmissionID: 1})
	h.Publish(scope.Event(7), envelope.SubmissionDeleted, envelope.SubmissionRef{SubmissionID: 2})

	assert.Equal(t, 1, len(slow.Send))
	assert.Equal(t, 2, len(fast.Send))
}

func TestMetricsCounters(t *testing.T) {

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	h := New().WithMetrics(m).WithSendBuffer(1)

	a := h.Admit("a")
	b := h.Admit("b")
	h.Join(a.ID, scope.Event(1))
	h.Join(b.ID, scope.Event(1))

	h.Publish(scope.Event(1), envelope.SubmissionDeleted, envelope.SubmissionRef{SubmissionID: 1})
	h.Publish(scope.Event(1), envelope.SubmissionDeleted, envelope.SubmissionRef{SubmissionID: 2})

	mfs, err := reg.Gather()
	assert.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range mfs {
		for _, metric := range mf.GetMetric() {
			if metric.GetCounter() != nil {
				values[mf.GetName()] += metric.GetCounter().GetValue()
			}
			if metric.GetGauge() != nil {
				values[mf.GetName()] += metric.GetGauge().GetValue()
			}
		}
	}

	assert.Equal(t, float64(2), values["realtime_connections"])
	assert.Equal(t, float64(2), values["realtime_published_total"])
	assert.Equal(t, float64(2), values["realtime_delivered_total"])
	assert.Equal(t, float64(2), values["realtime_dropped_total"])

	h.Remove(a.ID)
	h.Remove(b.ID)
}

func TestReport(t *testing.T) {

	h := New()

	a := h.Admit("a")
	h.Join(a.ID, scope.Event(1))

	h.Publish(scope.Event(1), envelope.SubmissionDeleted, envelope.SubmissionRef{SubmissionID: 1})

	r := h.Report()

	assert.Equal(t, 1, r.Connections)
	assert.Equal(t, 1, r.Scopes)
	assert.Equal(t, uint64(1), r.Published)
	assert.Equal(t, 1.0, r.AudienceAvg)
	assert.NotEmpty(t, r.Last)
}
