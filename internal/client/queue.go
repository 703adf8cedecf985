package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/hackfest/realtime/internal/envelope"
)

// DefaultDisplayWindow is how long a notification stays visible before
// removing itself
const DefaultDisplayWindow = 10 * time.Second

// Notification is a user-facing item derived from an inbound envelope.
// It lives only in the queue and is never synchronized to the server.
type Notification struct {
	ID        string
	Category  string
	Title     string
	Message   string
	Read      bool
	ArrivedAt time.Time
}

// Queue is a bounded, self-expiring list of notifications, newest first,
// decoupled from the transport
type Queue struct {
	mu sync.Mutex

	window time.Duration

	items []Notification

	timers map[string]*time.Timer

	closed bool
}

// NewQueue returns a queue with the default display window
func NewQueue() *Queue {
	return &Queue{
		window: DefaultDisplayWindow,
		timers: make(map[string]*time.Timer),
	}
}

// WithWindow sets the display window; short windows help tests
func (q *Queue) WithWindow(window time.Duration) *Queue {
	q.window = window
	return q
}

// Enqueue surfaces an envelope as a notification. Prepend, not append:
// newest on top. Returns false for envelopes with no user-facing
// rendering, such as judge list responses.
func (q *Queue) Enqueue(env envelope.Envelope) bool {

	category, title, message, ok := render(env)
	if !ok {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	arrived := time.Now()

	n := Notification{
		ID:        fmt.Sprintf("%s-%d", env.Type, arrived.UnixNano()),
		Category:  category,
		Title:     title,
		Message:   message,
		ArrivedAt: arrived,
	}

	q.items = append([]Notification{n}, q.items...)

	q.timers[n.ID] = time.AfterFunc(q.window, func() {
		q.remove(n.ID)
	})

	return true
}

// Items returns a snapshot of the visible notifications, newest first
func (q *Queue) Items() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := make([]Notification, len(q.items))
	copy(items, q.items)
	return items
}

// MarkRead flags a notification as read; it still expires on schedule
func (q *Queue) MarkRead(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.items {
		if q.items[i].ID == id {
			q.items[i].Read = true
			return
		}
	}
}

// Dismiss removes one notification early. Dismissing an item that has
// already expired is a safe no-op.
func (q *Queue) Dismiss(id string) {
	q.remove(id)
}

// Clear empties the list immediately
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.items = nil
}

// Close empties the list and prevents any further expiry callback from
// firing after teardown
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.items = nil
	q.closed = true
}

func (q *Queue) remove(id string) {

	q.mu.Lock()
	defer q.mu.Unlock()

	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}

	for i := range q.items {
		if q.items[i].ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

// render maps an envelope to its display category, title and message.
// The mapping is a closed table; envelopes with no row return ok false.
func render(env envelope.Envelope) (category, title, message string, ok bool) {

	p, err := env.DecodePayload()
	if err != nil {
		return "", "", "", false
	}

	switch env.Type {

	case envelope.SubmissionCreated:
		s := p.(*envelope.SubmissionSummary)
		return "submissions", "New submission", fmt.Sprintf("%s was submitted", s.Title), true

	case envelope.CommentAdded:
		c := p.(*envelope.CommentSummary)
		return "comments", "New comment", fmt.Sprintf("%s commented on a submission", c.Author), true

	case envelope.RatingSubmitted:
		r := p.(*envelope.RatingSummary)
		return "judging", "Rating submitted", fmt.Sprintf("%s scored a submission", r.Judge), true

	case envelope.SubmissionDeleted:
		return "submissions", "Submission removed", "A submission was removed", true

	case envelope.SubmissionStatusChanged:
		s := p.(*envelope.StatusChange)
		return "submissions", "Status changed", fmt.Sprintf("A submission is now %s", s.Status), true

	case envelope.JudgingDeadlineApproaching:
		d := p.(*envelope.DeadlineNotice)
		return "judging", "Deadline approaching", fmt.Sprintf("%.0f hours left to judge", d.HoursRemaining), true

	case envelope.WinnerAnnounced:
		ws := p.(*envelope.WinnerSummary)
		return "results", "Winner announced", fmt.Sprintf("%s wins", ws.Title), true

	case envelope.TeamMemberJoined:
		m := p.(*envelope.MemberSummary)
		return "teams", "Team member joined", fmt.Sprintf("%s joined the team", m.Identity), true

	case envelope.TeamMemberLeft:
		m := p.(*envelope.MemberSummary)
		return "teams", "Team member left", fmt.Sprintf("%s left the team", m.Identity), true

	case envelope.JudgeOnline:
		j := p.(*envelope.JudgePresence)
		return "judging", "Judge online", fmt.Sprintf("%s is now judging", j.Identity), true

	case envelope.JudgeOffline:
		j := p.(*envelope.JudgePresence)
		return "judging", "Judge offline", fmt.Sprintf("%s stopped judging", j.Identity), true

	default:
		// JudgeList and anything unrecognized has no toast
		return "", "", "", false
	}
}
