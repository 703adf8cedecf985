// Package envelope defines the typed messages pushed from the hub to
// clients. The event-type tags form a closed set; payloads are tagged
// variants so both the router and the client decoder match exhaustively
// instead of handling untyped blobs.
package envelope

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType tags an envelope with what happened
type EventType string

// The closed set of event-type tags
const (
	SubmissionCreated          EventType = "SubmissionCreated"
	CommentAdded               EventType = "CommentAdded"
	RatingSubmitted            EventType = "RatingSubmitted"
	SubmissionDeleted          EventType = "SubmissionDeleted"
	SubmissionStatusChanged    EventType = "SubmissionStatusChanged"
	JudgingDeadlineApproaching EventType = "JudgingDeadlineApproaching"
	WinnerAnnounced            EventType = "WinnerAnnounced"
	TeamMemberJoined           EventType = "TeamMemberJoined"
	TeamMemberLeft             EventType = "TeamMemberLeft"
	JudgeOnline                EventType = "JudgeOnline"
	JudgeOffline               EventType = "JudgeOffline"
	JudgeList                  EventType = "JudgeList"
)

// Envelope is the wire-level unit pushed to clients. It is fire-and-forget;
// a client that is offline when an envelope is sent never receives it.
type Envelope struct {
	Type    EventType       `json:"type"`
	Scope   string          `json:"scope"` //wire form of the scope that triggered delivery
	Sent    time.Time       `json:"sent"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubmissionSummary describes a submission for event-wide notifications
type SubmissionSummary struct {
	ID       int64  `json:"id"`
	EventID  int64  `json:"eventId"`
	Title    string `json:"title"`
	TeamName string `json:"teamName,omitempty"`
	Author   string `json:"author,omitempty"`
}

// SubmissionRef identifies a submission, used where only the id is needed
type SubmissionRef struct {
	SubmissionID int64 `json:"submissionId"`
}

// CommentSummary describes a new comment
type CommentSummary struct {
	ID           int64  `json:"id"`
	SubmissionID int64  `json:"submissionId"`
	Author       string `json:"author"`
	Excerpt      string `json:"excerpt,omitempty"`
}

// RatingSummary describes a submitted rating
type RatingSummary struct {
	SubmissionID int64   `json:"submissionId"`
	Judge        string  `json:"judge"`
	Score        float64 `json:"score"`
}

// StatusChange describes a submission moving to a new status
type StatusChange struct {
	SubmissionID int64  `json:"submissionId"`
	Status       string `json:"status"`
}

// DeadlineNotice warns judges of an approaching deadline
type DeadlineNotice struct {
	Deadline       time.Time `json:"deadline"`
	HoursRemaining float64   `json:"hoursRemaining"`
}

// WinnerSummary announces a winning submission
type WinnerSummary struct {
	EventID      int64  `json:"eventId"`
	SubmissionID int64  `json:"submissionId"`
	Title        string `json:"title"`
	TeamName     string `json:"teamName,omitempty"`
}

// MemberSummary describes a team membership change
type MemberSummary struct {
	TeamID   int64  `json:"teamId"`
	Identity string `json:"identity"`
}

// JudgePresence describes a judge coming online or going offline
type JudgePresence struct {
	Identity string    `json:"identity"`
	At       time.Time `json:"at"`
}

// Judge is one entry in a JudgeRoster
type Judge struct {
	Identity    string    `json:"identity"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// JudgeRoster is the response to a list-judges request
type JudgeRoster struct {
	EventID int64   `json:"eventId"`
	Judges  []Judge `json:"judges"`
}

// New wraps a payload in an envelope, stamping the send time. The payload
// must be one of the variant structs above; callers that pass anything else
// get the marshalling error back rather than a malformed envelope on the
// wire.
func New(t EventType, scope string, payload interface{}) (Envelope, error) {

	var raw json.RawMessage

	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, err
		}
		raw = b
	}

	return Envelope{
		Type:    t,
		Scope:   scope,
		Sent:    time.Now(),
		Payload: raw,
	}, nil
}

// Decode unmarshals wire bytes into an Envelope
func Decode(data []byte) (Envelope, error) {

	var e Envelope

	err := json.Unmarshal(data, &e)

	return e, err
}

// DecodePayload returns the typed variant for the envelope's tag. Unknown
// tags are an error so that a client talking to a newer server fails
// loudly rather than mis-rendering.
func (e Envelope) DecodePayload() (interface{}, error) {

	switch e.Type {
	case SubmissionCreated:
		var p SubmissionSummary
		return &p, json.Unmarshal(e.Payload, &p)
	case CommentAdded:
		var p CommentSummary
		return &p, json.Unmarshal(e.Payload, &p)
	case RatingSubmitted:
		var p RatingSummary
		return &p, json.Unmarshal(e.Payload, &p)
	case SubmissionDeleted:
		var p SubmissionRef
		return &p, json.Unmarshal(e.Payload, &p)
	case SubmissionStatusChanged:
		var p StatusChange
		return &p, json.Unmarshal(e.Payload, &p)
	case JudgingDeadlineApproaching:
		var p DeadlineNotice
		return &p, json.Unmarshal(e.Payload, &p)
	case WinnerAnnounced:
		var p WinnerSummary
		return &p, json.Unmarshal(e.Payload, &p)
	case TeamMemberJoined, TeamMemberLeft:
		var p MemberSummary
		return &p, json.Unmarshal(e.Payload, &p)
	case JudgeOnline, JudgeOffline:
		var p JudgePresence
		return &p, json.Unmarshal(e.Payload, &p)
	case JudgeList:
		var p JudgeRoster
		return &p, json.Unmarshal(e.Payload, &p)
	default:
		return nil, fmt.Errorf("unknown event type %s", e.Type)
	}
}
