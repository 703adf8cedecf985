// Package scope provides named broadcast groups for the notification hub.
// A scope is derived deterministically from a numeric identifier, so two
// callers naming the same event always land on the same group, and the
// family prefix keeps event, submission, judging and team groups from
// colliding.
package scope

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Family identifies which kind of broadcast group a scope belongs to
type Family string

// Families of scope
const (
	FamilyEvent      Family = "event"
	FamilySubmission Family = "submission"
	FamilyJudging    Family = "judging"
	FamilyTeam       Family = "team"
)

// Scope is an opaque, comparable key for one broadcast group. Construct
// with Event, Submission, Judging or Team rather than by string
// concatenation.
type Scope struct {
	family Family
	id     int64
}

// Event returns the scope for all participants and spectators of one event
func Event(eventID int64) Scope {
	return Scope{family: FamilyEvent, id: eventID}
}

// Submission returns the watch scope for one submission
func Submission(submissionID int64) Scope {
	return Scope{family: FamilySubmission, id: submissionID}
}

// Judging returns the scope for the judging session of one event
func Judging(eventID int64) Scope {
	return Scope{family: FamilyJudging, id: eventID}
}

// Team returns the scope for members of one team
func Team(teamID int64) Scope {
	return Scope{family: FamilyTeam, id: teamID}
}

// Family returns which family the scope belongs to
func (s Scope) Family() Family {
	return s.family
}

// ID returns the numeric identifier the scope was derived from
func (s Scope) ID() int64 {
	return s.id
}

// IsZero reports whether s is the zero value, i.e. no scope
func (s Scope) IsZero() bool {
	return s.family == ""
}

// String returns the wire form of the scope, e.g. "judging:42"
func (s Scope) String() string {
	return string(s.family) + ":" + strconv.FormatInt(s.id, 10)
}

// ErrBadScope is returned by Parse for strings that are not valid wire-form scopes
var ErrBadScope = errors.New("not a valid scope")

// Parse converts the wire form back into a Scope
func Parse(str string) (Scope, error) {

	parts := strings.SplitN(str, ":", 2)

	if len(parts) != 2 {
		return Scope{}, fmt.Errorf("%w: %s", ErrBadScope, str)
	}

	id, err := strconv.ParseInt(parts[1], 10, 64)

	if err != nil {
		return Scope{}, fmt.Errorf("%w: %s", ErrBadScope, str)
	}

	switch Family(parts[0]) {
	case FamilyEvent, FamilySubmission, FamilyJudging, FamilyTeam:
		return Scope{family: Family(parts[0]), id: id}, nil
	default:
		return Scope{}, fmt.Errorf("%w: unknown family %s", ErrBadScope, parts[0])
	}
}
