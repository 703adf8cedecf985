package gateway

import (
	"fmt"
	"time"

	"github.com/hackfest/realtime/internal/envelope"
	"github.com/hackfest/realtime/internal/hub"
	"github.com/hackfest/realtime/internal/scope"
)

// dispatch maps one domain event to its recipient scope or scopes and
// publishes. Comment and rating events fan out to two scopes; each
// publish is independent and best effort.
func dispatch(h *hub.Hub, ev DomainEvent) error {

	switch envelope.EventType(ev.Type) {

	case envelope.SubmissionCreated:
		h.Publish(scope.Event(ev.EventID), envelope.SubmissionCreated,
			envelope.SubmissionSummary{ID: ev.SubmissionID, EventID: ev.EventID, Title: ev.Title, TeamName: ev.TeamName, Author: ev.Author})

	case envelope.CommentAdded:
		payload := envelope.CommentSummary{ID: ev.CommentID, SubmissionID: ev.SubmissionID, Author: ev.Author, Excerpt: ev.Excerpt}
		h.Publish(scope.Event(ev.EventID), envelope.CommentAdded, payload)
		h.Publish(scope.Submission(ev.SubmissionID), envelope.CommentAdded, payload)

	case envelope.RatingSubmitted:
		payload := envelope.RatingSummary{SubmissionID: ev.SubmissionID, Judge: ev.Judge, Score: ev.Score}
		h.Publish(scope.Judging(ev.EventID), envelope.RatingSubmitted, payload)
		h.Publish(scope.Submission(ev.SubmissionID), envelope.RatingSubmitted, payload)

	case envelope.SubmissionDeleted:
		h.Publish(scope.Event(ev.EventID), envelope.SubmissionDeleted,
			envelope.SubmissionRef{SubmissionID: ev.SubmissionID})

	case envelope.SubmissionStatusChanged:
		h.Publish(scope.Event(ev.EventID), envelope.SubmissionStatusChanged,
			envelope.StatusChange{SubmissionID: ev.SubmissionID, Status: ev.Status})

	case envelope.JudgingDeadlineApproaching:
		deadline, err := time.Parse(time.RFC3339, ev.Deadline)
		if err != nil {
			return fmt.Errorf("cannot parse deadline %s: %w", ev.Deadline, err)
		}
		h.Publish(scope.Judging(ev.EventID), envelope.JudgingDeadlineApproaching,
			envelope.DeadlineNotice{Deadline: deadline, HoursRemaining: ev.Hours})

	case envelope.WinnerAnnounced:
		h.Publish(scope.Event(ev.EventID), envelope.WinnerAnnounced,
			envelope.WinnerSummary{EventID: ev.EventID, SubmissionID: ev.SubmissionID, Title: ev.Title, TeamName: ev.TeamName})

	case envelope.TeamMemberJoined:
		payload := envelope.MemberSummary{TeamID: ev.TeamID, Identity: ev.Identity}
		h.Publish(scope.Event(ev.EventID), envelope.TeamMemberJoined, payload)
		h.Publish(scope.Team(ev.TeamID), envelope.TeamMemberJoined, payload)

	case envelope.TeamMemberLeft:
		payload := envelope.MemberSummary{TeamID: ev.TeamID, Identity: ev.Identity}
		h.Publish(scope.Event(ev.EventID), envelope.TeamMemberLeft, payload)
		h.Publish(scope.Team(ev.TeamID), envelope.TeamMemberLeft, payload)

	default:
		return fmt.Errorf("unknown domain event type %s", ev.Type)
	}

	return nil
}
