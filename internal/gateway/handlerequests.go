package gateway

import (
	log "github.com/sirupsen/logrus"

	"github.com/hackfest/realtime/internal/envelope"
	"github.com/hackfest/realtime/internal/scope"
)

// handleRequest executes one client-invoked operation. Membership
// operations against stale state are silent no-ops; only list_judges
// produces a response, sent back on the same connection.
func (c *client) handleRequest(req envelope.Request) {

	switch req.Action {

	case envelope.ActionJoinEvent:
		c.hub.Join(c.hc.ID, scope.Event(req.EventID))

	case envelope.ActionLeaveEvent:
		c.hub.Leave(c.hc.ID, scope.Event(req.EventID))

	case envelope.ActionJoinJudging:
		c.hub.MarkJudgeOnline(c.hc.ID, req.EventID)

	case envelope.ActionLeaveJudging:
		c.hub.MarkJudgeOffline(c.hc.ID)

	case envelope.ActionWatchSubmission:
		c.hub.Join(c.hc.ID, scope.Submission(req.SubmissionID))

	case envelope.ActionUnwatchSubmission:
		c.hub.Leave(c.hc.ID, scope.Submission(req.SubmissionID))

	case envelope.ActionJoinTeam:
		c.hub.Join(c.hc.ID, scope.Team(req.TeamID))

	case envelope.ActionLeaveTeam:
		c.hub.Leave(c.hc.ID, scope.Team(req.TeamID))

	case envelope.ActionListJudges:
		c.sendJudgeList(req.EventID)

	default:
		log.WithFields(log.Fields{"id": c.hc.ID, "action": req.Action}).Debug("ignoring unknown action")
	}
}

// sendJudgeList answers a list_judges request on the requesting connection
func (c *client) sendJudgeList(eventID int64) {

	reports := c.hub.ListOnlineJudges(eventID)

	roster := envelope.JudgeRoster{EventID: eventID, Judges: []envelope.Judge{}}

	for _, r := range reports {
		roster.Judges = append(roster.Judges, envelope.Judge{Identity: r.Identity, ConnectedAt: r.ConnectedAt})
	}

	env, err := envelope.New(envelope.JudgeList, scope.Judging(eventID).String(), roster)
	if err != nil {
		log.WithField("error", err).Error("judge list marshal error")
		return
	}

	select {
	case c.hc.Send <- env:
	default:
		log.WithField("id", c.hc.ID).Debug("skipping judge list for unresponsive connection")
	}
}
