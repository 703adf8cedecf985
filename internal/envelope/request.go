package envelope

// Request is a client-invoked operation sent to the server over the same
// connection envelopes arrive on. Only ListJudges produces a response (a
// JudgeList envelope); the rest are fire-and-forget scope operations.
type Request struct {
	Action       string `json:"action"`
	EventID      int64  `json:"eventId,omitempty"`
	SubmissionID int64  `json:"submissionId,omitempty"`
	TeamID       int64  `json:"teamId,omitempty"`
}

// Actions a client may request over its connection
const (
	ActionJoinEvent         = "join_event"
	ActionLeaveEvent        = "leave_event"
	ActionJoinJudging       = "join_judging"
	ActionLeaveJudging      = "leave_judging"
	ActionWatchSubmission   = "watch_submission"
	ActionUnwatchSubmission = "unwatch_submission"
	ActionJoinTeam          = "join_team"
	ActionLeaveTeam         = "leave_team"
	ActionListJudges        = "list_judges"
)
