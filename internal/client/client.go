// Package client connects to the realtime service, keeps the connection
// alive across drops, and surfaces inbound notifications to the
// application. The server forgets a dropped connection's memberships, so
// after every reconnect the client replays the scopes it wants.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/hackfest/realtime/internal/envelope"
	"github.com/hackfest/realtime/internal/scope"
)

// State of the connection lifecycle
type State string

// States of the connection lifecycle
const (
	Disconnected State = "disconnected"
	Connecting   State = "connecting"
	Connected    State = "connected"
	Reconnecting State = "reconnecting"
)

// DefaultSchedule is the delay before each reconnection attempt; the
// final interval repeats until success or Stop
var DefaultSchedule = []time.Duration{0, 2 * time.Second, 5 * time.Second, 10 * time.Second, 30 * time.Second}

// Client is a websocket client that reconnects automatically after a
// drop and replays its desired scope joins on each new connection
type Client struct {

	// URL of the realtime service websocket endpoint, ws or wss
	URL string

	// ID identifies this client in logs
	ID string

	// In carries decoded inbound envelopes to the application
	In chan envelope.Envelope

	// Connected is closed on each successful connection, then remade;
	// helps with testing
	Connected chan struct{}

	schedule []time.Duration

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	cancel  context.CancelFunc
	desired map[scope.Scope]envelope.Request

	writeMu sync.Mutex
}

// New returns a pointer to a new reconnecting realtime client
func New(url string) *Client {
	return &Client{
		URL:       url,
		ID:        uuid.New().String()[0:6],
		In:        make(chan envelope.Envelope, 64),
		Connected: make(chan struct{}),
		schedule:  DefaultSchedule,
		state:     Disconnected,
		desired:   make(map[scope.Scope]envelope.Request),
	}
}

// WithSchedule sets the reconnection delay schedule; the last entry
// repeats indefinitely
func (c *Client) WithSchedule(schedule []time.Duration) *Client {
	if len(schedule) > 0 {
		c.schedule = schedule
	}
	return c
}

// State returns the current lifecycle state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start makes the initial connection attempt. A failed first attempt is
// returned to the caller and not retried; automatic reconnection only
// covers drops of a connection that once succeeded.
func (c *Client) Start(ctx context.Context) error {

	c.mu.Lock()

	if c.state != Disconnected {
		c.mu.Unlock()
		return errors.New("already started")
	}

	if c.cancel != nil {
		c.cancel() // cancel any stale timer from a previous run
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = Connecting

	c.mu.Unlock()

	conn, err := c.dial(runCtx)

	if err != nil {
		c.mu.Lock()
		c.state = Disconnected
		c.mu.Unlock()
		cancel()
		return err
	}

	c.attach(runCtx, conn)

	return nil
}

// Stop forces Disconnected from any state and cancels any pending retry
// timer. No automatic reconnection happens after Stop.
func (c *Client) Stop() {

	c.mu.Lock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if c.conn != nil {
		err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			log.WithField("error", err).Debugf("client(%s): error sending close message", c.ID)
		}
		c.conn.Close()
		c.conn = nil
	}

	c.state = Disconnected

	c.mu.Unlock()
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)

	if err != nil {
		log.WithField("error", err).Debugf("client(%s): dial failed", c.ID)
		return nil, err
	}

	return conn, nil
}

// attach adopts a freshly dialled connection, signals Connected, and
// starts the read loop that feeds In and triggers reconnection on drop
func (c *Client) attach(ctx context.Context, conn *websocket.Conn) {

	c.mu.Lock()
	c.conn = conn
	c.state = Connected
	close(c.Connected)
	c.Connected = make(chan struct{}) //reset for next time
	c.mu.Unlock()

	log.Debugf("client(%s): connected to %s", c.ID, c.URL)

	go c.readLoop(ctx, conn)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {

	for {

		_, data, err := conn.ReadMessage()

		if err != nil {
			log.WithField("error", err).Debugf("client(%s): read error; connection down", c.ID)
			break
		}

		env, err := envelope.Decode(data)
		if err != nil {
			log.WithField("error", err).Debugf("client(%s): ignoring undecodable message", c.ID)
			continue
		}

		select {
		case c.In <- env:
		case <-ctx.Done():
			return
		}
	}

	conn.Close()

	select {
	case <-ctx.Done():
		// stopped; stay Disconnected
		return
	default:
	}

	c.reconnect(ctx)
}

// reconnect retries on the schedule until success or cancellation, then
// replays every desired scope exactly once
func (c *Client) reconnect(ctx context.Context) {

	c.mu.Lock()

	// Stop cancels while holding the mutex, so checking here closes the
	// window where a racing Stop would be overwritten with Reconnecting
	select {
	case <-ctx.Done():
		c.mu.Unlock()
		return
	default:
	}

	c.state = Reconnecting
	c.conn = nil
	c.mu.Unlock()

	for attempt := 0; ; attempt++ {

		delay := c.schedule[len(c.schedule)-1]
		if attempt < len(c.schedule) {
			delay = c.schedule[attempt]
		}

		timer := time.NewTimer(delay)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		conn, err := c.dial(ctx)

		if err != nil {
			log.Debugf("client(%s): reconnect attempt %d failed", c.ID, attempt+1)
			continue
		}

		c.attach(ctx, conn)
		c.replay()
		return
	}
}

// replay re-joins every desired scope on the current connection
func (c *Client) replay() {

	c.mu.Lock()
	requests := make([]envelope.Request, 0, len(c.desired))
	for _, req := range c.desired {
		requests = append(requests, req)
	}
	c.mu.Unlock()

	for _, req := range requests {
		if err := c.send(req); err != nil {
			log.WithField("error", err).Warnf("client(%s): replaying %s failed", c.ID, req.Action)
		}
	}
}

// send writes one request; writes are serialized so user calls and
// replay never interleave on the wire
func (c *Client) send(req envelope.Request) error {

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return errors.New("not connected")
	}

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return conn.WriteMessage(websocket.TextMessage, data)
}

// want records a desired scope and sends its join request
func (c *Client) want(s scope.Scope, req envelope.Request) error {
	c.mu.Lock()
	c.desired[s] = req
	c.mu.Unlock()
	return c.send(req)
}

// unwant forgets a desired scope and sends its leave request
func (c *Client) unwant(s scope.Scope, req envelope.Request) error {
	c.mu.Lock()
	delete(c.desired, s)
	c.mu.Unlock()
	return c.send(req)
}

// JoinEvent subscribes to event-wide notifications
func (c *Client) JoinEvent(eventID int64) error {
	return c.want(scope.Event(eventID),
		envelope.Request{Action: envelope.ActionJoinEvent, EventID: eventID})
}

// LeaveEvent unsubscribes from event-wide notifications
func (c *Client) LeaveEvent(eventID int64) error {
	return c.unwant(scope.Event(eventID),
		envelope.Request{Action: envelope.ActionLeaveEvent, EventID: eventID})
}

// JoinJudging marks this client online as a judge for an event
func (c *Client) JoinJudging(eventID int64) error {
	return c.want(scope.Judging(eventID),
		envelope.Request{Action: envelope.ActionJoinJudging, EventID: eventID})
}

// LeaveJudging marks this client offline as a judge
func (c *Client) LeaveJudging(eventID int64) error {
	return c.unwant(scope.Judging(eventID),
		envelope.Request{Action: envelope.ActionLeaveJudging, EventID: eventID})
}

// WatchSubmission subscribes to notifications about one submission
func (c *Client) WatchSubmission(submissionID int64) error {
	return c.want(scope.Submission(submissionID),
		envelope.Request{Action: envelope.ActionWatchSubmission, SubmissionID: submissionID})
}

// UnwatchSubmission unsubscribes from one submission
func (c *Client) UnwatchSubmission(submissionID int64) error {
	return c.unwant(scope.Submission(submissionID),
		envelope.Request{Action: envelope.ActionUnwatchSubmission, SubmissionID: submissionID})
}

// JoinTeam subscribes to one team's notifications
func (c *Client) JoinTeam(teamID int64) error {
	return c.want(scope.Team(teamID),
		envelope.Request{Action: envelope.ActionJoinTeam, TeamID: teamID})
}

// LeaveTeam unsubscribes from one team's notifications
func (c *Client) LeaveTeam(teamID int64) error {
	return c.unwant(scope.Team(teamID),
		envelope.Request{Action: envelope.ActionLeaveTeam, TeamID: teamID})
}

// RequestJudgeList asks for the online judges of an event; the answer
// arrives on In as a JudgeList envelope
func (c *Client) RequestJudgeList(eventID int64) error {
	return c.send(envelope.Request{Action: envelope.ActionListJudges, EventID: eventID})
}
