package gateway

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hackfest/realtime/internal/hub"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 65536
)

// TODO restrict CheckOrigin
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Config represents configuration options for a gateway instance.
// Use this struct to pass configuration as argument during testing.
type Config struct {

	// Audience must match the aud in bearer tokens
	Audience string

	// Secret validates bearer tokens
	Secret string

	// Hub carries connections, membership and presence
	Hub *hub.Hub
}

// client pairs a hub connection with its websocket transport
type client struct {
	conn *websocket.Conn
	hc   *hub.Conn
	hub  *hub.Hub
}

// DomainEvent is what the CRUD layer posts to the notify API when a
// mutation should reach connected clients
type DomainEvent struct {
	Type         string  `json:"type"`
	EventID      int64   `json:"eventId"`
	SubmissionID int64   `json:"submissionId,omitempty"`
	TeamID       int64   `json:"teamId,omitempty"`
	Title        string  `json:"title,omitempty"`
	TeamName     string  `json:"teamName,omitempty"`
	Author       string  `json:"author,omitempty"`
	CommentID    int64   `json:"commentId,omitempty"`
	Excerpt      string  `json:"excerpt,omitempty"`
	Judge        string  `json:"judge,omitempty"`
	Score        float64 `json:"score,omitempty"`
	Status       string  `json:"status,omitempty"`
	Identity     string  `json:"identity,omitempty"`
	Deadline     string  `json:"deadline,omitempty"` //RFC3339
	Hours        float64 `json:"hours,omitempty"`
}
