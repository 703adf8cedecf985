package gateway

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/hackfest/realtime/internal/envelope"
)

// readPump pumps requests from the websocket connection to the hub.
//
// The application runs readPump in a per-connection goroutine. The
// application ensures that there is at most one reader on a connection by
// executing all reads from this goroutine.
func (c *client) readPump() {

	defer func() {
		c.hub.Remove(c.hc.ID)
		c.conn.Close()
		log.WithField("id", c.hc.ID).Trace("readpump closed")
	}()

	c.conn.SetReadLimit(maxMessageSize)

	err := c.conn.SetReadDeadline(time.Now().Add(pongWait))

	if err != nil {
		log.Errorf("readPump deadline error: %v", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {

		_, data, err := c.conn.ReadMessage()

		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("error: %v", err)
			}
			break
		}

		var req envelope.Request

		if err := json.Unmarshal(data, &req); err != nil {
			log.WithFields(log.Fields{"id": c.hc.ID, "error": err}).Debug("ignoring malformed request")
			continue
		}

		c.handleRequest(req)
	}
}

// writePump pumps envelopes from the hub to the websocket connection.
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine, which also gives each
// recipient its in-order delivery.
func (c *client) writePump(closed <-chan struct{}) {

	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
		log.WithField("id", c.hc.ID).Trace("writepump closed")
	}()

	for {
		select {

		case env := <-c.hc.Send:

			err := c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err != nil {
				log.Errorf("writePump deadline error: %s", err.Error())
				return
			}

			data, err := json.Marshal(env)
			if err != nil {
				log.WithFields(log.Fields{"id": c.hc.ID, "error": err}).Error("writePump marshal error")
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.WithFields(log.Fields{"id": c.hc.ID, "error": err}).Info("error writing to conn; closing")
				return
			}

		case <-ticker.C:
			err := c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err != nil {
				log.Errorf("writePump ping deadline error: %v", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-closed:
			err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.WithField("error", err).Debug("error sending close message")
			}
			return
		}
	}
}
