// Package gateway is the transport surface of the realtime service: it
// upgrades websocket connections, attaches the bearer identity, pumps
// envelopes in and out, and exposes the HTTP API the CRUD layer uses to
// publish domain events.
package gateway

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/hackfest/realtime/internal/token"
)

// ServeWs handles websocket requests from clients. Identity comes from the
// sub claim of a valid bearer token passed as the token query parameter;
// a connection without a token is admitted as anonymous, but a token that
// fails verification is rejected before upgrade.
func ServeWs(closed <-chan struct{}, config Config, w http.ResponseWriter, r *http.Request) {

	identity := ""

	bearer := r.URL.Query().Get("token")

	if bearer != "" {

		t, err := token.Verify(bearer, config.Secret, config.Audience)

		if err != nil {
			log.WithField("error", err).Info("unauthorized - invalid token")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		if !t.HasScope(token.ScopeConnect) {
			log.WithField("subject", t.Subject).Info("unauthorized - token missing connect scope")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		identity = t.Subject
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithField("error", err).Error("failed to upgrade to websocket")
		return
	}

	// cannot return any http responses from here on

	hc := config.Hub.Admit(identity)

	log.WithFields(log.Fields{"id": hc.ID, "identity": hc.Identity}).Trace("websocket open")

	c := &client{
		conn: conn,
		hc:   hc,
		hub:  config.Hub,
	}

	go c.writePump(closed)
	go c.readPump()
}
