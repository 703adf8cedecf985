package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/hackfest/realtime/internal/token"
)

// Router returns the gateway's routes mounted on a gorilla mux router
func Router(closed <-chan struct{}, config Config) *mux.Router {

	r := mux.NewRouter()

	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		ServeWs(closed, config, w, req)
	})

	r.HandleFunc("/api/notify", notifyHandler(config)).Methods(http.MethodPost)
	r.HandleFunc("/api/judges/{eventId}", judgesHandler(config)).Methods(http.MethodGet)
	r.HandleFunc("/api/status", statusHandler(config)).Methods(http.MethodGet)

	return r
}

// checkBearer validates the Authorization header and required scope
func checkBearer(config Config, r *http.Request, required string) (token.Token, bool) {

	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	if bearer == "" {
		return token.Token{}, false
	}

	t, err := token.Verify(bearer, config.Secret, config.Audience)
	if err != nil {
		log.WithField("error", err).Info("unauthorized - invalid token")
		return token.Token{}, false
	}

	return t, t.HasScope(required)
}

// notifyHandler accepts a domain event from the CRUD layer and fans it out
// per the delivery table: some events reach a single scope, others two.
// Partial delivery across the two publishes is acceptable under concurrent
// membership churn, so the two calls are independent, not transactional.
func notifyHandler(config Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		if _, ok := checkBearer(config, r, token.ScopeNotify); !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		var ev DomainEvent

		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, "cannot decode domain event", http.StatusBadRequest)
			return
		}

		if err := dispatch(config.Hub, ev); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

// judgesHandler is the HTTP form of the list-judges query, for the CRUD
// layer and admin pages
func judgesHandler(config Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		eventID, err := strconv.ParseInt(mux.Vars(r)["eventId"], 10, 64)
		if err != nil {
			http.Error(w, "eventId must be numeric", http.StatusBadRequest)
			return
		}

		judges := config.Hub.ListOnlineJudges(eventID)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(judges); err != nil {
			log.WithField("error", err).Error("encoding judge list")
		}
	}
}

// statusHandler reports hub statistics
func statusHandler(config Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(config.Hub.Report()); err != nil {
			log.WithField("error", err).Error("encoding status report")
		}
	}
}
