package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/regatta-server/api/model"
	"github.com/a-bouts/regatta-server/game"
	"github.com/a-bouts/regatta-server/server"
)

const writeWait = time.Second

type api struct {
	srv          *server.Server
	liveInterval time.Duration
	upgrader     websocket.Upgrader
}

// InitServer builds the admin router. The live feed pushes the race status
// every liveInterval.
func InitServer(srv *server.Server, liveInterval time.Duration) *mux.Router {

	router := mux.NewRouter().StrictSlash(true)

	a := api{
		srv:          srv,
		liveInterval: liveInterval,
		upgrader:     websocket.Upgrader{EnableCompression: false},
	}

	router.HandleFunc("/regatta/-/healthz", a.healthz).Methods(http.MethodGet)

	apiV1 := router.PathPrefix("/regatta/api/v1").Subrouter()
	apiV1.HandleFunc("/race", a.race).Methods(http.MethodGet)
	apiV1.HandleFunc("/race/start", a.start).Methods(http.MethodPost)
	apiV1.HandleFunc("/race/terminate", a.terminate).Methods(http.MethodPost)
	apiV1.HandleFunc("/tasks", a.tasks).Methods(http.MethodGet)
	apiV1.HandleFunc("/live", a.live).Methods(http.MethodGet)

	return router
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Encode response failed")
	}
}

func (a *api) healthz(w http.ResponseWriter, r *http.Request) {
	type health struct {
		Status string `json:"status"`
		Stage  string `json:"stage"`
	}

	writeJSON(w, http.StatusOK, health{Status: "Ok", Stage: a.srv.Game().Stage().String()})
}

func (a *api) race(w http.ResponseWriter, r *http.Request) {
	g := a.srv.Game()
	status := g.RaceStatus(a.srv.Now())

	res := model.Race{
		Time:      status.Time,
		Stage:     status.Stage,
		Phase:     status.Phase,
		StartTime: status.StartTime,
		Wind:      status.Wind,
		Course:    g.Course().Name,
		Boats:     g.Boats(),
		Tokens:    g.Tokens(),
		Sessions:  a.srv.Sessions(),
	}
	if host, ok := g.Host(); ok {
		res.Host = host
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) tasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.srv.Tasks())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrStageTransition), errors.Is(err, game.ErrNoPlayers):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (a *api) start(w http.ResponseWriter, r *http.Request) {
	if err := a.srv.Start(); err != nil {
		log.WithError(err).Info("Start refused")
		writeJSON(w, errorStatus(err), model.Error{Error: err.Error()})
		return
	}
	log.Info("Race started from the admin api")
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) terminate(w http.ResponseWriter, r *http.Request) {
	if err := a.srv.Terminate(); err != nil {
		log.WithError(err).Info("Terminate refused")
		writeJSON(w, errorStatus(err), model.Error{Error: err.Error()})
		return
	}
	log.Info("Race terminated from the admin api")
	w.WriteHeader(http.StatusNoContent)
}

// live streams the race status over a websocket until the spectator goes
// away or the race is over.
func (a *api) live(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("Unable to upgrade live websocket")
		return
	}
	defer conn.Close()

	requestLogger := log.WithField("remote", r.RemoteAddr)
	requestLogger.Info("Spectator connected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(a.liveInterval)
	defer ticker.Stop()

	send := func() bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(a.srv.Game().RaceStatus(a.srv.Now())); err != nil {
			requestLogger.WithError(err).Info("Spectator gone")
			return false
		}
		return true
	}

	if !send() {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-a.srv.Done():
			send()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "race over"),
				time.Now().Add(writeWait))
			return
		case <-ticker.C:
			if !send() {
				return
			}
		}
	}
}
