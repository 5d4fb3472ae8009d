// Package diag serves read-only HTTP diagnostics for the proxy.
package diag

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"i2cmitm-go/bus"
	"i2cmitm-go/logging"
	"i2cmitm-go/services/config"
	"i2cmitm-go/services/i2cmitm"
	"i2cmitm-go/types"

	"github.com/gorilla/mux"
)

const (
	APIPrefix = "/api/v1"

	requestTimeout  = time.Second
	retainedTimeout = 100 * time.Millisecond
)

type Server struct {
	conn   *bus.Connection
	log    logging.Sink
	router *mux.Router
}

func New(conn *bus.Connection, log logging.Sink) *Server {
	if log == nil {
		log = logging.Discard
	}
	s := &Server{conn: conn, log: log, router: mux.NewRouter()}
	api := s.router.PathPrefix(APIPrefix).Subrouter()
	api.HandleFunc("/ping", s.handlePing).Methods(http.MethodGet)
	api.HandleFunc("/config", s.handleConfig).Methods(http.MethodGet)
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/sessions", s.handleSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleSession).Methods(http.MethodGet)
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx ends.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Infof("diag listening on %s", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shut, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shut); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("pong"))
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	m, ok := s.retained(r.Context(), config.BatteryTopic())
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "config not published")
		return
	}
	b, ok := m.Payload.(config.Battery)
	if !ok {
		writeError(w, http.StatusInternalServerError, "unexpected config payload")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	m, ok := s.retained(r.Context(), i2cmitm.StateTopic())
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "service not started")
		return
	}
	writeJSON(w, http.StatusOK, m.Payload)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	list, ok := s.sessions(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, types.SessionsSnapshot{Sessions: list})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	list, ok := s.sessions(w, r)
	if !ok {
		return
	}
	for _, si := range list {
		if si.ID == id {
			writeJSON(w, http.StatusOK, si)
			return
		}
	}
	writeError(w, http.StatusNotFound, "unknown session")
}

func (s *Server) sessions(w http.ResponseWriter, r *http.Request) ([]types.SessionInfo, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	list, err := i2cmitm.Sessions(ctx, s.conn)
	if err != nil {
		s.log.Errorf("diag: sessions: %v", err)
		writeError(w, http.StatusGatewayTimeout, err.Error())
		return nil, false
	}
	return list, true
}

// retained returns the retained message on topic, if one arrives promptly.
func (s *Server) retained(ctx context.Context, topic bus.Topic) (*bus.Message, bool) {
	sub := s.conn.Subscribe(topic)
	defer s.conn.Unsubscribe(sub)
	t := time.NewTimer(retainedTimeout)
	defer t.Stop()
	select {
	case m := <-sub.Channel():
		return m, m != nil
	case <-t.C:
	case <-ctx.Done():
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
