package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"pokebattle/internal/battle"
	"pokebattle/internal/session"
	"pokebattle/internal/storage"
)

// Server is the HTTP server: the battle websocket plus read-only lobby
// endpoints.
type Server struct {
	mux        *http.ServeMux
	manager    *session.Manager
	catalog    *battle.Catalog
	roster     *storage.Store
	log        *zap.Logger
	sendBuffer int
}

// New creates a server with all routes. sendBuffer bounds each
// connection's outbound queue.
func New(manager *session.Manager, catalog *battle.Catalog, roster *storage.Store, log *zap.Logger, sendBuffer int) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		manager:    manager,
		catalog:    catalog,
		roster:     roster,
		log:        log,
		sendBuffer: sendBuffer,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("GET /api/roster", s.handleListRoster)
	s.mux.HandleFunc("GET /api/roster/{id}", s.handleGetCreature)
	s.mux.HandleFunc("GET /api/moves", s.handleListMoves)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	infos := s.manager.List()
	if infos == nil {
		infos = []session.Info{}
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.manager.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleListRoster(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f storage.Filter
	if v := q.Get("type"); v != "" {
		t, ok := battle.ParseType(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown type "+strconv.Quote(v))
			return
		}
		f.Type = t
	}
	var err error
	if f.Generation, err = intParam(q.Get("generation")); err != nil {
		writeError(w, http.StatusBadRequest, "generation must be a positive integer")
		return
	}
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	creatures, err := s.roster.Find(f)
	if err != nil {
		s.log.Error("roster query", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "roster unavailable")
		return
	}
	if creatures == nil {
		creatures = []battle.Creature{}
	}
	writeJSON(w, http.StatusOK, creatures)
}

func (s *Server) handleGetCreature(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	c, err := s.roster.Get(id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "creature not found")
		return
	}
	if err != nil {
		s.log.Error("roster lookup", zap.Int("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "roster unavailable")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type moveInfo struct {
	battle.Move
	DisplayName string `json:"displayName"`
}

func (s *Server) handleListMoves(w http.ResponseWriter, r *http.Request) {
	moves := s.catalog.All()
	if v := r.URL.Query().Get("type"); v != "" {
		t, ok := battle.ParseType(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown type "+strconv.Quote(v))
			return
		}
		moves = s.catalog.MovesOfType(t)
	}
	out := make([]moveInfo, 0, len(moves))
	for _, m := range moves {
		out = append(out, moveInfo{Move: m, DisplayName: m.DisplayName()})
	}
	writeJSON(w, http.StatusOK, out)
}

// intParam parses an optional positive integer query parameter.
func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.New("must be positive")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
