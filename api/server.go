package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/wricardo/spellground/game/config"
	"github.com/wricardo/spellground/game/engine"
	"github.com/wricardo/spellground/game/service"
	"github.com/wricardo/spellground/game/session"
	"github.com/wricardo/spellground/transport/websocket"
)

// maxBodyBytes bounds request bodies; question sets are the largest payload
const maxBodyBytes = 1 << 20

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  zerolog.Logger
}

// Option configures a Server
type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new API server. hub may be nil, which disables /ws.
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Puzzle operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/pointer", s.handlePointer).Methods("POST")
	api.HandleFunc("/sessions/{id}/move", s.handleMoveTile).Methods("POST")
	api.HandleFunc("/sessions/{id}/click", s.handleClickTile).Methods("POST")
	api.HandleFunc("/sessions/{id}/merge", s.handleMerge).Methods("POST")
	api.HandleFunc("/sessions/{id}/arrange", s.handleArrange).Methods("POST")
	api.HandleFunc("/sessions/{id}/speak", s.handleSpeak).Methods("POST")
	api.HandleFunc("/sessions/{id}/result", s.handleGetResult).Methods("GET")

	// Question sets
	api.HandleFunc("/question-sets", s.handleListQuestionSets).Methods("GET")
	api.HandleFunc("/question-sets", s.handleSaveQuestionSet).Methods("POST")
	api.HandleFunc("/question-sets/{name}", s.handleGetQuestionSet).Methods("GET")

	// Archived results
	api.HandleFunc("/results", s.handleListResults).Methods("GET")
	api.HandleFunc("/results/{id}", s.handleGetStoredResult).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"error": message, "code": status})
}

// statusFor maps service and engine errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrQuestionSetNotFound),
		errors.Is(err, service.ErrResultNotFound),
		errors.Is(err, engine.ErrTileNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, engine.ErrInvalidQuestionSet),
		errors.Is(err, engine.ErrNoQuestions),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, session.ErrInvalidSessionID):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNotReady),
		errors.Is(err, engine.ErrPuzzleBusy),
		errors.Is(err, engine.ErrPuzzleNotFinished):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	respondError(w, status, err.Error())
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid request body: %v", service.ErrInvalidRequest, err)
	}
	return nil
}

// settleParam reads ?settle=, falling back to the body value
func settleParam(r *http.Request, body bool) bool {
	if v := r.URL.Query().Get("settle"); v != "" {
		settle, err := strconv.ParseBool(v)
		return err == nil && settle
	}
	return body
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	// Shareable links pass questions as ?q= and a set as ?set=
	query := r.URL.Query()
	if req.Q == "" {
		req.Q = query.Get("q")
	}
	if req.SetName == "" {
		req.SetName = query.Get("set")
	}

	info, err := s.service.CreateSession(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	total := len(sessions)

	// Parse query parameters
	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Puzzle Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.GetState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var in engine.PointerInput
	if err := decodeBody(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.Pointer(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleMoveTile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TileID *int    `json:"tile_id"`
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.TileID == nil {
		respondError(w, http.StatusBadRequest, "tile_id is required")
		return
	}

	sessionID := mux.Vars(r)["id"]
	result, err := s.service.MoveTile(r.Context(), sessionID, *req.TileID, req.X, req.Y)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Debug().Str("session", sessionID).Int("tile", *req.TileID).Float64("x", req.X).Float64("y", req.Y).Msg("tile moved")
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleClickTile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TileID *int `json:"tile_id"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.TileID == nil {
		respondError(w, http.StatusBadRequest, "tile_id is required")
		return
	}

	result, err := s.service.ClickTile(r.Context(), mux.Vars(r)["id"], *req.TileID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Settle bool `json:"settle"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	sessionID := mux.Vars(r)["id"]
	result, err := s.service.Merge(r.Context(), sessionID, settleParam(r, req.Settle))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// Compact server log for observability
	if ev := result.Evaluation; ev != nil {
		s.logger.Info().Str("session", sessionID).Str("answer", ev.Submitted).Bool("perfect", ev.Perfect).
			Int("health", result.Snapshot.Health).Msg("answer checked")
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleArrange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Strategy string `json:"strategy"`
		Settle   bool   `json:"settle"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Strategy == "" {
		req.Strategy = r.URL.Query().Get("strategy")
	}

	result, err := s.service.Arrange(r.Context(), mux.Vars(r)["id"], req.Strategy, settleParam(r, req.Settle))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Speak(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.GetResult(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Question Set Handlers

func (s *Server) handleListQuestionSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.service.ListQuestionSets(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sets)
}

func (s *Server) handleGetQuestionSet(w http.ResponseWriter, r *http.Request) {
	set, err := s.service.LoadQuestionSet(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, set)
}

func (s *Server) handleSaveQuestionSet(w http.ResponseWriter, r *http.Request) {
	var set engine.QuestionSetConfig
	if err := decodeBody(w, r, &set); err != nil {
		s.fail(w, r, err)
		return
	}

	// The file is named by ?id= or by the set name
	setID := r.URL.Query().Get("id")
	if setID == "" {
		setID = set.Name
	}

	if err := s.service.SaveQuestionSet(r.Context(), setID, &set); err != nil {
		s.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Question set saved successfully",
		"set_id":  config.SetID(setID),
	})
}

// Result Handlers

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.service.ListResults(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(results) {
			results = results[:l]
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleGetStoredResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.GetStoredResult(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusNotFound, "websocket transport disabled")
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session parameter required")
		return
	}

	// Verify session exists and use its canonical ID
	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.hub.ServeWS(w, r, info.ID)

	// Send the current state so the client can draw immediately
	s.hub.NotifySnapshot(info.ID, info.Snapshot)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
