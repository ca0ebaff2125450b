package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/tile-grid-game/game/engine"
	"github.com/wricardo/tile-grid-game/game/service"
	"github.com/wricardo/tile-grid-game/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	started time.Time
}

// NewServer creates a new API server. hub may be nil when live updates are not needed.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		started: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Board operations
	api.HandleFunc("/sessions/{id}/grid", s.handleGetGrid).Methods("GET")
	api.HandleFunc("/sessions/{id}/tiles", s.handleInsertTile).Methods("POST")
	api.HandleFunc("/sessions/{id}/tiles/{x}/{y}", s.handleGetCell).Methods("GET")
	api.HandleFunc("/sessions/{id}/tiles/{x}/{y}", s.handleRemoveTile).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/spawn", s.handleSpawnTile).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/available", s.handleAvailableCells).Methods("GET")
	api.HandleFunc("/sessions/{id}/hints", s.handleHints).Methods("GET")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Static viewer files
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir("./static/")))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// coordinates parses the {x} and {y} route variables
func coordinates(r *http.Request) (int, int, error) {
	vars := mux.Vars(r)
	x, err := strconv.Atoi(vars["x"])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x coordinate %q", vars["x"])
	}
	y, err := strconv.Atoi(vars["y"])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y coordinate %q", vars["y"])
	}
	return x, y, nil
}

// publish pushes a changed board and its events to live viewers
func (s *Server) publish(sessionID string, grid engine.GridState, events []service.GridEvent) {
	if s.hub == nil {
		return
	}
	key := strings.ToLower(sessionID)
	s.hub.BroadcastToSession(key, grid)
	if len(events) > 0 {
		s.hub.BroadcastEvent(key, websocket.EventGridEvent, events)
	}
}

func status(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAIL"
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
	}

	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	configID := req.ConfigID
	if configID == "" {
		configID = req.ConfigName
	}

	session, err := s.service.CreateSession(r.Context(), configID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("[SESSION] created id=%s config=%s size=%d", session.ID, session.ConfigName, session.Grid.Size)
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

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

	sort.Slice(sessions, func(i, j int) bool {
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

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < total {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Board Handlers

func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	view, err := s.service.GetGrid(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleInsertTile(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		X     *int `json:"x"`
		Y     *int `json:"y"`
		Value int  `json:"value"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.X == nil || req.Y == nil {
		respondError(w, http.StatusBadRequest, "x and y are required")
		return
	}

	result, err := s.service.InsertTile(r.Context(), sessionID, *req.X, *req.Y, req.Value)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	log.Printf("[INSERT] session=%s (%d,%d) value=%d status=%s", sessionID, *req.X, *req.Y, req.Value, status(result.Success))

	if result.Success {
		s.publish(sessionID, result.Grid, result.Events)
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetCell(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	x, y, err := coordinates(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cell, err := s.service.GetCell(r.Context(), sessionID, x, y)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, cell)
}

func (s *Server) handleRemoveTile(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	x, y, err := coordinates(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.RemoveTile(r.Context(), sessionID, x, y)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	value := 0
	if result.Tile != nil {
		value = result.Tile.Value
	}
	log.Printf("[REMOVE] session=%s (%d,%d) value=%d status=%s", sessionID, x, y, value, status(result.Success))

	if result.Success {
		s.publish(sessionID, result.Grid, result.Events)
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSpawnTile(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.SpawnTile(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	if result.Tile != nil {
		log.Printf("[SPAWN] session=%s (%d,%d) value=%d status=%s",
			sessionID, result.Tile.Position.X, result.Tile.Position.Y, result.Tile.Value, status(result.Success))
	} else {
		log.Printf("[SPAWN] session=%s FULL status=%s", sessionID, status(result.Success))
	}

	s.publish(sessionID, result.Grid, result.Events)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	view, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	s.publish(sessionID, view.Grid, nil)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Board reset successfully",
		"grid":    view,
	})
}

func (s *Server) handleAvailableCells(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var row *int
	if rowStr := r.URL.Query().Get("row"); rowStr != "" {
		v, err := strconv.Atoi(rowStr)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid row %q", rowStr))
			return
		}
		row = &v
	}

	result, err := s.service.GetAvailableCells(r.Context(), sessionID, row)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleHints(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	hints, err := s.service.GetHints(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, hints)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetHistory(r.Context(), sessionID, opts)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := mux.Vars(r)["name"]

	config, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, config)
}

// configIDFromName turns a display name into a file-safe preset ID
func configIDFromName(name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, id)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var boardConfig engine.BoardConfig

	if err := json.NewDecoder(r.Body).Decode(&boardConfig); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if boardConfig.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	configID := r.URL.Query().Get("id")
	if configID == "" {
		configID = configIDFromName(boardConfig.Name)
	}
	if configID == "" {
		respondError(w, http.StatusBadRequest, "Config name must contain letters or digits")
		return
	}

	if err := engine.ValidateBoardConfig(&boardConfig); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.SaveConfig(r.Context(), configID, &boardConfig); err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save config: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "live updates disabled", http.StatusServiceUnavailable)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, strings.ToLower(sessionID))
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}
