// Package api provides the HTTP API for observing the town.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/townsim/internal/engine"
	"github.com/talgya/townsim/internal/grid"
	"github.com/talgya/townsim/internal/heatmap"
	"github.com/talgya/townsim/internal/persistence"
)

// Server serves the town state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB
	Listen   string
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
	RunID    string
	Seed     int64

	upgrader websocket.Upgrader
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	// The heatmap payload is the whole field; keep scrapers off it.
	heatmapLimiter := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/mobs", s.handleMobs)
	mux.HandleFunc("/api/v1/map", s.handleMap)
	mux.HandleFunc("/api/v1/heatmap/", RateLimitMiddleware(heatmapLimiter, s.handleHeatmap))
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/messages", s.handleMessages)

	// Live stream (websocket).
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/save", s.adminOnly(s.handleSave))

	slog.Info("HTTP API starting", "addr", s.Listen, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(s.Listen, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	if s.AdminKey == "" {
		return false
	}
	auth := r.Header.Get("Authorization")
	return auth == "Bearer "+s.AdminKey
}

func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	tick := s.Sim.CurrentTick()
	stats := s.Sim.Stats()
	writeJSON(w, map[string]any{
		"run_id":     s.RunID,
		"seed":       s.Seed,
		"tick":       tick,
		"time":       engine.SimTime(tick),
		"speed":      s.Eng.Speed(),
		"width":      s.Sim.World.Width,
		"height":     s.Sim.World.Height,
		"population": stats.Population,
		"stats":      stats,
	})
}

func (s *Server) handleMobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"tick": s.Sim.CurrentTick(),
		"mobs": s.Sim.SnapshotMobs(),
	})
}

// handleMap returns the static world as a sparse fixture list plus the
// registered heat sources.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	type fixtureEntry struct {
		X    int    `json:"x"`
		Y    int    `json:"y"`
		Kind string `json:"kind"`
	}

	wld := s.Sim.World
	var fixtures []fixtureEntry
	for y := 0; y < wld.Height; y++ {
		for x := 0; x < wld.Width; x++ {
			if st, ok := wld.StaticAt(grid.Point{X: x, Y: y}); ok {
				fixtures = append(fixtures, fixtureEntry{X: x, Y: y, Kind: st.String()})
			}
		}
	}

	writeJSON(w, map[string]any{
		"width":    wld.Width,
		"height":   wld.Height,
		"fixtures": fixtures,
		"sources":  wld.Sources(),
	})
}

// handleHeatmap returns one field as rows of values: GET
// /api/v1/heatmap/{tag}?flee=1. Unreachable cells come back as -1.
func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/v1/heatmap/")
	tag, err := heatmap.ParseTag(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	flee := r.URL.Query().Get("flee") == "1"

	rows := s.Sim.SnapshotField(tag, flee)
	for _, row := range rows {
		for i, v := range row {
			if v == heatmap.Unreachable {
				row[i] = -1
			}
		}
	}

	writeJSON(w, map[string]any{
		"tag":  tag.String(),
		"flee": flee,
		"rows": rows,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			http.Error(w, "limit must be 1..500", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, map[string]any{"events": s.Sim.RecentEvents(limit)})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"messages": s.Sim.World.RecentMessages(50)})
}

// handleSpeed sets the engine speed: POST {"speed": 4.0}. Zero pauses.
func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Speed < 0 || req.Speed > 64 {
		http.Error(w, "speed must be 0..64", http.StatusBadRequest)
		return
	}
	s.Eng.SetSpeed(req.Speed)
	slog.Info("speed changed", "speed", req.Speed)
	writeJSON(w, map[string]any{"speed": req.Speed})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "persistence disabled", http.StatusConflict)
		return
	}
	if err := s.DB.SaveState(s.Sim, s.Seed); err != nil {
		slog.Error("manual save failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"saved_at_tick": s.Sim.CurrentTick()})
}

// handleStream upgrades to a websocket and pushes a status frame once per
// second until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	slog.Debug("stream client connected", "remote", r.RemoteAddr)

	// Discard client messages; detect disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	lastTick := uint64(0)
	for range ticker.C {
		tick := s.Sim.CurrentTick()
		if tick == lastTick {
			continue
		}
		lastTick = tick

		frame := map[string]any{
			"tick":   tick,
			"time":   engine.SimTime(tick),
			"stats":  s.Sim.Stats(),
			"events": s.Sim.RecentEvents(10),
		}
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(frame); err != nil {
			slog.Debug("stream client gone", "remote", r.RemoteAddr, "error", err)
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write JSON response", "error", err)
	}
}
