// Package api provides the HTTP API for watching and playing the island.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (the creator's hand).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Bluenot3/Tiny-God/internal/engine"
	"github.com/Bluenot3/Tiny-God/internal/persistence"
	"github.com/Bluenot3/Tiny-God/internal/world"
)

// Server serves one island game over HTTP.
type Server struct {
	Sim      *engine.Simulation
	DB       *persistence.DB // Nil disables autosave and the saves listing
	GameID   string
	Gen      world.GenConfig // Used by reset
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
	Hub      *Hub   // Nil disables the stream

	ActionLimiter *RateLimiter // Nil = unlimited

	turnMu sync.Mutex // Serialises turns and resets; held across narration
	mu     sync.Mutex // Guards Sim and GameID; never held across narration
}

// Status is the compact island summary served by /api/v1/status and
// pushed on the stream after every turn.
type Status struct {
	GameID          string   `json:"game_id"`
	Year            int      `json:"year"`
	Status          string   `json:"status"`
	Mana            int      `json:"mana"`
	MaxMana         int      `json:"max_mana"`
	Regen           int      `json:"regen"`
	Biodiversity    int      `json:"biodiversity"`
	GlobalStability int      `json:"global_stability"`
	HumanPopulation int      `json:"human_population"`
	TotalLife       int      `json:"total_life"`
	Land            int      `json:"land"`
	EraName         string   `json:"era_name"`
	EraDescription  string   `json:"era_description"`
	Logs            []string `json:"logs"`
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/state", s.handleState)
	mux.HandleFunc("/api/v1/map", s.handleMap)
	mux.HandleFunc("/api/v1/actions", s.handleActions)
	mux.HandleFunc("/api/v1/saves", s.handleSaves)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Creator endpoints (POST, require bearer token).
	action := s.adminOnly(s.handleAction)
	if s.ActionLimiter != nil {
		action = RateLimitMiddleware(s.ActionLimiter, action)
	}
	mux.HandleFunc("/api/v1/action", action)
	mux.HandleFunc("/api/v1/reset", s.adminOnly(s.handleReset))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine. The returned server
// can be shut down by the caller.
func (s *Server) Start(ctx context.Context) *http.Server {
	if s.Hub != nil {
		go s.Hub.Run(ctx)
	}

	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "stream", s.Hub != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
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

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require POST with bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "creator endpoints disabled (no TINYGOD_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// statusLocked builds the summary. Callers hold s.mu.
func (s *Server) statusLocked() Status {
	st := s.Sim.State
	return Status{
		GameID:          s.GameID,
		Year:            st.Year,
		Status:          st.Status.String(),
		Mana:            st.Mana,
		MaxMana:         st.MaxMana,
		Regen:           s.Sim.Regen(),
		Biodiversity:    st.Biodiversity,
		GlobalStability: st.GlobalStability,
		HumanPopulation: st.HumanPopulation,
		TotalLife:       st.TotalLife,
		Land:            st.Land(),
		EraName:         st.EraName,
		EraDescription:  st.EraDescription,
		Logs:            append([]string(nil), st.Logs...),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.statusLocked()
	s.mu.Unlock()
	writeJSON(w, status)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	state := s.Sim.State.Clone()
	s.mu.Unlock()
	writeJSON(w, state)
}

// handleMap returns the tiles for a map renderer along with a biome census.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	type tileEntry struct {
		X          int             `json:"x"`
		Y          int             `json:"y"`
		Height     float64         `json:"height"`
		Biome      world.Biome     `json:"biome"`
		Stage      world.LifeStage `json:"stage"`
		Vegetation float64         `json:"vegetation"`
		Stability  float64         `json:"stability"`
	}

	s.mu.Lock()
	st := s.Sim.State
	tiles := make([]tileEntry, 0, len(st.Tiles))
	for _, t := range st.Tiles {
		tiles = append(tiles, tileEntry{
			X:          t.X,
			Y:          t.Y,
			Height:     t.Elevation,
			Biome:      t.Biome,
			Stage:      t.Stage,
			Vegetation: t.Vegetation,
			Stability:  t.Stability,
		})
	}
	counts := world.CountBiomes(st.Tiles)
	biomes := make(map[string]int, len(world.Biomes()))
	for _, b := range world.Biomes() {
		biomes[b.String()] = counts[b]
	}
	size := st.GridSize
	s.mu.Unlock()

	writeJSON(w, map[string]any{
		"size":   size,
		"tiles":  tiles,
		"biomes": biomes,
	})
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	type actionEntry struct {
		Action     engine.Action `json:"action"`
		Cost       int           `json:"cost"`
		Affordable bool          `json:"affordable"`
		Effect     engine.Effect `json:"effect"`
	}
	s.mu.Lock()
	out := make([]actionEntry, 0, len(engine.Actions()))
	for _, a := range engine.Actions() {
		out = append(out, actionEntry{a, a.Cost(), s.Sim.CanAfford(a), a.Effect()})
	}
	s.mu.Unlock()
	writeJSON(w, out)
}

func (s *Server) handleSaves(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	saves, err := s.DB.ListGames(r.Context())
	if err != nil {
		slog.Error("list saves failed", "error", err)
		http.Error(w, "list saves failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, saves)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	action, err := engine.ParseAction(req.Action)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.mu.Lock()
	result, due := s.Sim.Resolve(action)
	resolved := s.Sim.State
	s.mu.Unlock()

	if due {
		era, fallback := s.Sim.NarrateEra(r.Context(), resolved)
		s.mu.Lock()
		s.Sim.ApplyEra(&result, era, fallback)
		s.mu.Unlock()
	}

	s.mu.Lock()
	status := s.statusLocked()
	if result.Applied() {
		s.autosaveLocked(r.Context())
	}
	s.mu.Unlock()

	if !result.Applied() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"result": result, "status": status})
		return
	}

	slog.Info("action applied", "action", action, "year", result.Year, "mana", status.Mana, "biodiversity", status.Biodiversity)
	if s.Hub != nil {
		s.Hub.Broadcast("turn", map[string]any{"result": result, "status": status})
	}
	writeJSON(w, map[string]any{"result": result, "status": status})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seed   int64    `json:"seed"`
		Size   int      `json:"size"`
		Relief *float64 `json:"relief"` // Nil keeps the server's setting
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
	}
	cfg := s.Gen
	cfg.Seed = req.Seed
	if req.Size != 0 {
		cfg.Size = req.Size
	}
	if req.Relief != nil {
		cfg.Relief = *req.Relief
	}
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	s.mu.Lock()
	s.Sim.Reset(cfg)
	s.GameID = uuid.NewString()
	s.autosaveLocked(r.Context())
	status := s.statusLocked()
	seed := s.Sim.Seed
	s.mu.Unlock()

	slog.Info("island reset", "game_id", status.GameID, "seed", seed)
	if s.Hub != nil {
		s.Hub.Broadcast("reset", status)
	}
	writeJSON(w, map[string]any{"seed": seed, "status": status})
}

// autosaveLocked persists the current game. Callers hold s.mu. A failed
// save is logged; the turn stands.
func (s *Server) autosaveLocked(ctx context.Context) {
	if s.DB == nil {
		return
	}
	if err := s.DB.SaveGame(ctx, s.GameID, persistence.SlotOf(s.Sim)); err != nil {
		slog.Error("autosave failed", "game_id", s.GameID, "error", err)
	}
}

// Save persists the current game, for shutdown.
func (s *Server) Save(ctx context.Context) error {
	if s.DB == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.DB.SaveGame(ctx, s.GameID, persistence.SlotOf(s.Sim))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil {
		http.Error(w, "streaming disabled", http.StatusServiceUnavailable)
		return
	}
	s.mu.Lock()
	status := s.statusLocked()
	s.mu.Unlock()

	greeting, err := json.Marshal(struct {
		Type string `json:"type"`
		Data Status `json:"data"`
	}{"status", status})
	if err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	s.Hub.ServeWS(w, r, greeting)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
