// Package api provides a read-only HTTP API for observing a finished run.
// The simulation must not be mutated while the server is running.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/lingnet/internal/engine"
	"github.com/talgya/lingnet/internal/export"
	"github.com/talgya/lingnet/internal/world"
)

// Server serves one simulation over HTTP.
type Server struct {
	Sim   *engine.Simulation
	Addr  string // e.g. ":8080"
	RunID string // Archive run ID, if the run was archived

	// Limiter throttles requests per IP. Nil disables limiting.
	Limiter *RateLimiter
}

// NewServer creates a server with the default per-IP limit of 10 req/s, burst 20.
func NewServer(sim *engine.Simulation, addr string) *Server {
	return &Server{
		Sim:     sim,
		Addr:    addr,
		Limiter: NewRateLimiter(10, 20),
	}
}

// Handler returns the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/settlements", s.handleSettlements)
	mux.HandleFunc("GET /api/v1/settlement/{id}", s.handleSettlementDetail)
	mux.HandleFunc("GET /api/v1/edges", s.handleEdges)
	mux.HandleFunc("GET /api/v1/stats/history", s.handleStatsHistory)
	mux.HandleFunc("GET /api/v1/geojson", s.handleGeoJSON)

	var h http.Handler = mux
	if s.Limiter != nil {
		h = RateLimitMiddleware(s.Limiter, h)
	}
	return corsMiddleware(h)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if s.Limiter != nil {
		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.Limiter.Cleanup(time.Hour)
				}
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP API starting", "addr", s.Addr, "settlements", s.Sim.World.Len(), "rounds", s.Sim.Round)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("HTTP API shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
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
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	wd := s.Sim.World

	kinds := make(map[string]int)
	for k, n := range wd.KindCounts() {
		kinds[k.String()] = n
	}

	phases := make([]map[string]any, 0, len(s.Sim.Phases))
	for _, p := range s.Sim.Phases {
		phases = append(phases, map[string]any{
			"rounds":    p.Rounds,
			"weighting": p.Weighting.String(),
			"learning":  p.Learning.String(),
			"randomize": p.Randomize,
		})
	}

	status := map[string]any{
		"name":        "lingnet",
		"run_id":      s.RunID,
		"state":       s.Sim.State.String(),
		"rounds":      s.Sim.Round,
		"seed":        wd.Seed,
		"size":        wd.Size,
		"density":     wd.Density,
		"model":       wd.Model.String(),
		"init":        s.Sim.Init.String(),
		"settlements": wd.Len(),
		"edges":       len(wd.Edges()),
		"kinds":       kinds,
		"phases":      phases,
	}
	if n := len(s.Sim.Stats); n > 0 {
		status["latest"] = s.Sim.Stats[n-1]
	}
	writeJSON(w, status)
}

// roundParam reads ?t=, defaulting to the current values.
func roundParam(r *http.Request) (int, error) {
	v := r.URL.Query().Get("t")
	if v == "" {
		return world.Now, nil
	}
	t, err := strconv.Atoi(v)
	if err != nil || t < world.Now {
		return 0, errors.New("invalid round")
	}
	return t, nil
}

func (s *Server) handleSettlements(w http.ResponseWriter, r *http.Request) {
	t, err := roundParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	views, err := s.Sim.World.Views(t)
	if errors.Is(err, world.ErrRoundOutOfRange) {
		http.Error(w, "round not recorded", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("settlement views failed", "round", t, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, views)
}

func (s *Server) handleSettlementDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid settlement id", http.StatusBadRequest)
		return
	}

	wd := s.Sim.World
	sett := wd.Get(world.ID(id))
	if sett == nil {
		http.Error(w, "settlement not found", http.StatusNotFound)
		return
	}

	type neighbor struct {
		ID     world.ID `json:"id"`
		Name   string   `json:"name"`
		Type   string   `json:"type"`
		Weight float64  `json:"weight"`
	}
	neighbors := make([]neighbor, 0, sett.Degree())
	for _, nid := range sett.NeighborIDs() {
		n := wd.Get(nid)
		neighbors = append(neighbors, neighbor{
			ID:     nid,
			Name:   n.Name,
			Type:   n.Kind.String(),
			Weight: sett.Neighbors[nid],
		})
	}

	view, _ := sett.View(world.Now)
	history := sett.History
	if history == nil {
		history = []float64{}
	}
	writeJSON(w, map[string]any{
		"settlement":         view,
		"rate_of_change":     sett.RateOfChange,
		"anchored":           sett.Anchored(),
		"neighbors":          neighbors,
		"indirect_neighbors": wd.IndirectNeighbors(sett.ID),
		"history":            history,
	})
}

func (s *Server) handleEdges(w http.ResponseWriter, r *http.Request) {
	edges := s.Sim.World.Edges()
	if edges == nil {
		edges = []world.Edge{}
	}
	writeJSON(w, edges)
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	stats := s.Sim.Stats
	from, to := 0, len(stats)

	if f := r.URL.Query().Get("from"); f != "" {
		if v, err := strconv.Atoi(f); err == nil && v >= 0 && v <= to {
			from = v
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && from+v < to {
			to = from + v
		}
	}

	rows := stats[from:to]
	if rows == nil {
		rows = []engine.RoundStats{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	t, err := roundParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fc, err := export.FeatureCollection(s.Sim.World, t)
	if errors.Is(err, world.ErrRoundOutOfRange) {
		http.Error(w, "round not recorded", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("geojson export failed", "round", t, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		slog.Debug("geojson write failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
