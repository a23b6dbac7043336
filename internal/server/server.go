// Package server exposes aggregation runs and point lookups over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/cmg777/nightlights/internal/region"
	"github.com/cmg777/nightlights/internal/store"
)

// Server serves the results API.
type Server struct {
	store store.Store
	index *region.Index
}

// New creates a Server. The store may be nil (run endpoints return 503) and
// the region index may be nil (locate returns 503).
func New(st store.Store, idx *region.Index) *Server {
	return &Server{store: st, index: idx}
}

// Router builds the chi router with CORS for the given origins.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/runs/{id}", s.handleGetRun)
	r.Get("/runs/{id}/totals", s.handleGetTotals)
	r.Get("/locate", s.handleLocate)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		zap.L().Error("server: get run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store error")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetTotals(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}
	totals, err := s.store.GetTotals(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		zap.L().Error("server: get totals", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store error")
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		writeError(w, http.StatusServiceUnavailable, "no region index configured")
		return
	}
	x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 64)
	if errX != nil || errY != nil {
		writeError(w, http.StatusBadRequest, "x and y query parameters are required")
		return
	}

	matches := s.index.Locate(x, y)
	out := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		out = append(out, map[string]any{"region_id": m.ID, "attrs": m.Attrs})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
