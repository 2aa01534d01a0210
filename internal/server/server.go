package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aleksaelezovic/hexastore/internal/metrics"
	"github.com/aleksaelezovic/hexastore/pkg/store"
	"go.uber.org/zap"
)

// Server exposes the metrics and statistics of a triplestore over HTTP
type Server struct {
	store   *store.TripleStore
	metrics *metrics.Registry
	logger  *zap.Logger
	addr    string
}

// NewServer creates a new monitoring server
func NewServer(s *store.TripleStore, reg *metrics.Registry, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:   s,
		metrics: reg,
		logger:  logger,
		addr:    addr,
	}
}

// Handler returns the routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving metrics", zap.String("addr", s.addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"triples": s.store.Count(),
	})
}

// statsResponse is the JSON form of store.Stats
type statsResponse struct {
	Triples   uint64                   `json:"triples"`
	Terms     uint64                   `json:"terms"`
	Orderings map[string]orderingStats `json:"orderings"`
	Snapshot  *store.SnapshotInfo      `json:"snapshot,omitempty"`
}

type orderingStats struct {
	Keys        int `json:"keys"`
	Capacity    int `json:"capacity"`
	MemoryBytes int `json:"memory_bytes"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := s.store.Stats()
	if err != nil {
		s.logger.Error("failed to collect stats", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := statsResponse{
		Triples:   stats.Triples,
		Terms:     stats.Terms,
		Orderings: make(map[string]orderingStats, len(stats.Orderings)),
		Snapshot:  stats.Snapshot,
	}
	for o, st := range stats.Orderings {
		resp.Orderings[o.String()] = orderingStats{Keys: st.Keys, Capacity: st.Capacity, MemoryBytes: st.MemoryBytes}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}
