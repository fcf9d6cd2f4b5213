// Package http serves group snapshots and lock events over HTTP.
//
//	GET /health           liveness
//	GET /info             application and version
//	GET /groups           every group snapshot
//	GET /groups/{group}   one group snapshot
//	GET /events           lock events as server-sent events, ?group= filters
//	GET /metrics          mounted when WithMetrics is set
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/testctx/internal/logging"
	"github.com/aretw0/testctx/pkg/domain"
	"github.com/aretw0/testctx/pkg/ports"
)

// Source lists the snapshots to serve.
type Source interface {
	Snapshots(ctx context.Context) ([]domain.Snapshot, error)
}

// SourceFunc adapts a live snapshot function, such as manager.Registry.Snapshots.
type SourceFunc func() []domain.Snapshot

func (f SourceFunc) Snapshots(context.Context) ([]domain.Snapshot, error) { return f(), nil }

type storeSource struct {
	store ports.SnapshotStore
}

// FromStore serves the snapshots persisted in a store.
func FromStore(store ports.SnapshotStore) Source {
	return storeSource{store: store}
}

func (s storeSource) Snapshots(ctx context.Context) ([]domain.Snapshot, error) {
	groups, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Snapshot, 0, len(groups))
	for _, g := range groups {
		snap, err := s.store.Load(ctx, g)
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			continue // expired between List and Load
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot %s: %w", g, err)
		}
		out = append(out, snap)
	}
	return out, nil
}

// Server handles the status routes.
type Server struct {
	Source  Source
	Streams *StreamManager

	app     string
	version string
	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithStreams serves /events from sm. Without it /events answers 404.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.Streams = sm }
}

// WithVersion sets the application name and version reported by /info.
func WithVersion(app, version string) Option {
	return func(s *Server) {
		s.app = app
		s.version = version
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewHandler creates the HTTP handler for src.
func NewHandler(src Source, opts ...Option) http.Handler {
	s := &Server{
		Source:  src,
		app:     "testctx",
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/groups", s.ListGroups)
	r.Get("/groups/{group}", s.GetGroup)
	if s.Streams != nil {
		r.Get("/events", s.SubscribeEvents)
	}
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"app": s.app, "version": s.version})
}

// ListGroups handles GET /groups.
func (s *Server) ListGroups(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.Source.Snapshots(r.Context())
	if err != nil {
		s.logger.Error("failed to list snapshots", "err", err)
		http.Error(w, fmt.Sprintf("list error: %v", err), http.StatusInternalServerError)
		return
	}
	slices.SortFunc(snaps, func(a, b domain.Snapshot) int { return strings.Compare(a.Group, b.Group) })
	s.writeJSON(w, http.StatusOK, snaps)
}

// GetGroup handles GET /groups/{group}.
func (s *Server) GetGroup(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	snaps, err := s.Source.Snapshots(r.Context())
	if err != nil {
		s.logger.Error("failed to list snapshots", "group", group, "err", err)
		http.Error(w, fmt.Sprintf("list error: %v", err), http.StatusInternalServerError)
		return
	}
	i := slices.IndexFunc(snaps, func(snap domain.Snapshot) bool { return snap.Group == group })
	if i < 0 {
		http.Error(w, domain.ErrSnapshotNotFound.Error(), http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, snaps[i])
}

// SubscribeEvents handles GET /events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	group := r.URL.Query().Get("group")
	ch, cancel := s.Streams.Subscribe(group)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "group", group)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: lock\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
