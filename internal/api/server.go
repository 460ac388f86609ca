// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the watch list and recording mutations over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/watchlist/internal/api/middleware"
	"github.com/ManuGH/watchlist/internal/health"
	"github.com/ManuGH/watchlist/internal/log"
	"github.com/ManuGH/watchlist/internal/watchlist"
)

// Recordings mutates stored recordings.
type Recordings interface {
	DeleteRecording(ctx context.Context, key watchlist.RecordingKey, force bool) error
	UndeleteRecording(ctx context.Context, key watchlist.RecordingKey) error
	SetWatched(ctx context.Context, key watchlist.RecordingKey, watched bool) error
	SetAutoExpire(ctx context.Context, key watchlist.RecordingKey, on bool) error
}

// Snapshots serves the latest published ranking.
type Snapshots interface {
	Latest(ctx context.Context) (*watchlist.Snapshot, bool)
}

// Refresher ranks synchronously.
type Refresher interface {
	Refresh(ctx context.Context, trigger string) (*watchlist.Snapshot, error)
}

// Trigger schedules an asynchronous refresh.
type Trigger interface {
	Trigger(reason string)
}

// Deps are the collaborators of the HTTP server.
type Deps struct {
	Recordings Recordings
	Snapshots  Snapshots
	Refresher  Refresher
	Trigger    Trigger
	// Health serves the probes; nil means no component checks.
	Health *health.Manager
	// RefreshLimit overrides the refresh rate limiter, mainly for tests.
	RefreshLimit func(http.Handler) http.Handler
}

// Server is the HTTP front of the daemon.
type Server struct {
	deps   Deps
	logger zerolog.Logger
	router chi.Router
}

// New builds the router.
func New(deps Deps) *Server {
	if deps.RefreshLimit == nil {
		deps.RefreshLimit = middleware.RefreshRateLimit()
	}
	if deps.Health == nil {
		deps.Health = health.NewManager("")
	}
	s := &Server{
		deps:   deps,
		logger: log.WithComponent("api"),
	}
	s.router = s.routes()
	return s
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler {
	return middleware.OTelHTTP("watchlistd")(s.router)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Metrics(), middleware.AccessLog)

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/watchlist", s.handleGetWatchList)
		r.With(s.deps.RefreshLimit).Post("/watchlist/refresh", s.handleRefresh)

		r.Route("/recordings/{chanid}/{starttime}", func(r chi.Router) {
			r.Post("/delete", s.handleDelete)
			r.Post("/undelete", s.handleUndelete)
			r.Put("/watched", s.handleSetWatched)
			r.Put("/autoexpire", s.handleSetAutoExpire)
		})
	})
	return r
}
