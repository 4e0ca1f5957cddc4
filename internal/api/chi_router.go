// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/marathon/internal/middleware"
)

// Router builds the HTTP handler tree.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil mw selects the default middleware
// configuration.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi configures every route.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).MethodNotAllowed()
	})

	// One limiter shared by both submission routes.
	submitLimit := router.chiMiddleware.RateLimit()

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.With(submitLimit).Post("/readings", router.handler.SubmitReading)
		r.Get("/marathon", router.handler.Marathon)
		r.Get("/leaderboard", router.handler.Leaderboard)
		r.Get("/participants/{participantID}", router.handler.Participant)
		r.Get("/ws", router.handler.WebSocket)
	})

	r.Get("/ws", router.handler.WebSocket)
	r.Handle("/metrics", promhttp.Handler())

	// Routes of the original dashboard.
	r.With(submitLimit).Post("/leitura", router.handler.LegacySubmitReading)
	r.Get("/dados-maratona", router.handler.LegacyMarathonData)

	return r
}
