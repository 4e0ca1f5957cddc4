// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

// Package logging is Marathon's zerolog-based structured logger.
//
// A single global logger is configured once at startup and used through
// package-level helpers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("queue", queue).Msg("Queue declared")
//	logging.Error().Err(err).Str("event_id", id).Msg("Publish failed")
//
// Always terminate an event with .Msg() or .Send(); otherwise nothing is
// written.
//
// # Component Loggers
//
//	logger := logging.WithComponent("aggregator")
//	logger.Info().Uint64("sequence", seq).Msg("Reading applied")
//
// # Request Context
//
// The HTTP middleware stores a request id and a correlation id in the
// request context. Ctx(ctx) returns a logger carrying both:
//
//	logging.Ctx(r.Context()).Warn().Msg("Submission rejected")
//
// # slog Bridge
//
// Suture (through sutureslog) and Watermill log through log/slog.
// NewSlogLogger and NewComponentSlogLogger return slog loggers that write
// to the zerolog logger, so all output shares one format and level.
//
// # Output Formats
//
// JSON (production):
//
//	{"level":"info","component":"hub","viewers":3,"time":"2026-01-03T10:30:00Z","message":"Viewer joined"}
//
// Console (development):
//
//	10:30:00 INF Viewer joined component=hub viewers=3
//
// # Testing
//
//	var buf bytes.Buffer
//	logger := logging.NewTestLogger(&buf)
//
// All exported functions are safe for concurrent use.
package logging
