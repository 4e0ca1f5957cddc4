// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

//go:build integration

// Package testinfra starts throwaway broker containers for integration
// tests. Everything here needs Docker and the integration build tag:
//
//	go test -tags integration ./internal/eventprocessor/...
//
// Tests call SkipIfNoDocker first so they pass on machines without a
// daemon.
package testinfra
