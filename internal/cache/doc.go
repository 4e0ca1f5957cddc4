// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

// Package cache holds the bounded recently-seen set the aggregator uses to
// skip readings it has already applied.
//
//	seen := cache.NewLRUCache(10000, 0)
//	if seen.Contains(ev.EventID) {
//	    return nil // already counted
//	}
package cache
