// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

/*
Package models defines the data shared by the producer, the aggregator and
the live view.

  - ReadingEvent: one report on the queue, JSON-encoded
  - ReadingInput: a submission body before it is stamped
  - MarathonState: totals, per-participant totals and recent activity
  - StateUpdate: what viewers receive after each applied reading

Readers never hold the aggregator's MarathonState directly; they get a copy
from MarathonState.Clone.
*/
package models
