// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

/*
Package aggregator consumes reading events from the queue and folds them into
the authoritative MarathonState.

There is exactly one Aggregator per marathon. It reads through its own
supervised eventprocessor.Connection with one message in flight, so events
are applied strictly in delivery order:

	decode -> validate -> dedup -> apply -> persist -> broadcast -> ack

Messages that can never be applied (undecodable JSON, a missing participant,
non-positive pages, another marathon's id) are poison: they are counted,
optionally republished to the poison topic, and acknowledged so that they do
not block the queue.

Acknowledgement happens after the state mutation, so delivery is
at-least-once. Redeliveries are recognised by event id within a bounded
window (see internal/cache) and skipped.

# Snapshots

When a SnapshotStore is configured the state and the recent event ids are
written after every applied event and loaded by Restore at startup. The
BadgerStore implementation keeps them in a local BadgerDB directory.

# Read paths

Snapshot, Leaderboard and Participant return copies taken under a read lock
and are safe to call from any goroutine, including HTTP handlers and the
websocket hub.
*/
package aggregator
