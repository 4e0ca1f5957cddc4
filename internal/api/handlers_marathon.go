// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/marathon/internal/validation"
)

// LeaderboardRequest holds the validated query of /leaderboard.
// Limit 0 returns every participant.
type LeaderboardRequest struct {
	Limit int `json:"limit" validate:"min=0,max=1000"`
}

// Marathon returns the full current state.
func (h *Handler) Marathon(w http.ResponseWriter, r *http.Request) {
	snap := h.state.Snapshot()
	NewResponseWriter(w, r).SuccessAt(snap, snap.Sequence)
}

// LegacyMarathonData returns the current state without the envelope.
func (h *Handler) LegacyMarathonData(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Snapshot())
}

// Leaderboard returns participants ranked by total pages.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := LeaderboardRequest{}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			rw.BadRequest("limit must be an integer")
			return
		}
		req.Limit = limit
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError("Invalid leaderboard query", verr.Details())
		return
	}

	snap := h.state.Snapshot()
	rw.SuccessAt(snap.Leaderboard(req.Limit), snap.Sequence)
}

// Participant returns one participant's total, rank and readings still in
// the recent-activity window.
func (h *Handler) Participant(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id := strings.TrimSpace(chi.URLParam(r, "participantID"))
	if id == "" {
		rw.BadRequest("participant id is required")
		return
	}

	snap := h.state.Snapshot()
	view, ok := snap.Participant(id)
	if !ok {
		rw.NotFound("Participant has not recorded any reading")
		return
	}
	rw.SuccessAt(view, snap.Sequence)
}
