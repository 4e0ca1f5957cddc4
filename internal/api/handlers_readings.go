// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marathon/internal/logging"
	"github.com/tomtom215/marathon/internal/models"
)

// SubmitReading queues one reading. It answers 202 with the stamped event
// once the broker has confirmed the publish; the totals change when the
// aggregator applies it.
func (h *Handler) SubmitReading(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	in, err := decodeReading(w, r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	event, err := h.submitter.Submit(r.Context(), in)
	if err != nil {
		status, code, details := submissionError(err)
		logSubmissionError(r, status, err)
		rw.ErrorWithDetails(status, code, submissionMessage(status), details)
		return
	}

	rw.Accepted(event)
}

// LegacySubmitReading is SubmitReading for the dashboard's original route.
// It answers with a bare {"message"} body and 200 on success.
func (h *Handler) LegacySubmitReading(w http.ResponseWriter, r *http.Request) {
	in, err := decodeReading(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, legacyMessage{Message: err.Error()})
		return
	}

	event, err := h.submitter.Submit(r.Context(), in)
	if err != nil {
		status, _, details := submissionError(err)
		logSubmissionError(r, status, err)
		writeJSON(w, status, legacyMessage{Message: submissionMessage(status), Details: details})
		return
	}

	writeJSON(w, http.StatusOK, legacyMessage{Message: "Reading recorded", EventID: event.EventID})
}

type legacyMessage struct {
	Message string      `json:"message"`
	EventID string      `json:"eventId,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// decodeReading reads one ReadingInput from the request body and
// normalizes it.
func decodeReading(w http.ResponseWriter, r *http.Request) (*models.ReadingInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var in models.ReadingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrBodyTooLarge
		}
		return nil, fmt.Errorf("request body must be a JSON reading: %w", err)
	}
	in.Normalize()
	return &in, nil
}

func logSubmissionError(r *http.Request, status int, err error) {
	event := logging.Ctx(r.Context()).Debug()
	if status >= http.StatusInternalServerError {
		event = logging.Ctx(r.Context()).Warn()
	}
	event.Err(err).Int("status", status).Msg("reading rejected")
}
