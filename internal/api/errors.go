// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/marathon/internal/eventprocessor"
	"github.com/tomtom215/marathon/internal/validation"
)

// ErrBodyTooLarge is returned when a request body exceeds maxBodyBytes.
var ErrBodyTooLarge = errors.New("request body too large")

// submissionError maps an error from a ReadingSubmitter to a status, an
// error code and an optional details value.
func submissionError(err error) (status int, code string, details interface{}) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrCodeValidationFailed, verr.Details()
	case errors.Is(err, eventprocessor.ErrInvalidInput):
		return http.StatusBadRequest, ErrCodeBadRequest, nil
	case errors.Is(err, eventprocessor.ErrQueueUnavailable):
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable, nil
	default:
		return http.StatusInternalServerError, ErrCodeInternalError, nil
	}
}

// submissionMessage is the client-facing message for a submission error.
func submissionMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Reading is invalid"
	case http.StatusServiceUnavailable:
		return "Reading queue is unavailable, try again later"
	default:
		return "Failed to record reading"
	}
}
