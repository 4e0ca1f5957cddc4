// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package eventprocessor

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marathon/internal/models"
)

// EncodeEvent converts a reading to its queue payload.
func EncodeEvent(event *models.ReadingEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// DecodeEvent parses a queue payload. It does not validate the result.
func DecodeEvent(data []byte) (*models.ReadingEvent, error) {
	var event models.ReadingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &event, nil
}
