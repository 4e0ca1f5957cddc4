// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package models

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// MaxPagesPerReading is the largest pagesRead a single reading may carry.
// The lte tags on ReadingInput and ReadingEvent use the same value.
const MaxPagesPerReading = 100000

// ReadingEvent is one reading report as it travels through the queue. The
// JSON field names are the wire contract shared by producer and aggregator.
type ReadingEvent struct {
	EventID       string    `json:"eventId,omitempty" validate:"omitempty,max=64"`
	MarathonID    string    `json:"marathonId"`
	ParticipantID string    `json:"participantId" validate:"notblank,max=128"`
	BookTitle     string    `json:"bookTitle" validate:"max=512"`
	PagesRead     int64     `json:"pagesRead" validate:"gt=0,lte=100000"`
	Timestamp     time.Time `json:"timestamp"`
}

// ReadingInput is the body of a submission before the producer stamps it.
//
// BookTitle is a pointer so that an absent or null title can be told apart
// from an empty one.
type ReadingInput struct {
	ParticipantID string    `json:"participantId" validate:"notblank,max=128"`
	BookTitle     *string   `json:"bookTitle" validate:"required,max=512"`
	PagesRead     PageCount `json:"pagesRead" validate:"gt=0,lte=100000"`
}

// Normalize trims the participant id in place.
func (in *ReadingInput) Normalize() {
	in.ParticipantID = strings.TrimSpace(in.ParticipantID)
}

// Event builds the wire event for in. Call it only after validation.
func (in *ReadingInput) Event(eventID, marathonID string, at time.Time) *ReadingEvent {
	title := ""
	if in.BookTitle != nil {
		title = *in.BookTitle
	}
	return &ReadingEvent{
		EventID:       eventID,
		MarathonID:    marathonID,
		ParticipantID: in.ParticipantID,
		BookTitle:     title,
		PagesRead:     int64(in.PagesRead),
		Timestamp:     at.UTC(),
	}
}

// PageCount is a page number that decodes from either a JSON integer or a
// string holding a base-10 integer, as browser forms send it.
//
// Anything else (fractions, words, booleans) decodes to 0 so that the
// gt=0 rule rejects it as a validation failure rather than a syntax error.
type PageCount int64

// UnmarshalJSON implements json.Unmarshaler.
func (p *PageCount) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	*p = 0

	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		raw = []byte(strings.TrimSpace(s))
	}

	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return nil
	}
	*p = PageCount(n)
	return nil
}
