// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newBufferedSlog(buf *bytes.Buffer) *slog.Logger {
	return slog.New(&SlogHandler{logger: NewTestLogger(buf)})
}

func TestSlogHandler_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferedSlog(&buf)

	logger.Info("service started", "service", "aggregator")
	logger.Warn("service restarting", "attempt", 2)
	logger.Error("service failed", "took", 3*time.Second)

	out := buf.String()
	for _, want := range []string{
		`"level":"info"`, `"service":"aggregator"`,
		`"level":"warn"`, `"attempt":2`,
		`"level":"error"`, `"message":"service failed"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}

func TestSlogHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferedSlog(&buf).WithGroup("svc").With("tree", "marathon")

	logger.Info("event", "name", "hub", slog.Group("restart", "count", 1))

	out := buf.String()
	for _, want := range []string{`"svc.tree":"marathon"`, `"svc.name":"hub"`, `"svc.restart.count":1`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	var buf bytes.Buffer
	h := &SlogHandler{logger: NewTestLogger(&buf).Level(slogToZerologLevel(slog.LevelWarn))}

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled on a warn-level logger")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled on a warn-level logger")
	}
}

func TestSlogHandler_WithGroupEmpty(t *testing.T) {
	h := NewSlogHandler()
	if h.WithGroup("") != h {
		t.Error("empty group should return the same handler")
	}
}
