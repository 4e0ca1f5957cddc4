// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marathon/internal/eventprocessor"
	"github.com/tomtom215/marathon/internal/logging"
	"github.com/tomtom215/marathon/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

const testMarathon = "verao_2025"

// fakeSubmitter stamps readings without a broker, or fails with err.
type fakeSubmitter struct {
	mu        sync.Mutex
	err       error
	submitted []models.ReadingInput
}

func (f *fakeSubmitter) Submit(_ context.Context, in *models.ReadingInput) (*models.ReadingEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = append(f.submitted, *in)
	return in.Event("evt-1", testMarathon, time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)), nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitted)
}

type fakeState struct {
	state models.MarathonState
}

func (f *fakeState) Snapshot() models.MarathonState {
	return f.state.Clone()
}

// sampleState has ana at 30 pages and bia at 12, seq 3.
func sampleState() *fakeState {
	s := models.NewMarathonState(testMarathon)
	at := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	s.TotalPagesRead = 42
	s.ParticipantTotals["ana"] = 30
	s.ParticipantTotals["bia"] = 12
	s.RecentActivity = []models.ReadingEvent{
		{EventID: "e3", MarathonID: testMarathon, ParticipantID: "ana", BookTitle: "Dom Casmurro", PagesRead: 20, Timestamp: at},
		{EventID: "e2", MarathonID: testMarathon, ParticipantID: "bia", BookTitle: "Iracema", PagesRead: 12, Timestamp: at},
		{EventID: "e1", MarathonID: testMarathon, ParticipantID: "ana", BookTitle: "Dom Casmurro", PagesRead: 10, Timestamp: at},
	}
	s.Sequence = 3
	s.UpdatedAt = &at
	return &fakeState{state: s}
}

type fakeCheck struct {
	name    string
	healthy bool
}

func (f fakeCheck) HealthCheck(context.Context) eventprocessor.ComponentHealth {
	msg := "connected"
	if !f.healthy {
		msg = "connecting"
	}
	return eventprocessor.ComponentHealth{Name: f.name, Healthy: f.healthy, Message: msg, LastCheck: time.Now()}
}

func newTestRouter(cfg HandlerConfig, mwCfg *ChiMiddlewareConfig) http.Handler {
	if cfg.CORSOrigins == nil {
		cfg.CORSOrigins = []string{"*"}
	}
	if mwCfg == nil {
		mwCfg = DefaultChiMiddlewareConfig()
		mwCfg.RateLimitDisabled = true
	}
	return NewRouter(NewHandler(cfg), NewChiMiddleware(mwCfg)).SetupChi()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope %q: %v", rec.Body.String(), err)
	}
	return env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %q: %v", string(env.Data), err)
	}
}
