// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRouter_NotFoundAndMethod(t *testing.T) {
	h := newTestRouter(HandlerConfig{Submitter: &fakeSubmitter{}, State: sampleState()}, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantCode   string
	}{
		{"unknown route", http.MethodGet, "/api/v1/books", http.StatusNotFound, ErrCodeNotFound},
		{"get on submission route", http.MethodGet, "/api/v1/readings", http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed},
		{"post on state route", http.MethodPost, "/api/v1/marathon", http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if env := decodeEnvelope(t, rec); env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("expected %s, got %s", tt.wantCode, rec.Body.String())
			}
		})
	}
}

func TestRouter_RequestIDHeader(t *testing.T) {
	h := newTestRouter(HandlerConfig{Submitter: &fakeSubmitter{}, State: sampleState()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/marathon", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") != "trace-42" {
		t.Errorf("expected request id echoed, got %q", rec.Header().Get("X-Request-ID"))
	}
	if env := decodeEnvelope(t, rec); env.Meta == nil || env.Meta.RequestID != "trace-42" {
		t.Errorf("expected request id in meta, got %+v", env.Meta)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.CORSAllowedOrigins = []string{"https://dashboard.example"}
	cfg.RateLimitDisabled = true
	h := newTestRouter(HandlerConfig{Submitter: &fakeSubmitter{}, State: sampleState()}, cfg)

	tests := []struct {
		origin    string
		wantAllow string
	}{
		{"https://dashboard.example", "https://dashboard.example"},
		{"https://evil.example", ""},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/v1/readings", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
		})
	}
}

func TestRouter_RateLimitSharedBySubmissionRoutes(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Minute
	sub := &fakeSubmitter{}
	h := newTestRouter(HandlerConfig{Submitter: sub, State: sampleState()}, cfg)

	body := `{"participantId":"ana","bookTitle":"x","pagesRead":1}`
	if rec := do(t, h, http.MethodPost, "/api/v1/readings", body); rec.Code != http.StatusAccepted {
		t.Fatalf("first submission: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/leitura", body); rec.Code != http.StatusOK {
		t.Fatalf("second submission: %d", rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/api/v1/readings", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Error == nil || env.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("expected TOO_MANY_REQUESTS, got %s", rec.Body.String())
	}

	if rec := do(t, h, http.MethodGet, "/api/v1/marathon", ""); rec.Code != http.StatusOK {
		t.Errorf("reads are not rate limited, got %d", rec.Code)
	}
	if sub.count() != 2 {
		t.Errorf("expected 2 submissions through, got %d", sub.count())
	}
}

func TestRouter_Metrics(t *testing.T) {
	h := newTestRouter(HandlerConfig{Submitter: &fakeSubmitter{}, State: sampleState()}, nil)

	do(t, h, http.MethodGet, "/api/v1/participants/ana", "")
	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `endpoint="/api/v1/participants/{participantID}"`) {
		t.Error("expected the route pattern as the endpoint label")
	}
}

func TestRouter_WebSocketWithoutHub(t *testing.T) {
	h := newTestRouter(HandlerConfig{Submitter: &fakeSubmitter{}, State: sampleState()}, nil)

	rec := do(t, h, http.MethodGet, "/ws", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a hub, got %d", rec.Code)
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"wildcard", []string{"*"}, "https://any.example", true},
		{"wildcard without origin", []string{"*"}, "", true},
		{"listed", []string{"https://dashboard.example"}, "https://dashboard.example", true},
		{"case insensitive", []string{"https://Dashboard.example"}, "https://dashboard.example", true},
		{"unlisted", []string{"https://dashboard.example"}, "https://evil.example", false},
		{"missing origin", []string{"https://dashboard.example"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(HandlerConfig{CORSOrigins: tt.allowed})
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := h.checkWebSocketOrigin(req); got != tt.want {
				t.Errorf("checkWebSocketOrigin = %v, want %v", got, tt.want)
			}
		})
	}
}
