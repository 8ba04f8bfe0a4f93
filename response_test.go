package main

import (
	"context"
	"encoding/json"
	"lyrics-bridge-go/middleware"
	"lyrics-bridge-go/services/matching"
	"lyrics-bridge-go/services/providers"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIResponse_ProviderAndVariant(t *testing.T) {
	tests := []struct {
		name             string
		provider         string
		variant          string
		expectedProvider string
		expectedVariant  string
	}{
		{"Word synced", "qqmusic", "word", "qqmusic", "word"},
		{"Line synced", "qqmusic", "line", "qqmusic", "line"},
		{"Instrumental", "qqmusic", "none", "qqmusic", "none"},
		{"Nothing set", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/test", nil)

			Respond(w, r).SetProvider(tt.provider).SetVariant(tt.variant).JSON(map[string]string{"test": "data"})

			if got := w.Header().Get("X-Provider"); got != tt.expectedProvider {
				t.Errorf("X-Provider = %q, want %q", got, tt.expectedProvider)
			}
			if got := w.Header().Get("X-Lyric-Variant"); got != tt.expectedVariant {
				t.Errorf("X-Lyric-Variant = %q, want %q", got, tt.expectedVariant)
			}
		})
	}
}

func TestAPIResponse_AuthModeFromContext(t *testing.T) {
	tests := []struct {
		name     string
		ctx      func(context.Context) context.Context
		expected string
	}{
		{
			name:     "authenticated request",
			ctx:      func(ctx context.Context) context.Context { return middleware.WithAPIKeyAuthenticated(ctx) },
			expected: "authenticated",
		},
		{
			name:     "anonymous request",
			ctx:      func(ctx context.Context) context.Context { return ctx },
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/test", nil)
			r = r.WithContext(tt.ctx(r.Context()))

			Respond(w, r).JSON(map[string]string{"test": "data"})

			if got := w.Header().Get("X-Auth-Mode"); got != tt.expected {
				t.Errorf("X-Auth-Mode = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIResponse_RateLimitTypeFromContext(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{"normal", "normal", "normal"},
		{"bypass", "bypass", "bypass"},
		{"missing", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/test", nil)
			if tt.value != "" {
				r = r.WithContext(context.WithValue(r.Context(), rateLimitTypeKey, tt.value))
			}

			Respond(w, r).JSON(map[string]string{"test": "data"})

			if got := w.Header().Get("X-RateLimit-Type"); got != tt.expected {
				t.Errorf("X-RateLimit-Type = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIResponse_DebugHeaders(t *testing.T) {
	previous := conf.FeatureFlags.ExposeDebugInfo
	t.Cleanup(func() { conf.FeatureFlags.ExposeDebugInfo = previous })

	lookup := &providers.LookupResult{
		Strategy: matching.Strategy{Label: matching.StrategyTitle, Keyword: "晴天"},
		Score:    matching.MatchScore{Combined: 87.24},
		Attempts: 2,
	}

	conf.FeatureFlags.ExposeDebugInfo = true
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/get", nil)
	Respond(w, r).SetLookup(lookup).JSON(map[string]string{})

	expected := map[string]string{
		"X-Match-Strategy": "title",
		"X-Match-Keyword":  "晴天",
		"X-Match-Score":    "87.2",
		"X-Match-Exact":    "false",
		"X-Match-Attempts": "2",
	}
	for header, want := range expected {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}

	conf.FeatureFlags.ExposeDebugInfo = false
	w = httptest.NewRecorder()
	Respond(w, r).SetLookup(lookup).JSON(map[string]string{})
	if got := w.Header().Get("X-Match-Strategy"); got != "" {
		t.Errorf("X-Match-Strategy should be hidden, got %q", got)
	}
}

func TestAPIResponse_JSON(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)

	data := map[string]interface{}{
		"trackName": "晴天",
		"duration":  269,
	}

	if err := Respond(w, r).JSON(data); err != nil {
		t.Fatalf("JSON() returned error: %v", err)
	}

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var result map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result["trackName"] != "晴天" {
		t.Errorf("trackName = %v, want 晴天", result["trackName"])
	}
}

func TestAPIResponse_Error(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)

	errData := errorResponse{Code: http.StatusNotFound, Name: "TrackNotFound", Message: "Failed to find specified track"}
	if err := Respond(w, r).SetProvider("qqmusic").Error(http.StatusNotFound, errData); err != nil {
		t.Fatalf("Error() returned error: %v", err)
	}

	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if got := w.Header().Get("X-Provider"); got != "qqmusic" {
		t.Errorf("X-Provider = %q, want qqmusic", got)
	}

	var result errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result != errData {
		t.Errorf("Body = %+v, want %+v", result, errData)
	}
}
