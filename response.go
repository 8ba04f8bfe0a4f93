package main

import (
	"encoding/json"
	"fmt"
	"lyrics-bridge-go/middleware"
	"lyrics-bridge-go/services/providers"
	"net/http"
	"strconv"
)

// APIResponse handles consistent header setting and JSON responses.
// It sets X-Provider, X-Lyric-Variant, X-Auth-Mode and X-RateLimit-Type,
// plus the X-Match-* headers when debug info is enabled.
type APIResponse struct {
	w        http.ResponseWriter
	r        *http.Request
	provider string
	variant  string
	lookup   *providers.LookupResult
}

// Respond creates a response helper from request context
func Respond(w http.ResponseWriter, r *http.Request) *APIResponse {
	return &APIResponse{w: w, r: r}
}

// SetProvider sets the X-Provider header value
func (a *APIResponse) SetProvider(provider string) *APIResponse {
	a.provider = provider
	return a
}

// SetVariant sets the X-Lyric-Variant header value
func (a *APIResponse) SetVariant(variant string) *APIResponse {
	a.variant = variant
	return a
}

// SetLookup attaches the lookup details reported in the debug headers
func (a *APIResponse) SetLookup(result *providers.LookupResult) *APIResponse {
	a.lookup = result
	return a
}

// writeHeaders sets all standard headers based on context
func (a *APIResponse) writeHeaders() {
	h := a.w.Header()
	h.Set("Content-Type", "application/json")

	if a.provider != "" {
		h.Set("X-Provider", a.provider)
	}
	if a.variant != "" {
		h.Set("X-Lyric-Variant", a.variant)
	}

	if middleware.IsAPIKeyAuthenticated(a.r.Context()) {
		h.Set("X-Auth-Mode", "authenticated")
	}

	if rateLimitType, ok := a.r.Context().Value(rateLimitTypeKey).(string); ok && rateLimitType != "" {
		h.Set("X-RateLimit-Type", rateLimitType)
	}

	if a.lookup != nil && conf.FeatureFlags.ExposeDebugInfo {
		h.Set("X-Match-Strategy", a.lookup.Strategy.Label)
		h.Set("X-Match-Keyword", a.lookup.Strategy.Keyword)
		h.Set("X-Match-Score", fmt.Sprintf("%.1f", a.lookup.Score.Combined))
		h.Set("X-Match-Exact", strconv.FormatBool(a.lookup.Score.Exact))
		h.Set("X-Match-Attempts", strconv.Itoa(a.lookup.Attempts))
	}
}

// JSON writes headers and encodes data as JSON (200 OK)
func (a *APIResponse) JSON(data interface{}) error {
	a.writeHeaders()
	return json.NewEncoder(a.w).Encode(data)
}

// Error writes headers, sets status code, and encodes error response
func (a *APIResponse) Error(statusCode int, data interface{}) error {
	a.writeHeaders()
	a.w.WriteHeader(statusCode)
	return json.NewEncoder(a.w).Encode(data)
}
