package main

import (
	"context"
	"errors"
	"lyrics-bridge-go/circuitbreaker"
	"lyrics-bridge-go/logcolors"
	"lyrics-bridge-go/services/matching"
	"lyrics-bridge-go/services/providers"
	"lyrics-bridge-go/stats"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// breakerProvider is implemented by providers guarded by a circuit breaker
type breakerProvider interface {
	Breaker() *circuitbreaker.CircuitBreaker
}

func providerBreaker() *circuitbreaker.CircuitBreaker {
	if bp, ok := lyricsProvider.(breakerProvider); ok {
		return bp.Breaker()
	}
	return nil
}

// isAdmin reports whether the request carries the admin token. Admin
// endpoints are closed when no token is configured.
func isAdmin(r *http.Request) bool {
	token := conf.Configuration.AdminAccessToken
	return token != "" && r.Header.Get("Authorization") == token
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).Error(http.StatusUnauthorized, errorResponse{
		Code:    http.StatusUnauthorized,
		Name:    "Unauthorized",
		Message: "A valid Authorization header is required",
	})
}

// firstParam returns the first non-blank query parameter among names
func firstParam(r *http.Request, names ...string) string {
	q := r.URL.Query()
	for _, name := range names {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

func parseQuery(r *http.Request) matching.SearchQuery {
	return matching.SearchQuery{
		TrackName:  firstParam(r, "trackName", "track_name"),
		ArtistName: firstParam(r, "artistName", "artist_name"),
	}
}

// writeLookupError maps a provider error onto the LRCLIB error responses
func writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, providers.ErrNotFound):
		Respond(w, r).Error(http.StatusNotFound, errorResponse{
			Code:    http.StatusNotFound,
			Name:    "TrackNotFound",
			Message: "Failed to find specified track",
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Infof("%s Lookup abandoned: %v", logcolors.LogRequest, err)
		Respond(w, r).Error(http.StatusServiceUnavailable, errorResponse{
			Code:    http.StatusServiceUnavailable,
			Name:    "RequestCancelled",
			Message: "The lookup did not complete",
		})
	default:
		log.Errorf("%s Lookup failed: %v", logcolors.LogRequest, err)
		Respond(w, r).Error(http.StatusInternalServerError, errorResponse{
			Code:    http.StatusInternalServerError,
			Name:    "UpstreamError",
			Message: "The lyrics provider could not be reached",
		})
	}
}

func missingTrackName(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).Error(http.StatusBadRequest, errorResponse{
		Code:    http.StatusBadRequest,
		Name:    "MissingTrackName",
		Message: "trackName is required",
	})
}

func getLyrics(w http.ResponseWriter, r *http.Request) {
	query := parseQuery(r)
	if query.TrackName == "" {
		missingTrackName(w, r)
		return
	}

	log.Infof("%s Lookup: %s - %s", logcolors.LogRequest, query.TrackName, query.ArtistName)

	result, err := lyricsProvider.LookupLyrics(r.Context(), query)
	if err != nil {
		writeLookupError(w, r, err)
		return
	}

	Respond(w, r).
		SetProvider(lyricsProvider.Name()).
		SetVariant(string(result.Variant)).
		SetLookup(result).
		JSON(result.Record)
}

func searchLyrics(w http.ResponseWriter, r *http.Request) {
	query := parseQuery(r)
	if query.TrackName == "" {
		missingTrackName(w, r)
		return
	}

	ranked, err := lyricsProvider.Search(r.Context(), query)
	if err != nil {
		writeLookupError(w, r, err)
		return
	}

	results := make([]searchResult, len(ranked))
	for i, s := range ranked {
		results[i] = newSearchResult(s)
	}
	Respond(w, r).SetProvider(lyricsProvider.Name()).JSON(results)
}

func getHealthStatus(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":   "ok",
		"provider": lyricsProvider.Name(),
		"uptime":   stats.Get().Uptime().Round(time.Second).String(),
	}

	if breaker := providerBreaker(); breaker != nil {
		health["circuit_breaker"] = breaker.State().String()
		if breaker.State() == circuitbreaker.StateOpen {
			health["status"] = "degraded"
			health["circuit_breaker_retry_in"] = breaker.TimeUntilRetry().String()
		}
		if isAdmin(r) {
			health["circuit_breaker_failures"] = breaker.Failures()
		}
	}

	Respond(w, r).JSON(health)
}

func getStats(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		unauthorized(w, r)
		return
	}

	snapshot := stats.Get().Snapshot()
	if breaker := providerBreaker(); breaker != nil {
		snapshot["circuit_breaker"] = breaker.Status()
	}
	snapshot["providers"] = providers.GetRegistry().List()

	Respond(w, r).JSON(snapshot)
}

func getCircuitBreakerStatus(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		unauthorized(w, r)
		return
	}

	breaker := providerBreaker()
	if breaker == nil {
		Respond(w, r).Error(http.StatusNotFound, errorResponse{
			Code:    http.StatusNotFound,
			Name:    "NoCircuitBreaker",
			Message: "The active provider has no circuit breaker",
		})
		return
	}

	Respond(w, r).JSON(map[string]interface{}{
		"status": breaker.Status(),
		"config": map[string]interface{}{
			"threshold":    conf.Configuration.CircuitBreakerThreshold,
			"cooldown_sec": conf.Configuration.CircuitBreakerCooldownSecs,
		},
	})
}

func resetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		unauthorized(w, r)
		return
	}

	breaker := providerBreaker()
	if breaker != nil {
		breaker.Reset()
		log.Infof("%s Reset by admin request", logcolors.CircuitBreakerPrefix(breaker.Name()))
	}

	Respond(w, r).JSON(map[string]interface{}{
		"message": "Circuit breaker reset to CLOSED state",
	})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).Error(http.StatusNotFound, errorResponse{
		Code:    http.StatusNotFound,
		Name:    "NotFound",
		Message: "Unknown endpoint, see / for usage",
	})
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"help": "Use /api/get to get the lyrics of a song. Provide the track name and, optionally, the artist name as query parameters. Example: /api/get?trackName=晴天&artistName=周杰伦",
		"endpoints": map[string]string{
			"GET /api/get":                "Best match with plain and synced lyrics (alias: /get)",
			"GET /api/search":             "Ranked candidates for a track, without lyrics",
			"GET /health":                 "Service and upstream status",
			"GET /stats":                  "Request and lookup counters (requires Authorization)",
			"GET /circuit-breaker":        "Upstream circuit breaker status (requires Authorization)",
			"POST /circuit-breaker/reset": "Close the circuit breaker (requires Authorization)",
		},
		"parameters": map[string]string{
			"trackName":  "Track title (alias: track_name), required",
			"artistName": "Artist name (alias: artist_name), optional",
		},
	})
}
