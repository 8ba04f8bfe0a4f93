package main

import (
	"encoding/json"
	"fmt"
	"lyrics-bridge-go/circuitbreaker"
	"lyrics-bridge-go/middleware"
	"lyrics-bridge-go/services/lyrics"
	"lyrics-bridge-go/services/matching"
	"lyrics-bridge-go/services/providers/qqmusic"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

const (
	testAdminToken = "test-admin-token"

	sunnyDaySearch = `{"code":200,"data":[{"id":102065756,"mid":"003a5Bo94fjmVW","song":"晴天","singer":[{"name":"周杰伦"}],"album":{"name":"叶惠美"},"interval":269}]}`
	sunnyDayLyric  = `{"code":200,"data":{"lrc":"[ti:晴天]\n[00:01.00]故事的小黄花\n[00:05.00]从出生那年就飘着","trans":"[00:01.00]The little yellow flower of the story"}}`
	emptySearch    = `{"code":200,"data":[]}`
)

// setupTestProvider points the lookup handlers at a fake upstream and
// returns the breaker guarding it.
func setupTestProvider(t *testing.T, searchStatus int, searchBody string) *circuitbreaker.CircuitBreaker {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/search":
			w.WriteHeader(searchStatus)
			fmt.Fprint(w, searchBody)
		case "/lyric":
			fmt.Fprint(w, sunnyDayLyric)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(upstream.Close)

	breaker := circuitbreaker.New(circuitbreaker.Config{Name: "test", Threshold: 100, Cooldown: time.Minute})
	client := qqmusic.NewClient(qqmusic.ClientConfig{
		SearchURL: upstream.URL + "/search",
		LyricURL:  upstream.URL + "/lyric",
		Timeout:   2 * time.Second,
		Breaker:   breaker,
	})

	previous := lyricsProvider
	lyricsProvider = qqmusic.New(client, qqmusic.Options{
		Weights:   matching.DefaultWeights(),
		Overrides: matching.DefaultOverrides(),
		Lyrics:    lyrics.DefaultOptions(),
	})

	previousToken := conf.Configuration.AdminAccessToken
	conf.Configuration.AdminAccessToken = testAdminToken

	t.Cleanup(func() {
		lyricsProvider = previous
		conf.Configuration.AdminAccessToken = previousToken
	})
	return breaker
}

func newTestRouter() *mux.Router {
	router := mux.NewRouter()
	setupRoutes(router)
	return router
}

func serve(router http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetLyrics(t *testing.T) {
	setupTestProvider(t, http.StatusOK, sunnyDaySearch)
	router := newTestRouter()

	for _, target := range []string{
		"/api/get?trackName=%E6%99%B4%E5%A4%A9&artistName=%E5%91%A8%E6%9D%B0%E4%BC%A6",
		"/get?track_name=%E6%99%B4%E5%A4%A9&artist_name=%E5%91%A8%E6%9D%B0%E4%BC%A6",
	} {
		t.Run(target, func(t *testing.T) {
			rec := serve(router, "GET", target, nil)

			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if rec.Header().Get("X-Lyric-Variant") != "line" {
				t.Errorf("Expected X-Lyric-Variant line, got %q", rec.Header().Get("X-Lyric-Variant"))
			}
			if rec.Header().Get("X-Provider") != qqmusic.ProviderName {
				t.Errorf("Expected X-Provider %s, got %q", qqmusic.ProviderName, rec.Header().Get("X-Provider"))
			}

			var body map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("Invalid JSON: %v", err)
			}

			for _, field := range []string{"id", "name", "trackName", "artistName", "albumName", "duration", "instrumental", "plainLyrics", "syncedLyrics"} {
				if _, ok := body[field]; !ok {
					t.Errorf("Missing field %q in %s", field, rec.Body.String())
				}
			}
			if body["id"] != float64(102065756) {
				t.Errorf("Expected numeric id, got %v", body["id"])
			}
			if body["plainLyrics"] != "故事的小黄花\n从出生那年就飘着" {
				t.Errorf("Unexpected plainLyrics: %q", body["plainLyrics"])
			}
			if body["instrumental"] != false {
				t.Errorf("Expected instrumental false, got %v", body["instrumental"])
			}
			if body["translatedLyrics"] != "[00:01.00]The little yellow flower of the story" {
				t.Errorf("Unexpected translatedLyrics: %q", body["translatedLyrics"])
			}
		})
	}
}

func TestGetLyrics_Errors(t *testing.T) {
	tests := []struct {
		name           string
		searchStatus   int
		searchBody     string
		target         string
		expectedStatus int
		expectedName   string
	}{
		{"Missing track name", http.StatusOK, sunnyDaySearch, "/api/get?artistName=x", http.StatusBadRequest, "MissingTrackName"},
		{"Blank track name", http.StatusOK, sunnyDaySearch, "/api/get?trackName=%20%20", http.StatusBadRequest, "MissingTrackName"},
		{"Nothing found", http.StatusOK, emptySearch, "/api/get?trackName=nothing&artistName=nobody", http.StatusNotFound, "TrackNotFound"},
		{"Upstream down", http.StatusBadGateway, "", "/api/get?trackName=song&artistName=artist", http.StatusInternalServerError, "UpstreamError"},
		{"Search nothing found", http.StatusOK, emptySearch, "/api/search?trackName=nothing", http.StatusNotFound, "TrackNotFound"},
		{"Search missing track", http.StatusOK, emptySearch, "/api/search", http.StatusBadRequest, "MissingTrackName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestProvider(t, tt.searchStatus, tt.searchBody)
			rec := serve(newTestRouter(), "GET", tt.target, nil)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}

			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("Invalid JSON: %v", err)
			}
			if body.Code != tt.expectedStatus || body.Name != tt.expectedName {
				t.Errorf("Expected %d/%s, got %+v", tt.expectedStatus, tt.expectedName, body)
			}
		})
	}
}

func TestGetLyrics_DebugHeaders(t *testing.T) {
	setupTestProvider(t, http.StatusOK, sunnyDaySearch)

	previous := conf.FeatureFlags.ExposeDebugInfo
	t.Cleanup(func() { conf.FeatureFlags.ExposeDebugInfo = previous })

	target := "/api/get?trackName=%E6%99%B4%E5%A4%A9&artistName=%E5%91%A8%E6%9D%B0%E4%BC%A6"

	conf.FeatureFlags.ExposeDebugInfo = false
	rec := serve(newTestRouter(), "GET", target, nil)
	if rec.Header().Get("X-Match-Strategy") != "" {
		t.Error("Debug headers should be hidden by default")
	}

	conf.FeatureFlags.ExposeDebugInfo = true
	rec = serve(newTestRouter(), "GET", target, nil)
	if rec.Header().Get("X-Match-Strategy") != matching.StrategyTitleArtist {
		t.Errorf("Expected X-Match-Strategy %s, got %q", matching.StrategyTitleArtist, rec.Header().Get("X-Match-Strategy"))
	}
	if rec.Header().Get("X-Match-Exact") != "true" || rec.Header().Get("X-Match-Attempts") != "1" {
		t.Errorf("Unexpected debug headers: %v", rec.Header())
	}
}

func TestSearchLyrics(t *testing.T) {
	setupTestProvider(t, http.StatusOK, sunnyDaySearch)

	rec := serve(newTestRouter(), "GET", "/api/search?trackName=%E6%99%B4%E5%A4%A9", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var results []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0]["trackName"] != "晴天" || results[0]["albumName"] != "叶惠美" {
		t.Errorf("Unexpected result: %v", results[0])
	}
	if _, ok := results[0]["score"].(map[string]interface{}); !ok {
		t.Errorf("Expected a score breakdown, got %v", results[0]["score"])
	}
}

func TestGetHealthStatus(t *testing.T) {
	breaker := setupTestProvider(t, http.StatusOK, sunnyDaySearch)
	router := newTestRouter()

	rec := serve(router, "GET", "/health", nil)
	var health map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &health)

	if health["status"] != "ok" || health["circuit_breaker"] != "CLOSED" {
		t.Errorf("Unexpected healthy status: %v", health)
	}
	if _, ok := health["circuit_breaker_failures"]; ok {
		t.Error("Failure count should only be shown to admins")
	}

	for i := 0; i < 100; i++ {
		breaker.RecordFailure()
	}

	rec = serve(router, "GET", "/health", map[string]string{"Authorization": testAdminToken})
	health = nil
	json.Unmarshal(rec.Body.Bytes(), &health)

	if health["status"] != "degraded" || health["circuit_breaker"] != "OPEN" {
		t.Errorf("Expected degraded status with open breaker, got %v", health)
	}
	if health["circuit_breaker_failures"] != float64(100) {
		t.Errorf("Expected 100 failures for admin, got %v", health["circuit_breaker_failures"])
	}
}

func TestAdminEndpoints(t *testing.T) {
	endpoints := []string{"/stats", "/circuit-breaker", "/circuit-breaker/reset"}

	t.Run("Rejected without token", func(t *testing.T) {
		setupTestProvider(t, http.StatusOK, sunnyDaySearch)
		router := newTestRouter()
		for _, endpoint := range endpoints {
			rec := serve(router, "GET", endpoint, map[string]string{"Authorization": "wrong"})
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("%s: expected 401, got %d", endpoint, rec.Code)
			}
		}
	})

	t.Run("Closed when no token is configured", func(t *testing.T) {
		setupTestProvider(t, http.StatusOK, sunnyDaySearch)
		conf.Configuration.AdminAccessToken = ""
		rec := serve(newTestRouter(), "GET", "/stats", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 with an empty token, got %d", rec.Code)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		setupTestProvider(t, http.StatusOK, sunnyDaySearch)
		rec := serve(newTestRouter(), "GET", "/stats", map[string]string{"Authorization": testAdminToken})
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}

		var snapshot map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &snapshot)
		for _, section := range []string{"server", "requests", "lookups", "upstream", "circuit_breaker"} {
			if _, ok := snapshot[section]; !ok {
				t.Errorf("Missing stats section %q", section)
			}
		}
	})

	t.Run("Reset circuit breaker", func(t *testing.T) {
		breaker := setupTestProvider(t, http.StatusOK, sunnyDaySearch)
		for i := 0; i < 100; i++ {
			breaker.RecordFailure()
		}

		router := newTestRouter()
		rec := serve(router, "POST", "/circuit-breaker/reset", map[string]string{"Authorization": testAdminToken})
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		if breaker.State() != circuitbreaker.StateClosed {
			t.Errorf("Expected closed breaker after reset, got %s", breaker.State())
		}

		rec = serve(router, "GET", "/circuit-breaker", map[string]string{"Authorization": testAdminToken})
		var status struct {
			Status circuitbreaker.Status `json:"status"`
		}
		json.Unmarshal(rec.Body.Bytes(), &status)
		if status.Status.State != "CLOSED" || status.Status.Failures != 0 {
			t.Errorf("Unexpected breaker status: %+v", status.Status)
		}
	})
}

func TestHelpAndNotFound(t *testing.T) {
	setupTestProvider(t, http.StatusOK, sunnyDaySearch)
	router := newTestRouter()

	rec := serve(router, "GET", "/", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/api/get") {
		t.Errorf("Unexpected help response: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(router, "GET", "/getLyrics", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown path, got %d", rec.Code)
	}
}

func TestLimitMiddleware(t *testing.T) {
	previousKey := conf.Configuration.APIKey
	conf.Configuration.APIKey = "bypass-key"
	t.Cleanup(func() { conf.Configuration.APIKey = previousKey })

	var rateLimitType string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rateLimitType, _ = r.Context().Value(rateLimitTypeKey).(string)
		w.WriteHeader(http.StatusOK)
	})
	handler := limitMiddleware(next, middleware.NewIPRateLimiter(rate.Limit(1), 2))

	request := func(remoteAddr, apiKey string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/api/get", nil)
		req.RemoteAddr = remoteAddr
		if apiKey != "" {
			req.Header.Set("X-API-Key", apiKey)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	// Different ports of one host share a bucket
	if rec := request("198.51.100.7:1000", ""); rec.Code != http.StatusOK || rateLimitType != "normal" {
		t.Fatalf("First request should pass, got %d (%s)", rec.Code, rateLimitType)
	}
	if rec := request("198.51.100.7:1001", ""); rec.Code != http.StatusOK {
		t.Fatalf("Second request should pass within burst, got %d", rec.Code)
	}

	rec := request("198.51.100.7:1002", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Third request should be limited, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("Missing rate limit headers: %v", rec.Header())
	}

	if rec := request("198.51.100.7:1003", "bypass-key"); rec.Code != http.StatusOK || rateLimitType != "bypass" {
		t.Errorf("Valid API key should bypass the limit, got %d (%s)", rec.Code, rateLimitType)
	}
	if rec := request("203.0.113.1:1000", ""); rec.Code != http.StatusOK {
		t.Errorf("Other hosts should have their own bucket, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		expected   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"192.0.2.1", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.remoteAddr, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if got := clientIP(req); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestBuildHandler(t *testing.T) {
	setupTestProvider(t, http.StatusOK, sunnyDaySearch)

	rec := serve(buildHandler(), "GET", "/health", map[string]string{"Origin": "https://example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 through the full chain, got %d", rec.Code)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("Expected a request id from the logging middleware")
	}
	if rec.Header().Get("X-RateLimit-Limit") == "" {
		t.Error("Expected rate limit headers")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Expected CORS headers for an allowed origin")
	}
}
