package middleware

import (
	"context"
	"lyrics-bridge-go/logcolors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const apiKeyAuthenticatedKey contextKey = "apiKeyAuthenticated"

// IsAPIKeyAuthenticated reports whether the request carried the configured API key
func IsAPIKeyAuthenticated(ctx context.Context) bool {
	ok, _ := ctx.Value(apiKeyAuthenticatedKey).(bool)
	return ok
}

// WithAPIKeyAuthenticated marks ctx as carrying a valid API key
func WithAPIKeyAuthenticated(ctx context.Context) context.Context {
	return context.WithValue(ctx, apiKeyAuthenticatedKey, true)
}

func writeUnauthorized(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(body))
}

// APIKeyMiddleware checks the X-API-Key header. A valid key always marks the
// request as authenticated. When required is false requests without a key
// pass through; when required is true but no key is configured it logs a
// warning and allows the request. Public paths are never checked; a trailing
// "*" makes an entry a prefix match.
func APIKeyMiddleware(apiKey string, required bool, publicPaths []string) func(http.Handler) http.Handler {
	publicPathMap := make(map[string]bool)
	var publicPrefixes []string
	for _, path := range publicPaths {
		if strings.HasSuffix(path, "*") {
			publicPrefixes = append(publicPrefixes, strings.TrimSuffix(path, "*"))
			continue
		}
		publicPathMap[path] = true
	}

	isPublic := func(path string) bool {
		if publicPathMap[path] {
			return true
		}
		for _, prefix := range publicPrefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			providedKey := r.Header.Get("X-API-Key")
			if apiKey != "" && providedKey == apiKey {
				next.ServeHTTP(w, r.WithContext(WithAPIKeyAuthenticated(r.Context())))
				return
			}

			if !required || isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if apiKey == "" {
				log.Warnf("%s API key required but not configured, allowing request", logcolors.LogAPIKey)
				next.ServeHTTP(w, r)
				return
			}

			if providedKey == "" {
				log.Warnf("%s Missing API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, r.URL.Path)
				writeUnauthorized(w, `{"error":"API key required","message":"Provide a valid API key via X-API-Key header"}`)
				return
			}

			log.Warnf("%s Invalid API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, r.URL.Path)
			writeUnauthorized(w, `{"error":"Invalid API key","message":"The provided API key is not valid"}`)
		})
	}
}
