package main

import (
	"net/http"

	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router) {
	// LRCLIB-compatible lookup; /get is kept for older clients
	router.HandleFunc("/api/get", getLyrics).Methods(http.MethodGet)
	router.HandleFunc("/get", getLyrics).Methods(http.MethodGet)
	router.HandleFunc("/api/search", searchLyrics).Methods(http.MethodGet)

	// Health and stats endpoints
	router.HandleFunc("/health", getHealthStatus)
	router.HandleFunc("/stats", getStats)

	// Circuit breaker endpoints
	router.HandleFunc("/circuit-breaker", getCircuitBreakerStatus)
	router.HandleFunc("/circuit-breaker/reset", resetCircuitBreaker).Methods(http.MethodGet, http.MethodPost)

	// Help endpoint
	router.HandleFunc("/", helpHandler)
	router.NotFoundHandler = http.HandlerFunc(notFoundHandler)
}
