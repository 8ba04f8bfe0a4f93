package main

import (
	"context"
	"errors"
	"lyrics-bridge-go/config"
	"lyrics-bridge-go/logcolors"
	"lyrics-bridge-go/middleware"
	"lyrics-bridge-go/services/providers"
	"lyrics-bridge-go/services/providers/qqmusic"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var conf = config.Get()

// lyricsProvider serves every lookup; set in main and replaced in tests
var lyricsProvider providers.Provider

func main() {
	logFile := setupLogging(conf)
	if logFile != nil {
		defer logFile.Close()
	}

	p := qqmusic.NewProvider(conf)
	providers.Register(p)
	lyricsProvider = p

	log.Infof("%s Provider %s ready (search: %s)", logcolors.LogServer, p.Name(), conf.Configuration.SearchURL)
	if conf.Configuration.AdminAccessToken == "" {
		log.Warnf("%s ADMIN_ACCESS_TOKEN not set, admin endpoints are disabled", logcolors.LogConfig)
	}

	server := &http.Server{
		Addr:              ":" + conf.Configuration.Port,
		Handler:           buildHandler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(conf.Configuration.UpstreamTimeoutSecs*conf.Configuration.MaxStrategies+30) * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("%s Listening on port %s", logcolors.LogServer, conf.Configuration.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("%s Server failed: %v", logcolors.LogServer, err)
		}
	}()

	<-ctx.Done()
	log.Infof("%s Shutting down", logcolors.LogServer)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s Graceful shutdown failed: %v", logcolors.LogServer, err)
	}
}

// buildHandler assembles the router and the middleware chain:
// rate limit -> CORS -> logging -> API key -> router.
func buildHandler() http.Handler {
	router := mux.NewRouter()
	setupRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins: conf.Configuration.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key", middleware.RequestIDHeader},
		ExposedHeaders: []string{
			"X-Lyric-Variant", "X-Provider", middleware.RequestIDHeader,
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Type", "Retry-After",
		},
	})

	limiter := middleware.NewIPRateLimiter(
		rate.Limit(conf.Configuration.RateLimitPerSecond),
		conf.Configuration.RateLimitBurstLimit,
	)

	publicPaths := []string{"/", "/health"}
	apiKeyed := middleware.APIKeyMiddleware(conf.Configuration.APIKey, conf.Configuration.APIKeyRequired, publicPaths)

	return limitMiddleware(c.Handler(middleware.LoggingMiddleware(apiKeyed(router))), limiter)
}
