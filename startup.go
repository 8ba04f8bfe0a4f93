package main

import (
	"context"
	"fmt"
	"io"
	"lyrics-bridge-go/config"
	"lyrics-bridge-go/logcolors"
	"lyrics-bridge-go/middleware"
	"lyrics-bridge-go/stats"
	"net"
	"net/http"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging applies the configured level and format and, when LOG_FILE
// is set, tees output into a rotated file. The returned closer is the file
// writer, or nil when logging only to stdout.
func setupLogging(cfg config.Config) io.Closer {
	c := cfg.Configuration

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(c.LogFormat, "text") {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}

	out, closer := buildLogWriter(c.LogFile, c.LogFileMaxSizeMB, c.LogFileMaxBackups, c.LogFileMaxAgeDays)
	log.SetOutput(out)

	if err != nil {
		log.Warnf("%s Unknown LOG_LEVEL %q, using info", logcolors.LogConfig, c.LogLevel)
	}
	return closer
}

func buildLogWriter(path string, maxSizeMB, maxBackups, maxAgeDays int) (io.Writer, io.Closer) {
	if path == "" {
		return os.Stdout, nil
	}

	if maxSizeMB <= 0 {
		maxSizeMB = 100
	}
	if maxBackups <= 0 {
		maxBackups = 3
	}
	if maxAgeDays <= 0 {
		maxAgeDays = 30
	}

	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	return io.MultiWriter(os.Stdout, lj), lj
}

// clientIP strips the port from RemoteAddr so all connections from one
// host share a bucket.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func limitMiddleware(next http.Handler, limiter *middleware.IPRateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A valid API key skips rate limiting
		apiKey := r.Header.Get("X-API-Key")
		if apiKey != "" && conf.Configuration.APIKey != "" && apiKey == conf.Configuration.APIKey {
			w.Header().Set("X-RateLimit-Bypass", "true")
			ctx := context.WithValue(r.Context(), rateLimitTypeKey, "bypass")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		ip := clientIP(r)
		if limiter.GetLimiter(ip).Allow() {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.GetLimit()))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", limiter.Remaining(ip)))
			ctx := context.WithValue(r.Context(), rateLimitTypeKey, "normal")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		stats.Get().RateLimitExceeded.Add(1)
		log.Warnf("%s IP %s exceeded rate limit", logcolors.LogRateLimit, ip)
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.GetLimit()))
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Type", "exceeded")
		w.Header().Set("Retry-After", "1")
		Respond(w, r).Error(http.StatusTooManyRequests, errorResponse{
			Code:    http.StatusTooManyRequests,
			Name:    "TooManyRequests",
			Message: "Rate limit exceeded, retry shortly",
		})
	})
}
