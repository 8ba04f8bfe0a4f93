package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Stats holds process-wide counters. All methods are safe for concurrent use.
type Stats struct {
	StartTime time.Time

	// Requests by endpoint
	TotalRequests  atomic.Int64
	LyricsRequests atomic.Int64
	SearchRequests atomic.Int64
	HealthRequests atomic.Int64
	OtherRequests  atomic.Int64

	// Lookup outcomes
	LookupsFound       atomic.Int64
	LookupsNotFound    atomic.Int64
	LookupsFailed      atomic.Int64 // Every strategy failed at the transport level
	ExactMatches       atomic.Int64
	FallbackSelections atomic.Int64 // Nothing scored, first result taken
	OverridesApplied   atomic.Int64

	// Upstream calls
	SearchCalls        atomic.Int64
	SearchFailures     atomic.Int64
	LyricCalls         atomic.Int64
	LyricFailures      atomic.Int64
	DecodedPayloads    atomic.Int64 // Base64 lyric payloads that were decoded
	CircuitBreakerTrip atomic.Int64

	RateLimitExceeded atomic.Int64

	Status2xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64

	// Response times in microseconds
	totalResponseTime   atomic.Int64
	responseCount       atomic.Int64
	minResponseTime     atomic.Int64
	maxResponseTime     atomic.Int64
	lyricsResponseTime  atomic.Int64
	lyricsResponseCount atomic.Int64

	// Winning strategy labels and lyric variants, keyed by name
	strategies sync.Map // string -> *atomic.Int64
	variants   sync.Map // string -> *atomic.Int64
}

const noMinimum = int64(^uint64(0) >> 1)

var global = New()

// New creates an empty Stats. Most callers want Get.
func New() *Stats {
	s := &Stats{StartTime: time.Now()}
	s.minResponseTime.Store(noMinimum)
	return s
}

// Get returns the global stats instance
func Get() *Stats {
	return global
}

// RecordRequest records a request to a specific endpoint
func (s *Stats) RecordRequest(endpoint string) {
	s.TotalRequests.Add(1)
	switch endpoint {
	case "/api/get", "/get":
		s.LyricsRequests.Add(1)
	case "/api/search":
		s.SearchRequests.Add(1)
	case "/health":
		s.HealthRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

// RecordLookup records the winning strategy and lyric variant of a
// successful lookup.
func (s *Stats) RecordLookup(strategy, variant string, exact, fallback bool) {
	s.LookupsFound.Add(1)
	if exact {
		s.ExactMatches.Add(1)
	}
	if fallback {
		s.FallbackSelections.Add(1)
	}
	increment(&s.strategies, strategy)
	increment(&s.variants, variant)
}

func increment(m *sync.Map, key string) {
	if key == "" {
		return
	}
	v, _ := m.LoadOrStore(key, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
}

func counts(m *sync.Map) map[string]int64 {
	out := make(map[string]int64)
	m.Range(func(k, v any) bool {
		out[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return out
}

// RecordSearchCall records one upstream search and whether it failed.
func (s *Stats) RecordSearchCall(failed bool) {
	s.SearchCalls.Add(1)
	if failed {
		s.SearchFailures.Add(1)
	}
}

// RecordLyricCall records one upstream lyric fetch and whether it failed.
func (s *Stats) RecordLyricCall(failed bool) {
	s.LyricCalls.Add(1)
	if failed {
		s.LyricFailures.Add(1)
	}
}

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// RecordResponseTime records a response time
func (s *Stats) RecordResponseTime(duration time.Duration, endpoint string) {
	us := duration.Microseconds()

	s.totalResponseTime.Add(us)
	s.responseCount.Add(1)

	for {
		current := s.minResponseTime.Load()
		if us >= current || s.minResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
	for {
		current := s.maxResponseTime.Load()
		if us <= current || s.maxResponseTime.CompareAndSwap(current, us) {
			break
		}
	}

	if endpoint == "/api/get" || endpoint == "/get" {
		s.lyricsResponseTime.Add(us)
		s.lyricsResponseCount.Add(1)
	}
}

// Uptime returns the server uptime
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// MatchRate returns found lookups as a percentage of all finished lookups
func (s *Stats) MatchRate() float64 {
	found := s.LookupsFound.Load()
	total := found + s.LookupsNotFound.Load() + s.LookupsFailed.Load()
	if total == 0 {
		return 0
	}
	return float64(found) / float64(total) * 100
}

func average(total, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(total/count) * time.Microsecond
}

// MinResponseTime returns the minimum response time
func (s *Stats) MinResponseTime() time.Duration {
	min := s.minResponseTime.Load()
	if min == noMinimum {
		return 0
	}
	return time.Duration(min) * time.Microsecond
}

// Snapshot returns a point-in-time snapshot of all stats
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	strategies := counts(&s.strategies)
	labels := make([]string, 0, len(strategies))
	for label := range strategies {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     s.StartTime.Format(time.RFC3339),
			"uptime":         uptime.String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		"requests": map[string]interface{}{
			"total":  s.TotalRequests.Load(),
			"lyrics": s.LyricsRequests.Load(),
			"search": s.SearchRequests.Load(),
			"health": s.HealthRequests.Load(),
			"other":  s.OtherRequests.Load(),
		},
		"lookups": map[string]interface{}{
			"found":             s.LookupsFound.Load(),
			"not_found":         s.LookupsNotFound.Load(),
			"failed":            s.LookupsFailed.Load(),
			"match_rate":        s.MatchRate(),
			"exact_matches":     s.ExactMatches.Load(),
			"fallbacks":         s.FallbackSelections.Load(),
			"overrides_applied": s.OverridesApplied.Load(),
			"strategy_labels":   labels,
			"by_strategy":       strategies,
			"by_variant":        counts(&s.variants),
		},
		"upstream": map[string]interface{}{
			"search_calls":          s.SearchCalls.Load(),
			"search_failures":       s.SearchFailures.Load(),
			"lyric_calls":           s.LyricCalls.Load(),
			"lyric_failures":        s.LyricFailures.Load(),
			"decoded_payloads":      s.DecodedPayloads.Load(),
			"circuit_breaker_trips": s.CircuitBreakerTrip.Load(),
		},
		"rate_limiting": map[string]interface{}{
			"exceeded": s.RateLimitExceeded.Load(),
		},
		"responses": map[string]interface{}{
			"2xx": s.Status2xx.Load(),
			"4xx": s.Status4xx.Load(),
			"5xx": s.Status5xx.Load(),
		},
		"response_times": map[string]interface{}{
			"avg":        average(s.totalResponseTime.Load(), s.responseCount.Load()).String(),
			"min":        s.MinResponseTime().String(),
			"max":        (time.Duration(s.maxResponseTime.Load()) * time.Microsecond).String(),
			"avg_lyrics": average(s.lyricsResponseTime.Load(), s.lyricsResponseCount.Load()).String(),
		},
	}
}
