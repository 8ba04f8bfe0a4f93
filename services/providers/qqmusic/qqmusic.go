package qqmusic

import (
	"context"
	"errors"
	"fmt"
	"lyrics-bridge-go/circuitbreaker"
	"lyrics-bridge-go/config"
	"lyrics-bridge-go/logcolors"
	"lyrics-bridge-go/services/catalog"
	"lyrics-bridge-go/services/lyrics"
	"lyrics-bridge-go/services/matching"
	"lyrics-bridge-go/services/providers"
	"lyrics-bridge-go/stats"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ProviderName is the identifier for the QQ Music provider
const ProviderName = "qqmusic"

// Options controls one provider instance.
type Options struct {
	MaxStrategies  int
	StrategyDelay  time.Duration // Minimum spacing between upstream calls of one lookup
	MinAcceptScore float64       // Matches scoring below this are only used if no later strategy does better
	Weights        matching.Weights
	Overrides      matching.Overrides
	Lyrics         lyrics.Options
}

// QQMusicProvider implements providers.Provider on top of the vkeys QQ Music proxy
type QQMusicProvider struct {
	client *Client
	scorer *matching.Scorer
	opts   Options
}

// New creates a provider from explicit options.
func New(client *Client, opts Options) *QQMusicProvider {
	if opts.MaxStrategies <= 0 {
		opts.MaxStrategies = matching.DefaultMaxStrategies
	}
	if opts.StrategyDelay < 0 {
		opts.StrategyDelay = 0
	}
	if opts.Weights == (matching.Weights{}) {
		opts.Weights = matching.DefaultWeights()
	}
	return &QQMusicProvider{
		client: client,
		scorer: matching.NewScorer(opts.Weights),
		opts:   opts,
	}
}

// NewProvider creates a provider from the loaded configuration. A title
// override file that cannot be read is logged and the built-in table is used.
func NewProvider(cfg config.Config) *QQMusicProvider {
	c := cfg.Configuration

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:      "QQMusic",
		Threshold: c.CircuitBreakerThreshold,
		Cooldown:  time.Duration(c.CircuitBreakerCooldownSecs) * time.Second,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			if to == circuitbreaker.StateOpen {
				stats.Get().CircuitBreakerTrip.Add(1)
			}
		},
	})

	client := NewClient(ClientConfig{
		SearchURL: c.SearchURL,
		LyricURL:  c.LyricURL,
		UserAgent: c.UpstreamUserAgent,
		Timeout:   time.Duration(c.UpstreamTimeoutSecs) * time.Second,
		Breaker:   breaker,
	})

	overrides := matching.DefaultOverrides()
	if c.TitleOverridesFile != "" {
		loaded, err := matching.LoadOverrides(c.TitleOverridesFile, overrides)
		if err != nil {
			log.Warnf("%s Failed to load title overrides from %s: %v", logcolors.LogOverride, c.TitleOverridesFile, err)
		} else {
			log.Infof("%s %d title overrides active (file: %s)", logcolors.LogOverride, len(loaded), c.TitleOverridesFile)
			overrides = loaded
		}
	}

	return New(client, Options{
		MaxStrategies:  c.MaxStrategies,
		StrategyDelay:  time.Duration(c.StrategyDelayMs) * time.Millisecond,
		MinAcceptScore: c.MinAcceptScore,
		Weights:        matching.Weights(cfg.Scoring),
		Overrides:      overrides,
		Lyrics: lyrics.Options{
			KeepDisplayTags: cfg.FeatureFlags.KeepDisplayTags,
			RepairEndTime:   cfg.FeatureFlags.RepairEndTime,
			EndTimeGap:      time.Duration(c.EndTimeGapSecs) * time.Second,
			Permissive:      cfg.FeatureFlags.PermissiveDecode,
		},
	})
}

// Name returns the provider identifier
func (p *QQMusicProvider) Name() string {
	return ProviderName
}

// Breaker returns the circuit breaker guarding the upstream.
func (p *QQMusicProvider) Breaker() *circuitbreaker.CircuitBreaker {
	return p.client.Breaker()
}

func (p *QQMusicProvider) throttle() *rate.Limiter {
	if p.opts.StrategyDelay == 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(p.opts.StrategyDelay), 1)
}

// match is the outcome of running the strategy list.
type match struct {
	selection *matching.Selection
	strategy  matching.Strategy
	attempts  int
}

// findMatch tries each strategy in order and stops at the first accepted
// selection. A selection below MinAcceptScore is held back; the first one
// seen is used if no later strategy is accepted.
func (p *QQMusicProvider) findMatch(ctx context.Context, nq matching.NormalizedQuery, limiter *rate.Limiter) (*match, error) {
	strategies := matching.BuildStrategies(nq, p.opts.MaxStrategies)
	if len(strategies) == 0 {
		return nil, providers.NewProviderError(ProviderName, "empty query", providers.ErrNotFound)
	}

	var held *match
	failures := 0
	for i, strategy := range strategies {
		if err := limiter.Wait(ctx); err != nil {
			return nil, providers.NewProviderError(ProviderName, "lookup cancelled", err)
		}

		log.Infof("%s [QQMusic] Strategy %d/%d (%s): %s",
			logcolors.LogStrategy, i+1, len(strategies), strategy.Label, strategy.Keyword)

		candidates, err := p.client.Search(ctx, strategy.Keyword)
		if err != nil {
			if ctx.Err() != nil {
				return nil, providers.NewProviderError(ProviderName, "lookup cancelled", ctx.Err())
			}
			failures++
			log.Warnf("%s [QQMusic] Strategy %s failed: %v", logcolors.LogWarning, strategy.Label, err)
			continue
		}
		if len(candidates) == 0 {
			continue
		}

		selection := p.scorer.SelectBest(candidates, nq)
		m := &match{selection: selection, strategy: strategy, attempts: i + 1}

		if selection.Score.Exact || selection.Score.Combined >= p.opts.MinAcceptScore {
			return m, nil
		}
		log.Infof("%s [QQMusic] %s - %s scored %.1f, below %.1f; trying next strategy",
			logcolors.LogFallback, selection.Candidate.Title, selection.Candidate.Artist,
			selection.Score.Combined, p.opts.MinAcceptScore)
		if held == nil {
			held = m
		}
	}

	if held != nil {
		held.attempts = len(strategies)
		return held, nil
	}
	if failures == len(strategies) {
		return nil, providers.NewProviderError(ProviderName,
			fmt.Sprintf("all %d searches failed", failures), providers.ErrUpstream)
	}
	return nil, providers.NewProviderError(ProviderName,
		fmt.Sprintf("no candidates for %q after %d searches", nq.Raw.TrackName, len(strategies)), providers.ErrNotFound)
}

// LookupLyrics finds the best match for the query and fetches its lyrics.
// A failed lyric fetch still returns the match, marked instrumental.
func (p *QQMusicProvider) LookupLyrics(ctx context.Context, query matching.SearchQuery) (*providers.LookupResult, error) {
	s := stats.Get()

	nq := matching.Normalize(query, p.opts.Overrides)
	if nq.Overridden {
		s.OverridesApplied.Add(1)
		log.Infof("%s [QQMusic] %q searched as %q", logcolors.LogOverride, nq.CleanedTrackName, nq.SearchTrackName)
	}

	limiter := p.throttle()
	m, err := p.findMatch(ctx, nq, limiter)
	if err != nil {
		switch {
		case errors.Is(err, providers.ErrNotFound):
			s.LookupsNotFound.Add(1)
			log.Infof("%s [QQMusic] %s - %s", logcolors.LogNotFound, query.TrackName, query.ArtistName)
		case errors.Is(err, providers.ErrUpstream):
			s.LookupsFailed.Add(1)
		}
		return nil, err
	}

	best := m.selection.Candidate
	log.Infof("%s [QQMusic] %s - %s (score: %.1f, strategy: %s)",
		logcolors.LogBestMatch, best.Title, best.Artist, m.selection.Score.Combined, m.strategy.Label)

	result := p.fetchResult(ctx, limiter, best)
	if ctx.Err() != nil {
		return nil, providers.NewProviderError(ProviderName, "lookup cancelled", ctx.Err())
	}

	s.RecordLookup(m.strategy.Label, string(result.Variant), m.selection.Score.Exact, m.selection.Fallback)

	return &providers.LookupResult{
		Record:   providers.NewResponseRecord(best, result),
		Variant:  result.Variant,
		Strategy: m.strategy,
		Score:    m.selection.Score,
		Attempts: m.attempts,
	}, nil
}

func (p *QQMusicProvider) fetchResult(ctx context.Context, limiter *rate.Limiter, c catalog.Candidate) lyrics.Result {
	if err := limiter.Wait(ctx); err != nil {
		return lyrics.Result{Variant: lyrics.VariantNone, Instrumental: true}
	}

	payload, err := p.client.FetchLyrics(ctx, c.ID, c.MID)
	if err != nil {
		log.Warnf("%s [QQMusic] Lyric fetch failed for %s - %s: %v", logcolors.LogWarning, c.Title, c.Artist, err)
	}

	result := lyrics.BuildResult(payload, p.opts.Lyrics)
	if result.Decoded {
		stats.Get().DecodedPayloads.Add(1)
		log.Debugf("%s [QQMusic] Decoded base64 %s payload", logcolors.LogDecode, payload.Variant)
	}
	if result.Instrumental {
		log.Infof("%s [QQMusic] No lyric text for %s - %s", logcolors.LogLyrics, c.Title, c.Artist)
	} else {
		log.Infof("%s [QQMusic] %s lyrics for %s - %s", logcolors.LogSuccess, result.Variant, c.Title, c.Artist)
	}
	return result
}

// Search returns the ranked candidates of the first strategy that yields any.
func (p *QQMusicProvider) Search(ctx context.Context, query matching.SearchQuery) ([]matching.Scored, error) {
	nq := matching.Normalize(query, p.opts.Overrides)
	strategies := matching.BuildStrategies(nq, p.opts.MaxStrategies)
	if len(strategies) == 0 {
		return nil, providers.NewProviderError(ProviderName, "empty query", providers.ErrNotFound)
	}

	limiter := p.throttle()
	failures := 0
	for _, strategy := range strategies {
		if err := limiter.Wait(ctx); err != nil {
			return nil, providers.NewProviderError(ProviderName, "search cancelled", err)
		}

		candidates, err := p.client.Search(ctx, strategy.Keyword)
		if err != nil {
			if ctx.Err() != nil {
				return nil, providers.NewProviderError(ProviderName, "search cancelled", ctx.Err())
			}
			failures++
			continue
		}
		if len(candidates) > 0 {
			log.Infof("%s [QQMusic] %d candidates for %s (%s)",
				logcolors.LogSearch, len(candidates), strategy.Keyword, strategy.Label)
			return p.scorer.Rank(candidates, nq), nil
		}
	}

	if failures == len(strategies) {
		return nil, providers.NewProviderError(ProviderName, "all searches failed", providers.ErrUpstream)
	}
	return nil, providers.NewProviderError(ProviderName, "no candidates", providers.ErrNotFound)
}
