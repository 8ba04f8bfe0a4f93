package qqmusic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"lyrics-bridge-go/circuitbreaker"
	"lyrics-bridge-go/logcolors"
	"lyrics-bridge-go/services/catalog"
	"lyrics-bridge-go/services/lyrics"
	"lyrics-bridge-go/stats"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultTimeout = 10 * time.Second
	defaultAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// Upstream bodies are small JSON documents; anything larger is a bad response.
	maxBodyBytes = 4 << 20
)

// Client talks to the QQ Music search and lyric endpoints of the vkeys proxy.
type Client struct {
	httpClient *http.Client
	searchURL  string
	lyricURL   string
	userAgent  string
	breaker    *circuitbreaker.CircuitBreaker
}

// ClientConfig configures a Client. Zero values fall back to defaults.
type ClientConfig struct {
	SearchURL string
	LyricURL  string
	UserAgent string
	Timeout   time.Duration
	Breaker   *circuitbreaker.CircuitBreaker
}

// NewClient creates a client. A nil Breaker gets a default one.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultAgent
	}
	if cfg.Breaker == nil {
		cfg.Breaker = circuitbreaker.New(circuitbreaker.Config{Name: "QQMusic"})
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		searchURL:  cfg.SearchURL,
		lyricURL:   cfg.LyricURL,
		userAgent:  cfg.UserAgent,
		breaker:    cfg.Breaker,
	}
}

// Breaker returns the circuit breaker guarding upstream calls.
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// Search runs one keyword search. A response with a non-success code or no
// rows yields an empty list, not an error; errors mean the call itself failed.
func (c *Client) Search(ctx context.Context, keyword string) ([]catalog.Candidate, error) {
	params := url.Values{}
	params.Set("word", keyword)

	log.Debugf("%s [QQMusic] Searching: %s", logcolors.LogSearch, keyword)

	body, err := c.get(ctx, c.searchURL, params)
	stats.Get().RecordSearchCall(err != nil)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", keyword, err)
	}

	code, candidates := catalog.ParseSearchResponse(body)
	if code != catalog.SuccessCode {
		log.Debugf("%s [QQMusic] Search %q returned code %d", logcolors.LogSearch, keyword, code)
	}
	return candidates, nil
}

// FetchLyrics fetches the lyric payload of a song, by id when known and by
// mid otherwise.
func (c *Client) FetchLyrics(ctx context.Context, id, mid string) (lyrics.Payload, error) {
	params := url.Values{}
	switch {
	case id != "":
		params.Set("id", id)
	case mid != "":
		params.Set("mid", mid)
	default:
		return lyrics.Payload{Variant: lyrics.VariantNone}, errors.New("song has neither id nor mid")
	}

	log.Debugf("%s [QQMusic] Fetching lyrics: %s", logcolors.LogLyrics, params.Encode())

	body, err := c.get(ctx, c.lyricURL, params)
	stats.Get().RecordLyricCall(err != nil)
	if err != nil {
		return lyrics.Payload{Variant: lyrics.VariantNone}, fmt.Errorf("lyrics %s: %w", params.Encode(), err)
	}
	return lyrics.ParseLyricResponse(body), nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	var body []byte
	err := c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("API returned status %d", resp.StatusCode)
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		return nil
	}, countsAsOutage(ctx))
	return body, err
}

// countsAsOutage keeps caller cancellations from tripping the breaker.
func countsAsOutage(ctx context.Context) func(error) bool {
	return func(err error) bool {
		return ctx.Err() == nil
	}
}
