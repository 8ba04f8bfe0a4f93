package providers

import (
	"encoding/json"
	"errors"
	"strconv"

	"lyrics-bridge-go/services/catalog"
	"lyrics-bridge-go/services/lyrics"
	"lyrics-bridge-go/services/matching"
)

var (
	// ErrNotFound means no search strategy produced a usable candidate.
	ErrNotFound = errors.New("no matching song found")
	// ErrUpstream means every search attempt failed at the transport level.
	ErrUpstream = errors.New("upstream unavailable")
)

// ProviderError represents an error from a provider with additional context
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError
func NewProviderError(provider, message string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Message:  message,
		Err:      err,
	}
}

// TrackID is a catalog id. Numeric ids marshal as JSON numbers to match
// the LRCLIB response shape; anything else marshals as a string.
type TrackID string

func (id TrackID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// ResponseRecord is the lookup response body. Every field is always
// present; TranslatedLyrics is omitted when there is no translation.
type ResponseRecord struct {
	ID               TrackID `json:"id"`
	Name             string  `json:"name"`
	TrackName        string  `json:"trackName"`
	ArtistName       string  `json:"artistName"`
	AlbumName        string  `json:"albumName"`
	Duration         int     `json:"duration"`
	Instrumental     bool    `json:"instrumental"`
	PlainLyrics      string  `json:"plainLyrics"`
	SyncedLyrics     string  `json:"syncedLyrics"`
	TranslatedLyrics string  `json:"translatedLyrics,omitempty"`
}

// NewResponseRecord assembles the response for a chosen candidate.
func NewResponseRecord(c catalog.Candidate, r lyrics.Result) ResponseRecord {
	id := c.ID
	if id == "" {
		id = c.MID
	}
	return ResponseRecord{
		ID:               TrackID(id),
		Name:             c.Title,
		TrackName:        c.Title,
		ArtistName:       c.Artist,
		AlbumName:        c.Album,
		Duration:         c.Duration,
		Instrumental:     r.Instrumental,
		PlainLyrics:      r.PlainLyrics,
		SyncedLyrics:     r.SyncedLyrics,
		TranslatedLyrics: r.TranslatedLyrics,
	}
}

// LookupResult is a response record plus how it was found.
type LookupResult struct {
	Record   ResponseRecord
	Variant  lyrics.Variant
	Strategy matching.Strategy
	Score    matching.MatchScore
	Attempts int // Searches issued, including the successful one
}
