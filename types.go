package main

import (
	"lyrics-bridge-go/services/matching"
	"lyrics-bridge-go/services/providers"
)

type contextKey string

const rateLimitTypeKey contextKey = "rateLimitType"

// errorResponse is the LRCLIB error body
type errorResponse struct {
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// searchResult is one entry of the /api/search response
type searchResult struct {
	ID         providers.TrackID   `json:"id"`
	MID        string              `json:"mid,omitempty"`
	Name       string              `json:"name"`
	TrackName  string              `json:"trackName"`
	ArtistName string              `json:"artistName"`
	AlbumName  string              `json:"albumName"`
	Duration   int                 `json:"duration"`
	Score      matching.MatchScore `json:"score"`
}

func newSearchResult(s matching.Scored) searchResult {
	id := s.ID
	if id == "" {
		id = s.MID
	}
	return searchResult{
		ID:         providers.TrackID(id),
		MID:        s.MID,
		Name:       s.Title,
		TrackName:  s.Title,
		ArtistName: s.Artist,
		AlbumName:  s.Album,
		Duration:   s.Duration,
		Score:      s.Score,
	}
}
