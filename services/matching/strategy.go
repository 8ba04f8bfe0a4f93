package matching

import "strings"

// DefaultMaxStrategies bounds the number of searches one lookup may issue.
const DefaultMaxStrategies = 6

// SearchQuery is the caller's request, untouched.
type SearchQuery struct {
	TrackName  string
	ArtistName string
}

// NormalizedQuery is derived from a SearchQuery once per lookup.
type NormalizedQuery struct {
	Raw              SearchQuery
	CleanedTrackName string
	SearchTrackName  string // CleanedTrackName after the override table
	CoreTrackName    string
	ArtistList       []string
	IsPrimarilyLatin bool
	Overridden       bool
}

// FirstArtist returns the first credited artist or "".
func (q NormalizedQuery) FirstArtist() string {
	if len(q.ArtistList) == 0 {
		return ""
	}
	return q.ArtistList[0]
}

// Normalize derives the search forms of q. overrides may be nil.
func Normalize(q SearchQuery, overrides Overrides) NormalizedQuery {
	q.TrackName = strings.TrimSpace(q.TrackName)
	q.ArtistName = strings.TrimSpace(q.ArtistName)

	cleaned := NormalizeTrackName(q.TrackName)
	nq := NormalizedQuery{
		Raw:              q,
		CleanedTrackName: cleaned,
		SearchTrackName:  cleaned,
		ArtistList:       SplitArtists(q.ArtistName),
		IsPrimarilyLatin: IsPrimarilyLatin(q.TrackName),
	}
	if search, ok := overrides.Lookup(cleaned, nq.ArtistList); ok {
		nq.SearchTrackName = search
		nq.Overridden = true
	}
	nq.CoreTrackName = ExtractCoreScript(nq.SearchTrackName)
	return nq
}

// Strategy is one search keyword and the rule that produced it.
type Strategy struct {
	Label   string
	Keyword string
}

const (
	StrategyTitleArtist = "title+artist"
	StrategyTitle       = "title"
	StrategyCoreArtist  = "core+artist"
	StrategyRawArtist   = "raw+artist"
	StrategyArtistOnly  = "artist"
)

// BuildStrategies lists search keywords from most to least specific.
// Duplicate keywords are dropped and the list is cut to max entries; the
// artist-only fallback, when present, always stays last.
func BuildStrategies(q NormalizedQuery, max int) []Strategy {
	if max <= 0 {
		max = DefaultMaxStrategies
	}

	var list []Strategy
	seen := make(map[string]bool)
	add := func(label string, parts ...string) {
		keyword := joinKeyword(parts...)
		if keyword == "" {
			return
		}
		key := FoldKey(keyword)
		if seen[key] {
			return
		}
		seen[key] = true
		list = append(list, Strategy{Label: label, Keyword: keyword})
	}

	first := q.FirstArtist()
	add(StrategyTitleArtist, q.SearchTrackName, first)
	add(StrategyTitle, q.SearchTrackName)
	for _, artist := range q.ArtistList {
		add(StrategyCoreArtist, q.CoreTrackName, artist)
	}
	if first != "" {
		add(StrategyRawArtist, q.Raw.TrackName, first)
	}

	var fallback *Strategy
	if first != "" && !seen[FoldKey(first)] {
		fallback = &Strategy{Label: StrategyArtistOnly, Keyword: first}
	}

	if fallback == nil || (max == 1 && len(list) > 0) {
		if len(list) > max {
			list = list[:max]
		}
		return list
	}
	if len(list) > max-1 {
		list = list[:max-1]
	}
	return append(list, *fallback)
}

func joinKeyword(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}
