package matching

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"lyrics-bridge-go/services/catalog"

	"github.com/mozillazg/go-pinyin"
	"github.com/xrash/smetrics"
)

var (
	closeMatchStripRegex  = regexp.MustCompile(`\(.*?\)|（.*?）|\s+-\s+.*|【.*?】`)
	candidateArtistsRegex = regexp.MustCompile(`\s*[,，、/]\s*|\s+&\s+`)
)

// MatchScore is the breakdown of one candidate's score.
type MatchScore struct {
	Title    float64 `json:"title"`
	Artist   float64 `json:"artist"`
	Combined float64 `json:"combined"`
	Exact    bool    `json:"exact"`
}

// Selection is the chosen candidate of a search.
type Selection struct {
	Candidate catalog.Candidate
	Score     MatchScore
	Fallback  bool // Nothing scored; the provider's first result was taken
}

// Scored pairs a candidate with its score.
type Scored struct {
	catalog.Candidate
	Score MatchScore `json:"score"`
}

// Scorer ranks catalog candidates against a query.
type Scorer struct {
	weights    Weights
	pinyinArgs pinyin.Args
}

// NewScorer creates a scorer using w.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w, pinyinArgs: pinyin.NewArgs()}
}

// Weights returns the weights in use.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// IsExactMatch reports whether c's title and artist string equal the raw
// request, ignoring case.
func (s *Scorer) IsExactMatch(c catalog.Candidate, q NormalizedQuery) bool {
	return FoldKey(c.Title) == FoldKey(q.Raw.TrackName) &&
		FoldKey(c.Artist) == FoldKey(q.Raw.ArtistName)
}

// Score computes the title and artist tiers of c and combines them.
func (s *Scorer) Score(c catalog.Candidate, q NormalizedQuery) MatchScore {
	w := s.weights
	score := MatchScore{
		Title:  s.TitleScore(c.Title, q),
		Artist: s.ArtistScore(c.Artist, q),
	}

	if s.IsExactMatch(c, q) {
		score.Exact = true
		score.Combined = w.ExactMatchScore
		return score
	}

	tw := w.titleWeight(score.Title, score.Artist)
	total := score.Title*tw + score.Artist*(1-tw)

	if FoldKey(c.Title) == FoldKey(q.Raw.TrackName) && total < w.ExactTitleFloor {
		total = w.ExactTitleFloor
	}
	if score.Title >= w.CorroborationTitleMin && score.Artist >= w.CorroborationArtistMin {
		total += w.CorroborationBonus
	}
	if score.Artist >= w.ArtistExactOriginal && score.Title >= w.TrustedArtistTitleMin {
		total += w.TrustedArtistBonus
	}

	score.Combined = total
	return score
}

// TitleScore returns the highest title tier title reaches.
func (s *Scorer) TitleScore(title string, q NormalizedQuery) float64 {
	w := s.weights
	song := FoldKey(title)
	original := FoldKey(q.Raw.TrackName)
	processed := FoldKey(q.SearchTrackName)

	switch {
	case song == "":
		return 0
	case song == original:
		return w.TitleExactOriginal
	case song == processed:
		return w.TitleExactProcessed
	case isCloseMatch(song, original):
		return w.TitleCloseOriginal
	case isCloseMatch(song, processed):
		return w.TitleCloseProcessed
	case s.isRomanizedMatch(title, q):
		return w.TitleRomanized
	case s.contains(song, original):
		return w.TitleContainsOriginal
	case s.contains(original, song):
		return w.TitleInOriginal
	case s.contains(song, processed):
		return w.TitleContainsProcessed
	case s.contains(processed, song):
		return w.TitleInProcessed
	case similarity(song, original) >= w.FuzzyThreshold || similarity(song, processed) >= w.FuzzyThreshold:
		return w.TitleFuzzy
	}
	return 0
}

// contains reports whether haystack contains needle and needle is long
// enough for the match to mean something.
func (s *Scorer) contains(haystack, needle string) bool {
	return needle != "" &&
		utf8.RuneCountInString(needle) > s.weights.MinContainedLength &&
		strings.Contains(haystack, needle)
}

// isCloseMatch compares titles with annotations stripped, then falls back
// to looking for the target's CJK core inside the song title.
func isCloseMatch(song, target string) bool {
	if target == "" {
		return false
	}
	a := strings.TrimSpace(closeMatchStripRegex.ReplaceAllString(song, ""))
	b := strings.TrimSpace(closeMatchStripRegex.ReplaceAllString(target, ""))
	if a != "" && a == b {
		return true
	}
	if HasCoreScript(target) {
		core := ExtractCoreScript(target)
		return strings.Contains(song, core)
	}
	return false
}

// isRomanizedMatch matches a Han title against a Latin query through its
// pinyin spelling.
func (s *Scorer) isRomanizedMatch(title string, q NormalizedQuery) bool {
	if !q.IsPrimarilyLatin || !HasCoreScript(title) {
		return false
	}
	spelled := strings.Join(pinyin.LazyPinyin(title, s.pinyinArgs), "")
	if spelled == "" {
		return false
	}
	for _, target := range []string{q.CleanedTrackName, q.Raw.TrackName} {
		if strings.ReplaceAll(FoldKey(target), " ", "") == spelled {
			return true
		}
	}
	return false
}

// similarity is only meaningful for Latin text; smetrics compares bytes.
func similarity(a, b string) float64 {
	if !IsPrimarilyLatin(a) || !IsPrimarilyLatin(b) {
		return 0
	}
	return smetrics.JaroWinkler(a, b, 0.7, 4)
}

// ArtistScore returns the best tier any requested artist reaches against
// any credited artist of the candidate.
func (s *Scorer) ArtistScore(artist string, q NormalizedQuery) float64 {
	w := s.weights
	if len(q.ArtistList) == 0 {
		return 0
	}
	original := FoldKey(q.Raw.ArtistName)

	best := 0.0
	for _, token := range candidateArtistsRegex.Split(artist, -1) {
		credited := FoldKey(token)
		if credited == "" {
			continue
		}
		for _, target := range q.ArtistList {
			requested := FoldKey(target)
			var score float64
			switch {
			case credited == original:
				score = w.ArtistExactOriginal
			case credited == requested:
				score = w.ArtistExactProcessed
			case strings.Contains(credited, original) || strings.Contains(original, credited):
				score = w.ArtistContainsOriginal
			case strings.Contains(credited, requested) || strings.Contains(requested, credited):
				score = w.ArtistContainsProcessed
			}
			if score > best {
				best = score
			}
		}
	}

	if best > w.ArtistCeiling {
		return w.ArtistCeiling
	}
	return best
}

// SelectBest picks the best candidate. An exact title and artist match
// wins immediately; otherwise the highest combined score wins with ties
// going to the earlier result. When nothing scores the first result is
// returned. It returns nil only for an empty list.
func (s *Scorer) SelectBest(candidates []catalog.Candidate, q NormalizedQuery) *Selection {
	if len(candidates) == 0 {
		return nil
	}

	for _, c := range candidates {
		if s.IsExactMatch(c, q) {
			return &Selection{Candidate: c, Score: s.Score(c, q)}
		}
	}

	bestIdx := 0
	best := s.Score(candidates[0], q)
	for i := 1; i < len(candidates); i++ {
		score := s.Score(candidates[i], q)
		if score.Combined > best.Combined {
			bestIdx, best = i, score
		}
	}

	return &Selection{
		Candidate: candidates[bestIdx],
		Score:     best,
		Fallback:  best.Combined <= 0,
	}
}

// Rank scores every candidate and orders them best first. Ties keep the
// provider's order.
func (s *Scorer) Rank(candidates []catalog.Candidate, q NormalizedQuery) []Scored {
	ranked := make([]Scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = Scored{Candidate: c, Score: s.Score(c, q)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.Combined > ranked[j].Score.Combined
	})
	return ranked
}
