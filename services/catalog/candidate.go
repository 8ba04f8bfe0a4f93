package catalog

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Candidate is one catalog search result, flattened on ingress.
type Candidate struct {
	ID       string `json:"id"`
	MID      string `json:"mid,omitempty"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Duration int    `json:"duration"`
	Rank     int    `json:"rank"` // Position in the provider's result list
}

var titleAliases = []string{"song", "name", "songname", "title", "songName"}

// SuccessCode is the envelope code returned by the upstream on success.
const SuccessCode = 200

// CandidateFromJSON flattens one search row.
func CandidateFromJSON(row gjson.Result) Candidate {
	c := Candidate{
		ID:       strings.TrimSpace(FromJSON(row.Get("id")).String()),
		MID:      strings.TrimSpace(row.Get("mid").String()),
		Artist:   ArtistNames(FromJSON(row.Get("singer"))),
		Album:    AlbumName(FromJSON(row.Get("album"))),
		Duration: ParseDuration(FromJSON(row.Get("interval"))),
	}
	for _, alias := range titleAliases {
		if t := strings.TrimSpace(row.Get(alias).String()); t != "" {
			c.Title = t
			break
		}
	}
	return c
}

// ParseSearchResponse reads a search envelope {code, data}. data may be the
// row array itself or an object carrying it under "list". Anything that is
// not a successful envelope with at least one row yields no candidates.
func ParseSearchResponse(body []byte) (int, []Candidate) {
	if !gjson.ValidBytes(body) {
		return 0, nil
	}

	root := gjson.ParseBytes(body)
	code := int(root.Get("code").Int())
	if code != SuccessCode {
		return code, nil
	}

	rows := root.Get("data")
	if rows.IsObject() {
		rows = rows.Get("list")
	}
	if !rows.IsArray() {
		return code, nil
	}

	var candidates []Candidate
	for _, row := range rows.Array() {
		if !row.IsObject() {
			continue
		}
		c := CandidateFromJSON(row)
		if c.ID == "" && c.MID == "" {
			continue
		}
		c.Rank = len(candidates)
		candidates = append(candidates, c)
	}
	return code, candidates
}
