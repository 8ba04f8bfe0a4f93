package matching

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// titleNoisePatterns are applied in order. Qualifier tails are matched
// before bracket removal so " - 《X》片尾曲" style suffixes go as a whole.
var titleNoisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s+[-–—]\s+.*\b(from|official|remaster(ed)?|version|(re)?mix|edit|anniversary|theme song|soundtrack|ost)\b.*$`),
	regexp.MustCompile(`\s+[-–—]\s+.*(动画|主题曲|插曲|片头曲|片尾曲|电视剧|剧集).*$`),
	regexp.MustCompile(`\s+[-–—]\s+《.*?》.*$`),
	regexp.MustCompile(`\s*[(（][^)）]*[)）]`),
	regexp.MustCompile(`\s*\[[^\]]*\]`),
	regexp.MustCompile(`\s*【[^】]*】`),
	regexp.MustCompile(`\s*《[^》]*》`),
	regexp.MustCompile(`(?i)\s+(feat\.?|ft\.?)\s+.*$`),
	regexp.MustCompile(`-{2,}|–{2,}|—{2,}`),
}

var (
	whitespaceRegex   = regexp.MustCompile(`\s+`)
	trailingDashRegex = regexp.MustCompile(`[-–—\s]+$`)
	artistSplitRegex  = regexp.MustCompile(`\s*[,，、]\s*|\s+&\s+|\s+和\s+`)
	coreScriptRegex   = regexp.MustCompile(`[\p{Han}\p{Hiragana}\p{Katakana}\p{Hangul}ー]+`)
)

// NormalizeTrackName strips decorations that make a catalog search miss:
// bracketed annotations, edition qualifiers and dash runs. It never returns
// an empty string for non-blank input.
func NormalizeTrackName(raw string) string {
	cleaned := raw
	for _, p := range titleNoisePatterns {
		cleaned = p.ReplaceAllString(cleaned, "")
	}
	cleaned = whitespaceRegex.ReplaceAllString(cleaned, " ")
	cleaned = trailingDashRegex.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned != "" {
		return cleaned
	}

	fields := strings.FieldsFunc(raw, isTitleSeparator)
	if len(fields) > 0 {
		return fields[0]
	}
	return strings.TrimSpace(raw)
}

func isTitleSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == '-' || r == '–' || r == '—'
}

// SplitArtists splits a combined artist credit into individual names,
// de-duplicated case-insensitively in first-seen order.
func SplitArtists(raw string) []string {
	parts := artistSplitRegex.Split(strings.TrimSpace(raw), -1)
	seen := make(map[string]bool, len(parts))
	artists := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := FoldKey(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		artists = append(artists, p)
	}
	return artists
}

// ExtractCoreScript returns the first contiguous run of CJK or Kana
// characters. Text without any such run is returned unchanged.
func ExtractCoreScript(text string) string {
	if core := coreScriptRegex.FindString(text); core != "" {
		return core
	}
	return text
}

// HasCoreScript reports whether text contains any CJK or Kana characters.
func HasCoreScript(text string) bool {
	return coreScriptRegex.MatchString(text)
}

// IsPrimarilyLatin reports whether more than half of the letters in text
// are Latin script.
func IsPrimarilyLatin(text string) bool {
	var letters, latin int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Latin, r) {
			latin++
		}
	}
	return letters > 0 && latin*2 > letters
}

// isLatinMark matches combining diacritics (U+0300..U+036F) only, so Kana
// voicing marks survive folding.
var isLatinMark = runes.Predicate(func(r rune) bool {
	return r >= 0x0300 && r <= 0x036F
})

// FoldKey returns the comparison key used by every match: accents removed,
// full-width forms folded, lower-cased, whitespace collapsed.
func FoldKey(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(isLatinMark), norm.NFKC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = norm.NFKC.String(s)
	}
	folded = strings.ToLower(folded)
	return strings.Join(strings.Fields(folded), " ")
}
