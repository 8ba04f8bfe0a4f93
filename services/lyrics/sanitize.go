package lyrics

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PureMusicText is the placeholder the catalog serves for instrumentals.
const PureMusicText = "纯音乐，请欣赏"

var (
	// Anything bracketed: time tags, metadata tags, [start,duration].
	bracketTagRegex = regexp.MustCompile(`\[[^\[\]]*\]`)
	// <mm:ss.xx>, <mm.ss.xx> and similar word timings
	angleTimingRegex = regexp.MustCompile(`<\d+(?:[.:,]\d+)+>`)
	// (start,duration[,x]) word timings of word-synced lyrics
	wordTimingRegex = regexp.MustCompile(`\(\d+,\d+(?:,\d+)?\)`)

	metadataLineRegex = regexp.MustCompile(`^\[([a-zA-Z_]+):(.*)\]$`)
	boilerplateRegex  = regexp.MustCompile(`(TME|QQ音乐)享有本翻译作品的著作权|以下歌词翻译由.*提供|^//$`)
	creditRegex       = regexp.MustCompile(`(?i)^(作词|作曲|编曲|词|曲|制作人|监制|混音|录音|和声|lyrics by|lyricist|composed by|composer|arranged by|producer|produced by)\s*[:：]`)

	lrcStartRegex = regexp.MustCompile(`\[(\d+):(\d+)(?:[.:](\d+))?\]`)
)

// ExtractPlainText removes every timing and metadata tag, trims each line
// and drops the lines left empty. Line breaks are kept.
func ExtractPlainText(tagged string) string {
	var out []string
	for _, line := range strings.Split(tagged, "\n") {
		if text := stripTags(line); text != "" {
			out = append(out, text)
		}
	}
	return strings.Join(out, "\n")
}

// stripTags repeats until nothing matches so tags exposed by an earlier
// removal go too.
func stripTags(line string) string {
	for {
		next := bracketTagRegex.ReplaceAllString(line, "")
		next = angleTimingRegex.ReplaceAllString(next, "")
		next = wordTimingRegex.ReplaceAllString(next, "")
		if next == line {
			return strings.TrimSpace(next)
		}
		line = next
	}
}

// SanitizeMetadataLines drops lines that carry no lyric: blanks, bare
// timestamps, metadata tags, credits and copyright boilerplate. [ti:] and
// [ar:] survive when keepDisplayTags is set.
func SanitizeMetadataLines(tagged string, keepDisplayTags bool) string {
	var kept []string
	for _, line := range strings.Split(tagged, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := metadataLineRegex.FindStringSubmatch(line); m != nil {
			tag := strings.ToLower(m[1])
			if keepDisplayTags && (tag == "ti" || tag == "ar") {
				kept = append(kept, line)
			}
			continue
		}

		text := stripTags(line)
		switch {
		case text == "", text == "//":
			continue
		case boilerplateRegex.MatchString(text), creditRegex.MatchString(text):
			continue
		case strings.Contains(text, PureMusicText):
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// RepairEndTime appends a bare closing timestamp gap after the latest LRC
// timestamp when that line still carries text, so players know when the
// last line ends. Content without LRC timestamps, or already closed by a
// bare timestamp, is returned unchanged.
func RepairEndTime(tagged string, gap time.Duration) string {
	latest := time.Duration(-1)
	closed := false

	for _, line := range strings.Split(tagged, "\n") {
		line = strings.TrimSpace(line)
		for _, m := range lrcStartRegex.FindAllStringSubmatch(line, -1) {
			at := parseTimestamp(m[1], m[2], m[3])
			if at >= latest {
				latest = at
				closed = stripTags(line) == ""
			}
		}
	}

	if latest < 0 || closed {
		return tagged
	}
	return strings.TrimRight(tagged, "\n") + "\n" + FormatTimestamp(latest+gap)
}

func parseTimestamp(min, sec, frac string) time.Duration {
	m, _ := strconv.Atoi(min)
	s, _ := strconv.Atoi(sec)
	d := time.Duration(m)*time.Minute + time.Duration(s)*time.Second
	if frac != "" {
		f, _ := strconv.Atoi(frac)
		switch len(frac) {
		case 1:
			d += time.Duration(f) * 100 * time.Millisecond
		case 2:
			d += time.Duration(f) * 10 * time.Millisecond
		default:
			d += time.Duration(f) * time.Millisecond
		}
	}
	return d
}

// FormatTimestamp renders d as an LRC tag, [mm:ss.xx].
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	cs := d.Milliseconds() / 10
	return fmt.Sprintf("[%02d:%02d.%02d]", cs/6000, (cs/100)%60, cs%100)
}
