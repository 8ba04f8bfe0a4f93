package catalog

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	cjkDurationRegex   = regexp.MustCompile(`(\d+)\s*分\s*(\d+)\s*秒`)
	wordDurationRegex  = regexp.MustCompile(`(?i)(\d+)\s*min(?:utes?|s)?\s*(\d+)\s*s(?:ec(?:onds?|s)?)?\b`)
	clockDurationRegex = regexp.MustCompile(`^(?:(\d+):)?(\d+):(\d{1,2})$`)
)

// ParseDuration converts an upstream duration field to whole seconds.
// Unrecognized or negative values yield 0.
func ParseDuration(f Field) int {
	switch f.Kind {
	case KindNumber:
		return clampSeconds(f.Num)
	case KindString:
		return ParseDurationString(f.Str)
	default:
		return 0
	}
}

// ParseDurationString understands "4分29秒", "4min 29sec", "mm:ss",
// "h:mm:ss" and bare numbers.
func ParseDurationString(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	for _, re := range []*regexp.Regexp{cjkDurationRegex, wordDurationRegex} {
		if m := re.FindStringSubmatch(s); m != nil {
			return clampSeconds(sumSeconds("", m[1], m[2]))
		}
	}

	if m := clockDurationRegex.FindStringSubmatch(s); m != nil {
		return clampSeconds(sumSeconds(m[1], m[2], m[3]))
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return clampSeconds(n)
	}
	return 0
}

// sumSeconds adds hour, minute and second digit groups in float64 so
// oversized inputs saturate instead of wrapping. An empty hour group is 0.
func sumSeconds(hours, minutes, seconds string) float64 {
	var h float64
	if hours != "" {
		h, _ = strconv.ParseFloat(hours, 64)
	}
	m, _ := strconv.ParseFloat(minutes, 64)
	sec, _ := strconv.ParseFloat(seconds, 64)
	return h*3600 + m*60 + sec
}

func clampSeconds(n float64) int {
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}
