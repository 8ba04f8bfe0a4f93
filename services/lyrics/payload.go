package lyrics

import (
	"bytes"
	"encoding/base64"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// Variant identifies which lyric field a payload came from.
type Variant string

const (
	VariantWord Variant = "word" // Word-level timing (yrc/qrc)
	VariantLine Variant = "line" // Line-level LRC
	VariantNone Variant = "none"
)

var (
	wordFields        = []string{"yrc", "qrc"}
	lineFields        = []string{"lrc", "lyric"}
	translationFields = []string{"trans", "tlrc", "klyric"}
)

var (
	// [mm:ss.xx], [mm:ss:xx] or [mm:ss]
	lrcTagRegex = regexp.MustCompile(`\[\d+:\d+(?:[.:]\d+)?\]`)
	// <mm.ss.xx> word timing
	angleTagRegex = regexp.MustCompile(`<\d+\.\d+\.\d+>`)
	// [start,duration] word-synced line timing
	wordLineTagRegex = regexp.MustCompile(`\[\d+,\d+\]`)

	base64Regex = regexp.MustCompile(`^[A-Za-z0-9+/\s]+={0,2}\s*$`)
)

// Payload is the lyric data picked out of one lyric response.
type Payload struct {
	Variant     Variant
	Raw         string // Field value as received
	Translation string // Raw translation field, decoded later like Raw
}

// ParseLyricResponse reads a lyric envelope {code, data}. The word-synced
// field wins over the line-synced one; the translation is taken on its own.
// Unsuccessful or malformed envelopes give an empty payload.
func ParseLyricResponse(body []byte) Payload {
	if !gjson.ValidBytes(body) {
		return Payload{Variant: VariantNone}
	}

	root := gjson.ParseBytes(body)
	if code := root.Get("code"); code.Exists() && code.Int() != 200 {
		return Payload{Variant: VariantNone}
	}

	data := root.Get("data")
	if !data.IsObject() {
		return Payload{Variant: VariantNone}
	}

	p := Payload{Variant: VariantNone, Translation: firstString(data, translationFields)}
	if raw := firstString(data, wordFields); raw != "" {
		p.Variant, p.Raw = VariantWord, raw
	} else if raw := firstString(data, lineFields); raw != "" {
		p.Variant, p.Raw = VariantLine, raw
	}
	return p
}

func firstString(obj gjson.Result, fields []string) string {
	for _, f := range fields {
		v := obj.Get(f)
		if v.Type != gjson.String {
			continue
		}
		if s := v.String(); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// DecodeContent returns the lyric text behind raw. Base64 payloads are
// decoded and kept only if the result looks like lyrics; otherwise raw is
// returned as is. permissive also accepts decoded text without time tags
// as long as it has some letters in it.
func DecodeContent(raw string, permissive bool) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !base64Regex.MatchString(trimmed) {
		return raw, false
	}

	compact := strings.Join(strings.Fields(trimmed), "")
	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return raw, false
	}

	text, transcoded, ok := toUTF8(decoded)
	if !ok {
		return raw, false
	}
	text = strings.TrimPrefix(text, "\ufeff")

	// Transcoded bytes must carry time tags; plain-text acceptance is for
	// payloads that were UTF-8 to begin with.
	if !LooksLikeLyrics(text, permissive && !transcoded) {
		return raw, false
	}
	return text, true
}

// toUTF8 returns b as a string, re-decoding it as GB18030 when it is not
// valid UTF-8.
func toUTF8(b []byte) (text string, transcoded bool, ok bool) {
	if utf8.Valid(b) {
		return string(b), false, true
	}
	out, _, err := transform.Bytes(simplifiedchinese.GB18030.NewDecoder(), b)
	if err != nil || !utf8.Valid(out) || bytes.ContainsRune(out, utf8.RuneError) {
		return "", true, false
	}
	return string(out), true, true
}

// LooksLikeLyrics reports whether text carries time tags (strict) or, in
// permissive mode, at least ten characters including a letter.
func LooksLikeLyrics(text string, permissive bool) bool {
	if lrcTagRegex.MatchString(text) || angleTagRegex.MatchString(text) || wordLineTagRegex.MatchString(text) {
		return true
	}
	if !permissive || utf8.RuneCountInString(strings.TrimSpace(text)) < 10 {
		return false
	}
	return strings.IndexFunc(text, unicode.IsLetter) >= 0
}
