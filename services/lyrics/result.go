package lyrics

import (
	"strings"
	"time"
)

// Options controls how a payload is turned into a Result.
type Options struct {
	KeepDisplayTags bool          // Keep [ti:] and [ar:] in synced lyrics
	RepairEndTime   bool          // Close the last synced line with a bare timestamp
	EndTimeGap      time.Duration // Distance of that timestamp from the last one
	Permissive      bool          // Accept decoded payloads without time tags
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		KeepDisplayTags: true,
		RepairEndTime:   true,
		EndTimeGap:      5 * time.Second,
	}
}

// Result is the lyric part of a lookup response.
type Result struct {
	Variant          Variant
	SyncedLyrics     string
	PlainLyrics      string
	TranslatedLyrics string
	Instrumental     bool
	Decoded          bool // The lyric field was base64 and has been decoded
}

// BuildResult decodes and cleans a payload. Synced lyrics are cleared when
// no lyric text survives sanitizing, so Instrumental always reflects
// whether synced lyrics are present.
func BuildResult(p Payload, opts Options) Result {
	r := Result{Variant: p.Variant}

	if p.Raw != "" {
		content, decoded := DecodeContent(p.Raw, opts.Permissive)
		r.Decoded = decoded

		synced := SanitizeMetadataLines(content, opts.KeepDisplayTags)
		plain := ExtractPlainText(synced)
		if plain == "" {
			synced = ""
		} else if opts.RepairEndTime {
			synced = RepairEndTime(synced, opts.EndTimeGap)
		}
		r.SyncedLyrics, r.PlainLyrics = synced, plain
	}

	if p.Translation != "" {
		translation, _ := DecodeContent(p.Translation, opts.Permissive)
		r.TranslatedLyrics = SanitizeMetadataLines(translation, false)
	}

	r.Instrumental = strings.TrimSpace(r.SyncedLyrics) == ""
	if r.Instrumental {
		r.Variant = VariantNone
	}
	return r
}
