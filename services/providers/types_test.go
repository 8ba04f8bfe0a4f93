package providers

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"lyrics-bridge-go/services/catalog"
	"lyrics-bridge-go/services/lyrics"
)

func TestProviderError(t *testing.T) {
	t.Run("With wrapped error", func(t *testing.T) {
		err := NewProviderError("qqmusic", "lookup failed", ErrNotFound)

		if err.Error() != "qqmusic: lookup failed: no matching song found" {
			t.Errorf("Unexpected message: %q", err.Error())
		}
		if !errors.Is(err, ErrNotFound) {
			t.Error("errors.Is should see ErrNotFound through ProviderError")
		}
		if errors.Is(err, ErrUpstream) {
			t.Error("errors.Is should not match ErrUpstream")
		}
	})

	t.Run("Without wrapped error", func(t *testing.T) {
		err := NewProviderError("qqmusic", "empty query", nil)
		if err.Error() != "qqmusic: empty query" {
			t.Errorf("Unexpected message: %q", err.Error())
		}
		if err.Unwrap() != nil {
			t.Error("Unwrap should return nil")
		}
	})
}

func TestTrackIDMarshal(t *testing.T) {
	tests := []struct {
		id       TrackID
		expected string
	}{
		{"102065756", `102065756`},
		{"0", `0`},
		{"-12", `-12`},
		{"007", `"007"`},
		{"003a5Bo94fjmVW", `"003a5Bo94fjmVW"`},
		{"", `""`},
		{"99999999999999999999", `"99999999999999999999"`},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			data, err := json.Marshal(tt.id)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(data) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, data)
			}
		})
	}
}

func TestNewResponseRecord(t *testing.T) {
	c := catalog.Candidate{
		ID:       "102065756",
		MID:      "003a5Bo94fjmVW",
		Title:    "晴天",
		Artist:   "周杰伦",
		Album:    "叶惠美",
		Duration: 269,
	}
	r := lyrics.Result{
		Variant:      lyrics.VariantLine,
		SyncedLyrics: "[00:01.00]故事的小黄花",
		PlainLyrics:  "故事的小黄花",
	}

	record := NewResponseRecord(c, r)
	if record.ID != "102065756" || record.Name != "晴天" || record.TrackName != "晴天" {
		t.Errorf("Unexpected identity fields: %+v", record)
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	body := string(data)

	for _, want := range []string{
		`"id":102065756`,
		`"artistName":"周杰伦"`,
		`"albumName":"叶惠美"`,
		`"duration":269`,
		`"instrumental":false`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %s in %s", want, body)
		}
	}
	if strings.Contains(body, "translatedLyrics") {
		t.Errorf("translatedLyrics should be omitted when empty: %s", body)
	}

	t.Run("Falls back to mid", func(t *testing.T) {
		c.ID = ""
		record := NewResponseRecord(c, lyrics.Result{Instrumental: true})
		if record.ID != "003a5Bo94fjmVW" {
			t.Errorf("Expected mid as id, got %q", record.ID)
		}
		if !record.Instrumental {
			t.Error("Expected instrumental record")
		}
	})
}
