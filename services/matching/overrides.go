package matching

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Overrides maps a (title, artist) pair to the title the catalog actually
// lists the song under. Used for songs whose English title never matches.
type Overrides map[string]string

// OverrideEntry is one [[override]] table in an overrides file.
type OverrideEntry struct {
	Title  string `toml:"title"`
	Artist string `toml:"artist"`
	Search string `toml:"search"`
}

type overridesFile struct {
	Override []OverrideEntry `toml:"override"`
}

func overrideKey(title, artist string) string {
	return FoldKey(title) + "_" + FoldKey(artist)
}

// DefaultOverrides returns the built-in table.
func DefaultOverrides() Overrides {
	o := Overrides{}
	o.Add("unrequited", "林宥嘉", "浪费")
	o.Add("fool", "林宥嘉", "傻子")
	o.Add("who doesn't wanna", "林宥嘉", "谁不想")
	o.Add("dong", "动力火车", "当")
	return o
}

// Add registers a corrected search title.
func (o Overrides) Add(title, artist, search string) {
	o[overrideKey(title, artist)] = strings.TrimSpace(search)
}

// Lookup returns the corrected title for the first artist that has an
// entry for title.
func (o Overrides) Lookup(title string, artists []string) (string, bool) {
	if len(o) == 0 {
		return "", false
	}
	for _, artist := range artists {
		if search, ok := o[overrideKey(title, artist)]; ok && search != "" {
			return search, true
		}
	}
	return "", false
}

// LoadOverrides reads [[override]] entries from a TOML file and merges them
// over base. base is not modified.
func LoadOverrides(path string, base Overrides) (Overrides, error) {
	var file overridesFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to decode overrides file %s: %w", path, err)
	}

	merged := make(Overrides, len(base)+len(file.Override))
	for k, v := range base {
		merged[k] = v
	}
	for i, entry := range file.Override {
		if strings.TrimSpace(entry.Title) == "" || strings.TrimSpace(entry.Search) == "" {
			return nil, fmt.Errorf("override %d in %s: title and search are required", i+1, path)
		}
		merged.Add(entry.Title, entry.Artist, entry.Search)
	}
	return merged, nil
}
