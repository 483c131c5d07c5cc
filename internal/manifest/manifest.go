// Package manifest loads the expected-logger manifest: which logger IDs a
// deployment should have data files for, grouped by site.
package manifest

import (
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Site is one installation site and its expected loggers.
type Site struct {
	Name    string  `json:"name" yaml:"name"`
	Loggers []int64 `json:"loggers" yaml:"loggers"`
}

// Manifest lists the loggers expected per site.
type Manifest struct {
	Sites []Site `json:"sites" yaml:"sites"`
}

// Load parses a YAML manifest file.
func Load(filePath string) (*Manifest, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return FromReader(file)
}

// FromReader parses a manifest from an io.Reader.
func FromReader(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	return &m, nil
}

// AllLoggers returns every expected logger ID across sites, deduplicated
// and sorted.
func (m *Manifest) AllLoggers() []int64 {
	seen := make(map[int64]struct{})
	for _, site := range m.Sites {
		for _, id := range site.Loggers {
			seen[id] = struct{}{}
		}
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
