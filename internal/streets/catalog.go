// Package streets loads the street catalog from the GeoJSON document the map
// front end renders. Feature properties.street_id is the join key to vote
// records; properties.name (or properties.street) is the display label.
package streets

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mgsgtaprohd-gif/nb-plowed/internal/model"
)

const unnamed = "Unnamed"

// Street is one catalog entry.
type Street struct {
	ID   string
	Name string
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Properties map[string]any `json:"properties"`
}

// Catalog is an immutable street index built once at startup.
type Catalog struct {
	byID    map[string]Street
	ordered []Street
}

// LoadFile parses a GeoJSON FeatureCollection from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse builds a catalog from GeoJSON bytes. Features without a street id are
// skipped; the first feature wins when an id repeats.
func Parse(data []byte) (*Catalog, error) {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("decode geojson: expected FeatureCollection, got %q", fc.Type)
	}

	c := &Catalog{byID: make(map[string]Street, len(fc.Features))}
	for _, f := range fc.Features {
		id := stringProp(f.Properties, "street_id")
		if id == "" {
			continue
		}
		if _, dup := c.byID[id]; dup {
			continue
		}
		s := Street{ID: id, Name: displayName(f.Properties)}
		c.byID[id] = s
		c.ordered = append(c.ordered, s)
	}

	sort.SliceStable(c.ordered, func(i, j int) bool {
		return strings.ToLower(c.ordered[i].Name) < strings.ToLower(c.ordered[j].Name)
	})
	return c, nil
}

// Has reports whether id is a known street.
func (c *Catalog) Has(id string) bool {
	if c == nil {
		return false
	}
	_, ok := c.byID[id]
	return ok
}

// Name returns the display label of a street, or "" when unknown.
func (c *Catalog) Name(id string) string {
	if c == nil {
		return ""
	}
	return c.byID[id].Name
}

// Len returns the number of streets in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ordered)
}

// Streets returns all streets sorted by name.
func (c *Catalog) Streets() []Street {
	if c == nil {
		return nil
	}
	out := make([]Street, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Search returns streets whose name contains q, case-insensitively, sorted by
// name. An empty query returns every street.
func (c *Catalog) Search(q string) []Street {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return c.Streets()
	}
	var out []Street
	for _, s := range c.Streets() {
		if strings.Contains(strings.ToLower(s.Name), q) {
			out = append(out, s)
		}
	}
	return out
}

func displayName(props map[string]any) string {
	if name := stringProp(props, "name"); name != "" {
		return name
	}
	if street := stringProp(props, "street"); street != "" {
		return street
	}
	return unnamed
}

// stringProp reads a property as a string. Numeric ids are common in exported
// GeoJSON; they are formatted the same way vote intake formats them.
func stringProp(props map[string]any, key string) string {
	switch v := props[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return model.FormatNumericID(v)
	default:
		return ""
	}
}
