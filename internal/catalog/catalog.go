package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"
)

// ErrEmptyCatalog is returned when a catalog source yields no usable items.
var ErrEmptyCatalog = errors.New("catalog is empty")

// Category groups catalog items by how they appear as rewards.
type Category string

const (
	CategoryRelicReward Category = "relic-reward"
	CategoryDucatItem   Category = "ducat-item"
	CategoryMisc        Category = "misc"
)

// Item is one canonical reward item.
type Item struct {
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Aliases  []string `json:"aliases,omitempty"`
	Ducats   int      `json:"ducats,omitempty"`
	Vaulted  bool     `json:"vaulted,omitempty"`
}

// Catalog is an immutable set of items indexed by key.
type Catalog struct {
	items []Item
	byKey map[string]int
}

// Normalize lowercases s and collapses every run of non-alphanumeric
// characters into a single space.
func Normalize(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

// Key derives the canonical key for a display name, e.g.
// "Forma Blueprint" -> "forma_blueprint".
func Key(name string) string {
	return strings.ReplaceAll(Normalize(name), " ", "_")
}

// New builds a catalog. Missing keys are derived from names, the display name
// is always an alias, and "Set" entries are dropped since they never appear
// as a single reward. Items are kept in key order.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{byKey: make(map[string]int, len(items))}
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" || strings.HasSuffix(name, " Set") {
			continue
		}
		it.Name = name
		if it.Key == "" {
			it.Key = Key(name)
		}
		if it.Category == "" {
			it.Category = CategoryMisc
		}
		it.Aliases = dedupeAliases(append([]string{name}, it.Aliases...))

		if i, ok := c.byKey[it.Key]; ok {
			prev := &c.items[i]
			prev.Aliases = dedupeAliases(append(prev.Aliases, it.Aliases...))
			if it.Ducats > prev.Ducats {
				prev.Ducats = it.Ducats
			}
			prev.Vaulted = prev.Vaulted || it.Vaulted
			continue
		}
		c.byKey[it.Key] = len(c.items)
		c.items = append(c.items, it)
	}
	if len(c.items) == 0 {
		return nil, ErrEmptyCatalog
	}

	sort.Slice(c.items, func(i, j int) bool { return c.items[i].Key < c.items[j].Key })
	for i, it := range c.items {
		c.byKey[it.Key] = i
	}
	return c, nil
}

func dedupeAliases(aliases []string) []string {
	seen := make(map[string]bool, len(aliases))
	out := make([]string, 0, len(aliases))
	for _, a := range aliases {
		a = strings.TrimSpace(a)
		n := Normalize(a)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, a)
	}
	return out
}

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// Items returns the items in key order. The slice must not be modified.
func (c *Catalog) Items() []Item { return c.items }

// Get looks up an item by key.
func (c *Catalog) Get(key string) (*Item, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return nil, false
	}
	return &c.items[i], true
}

// Alphabet returns every distinct character used in aliases, sorted. OCR
// engines use it as a character whitelist.
func (c *Catalog) Alphabet() string {
	set := make(map[rune]bool)
	for _, it := range c.items {
		for _, a := range it.Aliases {
			for _, r := range a {
				set[r] = true
			}
		}
	}
	runes := make([]rune, 0, len(set))
	for r := range set {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	return string(runes)
}

type nativeFile struct {
	Items []Item `json:"items"`
}

// Load reads a catalog in either the native {"items": [...]} format or the
// warframestat filtered_items format.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	var items []Item
	if _, ok := probe["eqmt"]; ok {
		items, err = DecodeFilteredItems(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
	} else {
		var f nativeFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse catalog: %w", err)
		}
		items = f.Items
	}
	return New(items)
}

// LoadFile reads a catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
