package resolve

import (
	"github.com/agnivade/levenshtein"
	"github.com/raine/relic-reward-prices/internal/catalog"
	"github.com/raine/relic-reward-prices/internal/reward"
)

// Outcome classifies a resolution.
type Outcome string

const (
	Exact         Outcome = "exact"
	Fuzzy         Outcome = "fuzzy"
	Ambiguous     Outcome = "ambiguous"
	NotFound      Outcome = "not-found"
	LowConfidence Outcome = "low-confidence"
)

const (
	DefaultMinSimilarity = 0.75
	DefaultMinMargin     = 0.08
)

type alias struct {
	norm string
	len  int
}

type entry struct {
	item    *catalog.Item
	aliases []alias
}

// Resolver maps recognized text to catalog items. It is read-only after
// construction and safe for concurrent use.
type Resolver struct {
	entries       []entry
	exact         map[string]*catalog.Item
	minSimilarity float64
	minMargin     float64
}

// New indexes c. Items are visited in key order so results do not depend on
// map iteration.
func New(c *catalog.Catalog) *Resolver {
	r := &Resolver{
		exact:         make(map[string]*catalog.Item),
		minSimilarity: DefaultMinSimilarity,
		minMargin:     DefaultMinMargin,
	}
	items := c.Items()
	for i := range items {
		it := &items[i]
		e := entry{item: it}
		for _, a := range it.Aliases {
			n := catalog.Normalize(a)
			if n == "" {
				continue
			}
			e.aliases = append(e.aliases, alias{norm: n, len: len([]rune(n))})
			// An alias shared by two items maps to nil and never
			// matches exactly.
			if prev, taken := r.exact[n]; !taken {
				r.exact[n] = it
			} else if prev != it {
				r.exact[n] = nil
			}
		}
		r.entries = append(r.entries, e)
	}
	return r
}

// WithThresholds overrides the fuzzy acceptance thresholds.
func (r *Resolver) WithThresholds(minSimilarity, minMargin float64) *Resolver {
	r.minSimilarity = minSimilarity
	r.minMargin = minMargin
	return r
}

// Resolve returns the catalog item for h, or nil with the reason it was not
// matched.
func (r *Resolver) Resolve(h reward.Hypothesis) (*catalog.Item, Outcome) {
	if !h.Recognized() {
		return nil, LowConfidence
	}
	text := catalog.Normalize(h.Text)
	if text == "" {
		return nil, LowConfidence
	}
	if it, ok := r.exact[text]; ok {
		if it == nil {
			return nil, Ambiguous
		}
		return it, Exact
	}

	textLen := len([]rune(text))
	var (
		best, second float64
		bestItem     *catalog.Item
	)
	for _, e := range r.entries {
		score := 0.0
		for _, a := range e.aliases {
			if a.len*2 < textLen || textLen*2 < a.len {
				continue
			}
			if s := similarity(text, textLen, a); s > score {
				score = s
			}
		}
		switch {
		case score > best:
			second = best
			best, bestItem = score, e.item
		case score > second:
			second = score
		}
	}

	if bestItem == nil || best < r.minSimilarity {
		return nil, NotFound
	}
	if best-second < r.minMargin {
		return nil, Ambiguous
	}
	return bestItem, Fuzzy
}

func similarity(text string, textLen int, a alias) float64 {
	d := levenshtein.ComputeDistance(text, a.norm)
	longest := textLen
	if a.len > longest {
		longest = a.len
	}
	return 1 - float64(d)/float64(longest)
}
