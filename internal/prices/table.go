package prices

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/raine/relic-reward-prices/internal/catalog"
	"github.com/raine/relic-reward-prices/internal/reward"
)

var (
	// ErrFetchFailed wraps any failure to obtain price data from a source.
	ErrFetchFailed = errors.New("price fetch failed")
	// ErrInvalidTable is returned when fetched data fails validation.
	ErrInvalidTable = errors.New("invalid price table")
)

// number decodes a JSON number that may also arrive as a quoted string.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", s, err)
		}
		*n = number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = number(v)
	return nil
}

// PriceItem is one row of the upstream price list.
type PriceItem struct {
	Name         string
	YesterdayVol int
	TodayVol     int
	CustomAvg    float64
}

func (p *PriceItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name         string `json:"name"`
		YesterdayVol number `json:"yesterday_vol"`
		TodayVol     number `json:"today_vol"`
		CustomAvg    number `json:"custom_avg"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = PriceItem{
		Name:         raw.Name,
		YesterdayVol: int(raw.YesterdayVol),
		TodayVol:     int(raw.TodayVol),
		CustomAvg:    float64(raw.CustomAvg),
	}
	return nil
}

// Volume is the midpoint of yesterday's and today's trade volume.
func (p PriceItem) Volume() int {
	lo, hi := p.YesterdayVol, p.TodayVol
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo + (hi-lo)/2
}

// PriceTable is the raw price list as fetched.
type PriceTable []PriceItem

// DucatTable maps catalog keys to ducat values.
type DucatTable map[string]int

// Table is an immutable, joined snapshot of prices keyed by catalog key.
type Table struct {
	entries     map[string]reward.PriceEntry
	RefreshedAt time.Time
}

// Build joins prices and ducats by catalog key and validates the result.
// Rows with an empty name are skipped; the first row wins for duplicate keys.
func Build(pt PriceTable, dt DucatTable, refreshedAt time.Time) (*Table, error) {
	t := &Table{entries: make(map[string]reward.PriceEntry, len(pt)), RefreshedAt: refreshedAt}
	for _, row := range pt {
		key := catalog.Key(row.Name)
		if key == "" {
			continue
		}
		if _, dup := t.entries[key]; dup {
			continue
		}
		if math.IsNaN(row.CustomAvg) || math.IsInf(row.CustomAvg, 0) || row.CustomAvg < 0 {
			return nil, fmt.Errorf("%w: bad price %v for %q", ErrInvalidTable, row.CustomAvg, row.Name)
		}
		if row.YesterdayVol < 0 || row.TodayVol < 0 {
			return nil, fmt.Errorf("%w: negative volume for %q", ErrInvalidTable, row.Name)
		}
		ducats, ok := dt[key]
		t.entries[key] = reward.PriceEntry{
			Key:         key,
			Name:        row.Name,
			Platinum:    math.Round(row.CustomAvg*10) / 10,
			Ducats:      ducats,
			HasDucats:   ok,
			Volume:      row.Volume(),
			RefreshedAt: refreshedAt,
		}
	}
	if len(t.entries) == 0 {
		return nil, fmt.Errorf("%w: no prices", ErrInvalidTable)
	}
	return t, nil
}

// Lookup returns the entry for a catalog key.
func (t *Table) Lookup(key string) (reward.PriceEntry, bool) {
	if t == nil {
		return reward.PriceEntry{}, false
	}
	e, ok := t.entries[key]
	return e, ok
}

// Len returns the number of priced items.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
