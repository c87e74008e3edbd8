package httpapi

import (
	"time"

	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/raine/relic-reward-prices/internal/storage"
)

type priceView struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Platinum    float64   `json:"platinum"`
	Ducats      *int      `json:"ducats,omitempty"`
	Volume      int       `json:"volume"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

func newPriceView(e reward.PriceEntry) priceView {
	v := priceView{
		Key:         e.Key,
		Name:        e.Name,
		Platinum:    e.Platinum,
		Volume:      e.Volume,
		RefreshedAt: e.RefreshedAt,
	}
	if e.HasDucats {
		d := e.Ducats
		v.Ducats = &d
	}
	return v
}

type rectView struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type slotView struct {
	Index      int        `json:"index"`
	Bounds     rectView   `json:"bounds"`
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"`
	ItemKey    string     `json:"item_key,omitempty"`
	ItemName   string     `json:"item_name,omitempty"`
	Vaulted    bool       `json:"vaulted,omitempty"`
	Price      *priceView `json:"price,omitempty"`
}

type resultView struct {
	CycleID       string     `json:"cycle_id"`
	CapturedAt    time.Time  `json:"captured_at"`
	Theme         string     `json:"theme,omitempty"`
	Panel         rectView   `json:"panel"`
	LowConfidence bool       `json:"low_confidence"`
	BestSlot      int        `json:"best_slot"`
	Slots         []slotView `json:"slots"`
}

func newResultView(r *reward.Result) resultView {
	v := resultView{
		CycleID:       r.CycleID,
		CapturedAt:    r.CapturedAt,
		Panel:         rect(r.Panel.Bounds.Min.X, r.Panel.Bounds.Min.Y, r.Panel.Bounds.Dx(), r.Panel.Bounds.Dy()),
		LowConfidence: r.Panel.LowConfidence,
		BestSlot:      r.BestSlot,
		Slots:         make([]slotView, len(r.Slots)),
	}
	if r.Panel.Theme != nil {
		v.Theme = r.Panel.Theme.Name
	}
	for i, s := range r.Slots {
		b := s.Slot.Bounds
		sv := slotView{
			Index:      s.Slot.Index,
			Bounds:     rect(b.Min.X, b.Min.Y, b.Dx(), b.Dy()),
			Text:       s.Hypothesis.Text,
			Confidence: s.Hypothesis.Confidence,
		}
		if s.Item != nil {
			sv.ItemKey = s.Item.Key
			sv.ItemName = s.Item.Name
			sv.Vaulted = s.Item.Vaulted
		}
		if s.Price != nil {
			pv := newPriceView(*s.Price)
			sv.Price = &pv
		}
		v.Slots[i] = sv
	}
	return v
}

func rect(x, y, w, h int) rectView {
	return rectView{X: x, Y: y, W: w, H: h}
}

type slotRecordView struct {
	Slot       int      `json:"slot"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	ItemKey    string   `json:"item_key,omitempty"`
	ItemName   string   `json:"item_name,omitempty"`
	Platinum   *float64 `json:"platinum,omitempty"`
	Ducats     int      `json:"ducats"`
}

type cycleView struct {
	ID         string           `json:"id"`
	CapturedAt time.Time        `json:"captured_at"`
	Theme      string           `json:"theme"`
	BestSlot   int              `json:"best_slot"`
	Slots      []slotRecordView `json:"slots"`
}

func newCycleView(rec storage.CycleRecord) cycleView {
	v := cycleView{
		ID:         rec.ID,
		CapturedAt: rec.CapturedAt,
		Theme:      rec.Theme,
		BestSlot:   rec.BestSlot,
		Slots:      make([]slotRecordView, len(rec.Slots)),
	}
	for i, s := range rec.Slots {
		sv := slotRecordView{
			Slot:       s.Slot,
			Text:       s.Text,
			Confidence: s.Confidence,
			ItemKey:    s.ItemKey,
			ItemName:   s.ItemName,
			Ducats:     s.Ducats,
		}
		if s.Priced {
			p := s.Platinum
			sv.Platinum = &p
		}
		v.Slots[i] = sv
	}
	return v
}

type itemCountView struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	Seen         int       `json:"seen"`
	LastPlatinum float64   `json:"last_platinum"`
	LastSeen     time.Time `json:"last_seen"`
}
