package render

import (
	"context"
	"fmt"

	"github.com/raine/relic-reward-prices/internal/reward"
	"github.com/raine/relic-reward-prices/internal/storage"
)

// CycleSaver persists cycle records.
type CycleSaver interface {
	SaveCycle(rec *storage.CycleRecord) error
}

// History records every result in the reward history store.
type History struct {
	store CycleSaver
}

func NewHistory(store CycleSaver) *History {
	return &History{store: store}
}

func (h *History) Render(ctx context.Context, result *reward.Result) error {
	if err := h.store.SaveCycle(ToRecord(result)); err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

// ToRecord converts a result to its stored form.
func ToRecord(result *reward.Result) *storage.CycleRecord {
	rec := &storage.CycleRecord{
		ID:         result.CycleID,
		CapturedAt: result.CapturedAt,
		Theme:      themeName(result),
		BestSlot:   result.BestSlot,
		Slots:      make([]storage.SlotRecord, len(result.Slots)),
	}
	for i, s := range result.Slots {
		sr := storage.SlotRecord{
			Slot:       s.Slot.Index,
			Text:       s.Hypothesis.Text,
			Confidence: s.Hypothesis.Confidence,
		}
		if s.Item != nil {
			sr.ItemKey = s.Item.Key
			sr.ItemName = s.Item.Name
			sr.Ducats = ducats(s)
		}
		if s.Price != nil {
			sr.Priced = true
			sr.Platinum = s.Price.Platinum
		}
		rec.Slots[i] = sr
	}
	return rec
}
