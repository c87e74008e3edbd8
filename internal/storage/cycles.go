package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SaveCycle stores a detection result and its slots in one transaction.
func (s *SQLiteStore) SaveCycle(rec *CycleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO cycles (id, captured_at, theme, best_slot) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.CapturedAt.UTC(), rec.Theme, rec.BestSlot,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cycle: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO cycle_slots (cycle_id, slot, text, confidence, item_key, item_name, priced, platinum, ducats)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, slot := range rec.Slots {
		_, err := stmt.Exec(
			rec.ID, slot.Slot, slot.Text, slot.Confidence,
			nullString(slot.ItemKey), nullString(slot.ItemName),
			slot.Priced, slot.Platinum, slot.Ducats,
		)
		if err != nil {
			return fmt.Errorf("failed to insert slot %d: %w", slot.Slot, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cycle: %w", err)
	}
	return nil
}

// RecentCycles returns the newest cycles first, with their slots.
func (s *SQLiteStore) RecentCycles(limit int) ([]CycleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, captured_at, theme, best_slot FROM cycles ORDER BY captured_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}

	var cycles []CycleRecord
	for rows.Next() {
		var c CycleRecord
		if err := rows.Scan(&c.ID, &c.CapturedAt, &c.Theme, &c.BestSlot); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range cycles {
		slots, err := s.slots(cycles[i].ID)
		if err != nil {
			return nil, err
		}
		cycles[i].Slots = slots
	}
	return cycles, nil
}

func (s *SQLiteStore) slots(cycleID string) ([]SlotRecord, error) {
	rows, err := s.db.Query(`
		SELECT slot, text, confidence, item_key, item_name, priced, platinum, ducats
		FROM cycle_slots WHERE cycle_id = ? ORDER BY slot
	`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer rows.Close()

	var slots []SlotRecord
	for rows.Next() {
		var r SlotRecord
		var key, name sql.NullString
		if err := rows.Scan(&r.Slot, &r.Text, &r.Confidence, &key, &name, &r.Priced, &r.Platinum, &r.Ducats); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		r.ItemKey, r.ItemName = key.String, name.String
		slots = append(slots, r)
	}
	return slots, rows.Err()
}

// ItemCounts returns resolved items ordered by how often they were offered.
func (s *SQLiteStore) ItemCounts(limit int) ([]ItemCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT cs.item_key, MAX(cs.item_name), COUNT(*), MAX(c.captured_at)
		FROM cycle_slots cs JOIN cycles c ON c.id = cs.cycle_id
		WHERE cs.item_key IS NOT NULL
		GROUP BY cs.item_key
		ORDER BY COUNT(*) DESC, cs.item_key
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query item counts: %w", err)
	}

	var counts []ItemCount
	for rows.Next() {
		var ic ItemCount
		var lastSeen string
		if err := rows.Scan(&ic.ItemKey, &ic.ItemName, &ic.Seen, &lastSeen); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan item count: %w", err)
		}
		ic.LastSeen = parseTime(lastSeen)
		counts = append(counts, ic)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range counts {
		err := s.db.QueryRow(`
			SELECT cs.platinum FROM cycle_slots cs JOIN cycles c ON c.id = cs.cycle_id
			WHERE cs.item_key = ? AND cs.priced = 1
			ORDER BY c.captured_at DESC LIMIT 1
		`, counts[i].ItemKey).Scan(&counts[i].LastPlatinum)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to query last price: %w", err)
		}
	}
	return counts, nil
}

// PruneOlderThan removes cycles captured before now minus age.
func (s *SQLiteStore) PruneOlderThan(age time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-age).UTC()
	result, err := s.db.Exec(`DELETE FROM cycles WHERE captured_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune cycles: %w", err)
	}
	return result.RowsAffected()
}

// parseTime reads timestamps returned by aggregates, which lose the column's
// DATETIME type.
func parseTime(v string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
