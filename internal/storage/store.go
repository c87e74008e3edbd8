package storage

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SlotRecord is one slot of a recorded reward screen.
type SlotRecord struct {
	Slot       int
	Text       string
	Confidence float64
	// ItemKey and ItemName are empty for unresolved slots.
	ItemKey  string
	ItemName string
	Priced   bool
	Platinum float64
	Ducats   int
}

// CycleRecord is one emitted detection result.
type CycleRecord struct {
	ID         string
	CapturedAt time.Time
	Theme      string
	BestSlot   int
	Slots      []SlotRecord
}

// ItemCount summarizes how often an item was offered.
type ItemCount struct {
	ItemKey      string
	ItemName     string
	Seen         int
	LastPlatinum float64
	LastSeen     time.Time
}

// HistoryStore defines the interface for reward history persistence.
type HistoryStore interface {
	SaveCycle(rec *CycleRecord) error
	RecentCycles(limit int) ([]CycleRecord, error)
	ItemCounts(limit int) ([]ItemCount, error)
	PruneOlderThan(age time.Duration) (int64, error)
	Close() error
}

// SQLiteStore implements HistoryStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based history store.
// The dbPath is the path to the SQLite database file.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_time_format=sqlite", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	// The file exists once the schema is written.
	if dbPath != ":memory:" {
		if err := os.Chmod(dbPath, 0600); err != nil {
			log.Warn().Err(err).Str("dbPath", dbPath).Msg("failed to restrict history database permissions")
		}
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	cyclesQuery := `
	CREATE TABLE IF NOT EXISTS cycles (
		id TEXT PRIMARY KEY,
		captured_at DATETIME NOT NULL,
		theme TEXT NOT NULL,
		best_slot INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(cyclesQuery)
	if err != nil {
		return fmt.Errorf("failed to create cycles table: %w", err)
	}

	slotsQuery := `
	CREATE TABLE IF NOT EXISTS cycle_slots (
		cycle_id TEXT NOT NULL,
		slot INTEGER NOT NULL,
		text TEXT NOT NULL,
		confidence REAL NOT NULL,
		item_key TEXT,
		item_name TEXT,
		priced INTEGER NOT NULL DEFAULT 0,
		platinum REAL NOT NULL DEFAULT 0,
		ducats INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (cycle_id, slot),
		FOREIGN KEY (cycle_id) REFERENCES cycles(id) ON DELETE CASCADE
	);
	`
	_, err = s.db.Exec(slotsQuery)
	if err != nil {
		return fmt.Errorf("failed to create cycle_slots table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_cycle_slots_item ON cycle_slots(item_key)`)
	if err != nil {
		return fmt.Errorf("failed to create cycle_slots index: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
