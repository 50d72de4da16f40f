// Package store provides storage backends for logged health records.
//
// It includes an in-memory store for tests plus SQLite and PostgreSQL
// implementations selected from the configured DSN.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/yahahealth/yaha/internal/models"
)

// Store persists completed health records and the shadow log of fallback
// parses. Insert writes exactly one row; there are no retries at this layer.
type Store interface {
	// Insert writes one record into the named container table.
	Insert(ctx context.Context, container models.Container, record models.Record) error

	// LogEntry appends a row to the entries shadow log.
	LogEntry(ctx context.Context, entry models.Entry) error

	// SelectDay returns a chat's records in a container for one UTC date
	// ("2006-01-02"), oldest first.
	SelectDay(ctx context.Context, container models.Container, chatID int64, date string) ([]models.Record, error)

	// Close releases any underlying resources.
	Close() error
}

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string
}

// Option configures a store.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports "postgres" for PostgreSQL connection strings and
// "sqlite" for everything else (treated as a file path).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// containerColumns fixes the writable column set and ordering per container.
// Record keys outside this list are silently dropped so a loosely-shaped
// fallback parse cannot inject arbitrary columns.
var containerColumns = map[models.Container][]string{
	models.ContainerFood: {
		"chat_id", "date", "meal_name", "meal_type", "calories",
		"protein_g", "carbs_g", "fat_g", "fiber_g", "notes",
	},
	models.ContainerSleep: {
		"chat_id", "date", "sleep_score", "duration_hr", "energy_score",
		"sleep_start", "sleep_end", "resting_hr", "notes",
	},
	models.ContainerExercise: {
		"chat_id", "date", "workout_type", "duration_min", "distance_km",
		"calories", "avg_hr", "max_hr", "intensity", "tags", "notes",
	},
}

// insertArgs selects the known columns present in record, in fixed order.
func insertArgs(container models.Container, record models.Record) ([]string, []any, error) {
	allowed, ok := containerColumns[container]
	if !ok {
		return nil, nil, fmt.Errorf("unknown container %q", container)
	}
	var cols []string
	var args []any
	for _, col := range allowed {
		if v, present := record[col]; present {
			cols = append(cols, col)
			args = append(args, v)
		}
	}
	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("record has no insertable fields for container %q", container)
	}
	return cols, args, nil
}

// scanRecords drains rows into flat records, dropping NULL columns. Byte
// slices are converted to strings so SQLite TEXT columns compare cleanly.
func scanRecords(rows *sql.Rows) ([]models.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}
	var out []models.Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r := make(models.Record, len(cols))
		for i, col := range cols {
			switch v := values[i].(type) {
			case nil:
			case []byte:
				r[col] = string(v)
			default:
				r[col] = v
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InMemoryStore is a simple in-memory store for tests.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[models.Container][]models.Record
	entries []models.Entry
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[models.Container][]models.Record)}
}

// Insert appends a record to the named container.
func (s *InMemoryStore) Insert(ctx context.Context, container models.Container, record models.Record) error {
	if _, ok := containerColumns[container]; !ok {
		return fmt.Errorf("unknown container %q", container)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[container] = append(s.records[container], record)
	return nil
}

// LogEntry appends a shadow-log entry.
func (s *InMemoryStore) LogEntry(ctx context.Context, entry models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// SelectDay returns a chat's records in a container for one date.
func (s *InMemoryStore) SelectDay(ctx context.Context, container models.Container, chatID int64, date string) ([]models.Record, error) {
	if _, ok := containerColumns[container]; !ok {
		return nil, fmt.Errorf("unknown container %q", container)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Record
	for _, r := range s.records[container] {
		if r["chat_id"] == chatID && r["date"] == date {
			out = append(out, r)
		}
	}
	return out, nil
}

// Records returns all records inserted into a container (for tests).
func (s *InMemoryStore) Records(container models.Container) []models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Record(nil), s.records[container]...)
}

// Entries returns all shadow-log entries (for tests).
func (s *InMemoryStore) Entries() []models.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Entry(nil), s.entries...)
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
