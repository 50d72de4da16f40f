// Package store provides storage backends for logged health records.
//
// This file implements a PostgreSQL-backed store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/yahahealth/yaha/internal/models"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists records in a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// Insert writes one record into the named container table.
func (s *PostgresStore) Insert(ctx context.Context, container models.Container, record models.Record) error {
	cols, args, err := insertArgs(container, record)
	if err != nil {
		slog.Error("PostgresStore Insert rejected record", "error", err, "container", container)
		return err
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", container, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		slog.Error("PostgresStore Insert failed", "error", err, "container", container)
		return fmt.Errorf("failed to insert %s record: %w", container, err)
	}
	slog.Debug("PostgresStore Insert succeeded", "container", container, "columns", len(cols))
	return nil
}

// LogEntry appends a row to the entries shadow log.
func (s *PostgresStore) LogEntry(ctx context.Context, entry models.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (chat_id, raw_text, parsed, container, error) VALUES ($1, $2, $3, $4, $5)`,
		entry.ChatID, entry.RawText, nilIfEmpty(entry.Parsed), nilIfEmpty(string(entry.Container)), nilIfEmpty(entry.Error))
	if err != nil {
		slog.Error("PostgresStore LogEntry failed", "error", err, "chatID", entry.ChatID)
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	slog.Debug("PostgresStore LogEntry succeeded", "chatID", entry.ChatID, "container", entry.Container)
	return nil
}

// SelectDay returns a chat's records in a container for one date.
func (s *PostgresStore) SelectDay(ctx context.Context, container models.Container, chatID int64, date string) ([]models.Record, error) {
	cols, ok := containerColumns[container]
	if !ok {
		return nil, fmt.Errorf("unknown container %q", container)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE chat_id = $1 AND date = $2 ORDER BY id",
		strings.Join(cols, ", "), container)
	rows, err := s.db.QueryContext(ctx, query, chatID, date)
	if err != nil {
		slog.Error("PostgresStore SelectDay failed", "error", err, "container", container)
		return nil, fmt.Errorf("failed to query %s records: %w", container, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
