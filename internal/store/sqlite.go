// Package store provides storage backends for logged health records.
//
// This file implements an SQLite-backed store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/yahahealth/yaha/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists records in a local SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// Insert writes one record into the named container table.
func (s *SQLiteStore) Insert(ctx context.Context, container models.Container, record models.Record) error {
	cols, args, err := insertArgs(container, record)
	if err != nil {
		slog.Error("SQLiteStore Insert rejected record", "error", err, "container", container)
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", container, strings.Join(cols, ", "), placeholders)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		slog.Error("SQLiteStore Insert failed", "error", err, "container", container)
		return fmt.Errorf("failed to insert %s record: %w", container, err)
	}
	slog.Debug("SQLiteStore Insert succeeded", "container", container, "columns", len(cols))
	return nil
}

// LogEntry appends a row to the entries shadow log.
func (s *SQLiteStore) LogEntry(ctx context.Context, entry models.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (chat_id, raw_text, parsed, container, error) VALUES (?, ?, ?, ?, ?)`,
		entry.ChatID, entry.RawText, nilIfEmpty(entry.Parsed), nilIfEmpty(string(entry.Container)), nilIfEmpty(entry.Error))
	if err != nil {
		slog.Error("SQLiteStore LogEntry failed", "error", err, "chatID", entry.ChatID)
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	slog.Debug("SQLiteStore LogEntry succeeded", "chatID", entry.ChatID, "container", entry.Container)
	return nil
}

// SelectDay returns a chat's records in a container for one date.
func (s *SQLiteStore) SelectDay(ctx context.Context, container models.Container, chatID int64, date string) ([]models.Record, error) {
	cols, ok := containerColumns[container]
	if !ok {
		return nil, fmt.Errorf("unknown container %q", container)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE chat_id = ? AND date = ? ORDER BY id",
		strings.Join(cols, ", "), container)
	rows, err := s.db.QueryContext(ctx, query, chatID, date)
	if err != nil {
		slog.Error("SQLiteStore SelectDay failed", "error", err, "container", container)
		return nil, fmt.Errorf("failed to query %s records: %w", container, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
