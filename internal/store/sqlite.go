// Package store provides storage backends for wagrab.
//
// This file implements the SQLite-backed audit store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wagrab/wagrab/internal/models"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

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

	// Ensure the directory exists
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

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddInbound(rec models.InboundRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO inbound_messages (message_id, sender, received_at) VALUES (?, ?, ?)`,
		rec.MessageID, rec.Sender, rec.ReceivedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore.AddInbound failed", "error", err, "message_id", rec.MessageID)
		return fmt.Errorf("failed to insert inbound record %s: %w", rec.MessageID, err)
	}
	slog.Debug("SQLiteStore.AddInbound succeeded", "message_id", rec.MessageID)
	return nil
}

func (s *SQLiteStore) AddDelivery(rec models.DeliveryRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO deliveries (message_id, destination, source_url, size_mb, pushed, uploaded, hosted_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.MessageID, rec.Destination, rec.SourceURL, rec.SizeMB, rec.Pushed, rec.Uploaded,
		nilIfEmpty(rec.HostedURL), rec.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore.AddDelivery failed", "error", err, "message_id", rec.MessageID)
		return fmt.Errorf("failed to insert delivery record %s: %w", rec.MessageID, err)
	}
	slog.Debug("SQLiteStore.AddDelivery succeeded", "message_id", rec.MessageID, "destination", rec.Destination)
	return nil
}

func (s *SQLiteStore) ListInbound(limit int) ([]models.InboundRecord, error) {
	rows, err := s.db.Query(
		`SELECT message_id, sender, received_at FROM inbound_messages ORDER BY received_at DESC LIMIT ?`,
		normalizeLimit(limit),
	)
	if err != nil {
		slog.Error("SQLiteStore.ListInbound query failed", "error", err)
		return nil, fmt.Errorf("failed to query inbound records: %w", err)
	}
	defer rows.Close()
	return scanInboundRows(rows)
}

func (s *SQLiteStore) ListDeliveries(limit int) ([]models.DeliveryRecord, error) {
	rows, err := s.db.Query(
		`SELECT message_id, destination, source_url, size_mb, pushed, uploaded, hosted_url, created_at
		 FROM deliveries ORDER BY created_at DESC LIMIT ?`,
		normalizeLimit(limit),
	)
	if err != nil {
		slog.Error("SQLiteStore.ListDeliveries query failed", "error", err)
		return nil, fmt.Errorf("failed to query delivery records: %w", err)
	}
	defer rows.Close()
	return scanDeliveryRows(rows)
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
