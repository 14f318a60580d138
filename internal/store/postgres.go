// Package store provides storage backends for wagrab.
//
// This file implements the Postgres-backed audit store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/wagrab/wagrab/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

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
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddInbound(rec models.InboundRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO inbound_messages (message_id, sender, received_at) VALUES ($1, $2, $3)`,
		rec.MessageID, rec.Sender, rec.ReceivedAt,
	)
	if err != nil {
		slog.Error("PostgresStore.AddInbound failed", "error", err, "message_id", rec.MessageID)
		return fmt.Errorf("failed to insert inbound record %s: %w", rec.MessageID, err)
	}
	return nil
}

func (s *PostgresStore) AddDelivery(rec models.DeliveryRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO deliveries (message_id, destination, source_url, size_mb, pushed, uploaded, hosted_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.MessageID, rec.Destination, rec.SourceURL, rec.SizeMB, rec.Pushed, rec.Uploaded,
		nilIfEmpty(rec.HostedURL), rec.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore.AddDelivery failed", "error", err, "message_id", rec.MessageID)
		return fmt.Errorf("failed to insert delivery record %s: %w", rec.MessageID, err)
	}
	return nil
}

func (s *PostgresStore) ListInbound(limit int) ([]models.InboundRecord, error) {
	rows, err := s.db.Query(
		`SELECT message_id, sender, received_at FROM inbound_messages ORDER BY received_at DESC LIMIT $1`,
		normalizeLimit(limit),
	)
	if err != nil {
		slog.Error("PostgresStore.ListInbound query failed", "error", err)
		return nil, fmt.Errorf("failed to query inbound records: %w", err)
	}
	defer rows.Close()
	return scanInboundRows(rows)
}

func (s *PostgresStore) ListDeliveries(limit int) ([]models.DeliveryRecord, error) {
	rows, err := s.db.Query(
		`SELECT message_id, destination, source_url, size_mb, pushed, uploaded, hosted_url, created_at
		 FROM deliveries ORDER BY created_at DESC LIMIT $1`,
		normalizeLimit(limit),
	)
	if err != nil {
		slog.Error("PostgresStore.ListDeliveries query failed", "error", err)
		return nil, fmt.Errorf("failed to query delivery records: %w", err)
	}
	defer rows.Close()
	return scanDeliveryRows(rows)
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
