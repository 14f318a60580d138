// Package store provides storage backends for wagrab's request and delivery
// audit trail.
//
// The audit trail is advisory: webhook dedup is decided by the in-memory
// cache in the gate package, and a store failure never blocks message
// handling. Backends are selected by DSN at startup (in-memory for tests,
// SQLite for single-node deployments, Postgres for anything shared).
package store

import (
	"strings"

	"github.com/wagrab/wagrab/internal/models"
)

// Store is the audit persistence collaborator interface.
type Store interface {
	AddInbound(rec models.InboundRecord) error
	AddDelivery(rec models.DeliveryRecord) error
	ListInbound(limit int) ([]models.InboundRecord, error)
	ListDeliveries(limit int) ([]models.DeliveryRecord, error)
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string (file path for SQLite,
// postgres:// URL for Postgres).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite3". Anything that
// does not look like a Postgres connection string is treated as a SQLite
// file path.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return "postgres"
	}
	// Key/value form: "host=... user=... dbname=..."
	if strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}
