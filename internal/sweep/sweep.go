// Package sweep removes expired download artifacts.
//
// Finished downloads stay on disk so the hosted download pages keep working
// for a while after delivery. The sweeper enforces the retention window on
// the local downloads directory and, when configured, on the cloud folder.
package sweep

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Constants for sweep configuration
const (
	// DefaultRetention is how long finished downloads stay available.
	DefaultRetention = 24 * time.Hour
	// DefaultSchedule runs the sweep at the top of every hour.
	DefaultSchedule = "0 * * * *"
	// cloudSweepTimeout bounds one remote cleanup pass.
	cloudSweepTimeout = 2 * time.Minute
)

// CloudCleaner is the remote retention collaborator. The Cloudinary uploader
// implements it; deployments without cloud credentials run with a nil cleaner.
type CloudCleaner interface {
	CleanupOlderThan(ctx context.Context, age time.Duration) (int, error)
}

// Sweeper enforces the retention window on local and cloud artifacts.
type Sweeper struct {
	dir       string
	retention time.Duration
	cloud     CloudCleaner
	now       func() time.Time
}

// Opts holds configuration options for the sweeper.
type Opts struct {
	Dir       string
	Retention time.Duration
	Cloud     CloudCleaner
	Now       func() time.Time
}

// Option defines a configuration option for the sweeper.
type Option func(*Opts)

// WithRetention overrides the retention window.
func WithRetention(d time.Duration) Option {
	return func(o *Opts) { o.Retention = d }
}

// WithCloudCleaner attaches a remote cleanup backend.
func WithCloudCleaner(c CloudCleaner) Option {
	return func(o *Opts) { o.Cloud = c }
}

// WithClock injects the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(o *Opts) { o.Now = now }
}

// NewSweeper creates a sweeper for the given downloads directory.
func NewSweeper(dir string, opts ...Option) *Sweeper {
	cfg := Opts{
		Dir:       dir,
		Retention: DefaultRetention,
		Now:       time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSweeper configured",
		"dir", cfg.Dir,
		"retention", cfg.Retention,
		"cloud_cleaner_set", cfg.Cloud != nil)
	return &Sweeper{
		dir:       cfg.Dir,
		retention: cfg.Retention,
		cloud:     cfg.Cloud,
		now:       cfg.Now,
	}
}

// Run performs one full sweep pass. Per-file failures are logged and
// skipped so one locked file cannot stall the rest of the pass.
func (s *Sweeper) Run(ctx context.Context) {
	removed := s.sweepLocal()
	slog.Info("Sweeper.Run: local sweep finished", "dir", s.dir, "removed", removed)

	if s.cloud == nil {
		return
	}
	cloudCtx, cancel := context.WithTimeout(ctx, cloudSweepTimeout)
	defer cancel()
	cloudRemoved, err := s.cloud.CleanupOlderThan(cloudCtx, s.retention)
	if err != nil {
		slog.Warn("Sweeper.Run: cloud cleanup failed", "error", err)
		return
	}
	slog.Info("Sweeper.Run: cloud sweep finished", "removed", cloudRemoved)
}

// sweepLocal deletes files in the downloads directory older than the
// retention window. Subdirectories are left alone.
func (s *Sweeper) sweepLocal() int {
	cutoff := s.now().Add(-s.retention)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		slog.Warn("Sweeper.sweepLocal: failed to read downloads directory", "dir", s.dir, "error", err)
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			slog.Warn("Sweeper.sweepLocal: failed to stat entry", "name", entry.Name(), "error", err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("Sweeper.sweepLocal: failed to remove expired file", "path", path, "error", err)
			continue
		}
		slog.Debug("Sweeper.sweepLocal: removed expired file", "path", path)
		removed++
	}
	return removed
}
