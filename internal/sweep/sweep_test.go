package sweep

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeCleaner struct {
	calls int
	age   time.Duration
	err   error
}

func (f *fakeCleaner) CleanupOlderThan(_ context.Context, age time.Duration) (int, error) {
	f.calls++
	f.age = age
	return 3, f.err
}

func writeFileAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSweepRemovesOnlyExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	old := writeFileAged(t, dir, "original_old.mp4", 48*time.Hour)
	fresh := writeFileAged(t, dir, "original_fresh.mp4", time.Hour)

	s := NewSweeper(dir, WithRetention(24*time.Hour))
	s.Run(context.Background())

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expected expired file to be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("expected fresh file to survive, got %v", err)
	}
}

func TestSweepSkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "keep")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	stamp := time.Now().Add(-72 * time.Hour)
	if err := os.Chtimes(sub, stamp, stamp); err != nil {
		t.Fatal(err)
	}

	NewSweeper(dir, WithRetention(24*time.Hour)).Run(context.Background())

	if _, err := os.Stat(sub); err != nil {
		t.Errorf("expected subdirectory to survive sweep, got %v", err)
	}
}

func TestSweepInvokesCloudCleanerWithRetention(t *testing.T) {
	cleaner := &fakeCleaner{}
	s := NewSweeper(t.TempDir(), WithRetention(6*time.Hour), WithCloudCleaner(cleaner))
	s.Run(context.Background())

	if cleaner.calls != 1 {
		t.Fatalf("expected one cloud cleanup call, got %d", cleaner.calls)
	}
	if cleaner.age != 6*time.Hour {
		t.Errorf("cloud cleanup age = %v, want 6h", cleaner.age)
	}
}

func TestSweepSurvivesCloudCleanerFailure(t *testing.T) {
	cleaner := &fakeCleaner{err: errors.New("api down")}
	s := NewSweeper(t.TempDir(), WithCloudCleaner(cleaner))
	// Must not panic or return; failures are logged.
	s.Run(context.Background())
	if cleaner.calls != 1 {
		t.Errorf("expected cloud cleanup to be attempted, got %d calls", cleaner.calls)
	}
}

func TestSweepMissingDirectoryIsNotFatal(t *testing.T) {
	s := NewSweeper(filepath.Join(t.TempDir(), "nope"))
	s.Run(context.Background())
}

func TestSweepHonorsInjectedClock(t *testing.T) {
	dir := t.TempDir()
	path := writeFileAged(t, dir, "original_clip.mp4", 2*time.Hour)

	// Clock a week in the future makes the 2h-old file ancient.
	future := func() time.Time { return time.Now().Add(7 * 24 * time.Hour) }
	s := NewSweeper(dir, WithRetention(24*time.Hour), WithClock(future))
	s.Run(context.Background())

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected file to be expired under the injected clock")
	}
}
