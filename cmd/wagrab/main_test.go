package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wagrab/wagrab/internal/store"
)

func testFlags(t *testing.T) Flags {
	t.Helper()
	stateDir := t.TempDir()
	dbDSN := ""
	apiAddr := ":0"
	baseURL := "https://bot.example.com"
	ytdlp := ""
	ffmpeg := ""
	backend := backendCloudAPI
	retention := 24
	dedupTTL := 60
	return Flags{
		stateDir:         &stateDir,
		dbDSN:            &dbDSN,
		apiAddr:          &apiAddr,
		baseURL:          &baseURL,
		ytdlpPath:        &ytdlp,
		ffmpegPath:       &ffmpeg,
		messagingBackend: &backend,
		retentionHours:   &retention,
		dedupTTLSeconds:  &dedupTTL,
	}
}

func TestEnsureDirectoriesExist(t *testing.T) {
	flags := testFlags(t)
	if err := ensureDirectoriesExist(flags); err != nil {
		t.Fatalf("ensureDirectoriesExist failed: %v", err)
	}
	for _, dir := range []string{downloadsDir(flags), filepath.Join(*flags.stateDir, cookiesSubdir)} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s to exist, err = %v", dir, err)
		}
	}
}

func TestBuildStoreDefaultsToInMemory(t *testing.T) {
	flags := testFlags(t)
	st := buildStore(flags)
	defer st.Close()
	if _, ok := st.(*store.InMemoryStore); !ok {
		t.Errorf("expected in-memory store for empty DSN, got %T", st)
	}
}

func TestBuildStoreSelectsSQLiteForFilePath(t *testing.T) {
	flags := testFlags(t)
	dsn := filepath.Join(t.TempDir(), "wagrab.db")
	flags.dbDSN = &dsn

	st := buildStore(flags)
	defer st.Close()
	if _, ok := st.(*store.SQLiteStore); !ok {
		t.Errorf("expected SQLite store for file DSN, got %T", st)
	}
}

func TestBuildFetcherCreatesDownloadsDir(t *testing.T) {
	flags := testFlags(t)
	if err := ensureDirectoriesExist(flags); err != nil {
		t.Fatal(err)
	}
	if _, err := buildFetcher(flags); err != nil {
		t.Fatalf("buildFetcher failed: %v", err)
	}
}

func TestBuildMessagingServiceRequiresCredentials(t *testing.T) {
	t.Setenv("WHATSAPP_TOKEN", "")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "")
	flags := testFlags(t)
	if _, err := buildMessagingService(flags); err == nil {
		t.Error("expected error without Cloud API credentials")
	}

	backend := backendTwilio
	flags.messagingBackend = &backend
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	if _, err := buildMessagingService(flags); err == nil {
		t.Error("expected error without Twilio credentials")
	}
}
