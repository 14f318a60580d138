package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wagrab/wagrab/internal/api"
	"github.com/wagrab/wagrab/internal/cloud"
	"github.com/wagrab/wagrab/internal/delivery"
	"github.com/wagrab/wagrab/internal/fetch"
	"github.com/wagrab/wagrab/internal/gate"
	"github.com/wagrab/wagrab/internal/lockfile"
	"github.com/wagrab/wagrab/internal/messaging"
	"github.com/wagrab/wagrab/internal/scheduler"
	"github.com/wagrab/wagrab/internal/store"
	"github.com/wagrab/wagrab/internal/sweep"
	"github.com/wagrab/wagrab/internal/twiliowhatsapp"
	"github.com/wagrab/wagrab/internal/util"
	"github.com/wagrab/wagrab/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for wagrab state data
	DefaultStateDir = "/var/lib/wagrab"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "wagrab.db"
	// downloadsSubdir holds fetched videos under the state directory
	downloadsSubdir = "downloads"
	// cookiesSubdir holds decoded platform cookie files
	cookiesSubdir = "cookies"
	// shutdownTimeout bounds the graceful listener drain
	shutdownTimeout = 10 * time.Second
)

// Messaging backend names accepted in MESSAGING_BACKEND.
const (
	backendCloudAPI = "cloudapi"
	backendTwilio   = "twilio"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// One instance per state directory: concurrent sweeps and downloads in
	// the same directory would corrupt each other.
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	// Assemble the pipeline
	st := buildStore(flags)
	defer st.Close()

	fetcher, err := buildFetcher(flags)
	if err != nil {
		slog.Error("Failed to create fetcher", "error", err)
		os.Exit(1)
	}

	uploader, err := cloud.NewCloudinaryUploader()
	if err != nil {
		slog.Error("Failed to create cloud uploader", "error", err)
		os.Exit(1)
	}

	msgService, err := buildMessagingService(flags)
	if err != nil {
		slog.Error("Failed to create messaging backend", "error", err, "backend", *flags.messagingBackend)
		os.Exit(1)
	}

	orchestrator := delivery.NewOrchestrator(msgService, uploader)
	g := gate.New(gate.NewDedupCache(time.Duration(*flags.dedupTTLSeconds) * time.Second))

	server := api.NewServer(g, msgService, fetcher, orchestrator, st,
		buildAPIOptions(flags)...)

	// Start retention sweeps
	sched := scheduler.NewScheduler()
	defer sched.Stop()
	sweeper := sweep.NewSweeper(downloadsDir(flags),
		sweep.WithRetention(time.Duration(*flags.retentionHours)*time.Hour),
		sweep.WithCloudCleaner(uploader))
	if err := sched.AddJob(sweep.DefaultSchedule, func() {
		sweeper.Run(context.Background())
	}); err != nil {
		slog.Error("Failed to schedule retention sweep", "error", err)
		os.Exit(1)
	}

	// Serve until interrupted
	slog.Info("Bootstrapping wagrab",
		"state_dir", *flags.stateDir,
		"dsn_set", *flags.dbDSN != "",
		"api_addr", *flags.apiAddr,
		"backend", *flags.messagingBackend)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("wagrab server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
			os.Exit(1)
		}
	}
	slog.Info("wagrab exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL      string
	StateDir         string
	APIAddr          string
	BaseURL          string
	YtDlpPath        string
	FFmpegPath       string
	MessagingBackend string
	RetentionHours   int
	DedupTTLSeconds  int
}

// Flags holds command line flag values
type Flags struct {
	stateDir         *string
	dbDSN            *string
	apiAddr          *string
	baseURL          *string
	ytdlpPath        *string
	ffmpegPath       *string
	messagingBackend *string
	retentionHours   *int
	dedupTTLSeconds  *int
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StateDir:         os.Getenv("WAGRAB_STATE_DIR"),
		APIAddr:          os.Getenv("API_ADDR"),
		BaseURL:          os.Getenv("BASE_URL"),
		YtDlpPath:        os.Getenv("YTDLP_PATH"),
		FFmpegPath:       os.Getenv("FFMPEG_PATH"),
		MessagingBackend: os.Getenv("MESSAGING_BACKEND"),
		RetentionHours:   util.ParseIntEnv("FILE_RETENTION_HOURS", 24),
		DedupTTLSeconds:  util.ParseIntEnv("DEDUP_TTL_SECONDS", 60),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No WAGRAB_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.MessagingBackend == "" {
		config.MessagingBackend = backendCloudAPI
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"WAGRAB_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"BASE_URL", config.BaseURL,
		"MESSAGING_BACKEND", config.MessagingBackend,
		"FILE_RETENTION_HOURS", config.RetentionHours,
		"DEDUP_TTL_SECONDS", config.DedupTTLSeconds)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:         flag.String("state-dir", config.StateDir, "state directory for wagrab data (overrides $WAGRAB_STATE_DIR)"),
		dbDSN:            flag.String("db-dsn", config.DatabaseURL, "database DSN for the audit store (overrides $DATABASE_URL)"),
		apiAddr:          flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		baseURL:          flag.String("base-url", config.BaseURL, "public base URL for download links (overrides $BASE_URL)"),
		ytdlpPath:        flag.String("ytdlp-path", config.YtDlpPath, "path to the yt-dlp binary (overrides $YTDLP_PATH)"),
		ffmpegPath:       flag.String("ffmpeg-path", config.FFmpegPath, "path to the ffmpeg binary; empty disables transcodes (overrides $FFMPEG_PATH)"),
		messagingBackend: flag.String("messaging-backend", config.MessagingBackend, "messaging backend: cloudapi or twilio (overrides $MESSAGING_BACKEND)"),
		retentionHours:   flag.Int("retention-hours", config.RetentionHours, "hours to keep downloaded files (overrides $FILE_RETENTION_HOURS)"),
		dedupTTLSeconds:  flag.Int("dedup-ttl-seconds", config.DedupTTLSeconds, "seconds to suppress duplicate webhook deliveries (overrides $DEDUP_TTL_SECONDS)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr,
		"baseURL", *flags.baseURL,
		"messagingBackend", *flags.messagingBackend,
		"retentionHours", *flags.retentionHours,
		"dedupTTLSeconds", *flags.dedupTTLSeconds)

	return flags
}

func downloadsDir(flags Flags) string {
	return filepath.Join(*flags.stateDir, downloadsSubdir)
}

// ensureDirectoriesExist creates the state, downloads and cookies directories
func ensureDirectoriesExist(flags Flags) error {
	for _, dir := range []string{
		*flags.stateDir,
		downloadsDir(flags),
		filepath.Join(*flags.stateDir, cookiesSubdir),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("Failed to create directory", "error", err, "dir", dir)
			return err
		}
	}
	return nil
}

// buildStore selects the audit store backend from the DSN
func buildStore(flags Flags) store.Store {
	dsn := *flags.dbDSN
	if dsn == "" {
		slog.Debug("No database DSN provided, using in-memory audit store")
		return store.NewInMemoryStore()
	}

	var (
		st  store.Store
		err error
	)
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql")
		st, err = store.NewPostgresStore(store.WithDSN(dsn))
	} else {
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", dsn)
		st, err = store.NewSQLiteStore(store.WithDSN(dsn))
	}
	if err != nil {
		slog.Error("Failed to open audit store, falling back to in-memory", "error", err)
		return store.NewInMemoryStore()
	}
	return st
}

// buildFetcher constructs the yt-dlp fetcher with decoded platform cookies
func buildFetcher(flags Flags) (fetch.Fetcher, error) {
	cookies := fetch.SetupCookies(filepath.Join(*flags.stateDir, cookiesSubdir))

	fetchOpts := []fetch.Option{
		fetch.WithOutputDir(downloadsDir(flags)),
		fetch.WithCookies(cookies),
	}
	if *flags.ytdlpPath != "" {
		fetchOpts = append(fetchOpts, fetch.WithYtDlpPath(*flags.ytdlpPath))
	}
	if *flags.ffmpegPath != "" {
		fetchOpts = append(fetchOpts, fetch.WithFFmpegPath(*flags.ffmpegPath))
	}
	return fetch.NewYtDlpFetcher(fetchOpts...)
}

// buildMessagingService selects the WhatsApp delivery backend
func buildMessagingService(flags Flags) (messaging.Service, error) {
	switch *flags.messagingBackend {
	case backendTwilio:
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, err
		}
		return messaging.NewTwilioService(client, *flags.baseURL), nil
	default:
		client, err := whatsapp.NewClient()
		if err != nil {
			return nil, err
		}
		return messaging.NewCloudAPIService(client), nil
	}
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	apiOpts := []api.Option{
		api.WithDownloadsDir(downloadsDir(flags)),
	}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.baseURL != "" {
		apiOpts = append(apiOpts, api.WithBaseURL(*flags.baseURL))
	}
	return apiOpts
}
