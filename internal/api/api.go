// Package api provides the HTTP surface of wagrab.
//
// It exposes the WhatsApp webhook endpoints (verification handshake and
// message delivery), the hosted download pages for fetched videos, and the
// static terms and privacy pages the platform review process requires.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/wagrab/wagrab/internal/fetch"
	"github.com/wagrab/wagrab/internal/gate"
	"github.com/wagrab/wagrab/internal/messaging"
	"github.com/wagrab/wagrab/internal/models"
	"github.com/wagrab/wagrab/internal/store"
)

// Constants for server configuration
const (
	// DefaultAddr is the listen address when API_ADDR is not set.
	DefaultAddr = ":8080"
	// DefaultDownloadsDir is where fetched videos are served from.
	DefaultDownloadsDir = "downloads"
	// readHeaderTimeout bounds slow-header clients on the public listener.
	readHeaderTimeout = 10 * time.Second
	// handleTimeout bounds one inbound message end to end: fetch, transcode
	// and both delivery paths.
	handleTimeout = 10 * time.Minute
)

// Deliverer executes the delivery policy for a fetched artifact.
type Deliverer interface {
	Deliver(ctx context.Context, destination string, artifact models.Artifact) (models.DeliveryOutcome, error)
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr         string // listen address
	VerifyToken  string // webhook verification token
	BaseURL      string // public base URL for hosted download links
	DownloadsDir string // directory served by the download endpoints
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithVerifyToken sets the webhook verification token.
func WithVerifyToken(token string) Option {
	return func(o *Opts) { o.VerifyToken = token }
}

// WithBaseURL sets the public base URL used in download links.
func WithBaseURL(baseURL string) Option {
	return func(o *Opts) { o.BaseURL = baseURL }
}

// WithDownloadsDir sets the downloads directory.
func WithDownloadsDir(dir string) Option {
	return func(o *Opts) { o.DownloadsDir = dir }
}

// Server wires the webhook gate, the fetch pipeline and the delivery
// orchestrator behind the HTTP surface.
type Server struct {
	addr         string
	verifyToken  string
	baseURL      string
	downloadsDir string

	gate       *gate.Gate
	msgService messaging.Service
	fetcher    fetch.Fetcher
	deliverer  Deliverer
	st         store.Store

	httpServer *http.Server
}

// NewServer creates the API server. Variables API_ADDR, VERIFY_TOKEN and
// BASE_URL are read from the environment; explicit options take precedence.
func NewServer(g *gate.Gate, msgService messaging.Service, fetcher fetch.Fetcher, deliverer Deliverer, st store.Store, opts ...Option) *Server {
	cfg := Opts{
		Addr:         os.Getenv("API_ADDR"),
		VerifyToken:  os.Getenv("VERIFY_TOKEN"),
		BaseURL:      os.Getenv("BASE_URL"),
		DownloadsDir: DefaultDownloadsDir,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	slog.Debug("NewServer configured",
		"addr", cfg.Addr,
		"verify_token_set", cfg.VerifyToken != "",
		"base_url", cfg.BaseURL,
		"downloads_dir", cfg.DownloadsDir)

	return &Server{
		addr:         cfg.Addr,
		verifyToken:  cfg.VerifyToken,
		baseURL:      cfg.BaseURL,
		downloadsDir: cfg.DownloadsDir,
		gate:         g,
		msgService:   msgService,
		fetcher:      fetcher,
		deliverer:    deliverer,
		st:           st,
	}
}

// Handler builds the route table. Exposed separately so tests can mount it
// on httptest servers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/downloads/", s.downloadPageHandler)
	mux.HandleFunc("/direct-download/", s.directDownloadHandler)
	mux.HandleFunc("/terms", s.termsHandler)
	mux.HandleFunc("/privacy", s.privacyHandler)
	mux.HandleFunc("/", s.rootHandler)
	return mux
}

// Start begins serving and blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	slog.Info("Server.Start: listening", "addr", s.addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	slog.Info("Server.Shutdown: stopping listener")
	return s.httpServer.Shutdown(ctx)
}
