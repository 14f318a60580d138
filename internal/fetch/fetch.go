// Package fetch implements the video retrieval pipeline for wagrab.
//
// It shells out to yt-dlp for extraction and ffmpeg for transcoded variants.
// The pipeline resolves Facebook share links first, selects the cookie file
// for the target platform, downloads the original into an isolated temp
// directory, verifies the result is actually a video, and moves it into the
// downloads directory under a sanitized name.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"

	"github.com/wagrab/wagrab/internal/models"
	"github.com/wagrab/wagrab/internal/util"
)

// Constants for the fetch pipeline
const (
	// DefaultDownloadDelay is the politeness pause before every extraction,
	// so a burst of requests does not hammer the platform.
	DefaultDownloadDelay = 2 * time.Second
	// DefaultFetchTimeout bounds the whole yt-dlp invocation.
	DefaultFetchTimeout = 5 * time.Minute
	// filetypeHeaderSize is how many leading bytes the type sniffer needs.
	filetypeHeaderSize = 261
)

// Fetcher is the video fetch collaborator interface (for production and
// testing).
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Result, error)
}

// Variant is a transcoded rendition of the original download.
type Variant struct {
	Label    string // "720p", "480p"
	Artifact models.Artifact
}

// Result is the full output of one fetch: the original artifact plus any
// transcoded variants that succeeded. Variants are best-effort; a failed
// transcode only costs the quality option, never the fetch.
type Result struct {
	Original models.Artifact
	Variants []Variant
}

// Opts holds configuration options for the yt-dlp fetcher.
type Opts struct {
	YtDlpPath     string // extractor binary, default "yt-dlp"
	FFmpegPath    string // transcoder binary; empty disables variants
	OutputDir     string // where finished downloads land
	Cookies       CookiePaths
	DownloadDelay time.Duration
	HTTPClient    *http.Client // used for share-URL resolution
}

// Option defines a configuration option for the fetcher.
type Option func(*Opts)

// WithYtDlpPath sets the yt-dlp binary path.
func WithYtDlpPath(path string) Option {
	return func(o *Opts) { o.YtDlpPath = path }
}

// WithFFmpegPath sets the ffmpeg binary path. An empty path disables
// transcoded variants.
func WithFFmpegPath(path string) Option {
	return func(o *Opts) { o.FFmpegPath = path }
}

// WithOutputDir sets the downloads directory.
func WithOutputDir(dir string) Option {
	return func(o *Opts) { o.OutputDir = dir }
}

// WithCookies sets the per-platform cookie files.
func WithCookies(c CookiePaths) Option {
	return func(o *Opts) { o.Cookies = c }
}

// WithDownloadDelay overrides the politeness delay. Tests set it to zero.
func WithDownloadDelay(d time.Duration) Option {
	return func(o *Opts) { o.DownloadDelay = d }
}

// WithHTTPClient injects the HTTP client used for share-URL resolution.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// YtDlpFetcher implements Fetcher by shelling out to yt-dlp and ffmpeg.
type YtDlpFetcher struct {
	ytdlp      string
	ffmpeg     string
	outputDir  string
	cookies    CookiePaths
	delay      time.Duration
	httpClient *http.Client
}

// NewYtDlpFetcher creates a fetcher, creating the output directory if needed.
func NewYtDlpFetcher(opts ...Option) (*YtDlpFetcher, error) {
	cfg := Opts{
		YtDlpPath:     "yt-dlp",
		OutputDir:     "downloads",
		DownloadDelay: DefaultDownloadDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create downloads directory: %w", err)
	}
	slog.Debug("NewYtDlpFetcher configured",
		"ytdlp", cfg.YtDlpPath,
		"ffmpeg_set", cfg.FFmpegPath != "",
		"output_dir", cfg.OutputDir,
		"youtube_cookies_set", cfg.Cookies.YouTube != "",
		"facebook_cookies_set", cfg.Cookies.Facebook != "")

	return &YtDlpFetcher{
		ytdlp:      cfg.YtDlpPath,
		ffmpeg:     cfg.FFmpegPath,
		outputDir:  cfg.OutputDir,
		cookies:    cfg.Cookies,
		delay:      cfg.DownloadDelay,
		httpClient: cfg.HTTPClient,
	}, nil
}

// Fetch downloads the video behind rawURL and produces transcoded variants
// when ffmpeg is available. The returned original artifact is always an mp4
// in the downloads directory.
func (f *YtDlpFetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	slog.Info("YtDlpFetcher.Fetch: starting download", "url", rawURL)

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	cookiesPath := f.cookiesFor(rawURL)
	if strings.Contains(rawURL, "facebook.com/share") {
		rawURL = resolveShareURL(ctx, f.httpClient, rawURL)
	}

	originalPath, err := f.download(ctx, rawURL, cookiesPath)
	if err != nil {
		return nil, err
	}

	if err := verifyVideoFile(originalPath); err != nil {
		os.Remove(originalPath)
		return nil, classify(err)
	}

	result := &Result{Original: artifactFor(originalPath)}
	slog.Info("YtDlpFetcher.Fetch: original downloaded",
		"path", originalPath, "size_mb", result.Original.SizeMB)

	if f.ffmpeg != "" {
		result.Variants = f.transcodeVariants(ctx, originalPath)
	}
	return result, nil
}

// cookiesFor selects the cookie file for the URL's platform.
func (f *YtDlpFetcher) cookiesFor(rawURL string) string {
	switch {
	case strings.Contains(rawURL, "youtube.com") || strings.Contains(rawURL, "youtu.be"):
		return f.cookies.YouTube
	case strings.Contains(rawURL, "facebook.com") || strings.Contains(rawURL, "fb.watch"):
		return f.cookies.Facebook
	default:
		return ""
	}
}

// download runs yt-dlp into an isolated temp dir and moves the finished file
// into the downloads directory under a sanitized, timestamped name.
func (f *YtDlpFetcher) download(ctx context.Context, rawURL, cookiesPath string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "wagrab-fetch-")
	if err != nil {
		return "", fmt.Errorf("mktemp: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	ctx, cancel := context.WithTimeout(ctx, DefaultFetchTimeout)
	defer cancel()

	args := []string{
		"-f", "best[ext=mp4]/bestvideo[ext=mp4]+bestaudio[ext=m4a]/best",
		"--no-playlist",
		"--merge-output-format", "mp4",
		"--no-warnings", "--no-progress",
		"--user-agent", browserUserAgent,
		"-o", filepath.Join(tmpDir, "%(title)s.%(ext)s"),
	}
	if cookiesPath != "" {
		args = append(args, "--cookies", cookiesPath)
	}
	args = append(args, rawURL)

	cmd := exec.CommandContext(ctx, f.ytdlp, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		extractorErr := fmt.Errorf("yt-dlp failed: %v: %s", err, strings.TrimSpace(stderr.String()))
		slog.Error("YtDlpFetcher.download: extraction failed", "url", rawURL, "error", extractorErr)
		return "", classify(extractorErr)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return "", fmt.Errorf("failed to read temp dir: %w", err)
	}
	if len(entries) != 1 || entries[0].IsDir() {
		return "", fmt.Errorf("expected exactly one downloaded file in %s, found %d entries", tmpDir, len(entries))
	}

	downloaded := filepath.Join(tmpDir, entries[0].Name())
	title := strings.TrimSuffix(entries[0].Name(), filepath.Ext(entries[0].Name()))
	finalPath := filepath.Join(f.outputDir, "original_"+util.SanitizeFilename(title)+".mp4")

	if err := moveFile(downloaded, finalPath); err != nil {
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}
	return finalPath, nil
}

// transcodeVariants produces the 720p and 480p renditions. Failures are
// logged and skipped so a broken transcode never fails the fetch.
func (f *YtDlpFetcher) transcodeVariants(ctx context.Context, originalPath string) []Variant {
	base := strings.TrimSuffix(filepath.Base(originalPath), ".mp4")
	base = strings.TrimPrefix(base, "original_")

	profiles := []struct {
		label   string
		prefix  string
		scale   string
		crf     string
		bitrate string
	}{
		{label: "720p", prefix: "medium_", scale: "scale=-2:720", crf: "23", bitrate: "128k"},
		{label: "480p", prefix: "small_", scale: "scale=-2:480", crf: "28", bitrate: "96k"},
	}

	var variants []Variant
	for _, p := range profiles {
		outPath := filepath.Join(f.outputDir, p.prefix+base+".mp4")
		slog.Debug("YtDlpFetcher.transcodeVariants: creating variant", "label", p.label, "path", outPath)

		cmd := exec.CommandContext(ctx, f.ffmpeg,
			"-i", originalPath,
			"-vf", p.scale,
			"-c:v", "libx264",
			"-crf", p.crf,
			"-preset", "medium",
			"-c:a", "aac",
			"-b:a", p.bitrate,
			"-y",
			outPath,
		)
		var stderr strings.Builder
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			slog.Warn("YtDlpFetcher.transcodeVariants: transcode failed, skipping variant",
				"label", p.label, "error", err, "stderr", strings.TrimSpace(stderr.String()))
			continue
		}
		if _, err := os.Stat(outPath); err != nil {
			slog.Warn("YtDlpFetcher.transcodeVariants: variant missing after transcode", "label", p.label)
			continue
		}
		variants = append(variants, Variant{Label: p.label, Artifact: artifactFor(outPath)})
	}
	return variants
}

// verifyVideoFile sniffs the file header and rejects anything that is not a
// video. An HTML error page saved as .mp4 would otherwise reach the chat.
func verifyVideoFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open downloaded file: %w", err)
	}
	defer file.Close()

	head := make([]byte, filetypeHeaderSize)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read downloaded file header: %w", err)
	}
	if !filetype.IsVideo(head[:n]) {
		return fmt.Errorf("downloaded file is not a video")
	}
	return nil
}

// artifactFor stats a path into an Artifact. A stat failure yields size zero;
// the delivery precondition check will catch a vanished file.
func artifactFor(path string) models.Artifact {
	info, err := os.Stat(path)
	if err != nil {
		return models.Artifact{Path: path}
	}
	return models.Artifact{Path: path, SizeMB: float64(info.Size()) / (1024 * 1024)}
}

// moveFile renames src to dst, falling back to copy-and-remove when the
// rename crosses filesystems (temp dirs often live on a different mount).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
