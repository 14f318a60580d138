package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultResolveTimeout bounds the share-URL resolution request.
const DefaultResolveTimeout = 10 * time.Second

// browserUserAgent makes the resolution request look like a regular browser;
// Facebook serves share-link redirects differently to unknown clients.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// resolveShareURL follows a Facebook share link to its canonical destination
// by letting the HTTP client chase redirects. On any failure the original URL
// is returned unchanged and the extractor gets to try it as-is.
func resolveShareURL(ctx context.Context, client *http.Client, shareURL string) string {
	ctx, cancel := context.WithTimeout(ctx, DefaultResolveTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shareURL, nil)
	if err != nil {
		slog.Warn("resolveShareURL: failed to build request", "error", err)
		return shareURL
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("resolveShareURL: request failed, using original URL", "error", err)
		return shareURL
	}
	defer resp.Body.Close()

	final := resp.Request.URL.String()
	if strings.Contains(final, "login") || strings.Contains(final, "checkpoint") {
		slog.Warn("resolveShareURL: platform served a login or challenge page", "final_url", final)
	} else if body, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); readErr == nil {
		if strings.Contains(strings.ToLower(string(body)), "robot") {
			slog.Warn("resolveShareURL: page body looks like a bot challenge", "final_url", final)
		}
	}

	slog.Debug("resolveShareURL: share link resolved", "final_url", final)
	return final
}
