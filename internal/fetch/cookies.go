package fetch

import (
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
)

// CookiePaths holds the per-platform cookie files created at startup.
type CookiePaths struct {
	YouTube  string
	Facebook string
}

// SetupCookies materializes Netscape-format cookie files from the
// base64-encoded YOUTUBE_COOKIES_CONTENT and FACEBOOK_COOKIES_CONTENT
// environment variables. Cookies let the extractor reach age-gated or
// rate-limited content; missing variables are fine and simply leave the
// extractor anonymous for that platform.
func SetupCookies(dir string) CookiePaths {
	var paths CookiePaths
	paths.YouTube = writeCookieFile(dir, "youtube_cookies.txt", os.Getenv("YOUTUBE_COOKIES_CONTENT"))
	paths.Facebook = writeCookieFile(dir, "facebook_cookies.txt", os.Getenv("FACEBOOK_COOKIES_CONTENT"))
	return paths
}

func writeCookieFile(dir, name, encoded string) string {
	if encoded == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		slog.Error("SetupCookies: failed to decode cookie content", "file", name, "error", err)
		return ""
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		slog.Error("SetupCookies: failed to write cookie file", "file", path, "error", err)
		return ""
	}
	slog.Info("SetupCookies: cookie file created", "file", path)
	return path
}
