// Package api provides the hosted download pages for fetched videos.
package api

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// downloadPageTemplate renders the per-file download page. The markup must
// stay small enough to load in WhatsApp's in-app browser.
var downloadPageTemplate = template.Must(template.New("download").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>wagrab - {{.Filename}}</title>
<style>
body { font-family: sans-serif; max-width: 640px; margin: 2rem auto; padding: 0 1rem; }
video { width: 100%; border-radius: 8px; }
a.button { display: inline-block; margin-top: 1rem; padding: 0.75rem 1.5rem;
  background: #25d366; color: #fff; text-decoration: none; border-radius: 8px; }
.size { color: #666; }
</style>
</head>
<body>
<h1>Your video is ready</h1>
<p class="size">{{.Filename}} ({{.SizeMB}}MB)</p>
<video controls src="/direct-download/{{.Filename}}"></video>
<p><a class="button" href="/direct-download/{{.Filename}}" download>Download video</a></p>
<p><a href="/terms">Terms of Service</a> · <a href="/privacy">Privacy Policy</a></p>
</body>
</html>
`))

// safeDownloadName extracts and validates the trailing filename of a download
// route. Anything that could escape the downloads directory is rejected.
func safeDownloadName(path, prefix string) (string, bool) {
	name := strings.TrimPrefix(path, prefix)
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", false
	}
	return name, true
}

// downloadPageHandler serves the HTML download page for one fetched video
// (GET /downloads/{filename}).
func (s *Server) downloadPageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name, ok := safeDownloadName(r.URL.Path, "/downloads/")
	if !ok {
		slog.Warn("Server.downloadPageHandler: rejected filename", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}

	info, err := os.Stat(filepath.Join(s.downloadsDir, name))
	if err != nil {
		slog.Debug("Server.downloadPageHandler: file not found", "name", name)
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = downloadPageTemplate.Execute(w, struct {
		Filename string
		SizeMB   string
	}{
		Filename: name,
		SizeMB:   fmt.Sprintf("%.1f", float64(info.Size())/(1024*1024)),
	})
	if err != nil {
		slog.Error("Server.downloadPageHandler: template render failed", "error", err)
	}
}

// directDownloadHandler streams the video file itself as an attachment
// (GET /direct-download/{filename}). Twilio media delivery also fetches
// through this route.
func (s *Server) directDownloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name, ok := safeDownloadName(r.URL.Path, "/direct-download/")
	if !ok {
		slog.Warn("Server.directDownloadHandler: rejected filename", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(s.downloadsDir, name)
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

// rootHandler answers liveness probes on every unmatched path under /.
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "wagrab",
	})
}
