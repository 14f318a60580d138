package gate

import (
	"log/slog"
	"net/url"
	"strings"
)

// Classification is the result of matching message text against the supported
// video platform allow-list.
type Classification string

const (
	// ClassVideoURL means the text is a supported YouTube or Facebook video URL.
	ClassVideoURL Classification = "video-url"
	// ClassUnrecognized means the text is not a supported video URL and the
	// sender should receive usage instructions instead of a fetch attempt.
	ClassUnrecognized Classification = "unrecognized"
)

// allowedHosts are the exact hosts accepted for video URLs. Matching is
// anchored at scheme+host rather than string-prefix so lookalike domains such
// as youtube.com.evil.com never pass.
var allowedHosts = map[string]bool{
	"www.youtube.com":  true,
	"youtube.com":      true,
	"youtu.be":         true,
	"www.facebook.com": true,
	"facebook.com":     true,
	"fb.watch":         true,
}

// shareMarker matches Facebook share links, which redirect to an arbitrary
// canonical URL and are resolved by the fetch pipeline before download.
const shareMarker = "facebook.com/share"

// ClassifyURL classifies free-form message text. Only trimmed text that parses
// as an https URL on an allow-listed host (or contains the Facebook share
// marker) is treated as a video URL; everything else triggers the help reply.
// This is a strict allow-list, not a general URL parser, so the bot never
// attempts fetches against arbitrary or malicious links.
func ClassifyURL(raw string) Classification {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ClassUnrecognized
	}

	if strings.Contains(strings.ToLower(text), shareMarker) {
		return ClassVideoURL
	}

	u, err := url.Parse(text)
	if err != nil {
		slog.Debug("ClassifyURL: unparseable text", "error", err)
		return ClassUnrecognized
	}

	// Scheme and host compare case-insensitively; the rest of the URL is
	// passed through untouched.
	if strings.ToLower(u.Scheme) != "https" {
		return ClassUnrecognized
	}
	if !allowedHosts[strings.ToLower(u.Hostname())] {
		return ClassUnrecognized
	}
	return ClassVideoURL
}
