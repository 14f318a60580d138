package util

import (
	"regexp"
	"strings"
	"time"
)

// MaxFilenameBase caps the sanitized portion of a generated filename so video
// titles cannot produce paths that upset the filesystem or URL encoding.
const MaxFilenameBase = 50

var (
	disallowedChars = regexp.MustCompile(`[^\w\s-]`)
	repeatedSpaces  = regexp.MustCompile(`\s+`)
)

// SanitizeFilename strips special characters and emojis from a video title,
// collapses whitespace, caps the length, and appends a timestamp so repeated
// fetches of the same title never collide.
func SanitizeFilename(name string) string {
	name = disallowedChars.ReplaceAllString(name, "")
	name = repeatedSpaces.ReplaceAllString(name, " ")
	if len(name) > MaxFilenameBase {
		name = name[:MaxFilenameBase-3] + "..."
	}
	stamp := time.Now().Format("20060102_150405")
	return strings.TrimSpace(name + "_" + stamp)
}
