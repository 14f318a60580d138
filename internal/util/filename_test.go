package util

import (
	"strings"
	"testing"
)

func TestSanitizeFilenameStripsSpecialChars(t *testing.T) {
	got := SanitizeFilename("My Video! (official) 🎥")
	if strings.ContainsAny(got, "!()🎥") {
		t.Errorf("special characters not stripped: %q", got)
	}
	if !strings.Contains(got, "My Video") {
		t.Errorf("expected title words preserved, got %q", got)
	}
}

func TestSanitizeFilenameCapsLength(t *testing.T) {
	long := strings.Repeat("a", 200)
	got := SanitizeFilename(long)
	// 47 chars + "..." + "_" + 15-char timestamp
	if len(got) > MaxFilenameBase+16 {
		t.Errorf("sanitized name too long: %d chars", len(got))
	}
	if !strings.Contains(got, "...") {
		t.Errorf("expected truncation marker in %q", got)
	}
}

func TestSanitizeFilenameCollapsesWhitespace(t *testing.T) {
	got := SanitizeFilename("a    b\t\tc")
	if strings.Contains(got, "  ") {
		t.Errorf("whitespace not collapsed: %q", got)
	}
}
