package fetch

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind classifies permanent fetch failures so the bot can give the
// sender guidance specific to what went wrong instead of a generic error.
type FailureKind string

const (
	// FailurePrivate means the platform reports the video as private.
	FailurePrivate FailureKind = "private"
	// FailureAuthRequired means the platform demands a signed-in session.
	FailureAuthRequired FailureKind = "auth-required"
	// FailureCheckpoint means the platform interposed a bot/login challenge.
	FailureCheckpoint FailureKind = "checkpoint"
	// FailureUnavailable means the requested format or video no longer exists.
	FailureUnavailable FailureKind = "unavailable"
	// FailureGeneric covers everything else (network faults, timeouts).
	FailureGeneric FailureKind = "generic"
)

// Error is a classified fetch failure.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify inspects extractor output for the known failure markers and wraps
// the error with the matching kind.
func classify(err error) *Error {
	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "video is private") || strings.Contains(text, "private video"):
		return &Error{Kind: FailurePrivate, Err: err}
	case strings.Contains(text, "sign in"):
		return &Error{Kind: FailureAuthRequired, Err: err}
	case strings.Contains(text, "checkpoint"):
		return &Error{Kind: FailureCheckpoint, Err: err}
	case strings.Contains(text, "requested format not available") || strings.Contains(text, "video unavailable"):
		return &Error{Kind: FailureUnavailable, Err: err}
	default:
		return &Error{Kind: FailureGeneric, Err: err}
	}
}

// KindOf returns the failure kind of a fetch error, or FailureGeneric when
// the error did not come from the fetch pipeline.
func KindOf(err error) FailureKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return FailureGeneric
}

// Guidance maps a failure kind to the text sent back to the requester.
func Guidance(kind FailureKind) string {
	switch kind {
	case FailurePrivate:
		return "❌ This video is private. Only public videos can be downloaded."
	case FailureAuthRequired:
		return "❌ This video requires signing in to view, so it can't be downloaded."
	case FailureCheckpoint:
		return "❌ The platform is blocking automated access to this video right now. Please try again later."
	case FailureUnavailable:
		return "❌ Could not download the video. It may have been deleted or made unavailable."
	default:
		return "❌ Could not download the video. For Facebook videos, please make sure:\n\n1. The video is public\n2. You're sharing the direct video URL\n3. The video hasn't been deleted"
	}
}
