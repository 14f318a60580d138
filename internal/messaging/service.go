// Package messaging provides the pluggable message delivery abstraction for
// wagrab. The delivery orchestrator pushes media and composes notifications
// through a Service without knowing which WhatsApp backend carries them.
package messaging

import (
	"context"
	"fmt"
	"regexp"
)

// phoneNumberRegex strips everything that is not a digit from a recipient.
var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// Service defines a pluggable WhatsApp delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// identifier. Returns the canonicalized recipient and an error if
	// validation fails.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendText sends a text message to a recipient.
	SendText(ctx context.Context, to string, body string) error

	// SendVideo delivers a locally stored video inline to a recipient's chat.
	SendVideo(ctx context.Context, to string, localPath string) error
}

// canonicalizeRecipient removes all non-numeric characters and validates the
// result has at least 6 digits. Both backends share the same recipient rules.
func canonicalizeRecipient(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < 6 {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum 6 digits required)", canonical)
	}
	return canonical, nil
}
