package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/wagrab/wagrab/internal/twiliowhatsapp"
)

// TwilioService implements Service using the Twilio API. Twilio delivers
// media by fetching a public URL, so video sends reference the file's hosted
// download link under the configured base URL instead of uploading bytes.
type TwilioService struct {
	client  twiliowhatsapp.TwilioWhatsAppSender
	baseURL string
}

// NewTwilioService creates a TwilioService. baseURL is the public address
// this wagrab instance serves its downloads directory from.
func NewTwilioService(client twiliowhatsapp.TwilioWhatsAppSender, baseURL string) *TwilioService {
	return &TwilioService{
		client:  client,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a WhatsApp
// phone number.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	canonical, err := canonicalizeRecipient(recipient)
	if err != nil {
		return "", err
	}
	if canonical != recipient {
		slog.Debug("TwilioService canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// SendText sends a text message via Twilio.
func (s *TwilioService) SendText(ctx context.Context, to string, body string) error {
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService.SendText: recipient validation failed", "error", err, "to", to)
		return err
	}
	return s.client.SendMessage(ctx, "+"+canonical, body)
}

// SendVideo delivers a local video by pointing Twilio at its public download
// URL. The file must remain on disk until Twilio has fetched it, which the
// retention sweep's grace period guarantees.
func (s *TwilioService) SendVideo(ctx context.Context, to string, localPath string) error {
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService.SendVideo: recipient validation failed", "error", err, "to", to)
		return err
	}
	if s.baseURL == "" {
		return fmt.Errorf("twilio backend requires a public base URL for media delivery")
	}

	mediaURL := s.baseURL + "/direct-download/" + url.PathEscape(filepath.Base(localPath))
	slog.Debug("TwilioService.SendVideo: sending media by URL", "to", canonical, "media_url", mediaURL)
	return s.client.SendMediaURL(ctx, "+"+canonical, mediaURL, "")
}
