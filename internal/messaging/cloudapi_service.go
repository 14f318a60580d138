package messaging

import (
	"context"
	"log/slog"

	"github.com/wagrab/wagrab/internal/whatsapp"
)

// CloudAPIService implements Service using the WhatsApp Business Cloud API
// client. This is the default backend: the same phone number that receives
// webhooks sends the replies.
type CloudAPIService struct {
	client whatsapp.Sender
}

// NewCloudAPIService creates a CloudAPIService wrapping the given sender.
func NewCloudAPIService(client whatsapp.Sender) *CloudAPIService {
	return &CloudAPIService{client: client}
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a WhatsApp
// phone number.
func (s *CloudAPIService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	canonical, err := canonicalizeRecipient(recipient)
	if err != nil {
		return "", err
	}
	if canonical != recipient {
		slog.Debug("CloudAPIService canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// SendText sends a text message via the Cloud API.
func (s *CloudAPIService) SendText(ctx context.Context, to string, body string) error {
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("CloudAPIService.SendText: recipient validation failed", "error", err, "to", to)
		return err
	}
	return s.client.SendText(ctx, canonical, body)
}

// SendVideo uploads and sends a local video via the Cloud API media endpoints.
func (s *CloudAPIService) SendVideo(ctx context.Context, to string, localPath string) error {
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("CloudAPIService.SendVideo: recipient validation failed", "error", err, "to", to)
		return err
	}
	return s.client.SendVideo(ctx, canonical, localPath)
}
