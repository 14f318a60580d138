package messaging

import (
	"context"
	"sync"
	"testing"

	"github.com/wagrab/wagrab/internal/whatsapp"
)

func TestCanonicalizeRecipient(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+1 (555) 123-0000", "15551230000", false},
		{"15551230000", "15551230000", false},
		{"", "", true},
		{"abc", "", true},
		{"12345", "", true}, // below minimum digit count
	}
	for _, tc := range cases {
		got, err := canonicalizeRecipient(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("canonicalizeRecipient(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("canonicalizeRecipient(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("canonicalizeRecipient(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCloudAPIServiceSendsThroughClient(t *testing.T) {
	mock := whatsapp.NewMockClient()
	svc := NewCloudAPIService(mock)

	if err := svc.SendText(context.Background(), "+1 555 123 0000", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	texts := mock.Texts()
	if len(texts) != 1 || texts[0].To != "15551230000" || texts[0].Body != "hello" {
		t.Errorf("text not forwarded with canonical recipient: %+v", texts)
	}

	if err := svc.SendVideo(context.Background(), "15551230000", "/tmp/clip.mp4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	videos := mock.Videos()
	if len(videos) != 1 || videos[0].Path != "/tmp/clip.mp4" {
		t.Errorf("video not forwarded: %+v", videos)
	}
}

func TestCloudAPIServiceRejectsInvalidRecipient(t *testing.T) {
	svc := NewCloudAPIService(whatsapp.NewMockClient())
	if err := svc.SendText(context.Background(), "not-a-number", "hello"); err == nil {
		t.Error("expected recipient validation error")
	}
}

// mockTwilioSender records Twilio sends for assertions.
type mockTwilioSender struct {
	mu       sync.Mutex
	texts    []string
	mediaURL string
}

func (m *mockTwilioSender) SendMessage(ctx context.Context, to string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, body)
	return nil
}

func (m *mockTwilioSender) SendMediaURL(ctx context.Context, to string, mediaURL string, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mediaURL = mediaURL
	return nil
}

func TestTwilioServiceSendVideoUsesHostedURL(t *testing.T) {
	mock := &mockTwilioSender{}
	svc := NewTwilioService(mock, "https://bot.example.com/")

	err := svc.SendVideo(context.Background(), "15551230000", "/var/lib/wagrab/downloads/my clip.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://bot.example.com/direct-download/my%20clip.mp4"
	if mock.mediaURL != want {
		t.Errorf("media URL = %q, want %q", mock.mediaURL, want)
	}
}

func TestTwilioServiceSendVideoRequiresBaseURL(t *testing.T) {
	svc := NewTwilioService(&mockTwilioSender{}, "")
	if err := svc.SendVideo(context.Background(), "15551230000", "/tmp/clip.mp4"); err == nil {
		t.Error("expected error without a public base URL")
	}
}
