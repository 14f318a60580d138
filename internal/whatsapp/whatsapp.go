// Package whatsapp wraps the WhatsApp Business Cloud API for wagrab.
//
// It provides text sends, media uploads, and video sends by media ID against
// the Graph API, with fixed per-call timeouts and bounded retries.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
)

// Constants for Cloud API client configuration
const (
	// DefaultAPIBaseURL is the Graph API endpoint for the Cloud API.
	DefaultAPIBaseURL = "https://graph.facebook.com/v16.0"
	// DefaultSendTimeout bounds message send calls.
	DefaultSendTimeout = 30 * time.Second
	// DefaultUploadTimeout bounds media upload calls, which carry whole videos.
	DefaultUploadTimeout = 120 * time.Second
	// DefaultMaxRetries is the number of attempts for each API call.
	DefaultMaxRetries = 3
	// DefaultRetryDelay is the fixed pause between retry attempts.
	DefaultRetryDelay = 2 * time.Second
)

// Sender is the interface the rest of wagrab uses to reach WhatsApp
// (for production and testing).
type Sender interface {
	SendText(ctx context.Context, to string, body string) error
	SendVideo(ctx context.Context, to string, localPath string) error
}

// Opts holds configuration options for the Cloud API client.
type Opts struct {
	Token         string // Cloud API bearer token
	PhoneNumberID string // business phone number ID issued by the platform
	BaseURL       string // Graph API base URL (override for tests)
	HTTPClient    *http.Client
}

// Option defines a configuration option for the Cloud API client.
type Option func(*Opts)

// WithToken sets the Cloud API bearer token.
func WithToken(token string) Option {
	return func(o *Opts) { o.Token = token }
}

// WithPhoneNumberID sets the business phone number ID.
func WithPhoneNumberID(id string) Option {
	return func(o *Opts) { o.PhoneNumberID = id }
}

// WithBaseURL overrides the Graph API base URL. Tests point this at a local
// httptest server.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client talks to the WhatsApp Business Cloud API.
type Client struct {
	token         string
	phoneNumberID string
	baseURL       string
	httpClient    *http.Client
}

// statusError reports a non-2xx API response. 401s are not retried: a bad
// token will not become a good one two seconds later.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("whatsapp api returned status %d: %s", e.code, e.body)
}

// NewClient creates a Cloud API client, applying any provided options and
// falling back to WHATSAPP_TOKEN and WHATSAPP_PHONE_NUMBER_ID from the
// environment.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv("WHATSAPP_TOKEN")
	}
	if cfg.PhoneNumberID == "" {
		cfg.PhoneNumberID = os.Getenv("WHATSAPP_PHONE_NUMBER_ID")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAPIBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	slog.Debug("WhatsApp NewClient config loaded",
		"token_set", cfg.Token != "",
		"phone_number_id_set", cfg.PhoneNumberID != "",
		"base_url", cfg.BaseURL)

	if cfg.Token == "" {
		return nil, fmt.Errorf("whatsapp token must be provided")
	}
	if cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("whatsapp phone number ID must be provided")
	}

	return &Client{
		token:         cfg.Token,
		phoneNumberID: cfg.PhoneNumberID,
		baseURL:       cfg.BaseURL,
		httpClient:    cfg.HTTPClient,
	}, nil
}

// SendText sends a text message to the given recipient.
func (c *Client) SendText(ctx context.Context, to string, body string) error {
	if to == "" {
		return fmt.Errorf("recipient cannot be empty")
	}
	if body == "" {
		return fmt.Errorf("message body cannot be empty")
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}

	slog.Debug("Client.SendText: sending text message", "to", to, "body_length", len(body))
	err := c.withRetries(ctx, "SendText", func(ctx context.Context) error {
		return c.postMessage(ctx, payload, DefaultSendTimeout)
	})
	if err != nil {
		slog.Error("Client.SendText: send failed", "error", err, "to", to)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	slog.Info("Client.SendText: message sent", "to", to)
	return nil
}

// SendVideo uploads the local video file and sends it inline to the given
// recipient. The platform rejects media above its own size ceiling; callers
// enforce that limit before invoking this.
func (c *Client) SendVideo(ctx context.Context, to string, localPath string) error {
	if to == "" {
		return fmt.Errorf("recipient cannot be empty")
	}

	mediaID, err := c.UploadMedia(ctx, localPath)
	if err != nil {
		return fmt.Errorf("failed to upload video: %w", err)
	}
	slog.Debug("Client.SendVideo: media uploaded", "to", to, "media_id", mediaID)

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "video",
		"video":             map[string]string{"id": mediaID},
	}

	err = c.withRetries(ctx, "SendVideo", func(ctx context.Context) error {
		return c.postMessage(ctx, payload, DefaultSendTimeout)
	})
	if err != nil {
		slog.Error("Client.SendVideo: send failed", "error", err, "to", to)
		return fmt.Errorf("failed to send video to %s: %w", to, err)
	}
	slog.Info("Client.SendVideo: video sent", "to", to, "media_id", mediaID)
	return nil
}

// UploadMedia uploads a local file to the Cloud API media endpoint and
// returns the platform media ID.
func (c *Client) UploadMedia(ctx context.Context, localPath string) (string, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return "", fmt.Errorf("media file not found: %w", err)
	}
	slog.Debug("Client.UploadMedia: uploading file", "path", localPath, "size_mb", float64(info.Size())/(1024*1024))

	var mediaID string
	err = c.withRetries(ctx, "UploadMedia", func(ctx context.Context) error {
		id, uploadErr := c.uploadOnce(ctx, localPath)
		if uploadErr != nil {
			return uploadErr
		}
		mediaID = id
		return nil
	})
	if err != nil {
		return "", err
	}
	if mediaID == "" {
		return "", fmt.Errorf("upload response carried no media id")
	}
	return mediaID, nil
}

// uploadOnce performs a single multipart upload attempt and returns the
// media ID from the response.
func (c *Client) uploadOnce(ctx context.Context, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open media file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("messaging_product", "whatsapp"); err != nil {
		return "", fmt.Errorf("failed to write form field: %w", err)
	}
	part, err := writer.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to read media file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultUploadTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/media", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("media upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode, body: string(body)}
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	return parsed.ID, nil
}

// postMessage POSTs a JSON payload to the messages endpoint with the given
// per-call timeout.
func (c *Client) postMessage(ctx context.Context, payload map[string]interface{}, timeout time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create message request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("message request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &statusError{code: resp.StatusCode, body: string(body)}
	}
	return nil
}

// withRetries runs call with bounded fixed-delay retries. Authentication
// failures abort immediately.
func (c *Client) withRetries(ctx context.Context, op string, call func(ctx context.Context) error) error {
	attempt := 0
	return retry.Do(
		func() error {
			attempt++
			if attempt > 1 {
				slog.Debug("Client.withRetries: retrying", "op", op, "attempt", attempt)
			}
			err := call(ctx)
			if err != nil {
				if se, ok := err.(*statusError); ok && se.code == http.StatusUnauthorized {
					slog.Error("Client.withRetries: authentication error, not retrying", "op", op)
					return retry.Unrecoverable(err)
				}
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(DefaultMaxRetries),
		retry.Delay(DefaultRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}
