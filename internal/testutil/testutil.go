// Package testutil provides common test utilities and helpers for wagrab tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wagrab/wagrab/internal/api"
	"github.com/wagrab/wagrab/internal/cloud"
	"github.com/wagrab/wagrab/internal/delivery"
	"github.com/wagrab/wagrab/internal/fetch"
	"github.com/wagrab/wagrab/internal/gate"
	"github.com/wagrab/wagrab/internal/messaging"
	"github.com/wagrab/wagrab/internal/models"
	"github.com/wagrab/wagrab/internal/store"
	"github.com/wagrab/wagrab/internal/whatsapp"
)

// TestVerifyToken is the webhook verification token test servers use.
const TestVerifyToken = "test-verify-token"

// ServerDeps exposes the mock collaborators behind a test server so tests
// can preload behavior and assert on recorded calls.
type ServerDeps struct {
	Messenger *whatsapp.MockClient
	Fetcher   *fetch.MockFetcher
	Uploader  *cloud.MockUploader
	Store     *store.InMemoryStore
	Downloads string
}

// NewTestServer creates an API server wired entirely to in-memory fakes.
// This centralizes the test server creation logic used across test files.
func NewTestServer(t *testing.T) (*api.Server, *ServerDeps) {
	t.Helper()
	deps := &ServerDeps{
		Messenger: whatsapp.NewMockClient(),
		Fetcher:   &fetch.MockFetcher{},
		Uploader:  cloud.NewMockUploader("https://cdn.example.com/video.mp4"),
		Store:     store.NewInMemoryStore(),
		Downloads: t.TempDir(),
	}
	msgService := messaging.NewCloudAPIService(deps.Messenger)
	orchestrator := delivery.NewOrchestrator(msgService, deps.Uploader)
	g := gate.New(gate.NewDedupCache(gate.DefaultDedupTTL))

	srv := api.NewServer(g, msgService, deps.Fetcher, orchestrator, deps.Store,
		api.WithVerifyToken(TestVerifyToken),
		api.WithBaseURL("https://bot.example.com"),
		api.WithDownloadsDir(deps.Downloads))
	return srv, deps
}

// SeedArtifact writes a small placeholder file into the downloads directory
// and returns it as an artifact with the given reported size.
func SeedArtifact(t *testing.T, dir, name string, sizeMB float64) models.Artifact {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("video-bytes"), 0o644); err != nil {
		t.Fatalf("failed to seed artifact: %v", err)
	}
	return models.Artifact{Path: path, SizeMB: sizeMB}
}

// TextWebhookPayload builds a minimal WhatsApp webhook payload carrying one
// inbound text message.
func TextWebhookPayload(messageID, from, body string) models.WebhookPayload {
	return models.WebhookPayload{
		Object: models.WebhookObjectType,
		Entry: []models.Entry{{
			ID: "entry-1",
			Changes: []models.Change{{
				Field: "messages",
				Value: models.ChangeValue{
					MessagingProduct: "whatsapp",
					Messages: []models.Message{{
						ID:        messageID,
						From:      from,
						Timestamp: "1700000000",
						Type:      "text",
						Text:      &models.MessageText{Body: body},
					}},
				},
			}},
		}},
	}
}

// StatusWebhookPayload builds a webhook payload carrying one delivery status
// update.
func StatusWebhookPayload(messageID, status string) models.WebhookPayload {
	return models.WebhookPayload{
		Object: models.WebhookObjectType,
		Entry: []models.Entry{{
			ID: "entry-1",
			Changes: []models.Change{{
				Field: "messages",
				Value: models.ChangeValue{
					MessagingProduct: "whatsapp",
					Statuses: []models.StatusUpdate{{
						ID:        messageID,
						Status:    status,
						Timestamp: "1700000000",
					}},
				},
			}},
		}},
	}
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// WaitFor polls cond until it returns true or the timeout elapses.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
