package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(
		WithToken("test-token"),
		WithPhoneNumberID("12345"),
		WithBaseURL(srv.URL),
	)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client, srv
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv("WHATSAPP_TOKEN", "")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error when token and phone number ID are missing")
	}
	if _, err := NewClient(WithToken("tok")); err == nil {
		t.Error("expected error when phone number ID is missing")
	}
}

func TestSendTextPostsMessagePayload(t *testing.T) {
	var got map[string]interface{}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/12345/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.Write([]byte(`{"messages":[{"id":"wamid.out"}]}`))
	}))

	if err := client.SendText(context.Background(), "15551230000", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["to"] != "15551230000" || got["type"] != "text" {
		t.Errorf("unexpected payload: %v", got)
	}
	text, _ := got["text"].(map[string]interface{})
	if text["body"] != "hello" {
		t.Errorf("unexpected text body: %v", text)
	}
}

func TestSendTextValidatesInput(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for invalid input")
	}))
	if err := client.SendText(context.Background(), "", "hi"); err == nil {
		t.Error("expected error for empty recipient")
	}
	if err := client.SendText(context.Background(), "1555", ""); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestSendVideoUploadsThenSends(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(videoPath, []byte("fake video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	var uploads, sends int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/12345/media":
			atomic.AddInt32(&uploads, 1)
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("failed to parse multipart form: %v", err)
			}
			if got := r.FormValue("messaging_product"); got != "whatsapp" {
				t.Errorf("missing messaging_product field, got %q", got)
			}
			w.Write([]byte(`{"id":"media-123"}`))
		case "/12345/messages":
			atomic.AddInt32(&sends, 1)
			var body map[string]interface{}
			json.NewDecoder(r.Body).Decode(&body)
			video, _ := body["video"].(map[string]interface{})
			if video["id"] != "media-123" {
				t.Errorf("video send did not reference uploaded media: %v", body)
			}
			w.Write([]byte(`{"messages":[{"id":"wamid.out"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	if err := client.SendVideo(context.Background(), "15551230000", videoPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uploads != 1 || sends != 1 {
		t.Errorf("expected 1 upload and 1 send, got %d/%d", uploads, sends)
	}
}

func TestAuthErrorNotRetried(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad token"}}`))
	}))

	err := client.SendText(context.Background(), "15551230000", "hello")
	if err == nil {
		t.Fatal("expected error on 401")
	}
	if calls != 1 {
		t.Errorf("401 must not be retried, got %d attempts", calls)
	}
}

func TestUploadMediaMissingFile(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for missing file")
	}))
	if _, err := client.UploadMedia(context.Background(), "/nonexistent/clip.mp4"); err == nil {
		t.Error("expected error for missing file")
	}
}
