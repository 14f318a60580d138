package delivery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wagrab/wagrab/internal/models"
)

// fakePusher is a controllable direct-push collaborator.
type fakePusher struct {
	mu      sync.Mutex
	err     error
	calls   int
	onStart func() error
}

func (f *fakePusher) SendVideo(ctx context.Context, to string, localPath string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.onStart != nil {
		if err := f.onStart(); err != nil {
			return err
		}
	}
	return f.err
}

func (f *fakePusher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeUploader is a controllable hosted-upload collaborator.
type fakeUploader struct {
	mu      sync.Mutex
	url     string
	err     error
	calls   int
	onStart func() error
}

func (f *fakeUploader) Upload(ctx context.Context, localPath string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.onStart != nil {
		if err := f.onStart(); err != nil {
			return "", err
		}
	}
	return f.url, f.err
}

func (f *fakeUploader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func tempArtifact(t *testing.T, sizeMB float64) models.Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return models.Artifact{Path: path, SizeMB: sizeMB}
}

func TestDeliverSmallBothPathsSucceed(t *testing.T) {
	pusher := &fakePusher{}
	uploader := &fakeUploader{url: "https://cdn.example.com/v/abc.mp4"}
	orch := NewOrchestrator(pusher, uploader)

	out, err := orch.Deliver(context.Background(), "15551230000", tempArtifact(t, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Pushed || !out.Uploaded {
		t.Errorf("expected both paths to succeed: %+v", out)
	}
	if !strings.Contains(out.Message, "Here's your video") || !strings.Contains(out.Message, uploader.url) {
		t.Errorf("message should confirm direct delivery and include the hosted link: %q", out.Message)
	}
}

func TestDeliverSmallPathsStartConcurrently(t *testing.T) {
	// Each collaborator signals its own start and then waits for the other's.
	// If the orchestrator sequenced the calls, one side would time out.
	pushStarted := make(chan struct{})
	uploadStarted := make(chan struct{})
	awaitOther := func(other chan struct{}) error {
		select {
		case <-other:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("other path never started")
		}
	}

	pusher := &fakePusher{onStart: func() error {
		close(pushStarted)
		return awaitOther(uploadStarted)
	}}
	uploader := &fakeUploader{url: "https://cdn.example.com/v/abc.mp4", onStart: func() error {
		close(uploadStarted)
		return awaitOther(pushStarted)
	}}
	orch := NewOrchestrator(pusher, uploader)

	out, err := orch.Deliver(context.Background(), "15551230000", tempArtifact(t, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Pushed || !out.Uploaded {
		t.Fatalf("both paths should succeed when started concurrently: %+v", out)
	}
}

func TestDeliverSmallPushOKUploadFails(t *testing.T) {
	pusher := &fakePusher{}
	uploader := &fakeUploader{err: errors.New("cloud down")}
	orch := NewOrchestrator(pusher, uploader)

	out, err := orch.Deliver(context.Background(), "15551230000", tempArtifact(t, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Pushed || out.Uploaded {
		t.Errorf("expected push success and upload failure: %+v", out)
	}
	if strings.Contains(out.Message, "http") {
		t.Errorf("message must omit the hosted link when upload fails: %q", out.Message)
	}
	if !strings.Contains(out.Message, "Here's your video") {
		t.Errorf("message should still confirm direct delivery: %q", out.Message)
	}
}

func TestDeliverSmallPushFailsUploadOK(t *testing.T) {
	pusher := &fakePusher{err: errors.New("media rejected")}
	uploader := &fakeUploader{url: "https://cdn.example.com/v/abc.mp4"}
	orch := NewOrchestrator(pusher, uploader)

	out, err := orch.Deliver(context.Background(), "15551230000", tempArtifact(t, 12.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Pushed || !out.Uploaded {
		t.Errorf("expected push failure and upload success: %+v", out)
	}
	if !strings.Contains(out.Message, "12.5MB") {
		t.Errorf("fallback message should mention the size for context: %q", out.Message)
	}
	if !strings.Contains(out.Message, uploader.url) {
		t.Errorf("fallback message should carry the hosted link: %q", out.Message)
	}
}

func TestDeliverSmallBothFail(t *testing.T) {
	pusher := &fakePusher{err: errors.New("push down")}
	uploader := &fakeUploader{err: errors.New("cloud down")}
	orch := NewOrchestrator(pusher, uploader)

	out, err := orch.Deliver(context.Background(), "15551230000", tempArtifact(t, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Pushed || out.Uploaded {
		t.Errorf("expected total failure: %+v", out)
	}
	if !strings.Contains(out.Message, "Could not deliver") {
		t.Errorf("message should report total failure: %q", out.Message)
	}
}

func TestDeliverOversizedSkipsPushAndRemovesFile(t *testing.T) {
	pusher := &fakePusher{}
	uploader := &fakeUploader{url: "https://cdn.example.com/v/big.mp4"}
	orch := NewOrchestrator(pusher, uploader)
	artifact := tempArtifact(t, 20)

	out, err := orch.Deliver(context.Background(), "15551230000", artifact)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pusher.callCount() != 0 {
		t.Error("direct push must never be attempted for oversized artifacts")
	}
	if !out.Oversized || !out.Uploaded {
		t.Errorf("expected hosted-only success: %+v", out)
	}
	if _, statErr := os.Stat(artifact.Path); !os.IsNotExist(statErr) {
		t.Error("local artifact should be removed after the upload attempt")
	}
	if !strings.Contains(out.Message, uploader.url) {
		t.Errorf("message should carry the hosted link: %q", out.Message)
	}
}

func TestDeliverOversizedRemovesFileEvenWhenUploadFails(t *testing.T) {
	pusher := &fakePusher{}
	uploader := &fakeUploader{err: errors.New("cloud down")}
	orch := NewOrchestrator(pusher, uploader)
	artifact := tempArtifact(t, 16) // exactly at the limit counts as oversized

	out, err := orch.Deliver(context.Background(), "15551230000", artifact)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pusher.callCount() != 0 {
		t.Error("direct push must never be attempted at the limit")
	}
	if out.Uploaded {
		t.Errorf("upload should have failed: %+v", out)
	}
	if _, statErr := os.Stat(artifact.Path); !os.IsNotExist(statErr) {
		t.Error("local artifact should be removed regardless of upload outcome")
	}
	if !strings.Contains(out.Message, "upload failed") {
		t.Errorf("message should report the upload failure: %q", out.Message)
	}
}

func TestDeliverPreconditions(t *testing.T) {
	orch := NewOrchestrator(&fakePusher{}, &fakeUploader{})

	if _, err := orch.Deliver(context.Background(), "1555", models.Artifact{}); err == nil {
		t.Error("expected error for artifact without a path")
	}
	if _, err := orch.Deliver(context.Background(), "1555", models.Artifact{Path: "/nonexistent/clip.mp4", SizeMB: 1}); err == nil {
		t.Error("expected error for missing artifact file")
	}
	art := tempArtifact(t, 1)
	art.SizeMB = -1
	if _, err := orch.Deliver(context.Background(), "1555", art); err == nil {
		t.Error("expected error for negative size")
	}
}

func TestComposeMessageIsDeterministic(t *testing.T) {
	o := models.DeliveryOutcome{SizeMB: 10, Pushed: true, Uploaded: true, HostedURL: "https://cdn.example.com/x"}
	if ComposeMessage(o) != ComposeMessage(o) {
		t.Error("ComposeMessage must be pure")
	}
}
