// Package delivery implements the multi-destination delivery orchestrator.
//
// Given a fetched video artifact and a chat destination it decides between
// direct inline delivery, hosted-link delivery, or both, tolerates partial
// failure in either path, and composes the user-facing notification text.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/wagrab/wagrab/internal/cloud"
	"github.com/wagrab/wagrab/internal/models"
)

// DirectPushLimitMB is the size ceiling for inline chat delivery. It matches
// the messaging platform's own media limit; larger files are rejected by the
// platform, so the orchestrator does not attempt them.
const DirectPushLimitMB = 16.0

// Pusher delivers media inline to a chat destination.
type Pusher interface {
	SendVideo(ctx context.Context, to string, localPath string) error
}

// pushResult is the explicit outcome of a direct-push attempt.
type pushResult struct {
	err error
}

// uploadResult is the explicit outcome of a hosted-upload attempt.
type uploadResult struct {
	url string
	err error
}

// Orchestrator coordinates the two delivery paths for a fetched artifact.
type Orchestrator struct {
	pusher   Pusher
	uploader cloud.Uploader
}

// NewOrchestrator creates an Orchestrator with the given collaborators.
func NewOrchestrator(pusher Pusher, uploader cloud.Uploader) *Orchestrator {
	return &Orchestrator{pusher: pusher, uploader: uploader}
}

// Deliver executes the delivery decision policy for one artifact:
//
//   - below DirectPushLimitMB, both the direct push and the hosted upload are
//     started together and both are awaited before the final message is
//     composed, so the slower path never serializes behind the faster one;
//   - at or above the limit, the direct push is skipped entirely and the
//     local file is removed after the upload attempt succeeds or fails.
//
// Collaborator failures are captured in the outcome, never propagated. An
// error return means a violated precondition, not a failed delivery.
func (o *Orchestrator) Deliver(ctx context.Context, destination string, artifact models.Artifact) (models.DeliveryOutcome, error) {
	if !artifact.Exists() {
		return models.DeliveryOutcome{}, fmt.Errorf("artifact has no local path")
	}
	if artifact.SizeMB < 0 {
		return models.DeliveryOutcome{}, fmt.Errorf("artifact size is negative: %f", artifact.SizeMB)
	}
	if _, err := os.Stat(artifact.Path); err != nil {
		return models.DeliveryOutcome{}, fmt.Errorf("artifact file missing: %w", err)
	}

	outcome := models.DeliveryOutcome{
		Destination: destination,
		SizeMB:      artifact.SizeMB,
	}

	if artifact.SizeMB < DirectPushLimitMB {
		o.deliverBothPaths(ctx, destination, artifact, &outcome)
	} else {
		outcome.Oversized = true
		o.deliverHostedOnly(ctx, destination, artifact, &outcome)
	}

	outcome.Message = ComposeMessage(outcome)
	slog.Info("Orchestrator.Deliver: delivery complete",
		"destination", destination,
		"size_mb", artifact.SizeMB,
		"pushed", outcome.Pushed,
		"uploaded", outcome.Uploaded,
		"oversized", outcome.Oversized)
	return outcome, nil
}

// deliverBothPaths runs the direct push and the hosted upload concurrently.
// Both goroutines are launched before either result is read: sequencing them
// would double the user-perceived latency.
func (o *Orchestrator) deliverBothPaths(ctx context.Context, destination string, artifact models.Artifact, outcome *models.DeliveryOutcome) {
	pushCh := make(chan pushResult, 1)
	uploadCh := make(chan uploadResult, 1)

	go func() {
		pushCh <- pushResult{err: o.pusher.SendVideo(ctx, destination, artifact.Path)}
	}()
	go func() {
		url, err := o.uploader.Upload(ctx, artifact.Path)
		uploadCh <- uploadResult{url: url, err: err}
	}()

	push := <-pushCh
	upload := <-uploadCh

	if push.err != nil {
		slog.Error("Orchestrator.deliverBothPaths: direct push failed",
			"error", push.err, "destination", destination, "size_mb", artifact.SizeMB)
	} else {
		outcome.Pushed = true
	}
	if upload.err != nil {
		// A missing hosted link is an omission in the reply, not a user-facing
		// error, as long as the direct push landed.
		slog.Error("Orchestrator.deliverBothPaths: hosted upload failed",
			"error", upload.err, "destination", destination, "size_mb", artifact.SizeMB)
	} else {
		outcome.Uploaded = true
		outcome.HostedURL = upload.url
	}
}

// deliverHostedOnly uploads the artifact and then removes the local file
// unconditionally. Oversized files are the one case where local cleanup is
// immediate rather than left to the periodic retention sweep.
func (o *Orchestrator) deliverHostedOnly(ctx context.Context, destination string, artifact models.Artifact, outcome *models.DeliveryOutcome) {
	url, err := o.uploader.Upload(ctx, artifact.Path)
	if err != nil {
		slog.Error("Orchestrator.deliverHostedOnly: hosted upload failed",
			"error", err, "destination", destination, "size_mb", artifact.SizeMB)
	} else {
		outcome.Uploaded = true
		outcome.HostedURL = url
	}

	if rmErr := os.Remove(artifact.Path); rmErr != nil {
		slog.Warn("Orchestrator.deliverHostedOnly: failed to remove local artifact",
			"error", rmErr, "path", artifact.Path)
	} else {
		slog.Debug("Orchestrator.deliverHostedOnly: local artifact removed", "path", artifact.Path)
	}
}

// ComposeMessage maps a delivery outcome to the final user-facing text. Pure
// function: no network or storage side effects.
func ComposeMessage(o models.DeliveryOutcome) string {
	if o.Oversized {
		if o.Uploaded {
			return fmt.Sprintf("📥 The video is too large to send in chat (%.1fMB). Download it here:\n\n%s", o.SizeMB, o.HostedURL)
		}
		return fmt.Sprintf("❌ The video is too large to send in chat (%.1fMB) and the upload failed. Please try again later.", o.SizeMB)
	}

	switch {
	case o.Pushed && o.Uploaded:
		return fmt.Sprintf("🎥 Here's your video!\n\n📥 You can also download it here:\n\n%s", o.HostedURL)
	case o.Pushed:
		return "🎥 Here's your video!"
	case o.Uploaded:
		return fmt.Sprintf("⚠️ Couldn't send the video directly (%.1fMB). Download it here:\n\n%s", o.SizeMB, o.HostedURL)
	default:
		return "❌ Could not deliver the video. Please try again later."
	}
}
