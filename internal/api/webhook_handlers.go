// Package api provides the WhatsApp webhook handlers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/wagrab/wagrab/internal/delivery"
	"github.com/wagrab/wagrab/internal/fetch"
	"github.com/wagrab/wagrab/internal/gate"
	"github.com/wagrab/wagrab/internal/models"
)

// User-facing message texts.
const (
	helpMessage = "👋 Hi! Send me a YouTube or Facebook video link and I'll fetch the video for you.\n\n" +
		"Supported links:\n" +
		"• youtube.com / youtu.be\n" +
		"• facebook.com / fb.watch"

	downloadingMessage = "📥 Downloading video... This may take a moment."

	deliveryFailedMessage = "❌ Could not deliver the video. Please try again later."
)

// webhookHandler dispatches the two halves of the webhook contract: the GET
// verification handshake and POST message delivery.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		s.verifyWebhookHandler(w, r)
	case http.MethodPost:
		s.receiveWebhookHandler(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		slog.Warn("Server.webhookHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// verifyWebhookHandler answers the platform's one-time subscription
// handshake. The challenge is echoed back as plain text on success; any
// mismatch gets a bodyless 403.
func (s *Server) verifyWebhookHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	challenge, ok := s.gate.VerifySubscription(
		q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"), s.verifyToken)
	if !ok {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(challenge)); err != nil {
		slog.Error("Server.verifyWebhookHandler: failed to write challenge", "error", err)
	}
}

// receiveWebhookHandler accepts message notifications. It always answers
// HTTP 200: a non-200 would put the platform into a redelivery loop, and a
// redelivered payload is exactly the duplicate the gate exists to stop.
func (s *Server) receiveWebhookHandler(w http.ResponseWriter, r *http.Request) {
	var payload models.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		slog.Warn("Server.receiveWebhookHandler: failed to decode payload", "error", err)
		writeJSONResponse(w, http.StatusOK, models.Error("invalid payload"))
		return
	}

	outcome := s.gate.Accept(payload)
	switch outcome.Kind {
	case gate.OutcomeProcess:
		s.handleMessage(r.Context(), outcome.Message)
		writeJSONResponse(w, http.StatusOK, models.Ok())
	case gate.OutcomeError:
		writeJSONResponse(w, http.StatusOK, models.Error(outcome.Reason))
	default:
		// Ignored and duplicate payloads are acknowledged without comment.
		writeJSONResponse(w, http.StatusOK, models.Ok())
	}
}

// handleMessage runs the full pipeline for one accepted message: classify,
// fetch, deliver, notify. It is called synchronously from the webhook handler
// and must never take the process down, so panics are contained here.
func (s *Server) handleMessage(ctx context.Context, msg *models.InboundMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Server.handleMessage: recovered from panic", "panic", rec, "message_id", msg.ID)
		}
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), handleTimeout)
	defer cancel()

	destination, err := s.msgService.ValidateAndCanonicalizeRecipient(msg.From)
	if err != nil {
		slog.Warn("Server.handleMessage: invalid sender", "error", err, "from", msg.From)
		return
	}

	s.recordInbound(msg)

	sourceURL := strings.TrimSpace(msg.Body)
	if gate.ClassifyURL(sourceURL) != gate.ClassVideoURL {
		slog.Info("Server.handleMessage: unrecognized text, sending help", "message_id", msg.ID)
		s.sendText(ctx, destination, helpMessage)
		return
	}

	s.sendText(ctx, destination, downloadingMessage)

	result, err := s.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		slog.Error("Server.handleMessage: fetch failed", "error", err, "url", sourceURL)
		s.sendText(ctx, destination, fetch.Guidance(fetch.KindOf(err)))
		return
	}

	outcome, err := s.deliverer.Deliver(ctx, destination, result.Original)
	if err != nil {
		slog.Error("Server.handleMessage: delivery precondition failed", "error", err, "message_id", msg.ID)
		s.sendText(ctx, destination, deliveryFailedMessage)
		return
	}

	s.sendText(ctx, destination, outcome.Message)
	if links := s.composeQualityLinks(result); links != "" {
		s.sendText(ctx, destination, links)
	}

	s.recordDelivery(msg, sourceURL, outcome)
}

// composeQualityLinks builds the follow-up message listing hosted download
// pages per quality. Requires a public base URL and at least one variant.
func (s *Server) composeQualityLinks(result *fetch.Result) string {
	if s.baseURL == "" || len(result.Variants) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("🎬 Other quality options:")
	for _, v := range result.Variants {
		name := filepath.Base(v.Artifact.Path)
		fmt.Fprintf(&b, "\n%s (%.1fMB): %s/downloads/%s", v.Label, v.Artifact.SizeMB, s.baseURL, url.PathEscape(name))
	}
	return b.String()
}

// sendText sends a chat notification and logs failures. Notification
// failures never abort the pipeline.
func (s *Server) sendText(ctx context.Context, to, body string) {
	if err := s.msgService.SendText(ctx, to, body); err != nil {
		slog.Error("Server.sendText: failed to send message", "error", err, "to", to)
	}
}

// recordInbound writes the inbound audit record. Store failures are logged
// and ignored; the audit trail never gates message handling.
func (s *Server) recordInbound(msg *models.InboundMessage) {
	if s.st == nil {
		return
	}
	err := s.st.AddInbound(models.InboundRecord{
		MessageID:  msg.ID,
		Sender:     msg.From,
		ReceivedAt: msg.ReceivedAt,
	})
	if err != nil {
		slog.Warn("Server.recordInbound: audit write failed", "error", err, "message_id", msg.ID)
	}
}

// recordDelivery writes the delivery audit record.
func (s *Server) recordDelivery(msg *models.InboundMessage, sourceURL string, outcome models.DeliveryOutcome) {
	if s.st == nil {
		return
	}
	err := s.st.AddDelivery(models.DeliveryRecord{
		MessageID:   msg.ID,
		Destination: outcome.Destination,
		SourceURL:   sourceURL,
		SizeMB:      outcome.SizeMB,
		Pushed:      outcome.Pushed,
		Uploaded:    outcome.Uploaded,
		HostedURL:   outcome.HostedURL,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		slog.Warn("Server.recordDelivery: audit write failed", "error", err, "message_id", msg.ID)
	}
}

// Compile-time check that the orchestrator satisfies the Deliverer seam.
var _ Deliverer = (*delivery.Orchestrator)(nil)
