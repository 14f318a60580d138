package gate

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/wagrab/wagrab/internal/models"
)

// SubscribeMode is the hub.mode value the platform sends during the one-time
// webhook verification handshake.
const SubscribeMode = "subscribe"

// OutcomeKind classifies the gate's decision for an inbound webhook payload.
type OutcomeKind string

const (
	// OutcomeIgnored means the payload is not a new message (unrecognized
	// shape, status update, or non-text message) and needs no further action.
	OutcomeIgnored OutcomeKind = "ignored"
	// OutcomeDuplicate means the message was already processed within the
	// dedup TTL.
	OutcomeDuplicate OutcomeKind = "duplicate"
	// OutcomeProcess means the payload carries a new message to handle.
	OutcomeProcess OutcomeKind = "process"
	// OutcomeError means field extraction failed. The webhook endpoint still
	// acknowledges the platform with HTTP 200.
	OutcomeError OutcomeKind = "error"
)

// Outcome is the gate's decision for one webhook delivery.
type Outcome struct {
	Kind    OutcomeKind
	Reason  string
	Message *models.InboundMessage
}

// Gate guards the webhook entry point. It is safe for concurrent use.
type Gate struct {
	cache *DedupCache
	now   func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithGateClock overrides the gate's time source for received-at stamps.
func WithGateClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// New creates a Gate with the given dedup cache.
func New(cache *DedupCache, opts ...Option) *Gate {
	g := &Gate{cache: cache, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// VerifySubscription handles the webhook verification handshake. It returns
// the challenge to echo back and true when the mode is "subscribe" and the
// token matches; otherwise it returns false and the caller responds 403 with
// no body. This is a one-time handshake, not a general auth mechanism.
func (g *Gate) VerifySubscription(mode, token, challenge, expectedToken string) (string, bool) {
	if mode == SubscribeMode && token == expectedToken {
		slog.Info("Gate.VerifySubscription: webhook verified")
		return challenge, true
	}
	slog.Warn("Gate.VerifySubscription: verification rejected", "mode", mode, "token_match", token == expectedToken)
	return "", false
}

// Accept decides whether a webhook payload carries a new message to process.
// It never returns an error to the caller: extraction failures surface as an
// OutcomeError so the endpoint can still acknowledge the platform and avoid
// its retry storm.
func (g *Gate) Accept(payload models.WebhookPayload) Outcome {
	if payload.Object != models.WebhookObjectType {
		slog.Debug("Gate.Accept: unrecognized payload object, ignoring", "object", payload.Object)
		return Outcome{Kind: OutcomeIgnored, Reason: "unrecognized payload type"}
	}

	value, err := firstChangeValue(payload)
	if err != nil {
		slog.Warn("Gate.Accept: payload extraction failed", "error", err)
		return Outcome{Kind: OutcomeError, Reason: err.Error()}
	}

	// Status updates share the channel with new messages but are never
	// processed further.
	if len(value.Statuses) > 0 {
		slog.Debug("Gate.Accept: status update received, ignoring", "count", len(value.Statuses))
		return Outcome{Kind: OutcomeIgnored, Reason: "status update"}
	}

	if len(value.Messages) == 0 {
		slog.Debug("Gate.Accept: change carries no messages, ignoring")
		return Outcome{Kind: OutcomeIgnored, Reason: "no messages in payload"}
	}

	// Only the first message is considered: the platform batches at most one
	// relevant item per call in practice.
	msg := value.Messages[0]

	if msg.ID != "" && !g.cache.Remember(msg.ID) {
		slog.Info("Gate.Accept: duplicate message suppressed", "message_id", msg.ID)
		return Outcome{Kind: OutcomeDuplicate, Reason: "duplicate message"}
	}

	if msg.Type != "text" || msg.Text == nil {
		slog.Debug("Gate.Accept: non-text message, ignoring", "message_id", msg.ID, "type", msg.Type)
		return Outcome{Kind: OutcomeIgnored, Reason: "non-text message"}
	}

	inbound := &models.InboundMessage{
		ID:         msg.ID,
		From:       msg.From,
		Body:       msg.Text.Body,
		ReceivedAt: g.now(),
	}
	slog.Info("Gate.Accept: message accepted for processing", "message_id", inbound.ID, "from", inbound.From)
	return Outcome{Kind: OutcomeProcess, Message: inbound}
}

// firstChangeValue extracts the value of the first change of the first entry.
func firstChangeValue(payload models.WebhookPayload) (models.ChangeValue, error) {
	if len(payload.Entry) == 0 {
		return models.ChangeValue{}, fmt.Errorf("payload has no entries")
	}
	entry := payload.Entry[0]
	if len(entry.Changes) == 0 {
		return models.ChangeValue{}, fmt.Errorf("entry %s has no changes", entry.ID)
	}
	return entry.Changes[0].Value, nil
}
