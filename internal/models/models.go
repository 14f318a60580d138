// Package models defines the core data types shared across wagrab components.
//
// It includes the inbound webhook payload shapes, the fetched artifact and
// delivery outcome types, and standard API response helpers.
package models

import (
	"time"
)

// WebhookObjectType is the top-level type discriminator the WhatsApp Business
// platform sets on every webhook payload it delivers.
const WebhookObjectType = "whatsapp_business_account"

// WebhookPayload is the envelope of a WhatsApp Business webhook notification.
// The platform delivers unrelated event types over the same channel, so every
// field below the discriminator is optional.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is a single account-level entry in a webhook payload.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change wraps one change notification inside an entry.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue carries either new inbound messages or delivery status updates.
// The two never arrive in the same change.
type ChangeValue struct {
	MessagingProduct string          `json:"messaging_product"`
	Messages         []Message       `json:"messages,omitempty"`
	Statuses         []StatusUpdate  `json:"statuses,omitempty"`
	Contacts         []Contact       `json:"contacts,omitempty"`
	Metadata         *ChangeMetadata `json:"metadata,omitempty"`
}

// ChangeMetadata identifies the business phone number the change belongs to.
type ChangeMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact is the sender profile attached to inbound messages.
type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Message is a single inbound message as delivered by the platform.
type Message struct {
	ID        string       `json:"id"`
	From      string       `json:"from"`
	Timestamp string       `json:"timestamp"`
	Type      string       `json:"type"`
	Text      *MessageText `json:"text,omitempty"`
}

// MessageText holds the body of a text message.
type MessageText struct {
	Body string `json:"body"`
}

// StatusUpdate is a delivery status notification (sent/delivered/read) for a
// previously sent message. Status updates are acknowledged but not processed.
type StatusUpdate struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
	Timestamp   string `json:"timestamp"`
}

// InboundMessage is the normalized form of an accepted webhook message.
// Immutable once constructed by the gate.
type InboundMessage struct {
	ID         string
	From       string
	Body       string
	ReceivedAt time.Time
}

// Artifact describes a fetched video on local storage.
type Artifact struct {
	Path   string  `json:"path"`
	SizeMB float64 `json:"size_mb"`
}

// Exists reports whether the artifact has a usable local path.
func (a Artifact) Exists() bool {
	return a.Path != ""
}

// DeliveryOutcome records how a fetched artifact reached (or failed to reach)
// its destination within a single request. Constructed and consumed by the
// delivery orchestrator; persisted only as an audit record.
type DeliveryOutcome struct {
	Destination string  `json:"destination"`
	SizeMB      float64 `json:"size_mb"`
	Pushed      bool    `json:"pushed"`
	Uploaded    bool    `json:"uploaded"`
	HostedURL   string  `json:"hosted_url,omitempty"`
	Oversized   bool    `json:"oversized"`
	Message     string  `json:"message"`
}

// DeliveryRecord is the persisted audit form of a DeliveryOutcome.
type DeliveryRecord struct {
	MessageID   string    `json:"message_id"`
	Destination string    `json:"destination"`
	SourceURL   string    `json:"source_url"`
	SizeMB      float64   `json:"size_mb"`
	Pushed      bool      `json:"pushed"`
	Uploaded    bool      `json:"uploaded"`
	HostedURL   string    `json:"hosted_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// InboundRecord is the persisted audit form of an accepted inbound message.
// It is written after the dedup decision and never consulted for it.
type InboundRecord struct {
	MessageID  string    `json:"message_id"`
	Sender     string    `json:"sender"`
	ReceivedAt time.Time `json:"received_at"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates a request was acknowledged successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates a request failed with an internal error.
	APIStatusError APIStatus = "error"
)

// APIResponse is the standard JSON body returned by wagrab endpoints. The
// webhook endpoint always pairs it with HTTP 200 so the platform never
// retries on internal failures.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Ok returns a successful acknowledgement.
func Ok() APIResponse {
	return APIResponse{Status: string(APIStatusOK)}
}

// OkWithMessage returns a successful acknowledgement carrying extra info.
func OkWithMessage(message string) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message}
}

// Error returns an error acknowledgement with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
