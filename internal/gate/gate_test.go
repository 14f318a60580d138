package gate

import (
	"testing"
	"time"

	"github.com/wagrab/wagrab/internal/models"
)

func messagePayload(id, from, body string) models.WebhookPayload {
	return models.WebhookPayload{
		Object: models.WebhookObjectType,
		Entry: []models.Entry{{
			Changes: []models.Change{{
				Value: models.ChangeValue{
					Messages: []models.Message{{
						ID:   id,
						From: from,
						Type: "text",
						Text: &models.MessageText{Body: body},
					}},
				},
			}},
		}},
	}
}

func statusPayload() models.WebhookPayload {
	return models.WebhookPayload{
		Object: models.WebhookObjectType,
		Entry: []models.Entry{{
			Changes: []models.Change{{
				Value: models.ChangeValue{
					Statuses: []models.StatusUpdate{{ID: "wamid.s1", Status: "delivered"}},
				},
			}},
		}},
	}
}

func newTestGate() *Gate {
	return New(NewDedupCache(60 * time.Second))
}

func TestVerifySubscription(t *testing.T) {
	g := newTestGate()

	challenge, ok := g.VerifySubscription("subscribe", "secret", "12345", "secret")
	if !ok || challenge != "12345" {
		t.Errorf("expected challenge echoed verbatim, got %q ok=%v", challenge, ok)
	}

	if _, ok := g.VerifySubscription("subscribe", "wrong", "12345", "secret"); ok {
		t.Error("wrong token must be rejected")
	}
	if _, ok := g.VerifySubscription("unsubscribe", "secret", "12345", "secret"); ok {
		t.Error("non-subscribe mode must be rejected")
	}
}

func TestAcceptUnrecognizedObject(t *testing.T) {
	g := newTestGate()
	out := g.Accept(models.WebhookPayload{Object: "page"})
	if out.Kind != OutcomeIgnored {
		t.Errorf("expected ignored outcome for foreign object type, got %s", out.Kind)
	}
}

func TestAcceptStatusUpdateIgnored(t *testing.T) {
	g := newTestGate()
	out := g.Accept(statusPayload())
	if out.Kind != OutcomeIgnored {
		t.Errorf("expected status update ignored, got %s", out.Kind)
	}
	if out.Message != nil {
		t.Error("status update must not produce an inbound message")
	}
}

func TestAcceptProcessesNewMessage(t *testing.T) {
	g := newTestGate()
	out := g.Accept(messagePayload("wamid.1", "15551230000", "https://youtu.be/abc"))
	if out.Kind != OutcomeProcess {
		t.Fatalf("expected process outcome, got %s (%s)", out.Kind, out.Reason)
	}
	if out.Message == nil || out.Message.ID != "wamid.1" || out.Message.Body != "https://youtu.be/abc" {
		t.Errorf("inbound message not extracted correctly: %+v", out.Message)
	}
	if out.Message.ReceivedAt.IsZero() {
		t.Error("inbound message should carry a received-at timestamp")
	}
}

func TestAcceptDuplicateWithinTTL(t *testing.T) {
	clk := newFakeClock()
	g := New(NewDedupCache(60*time.Second, WithClock(clk.Now)))

	first := g.Accept(messagePayload("wamid.123", "15551230000", "hello"))
	if first.Kind == OutcomeDuplicate {
		t.Fatal("first delivery must not be a duplicate")
	}

	clk.Advance(5 * time.Second)
	second := g.Accept(messagePayload("wamid.123", "15551230000", "hello"))
	if second.Kind != OutcomeDuplicate {
		t.Errorf("expected duplicate outcome 5s after first delivery, got %s", second.Kind)
	}
}

func TestAcceptDuplicateAfterTTLReprocessed(t *testing.T) {
	clk := newFakeClock()
	g := New(NewDedupCache(60*time.Second, WithClock(clk.Now)))

	g.Accept(messagePayload("wamid.123", "15551230000", "https://youtu.be/abc"))
	clk.Advance(61 * time.Second)
	out := g.Accept(messagePayload("wamid.123", "15551230000", "https://youtu.be/abc"))
	if out.Kind != OutcomeProcess {
		t.Errorf("expected reprocessing after TTL expiry, got %s", out.Kind)
	}
}

func TestAcceptNonTextMessageIgnored(t *testing.T) {
	g := newTestGate()
	payload := models.WebhookPayload{
		Object: models.WebhookObjectType,
		Entry: []models.Entry{{
			Changes: []models.Change{{
				Value: models.ChangeValue{
					Messages: []models.Message{{ID: "wamid.img", From: "1555", Type: "image"}},
				},
			}},
		}},
	}
	if out := g.Accept(payload); out.Kind != OutcomeIgnored {
		t.Errorf("expected non-text message ignored, got %s", out.Kind)
	}
}

func TestAcceptMalformedPayloadIsErrorNotPanic(t *testing.T) {
	g := newTestGate()
	out := g.Accept(models.WebhookPayload{Object: models.WebhookObjectType})
	if out.Kind != OutcomeError {
		t.Errorf("expected error outcome for payload without entries, got %s", out.Kind)
	}
	if out.Reason == "" {
		t.Error("error outcome should carry the extraction failure text")
	}
}

func TestAcceptMessageWithoutIDSkipsDedup(t *testing.T) {
	g := newTestGate()
	p := messagePayload("", "1555", "hi")
	if out := g.Accept(p); out.Kind != OutcomeProcess {
		t.Fatalf("message without id should still process, got %s", out.Kind)
	}
	// And again: no identifier means nothing to dedup on.
	if out := g.Accept(p); out.Kind != OutcomeProcess {
		t.Errorf("repeat without id should process again, got %s", out.Kind)
	}
}

func TestClassifyURL(t *testing.T) {
	cases := []struct {
		text string
		want Classification
	}{
		{"https://youtu.be/abc", ClassVideoURL},
		{"https://www.youtube.com/watch?v=abc", ClassVideoURL},
		{"https://youtube.com/watch?v=abc", ClassVideoURL},
		{"https://www.facebook.com/watch/?v=123", ClassVideoURL},
		{"https://facebook.com/video/123", ClassVideoURL},
		{"https://fb.watch/abc123", ClassVideoURL},
		{"https://www.facebook.com/share/v/abc/", ClassVideoURL},
		{"  https://youtu.be/abc  ", ClassVideoURL},
		{"HTTPS://YOUTU.BE/abc", ClassVideoURL},
		{"http://youtube.com.evil.com/x", ClassUnrecognized},
		{"https://youtube.com.evil.com/x", ClassUnrecognized},
		{"http://youtu.be/abc", ClassUnrecognized}, // plain http is not allow-listed
		{"https://vimeo.com/123", ClassUnrecognized},
		{"hello there", ClassUnrecognized},
		{"check http out", ClassUnrecognized},
		{"", ClassUnrecognized},
	}
	for _, tc := range cases {
		if got := ClassifyURL(tc.text); got != tc.want {
			t.Errorf("ClassifyURL(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}
