package testutil

import (
	"net/http/httptest"
	"testing"
)

func TestTextWebhookPayloadShape(t *testing.T) {
	p := TextWebhookPayload("wamid.1", "15551234567", "hello")
	if p.Object != "whatsapp_business_account" {
		t.Errorf("unexpected object: %q", p.Object)
	}
	msgs := p.Entry[0].Changes[0].Value.Messages
	if len(msgs) != 1 || msgs[0].Text == nil || msgs[0].Text.Body != "hello" {
		t.Errorf("unexpected messages: %+v", msgs)
	}
}

func TestStatusWebhookPayloadShape(t *testing.T) {
	p := StatusWebhookPayload("wamid.1", "delivered")
	value := p.Entry[0].Changes[0].Value
	if len(value.Messages) != 0 || len(value.Statuses) != 1 {
		t.Errorf("unexpected change value: %+v", value)
	}
}

func TestNewTestServerWiresHandler(t *testing.T) {
	srv, deps := NewTestServer(t)
	if srv == nil || deps.Messenger == nil || deps.Store == nil {
		t.Fatal("expected fully wired test server")
	}

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("liveness request failed: %v", err)
	}
	defer resp.Body.Close()
	AssertHTTPStatus(t, 200, resp.StatusCode, "liveness")
}
