package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agrilink/agrilink-platform/internal/ingest"
)

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp/green", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestGreenWebhookTextMessage(t *testing.T) {
	pipeline := &stubPipeline{}
	h := NewGreenWebhookHandler(GreenWebhookConfig{Pipeline: pipeline})

	rec := postJSON(t, h.Handle, `{
		"typeWebhook": "incomingMessageReceived",
		"idMessage": "BAE5",
		"senderData": {"chatId": "919876543210@c.us"},
		"messageData": {
			"typeMessage": "textMessage",
			"textMessageData": {"textMessage": "Tomato 30 kg"}
		}
	}`)

	if rec.Code != http.StatusOK || rec.Body.String() != `{"success":true}` {
		t.Fatalf("response = %d %q", rec.Code, rec.Body.String())
	}
	env := pipeline.lastEnv
	if env.Provider != ingest.ProviderGreen || env.From != "919876543210@c.us" {
		t.Errorf("provider/from = %q / %q", env.Provider, env.From)
	}
	if env.Text != "Tomato 30 kg" || env.ProviderMessageID != "BAE5" {
		t.Errorf("text/id = %q / %q", env.Text, env.ProviderMessageID)
	}
}

func TestGreenWebhookImageWithCaption(t *testing.T) {
	pipeline := &stubPipeline{}
	h := NewGreenWebhookHandler(GreenWebhookConfig{Pipeline: pipeline})

	postJSON(t, h.Handle, `{
		"typeWebhook": "incomingMessageReceived",
		"senderData": {"chatId": "919876543210@c.us"},
		"messageData": {
			"typeMessage": "imageMessage",
			"fileMessageData": {
				"downloadUrl": "https://media.green-api.com/file.jpg",
				"caption": "Onion 50kg"
			}
		}
	}`)

	env := pipeline.lastEnv
	if !env.HasMedia || env.MediaURL != "https://media.green-api.com/file.jpg" {
		t.Errorf("media = %v %q", env.HasMedia, env.MediaURL)
	}
	if env.Text != "Onion 50kg" {
		t.Errorf("caption should become the text, got %q", env.Text)
	}
}

func TestGreenWebhookIgnoresOtherEvents(t *testing.T) {
	pipeline := &stubPipeline{}
	h := NewGreenWebhookHandler(GreenWebhookConfig{Pipeline: pipeline})

	rec := postJSON(t, h.Handle, `{"typeWebhook": "outgoingMessageStatus"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if pipeline.lastEnv.Provider != "" {
		t.Error("status events must not reach the pipeline")
	}
}

func TestGreenWebhookAcksGarbage(t *testing.T) {
	pipeline := &stubPipeline{}
	h := NewGreenWebhookHandler(GreenWebhookConfig{Pipeline: pipeline})

	rec := postJSON(t, h.Handle, `{not json`)
	if rec.Code != http.StatusOK {
		t.Fatalf("garbage must still be acked, status = %d", rec.Code)
	}
}

func TestGreenWebhookLast(t *testing.T) {
	pipeline := &stubPipeline{}
	h := NewGreenWebhookHandler(GreenWebhookConfig{Pipeline: pipeline})

	rec := httptest.NewRecorder()
	h.HandleLast(rec, httptest.NewRequest(http.MethodGet, "/webhooks/whatsapp/green/last", nil))
	if !strings.Contains(rec.Body.String(), "no notifications") {
		t.Errorf("empty state body = %q", rec.Body.String())
	}

	payload := `{"typeWebhook": "stateInstanceChanged"}`
	postJSON(t, h.Handle, payload)

	rec = httptest.NewRecorder()
	h.HandleLast(rec, httptest.NewRequest(http.MethodGet, "/webhooks/whatsapp/green/last", nil))
	if rec.Body.String() != payload {
		t.Errorf("last = %q", rec.Body.String())
	}
}
