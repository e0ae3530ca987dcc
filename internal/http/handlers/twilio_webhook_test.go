package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/agrilink/agrilink-platform/internal/ingest"
)

type stubPipeline struct {
	lastEnv ingest.Envelope
	result  ingest.Result
}

func (s *stubPipeline) Process(_ context.Context, env ingest.Envelope) ingest.Result {
	s.lastEnv = env
	return s.result
}

func postForm(t *testing.T, h http.HandlerFunc, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp/twilio", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Host = "agrilink.example.com"
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestTwilioWebhookBuildsEnvelope(t *testing.T) {
	pipeline := &stubPipeline{}
	h := NewTwilioWebhookHandler(TwilioWebhookConfig{Pipeline: pipeline})

	form := url.Values{}
	form.Set("From", "whatsapp:+919876543210")
	form.Set("Body", "Tomato 30 kg")
	form.Set("MessageSid", "SM123")
	form.Set("NumMedia", "1")
	form.Set("MediaUrl0", "https://api.twilio.com/Media/MM1")

	rec := postForm(t, h.Handle, form)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	env := pipeline.lastEnv
	if env.Provider != ingest.ProviderTwilio {
		t.Errorf("provider = %q", env.Provider)
	}
	if env.From != "whatsapp:+919876543210" || env.Text != "Tomato 30 kg" {
		t.Errorf("from/text = %q / %q", env.From, env.Text)
	}
	if !env.HasMedia || env.MediaURL != "https://api.twilio.com/Media/MM1" {
		t.Errorf("media = %v %q", env.HasMedia, env.MediaURL)
	}
	if env.ProviderMessageID != "SM123" {
		t.Errorf("message id = %q", env.ProviderMessageID)
	}
	if env.BaseURL != "http://agrilink.example.com" {
		t.Errorf("base url = %q", env.BaseURL)
	}
}

func TestTwilioWebhookEmbedsReplyInTwiml(t *testing.T) {
	pipeline := &stubPipeline{result: ingest.Result{Reply: "Please send: Product Quantity"}}
	h := NewTwilioWebhookHandler(TwilioWebhookConfig{Pipeline: pipeline})

	form := url.Values{}
	form.Set("From", "whatsapp:+919876543210")
	form.Set("Body", "gibberish")

	rec := postForm(t, h.Handle, form)
	if got := rec.Header().Get("Content-Type"); got != "text/xml" {
		t.Errorf("content type = %q", got)
	}
	if !strings.Contains(rec.Body.String(), "<Message>Please send: Product Quantity</Message>") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestTwilioWebhookAcksUnreadableBody(t *testing.T) {
	pipeline := &stubPipeline{}
	h := NewTwilioWebhookHandler(TwilioWebhookConfig{Pipeline: pipeline})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp/twilio", strings.NewReader("%zz=broken"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	// A 4xx here would make Twilio retry the same broken payload.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<Response") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if pipeline.lastEnv.Provider != "" {
		t.Error("pipeline must not run on an unreadable body")
	}
}

func TestTwilioWebhookEmptyReplyIsEmptyTwiml(t *testing.T) {
	pipeline := &stubPipeline{result: ingest.Result{Listed: true}}
	h := NewTwilioWebhookHandler(TwilioWebhookConfig{Pipeline: pipeline})

	form := url.Values{}
	form.Set("From", "whatsapp:+919876543210")
	form.Set("Body", "Tomato 30 kg")
	form.Set("NumMedia", "0")

	rec := postForm(t, h.Handle, form)
	body := rec.Body.String()
	if strings.Contains(body, "<Message>") {
		t.Errorf("no reply expected in %q", body)
	}
	if !strings.Contains(body, "<Response") {
		t.Errorf("body = %q", body)
	}
	if pipeline.lastEnv.HasMedia {
		t.Error("NumMedia=0 must not flag media")
	}
}
