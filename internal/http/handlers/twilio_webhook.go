package handlers

import (
	"context"
	"encoding/xml"
	"net/http"
	"time"

	"github.com/agrilink/agrilink-platform/internal/ingest"
	"github.com/agrilink/agrilink-platform/internal/media"
	"github.com/agrilink/agrilink-platform/internal/observability/metrics"
	"github.com/agrilink/agrilink-platform/pkg/logging"
)

type envelopeProcessor interface {
	Process(ctx context.Context, env ingest.Envelope) ingest.Result
}

// TwilioWebhookHandler receives Twilio WhatsApp webhooks. Twilio expects a
// TwiML document back; a non-2xx answer triggers provider retries, so the
// handler always acknowledges, even when the payload is unreadable.
type TwilioWebhookHandler struct {
	pipeline    envelopeProcessor
	logger      *logging.Logger
	metrics     *metrics.MessagingMetrics
	baseURL     string
	maxBodySize int64
}

type TwilioWebhookConfig struct {
	Pipeline envelopeProcessor
	Logger   *logging.Logger
	Metrics  *metrics.MessagingMetrics
	BaseURL  string // overrides forwarded-header detection when set
}

func NewTwilioWebhookHandler(cfg TwilioWebhookConfig) *TwilioWebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &TwilioWebhookHandler{
		pipeline:    cfg.Pipeline,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		baseURL:     cfg.BaseURL,
		maxBodySize: 1 << 20,
	}
}

type twiml struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// Handle processes one inbound message webhook.
func (h *TwilioWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := r.ParseForm(); err != nil {
		// A 4xx would make Twilio retry the same broken payload; ack it.
		h.logger.Warn("twilio webhook: unreadable form; acknowledging", "error", err)
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<Response></Response>"))
		return
	}

	env := ingest.Envelope{
		Provider:          ingest.ProviderTwilio,
		From:              r.PostForm.Get("From"),
		Text:              r.PostForm.Get("Body"),
		ProviderMessageID: r.PostForm.Get("MessageSid"),
		BaseURL:           media.BaseURL(r, h.baseURL),
	}
	if r.PostForm.Get("NumMedia") != "" && r.PostForm.Get("NumMedia") != "0" {
		env.HasMedia = true
		env.MediaURL = r.PostForm.Get("MediaUrl0")
	}

	res := h.pipeline.Process(r.Context(), env)
	h.metrics.ObserveWebhookLatency("twilio", time.Since(start).Seconds())

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	out, err := xml.Marshal(twiml{Message: res.Reply})
	if err != nil {
		h.logger.Error("twiml marshal failed", "error", err)
		w.Write([]byte("<Response></Response>"))
		return
	}
	w.Write(out)
}
