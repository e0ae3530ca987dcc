package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/agrilink/agrilink-platform/internal/ingest"
	"github.com/agrilink/agrilink-platform/internal/media"
	"github.com/agrilink/agrilink-platform/internal/observability/metrics"
	"github.com/agrilink/agrilink-platform/pkg/logging"
)

// GreenWebhookHandler receives Green API notifications. Green retries any
// non-200 answer aggressively, so the handler acknowledges everything and
// filters event types itself.
type GreenWebhookHandler struct {
	pipeline envelopeProcessor
	logger   *logging.Logger
	metrics  *metrics.MessagingMetrics
	baseURL  string

	mu   sync.Mutex
	last json.RawMessage
}

type GreenWebhookConfig struct {
	Pipeline envelopeProcessor
	Logger   *logging.Logger
	Metrics  *metrics.MessagingMetrics
	BaseURL  string
}

func NewGreenWebhookHandler(cfg GreenWebhookConfig) *GreenWebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &GreenWebhookHandler{
		pipeline: cfg.Pipeline,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		baseURL:  cfg.BaseURL,
	}
}

type greenNotification struct {
	TypeWebhook string `json:"typeWebhook"`
	IDMessage   string `json:"idMessage"`
	SenderData  struct {
		ChatID string `json:"chatId"`
		Sender string `json:"sender"`
	} `json:"senderData"`
	MessageData struct {
		TypeMessage     string `json:"typeMessage"`
		TextMessageData struct {
			TextMessage string `json:"textMessage"`
		} `json:"textMessageData"`
		ExtendedTextMessageData struct {
			Text string `json:"text"`
		} `json:"extendedTextMessageData"`
		FileMessageData struct {
			DownloadURL string `json:"downloadUrl"`
			Caption     string `json:"caption"`
		} `json:"fileMessageData"`
	} `json:"messageData"`
}

// Handle processes one Green API notification.
func (h *GreenWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.ack(w)
		return
	}

	h.mu.Lock()
	h.last = append(json.RawMessage(nil), body...)
	h.mu.Unlock()

	var note greenNotification
	if err := json.Unmarshal(body, &note); err != nil {
		h.logger.Warn("green webhook: unreadable payload", "error", err)
		h.ack(w)
		return
	}
	if note.TypeWebhook != "incomingMessageReceived" {
		h.metrics.ObserveInbound("green", "ignored")
		h.ack(w)
		return
	}

	sender := note.SenderData.ChatID
	if sender == "" {
		sender = note.SenderData.Sender
	}
	env := ingest.Envelope{
		Provider:          ingest.ProviderGreen,
		From:              sender,
		Text:              note.MessageData.TextMessageData.TextMessage,
		ProviderMessageID: note.IDMessage,
		BaseURL:           media.BaseURL(r, h.baseURL),
	}
	if env.Text == "" {
		env.Text = note.MessageData.ExtendedTextMessageData.Text
	}
	if note.MessageData.FileMessageData.DownloadURL != "" {
		env.HasMedia = true
		env.MediaURL = note.MessageData.FileMessageData.DownloadURL
		if env.Text == "" {
			env.Text = note.MessageData.FileMessageData.Caption
		}
	}

	h.pipeline.Process(r.Context(), env)
	h.metrics.ObserveWebhookLatency("green", time.Since(start).Seconds())
	h.ack(w)
}

// HandleLast returns the most recent raw notification, for debugging an
// instance's webhook wiring.
func (h *GreenWebhookHandler) HandleLast(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	last := h.last
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if len(last) == 0 {
		w.Write([]byte(`{"message":"no notifications received yet"}`))
		return
	}
	w.Write(last)
}

func (h *GreenWebhookHandler) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"success":true}`))
}
