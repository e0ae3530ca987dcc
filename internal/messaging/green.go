package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agrilink/agrilink-platform/internal/phone"
	"github.com/agrilink/agrilink-platform/pkg/logging"
)

var greenTracer = otel.Tracer("agrilink.internal.messaging.green")

// GreenClient sends WhatsApp messages through the Green API. The instance ID
// and token are path components of every call.
type GreenClient struct {
	baseURL    string
	instanceID string
	token      string
	httpClient *http.Client
	logger     *logging.Logger
}

func NewGreenClient(baseURL, instanceID, token string, logger *logging.Logger) *GreenClient {
	if logger == nil {
		logger = logging.Default()
	}
	if baseURL == "" {
		baseURL = "https://api.green-api.com"
	}
	return &GreenClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		instanceID: instanceID,
		token:      token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

var _ Messenger = (*GreenClient)(nil)

// Configured reports whether instance credentials are present.
func (c *GreenClient) Configured() bool {
	return c != nil && c.instanceID != "" && c.token != ""
}

func (c *GreenClient) Send(ctx context.Context, to, body string) (string, error) {
	payload := map[string]any{
		"chatId":  phone.ChatID(to),
		"message": body,
	}
	return c.post(ctx, "sendMessage", payload, to)
}

// SendMedia delivers a file by URL with the body as its caption.
func (c *GreenClient) SendMedia(ctx context.Context, to, body, mediaURL string) (string, error) {
	payload := map[string]any{
		"chatId":   phone.ChatID(to),
		"urlFile":  mediaURL,
		"fileName": mediaURL[strings.LastIndex(mediaURL, "/")+1:],
		"caption":  body,
	}
	return c.post(ctx, "sendFileByUrl", payload, to)
}

func (c *GreenClient) post(ctx context.Context, method string, payload map[string]any, to string) (string, error) {
	if !c.Configured() {
		return "", errors.New("messaging: green api credentials missing")
	}

	ctx, span := greenTracer.Start(ctx, "messaging.green."+method)
	defer span.End()
	span.SetAttributes(attribute.String("agrilink.to", to))

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s/waInstance%s/%s/%s", c.baseURL, c.instanceID, method, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseAPIError(resp.StatusCode, respBody)
		span.RecordError(apiErr)
		return "", fmt.Errorf("messaging: green %s: %w", method, apiErr)
	}

	var parsed struct {
		IDMessage string `json:"idMessage"`
	}
	_ = json.Unmarshal(respBody, &parsed)
	c.logger.Info("green api message sent", "method", method, "to", to, "id", parsed.IDMessage)
	return parsed.IDMessage, nil
}
