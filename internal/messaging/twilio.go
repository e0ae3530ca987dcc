package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agrilink/agrilink-platform/internal/phone"
	"github.com/agrilink/agrilink-platform/pkg/logging"
)

var twilioTracer = otel.Tracer("agrilink.internal.messaging.twilio")

// TwilioAccount sends WhatsApp messages through one Twilio account.
type TwilioAccount struct {
	Name       string
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewTwilioAccount builds a sender for a single account. from is the
// account's WhatsApp-enabled number, with or without the whatsapp: prefix.
func NewTwilioAccount(name, accountSID, authToken, from string, logger *logging.Logger) *TwilioAccount {
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioAccount{
		Name:       name,
		accountSID: accountSID,
		authToken:  authToken,
		from:       phone.WhatsAppAddress(from),
		baseURL:    "https://api.twilio.com",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// WithBaseURL overrides the API endpoint, used by tests.
func (a *TwilioAccount) WithBaseURL(base string) *TwilioAccount {
	a.baseURL = strings.TrimRight(base, "/")
	return a
}

var _ Messenger = (*TwilioAccount)(nil)

func (a *TwilioAccount) Send(ctx context.Context, to, body string) (string, error) {
	return a.send(ctx, to, body, "")
}

func (a *TwilioAccount) SendMedia(ctx context.Context, to, body, mediaURL string) (string, error) {
	return a.send(ctx, to, body, mediaURL)
}

func (a *TwilioAccount) send(ctx context.Context, to, body, mediaURL string) (string, error) {
	if a.accountSID == "" || a.authToken == "" {
		return "", errors.New("messaging: twilio credentials missing")
	}
	if to == "" {
		return "", errors.New("messaging: to required")
	}
	if strings.TrimSpace(body) == "" && mediaURL == "" {
		return "", errors.New("messaging: body or media required")
	}

	ctx, span := twilioTracer.Start(ctx, "messaging.twilio.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("agrilink.account", a.Name),
		attribute.String("agrilink.to", to),
	)

	payload := url.Values{}
	payload.Set("To", phone.WhatsAppAddress(to))
	payload.Set("From", a.from)
	payload.Set("Body", body)
	if mediaURL != "" {
		payload.Set("MediaUrl", mediaURL)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", a.baseURL, a.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(a.accountSID, a.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseAPIError(resp.StatusCode, respBody)
		span.RecordError(apiErr)
		return "", fmt.Errorf("messaging: twilio send via %s: %w", a.Name, apiErr)
	}

	var parsed struct {
		SID string `json:"sid"`
	}
	_ = json.Unmarshal(respBody, &parsed)
	a.logger.Info("whatsapp message sent", "account", a.Name, "to", to, "sid", parsed.SID)
	return parsed.SID, nil
}
