package grading

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

	"github.com/agrilink/agrilink-platform/pkg/logging"
)

var tracer = otel.Tracer("agrilink.internal.grading")

// ErrNotConfigured is returned when no grading service URL is set.
var ErrNotConfigured = errors.New("grading: service url not configured")

// Result is the quality verdict for one product image.
type Result struct {
	Grade string `json:"grade"`
	Score int    `json:"score"`
}

// Client calls the external quality grading service. Grading is advisory:
// callers fall back to a default grade when the service is down.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Configured reports whether a grading endpoint is set.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Grade submits one image for grading and returns the verdict.
func (c *Client) Grade(ctx context.Context, imageURL, productName string) (Result, error) {
	if !c.Configured() {
		return Result{}, ErrNotConfigured
	}

	ctx, span := tracer.Start(ctx, "grading.grade")
	defer span.End()
	span.SetAttributes(attribute.String("agrilink.product", productName))

	payload, err := json.Marshal(map[string]string{
		"image_url":    imageURL,
		"product_name": productName,
	})
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/grade", bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("grading: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("grading: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		span.RecordError(err)
		return Result{}, err
	}

	var out Result
	if err := json.Unmarshal(body, &out); err != nil {
		return Result{}, fmt.Errorf("grading: decode response: %w", err)
	}
	if out.Grade == "" {
		return Result{}, errors.New("grading: response missing grade")
	}
	c.logger.Info("product graded", "product", productName, "grade", out.Grade, "score", out.Score)
	return out, nil
}
