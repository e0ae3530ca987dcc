package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agrilink/agrilink-platform/pkg/logging"
)

const maxMediaBytes = 16 << 20

// Retriever downloads provider-hosted media and relocates it into Storage.
// Every failure degrades to a "no media" outcome; the ingestion pipeline must
// never stall on a broken image.
type Retriever struct {
	storage    Storage
	httpClient *http.Client
	authUser   string
	authPass   string
	logger     *logging.Logger
}

func NewRetriever(storage Storage, timeout time.Duration, logger *logging.Logger) *Retriever {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Retriever{
		storage:    storage,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// WithBasicAuth sets credentials for providers that protect media URLs
// (Twilio serves MMS media behind account-level basic auth).
func (r *Retriever) WithBasicAuth(user, pass string) *Retriever {
	r.authUser = user
	r.authPass = pass
	return r
}

// Fetch downloads the media URL and stores it, returning the relative public
// path. The second return is false on any failure; callers proceed with an
// empty media reference.
func (r *Retriever) Fetch(ctx context.Context, mediaURL string) (string, bool) {
	if strings.TrimSpace(mediaURL) == "" || r.storage == nil {
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		r.logger.Warn("media fetch: bad url", "error", err)
		return "", false
	}
	if r.authUser != "" {
		req.SetBasicAuth(r.authUser, r.authPass)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Warn("media fetch failed", "error", err, "url", mediaURL)
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Warn("media fetch: unexpected status", "status", resp.StatusCode, "url", mediaURL)
		return "", false
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		r.logger.Warn("media fetch: read body failed", "error", err)
		return "", false
	}
	if len(data) == 0 {
		r.logger.Warn("media fetch: empty body", "url", mediaURL)
		return "", false
	}

	ext, contentType := inferExtension(mediaURL)
	filename := "product-" + randomHex(16) + ext
	path, err := r.storage.Put(ctx, filename, contentType, data)
	if err != nil {
		r.logger.Error("media store failed", "error", err, "filename", filename)
		return "", false
	}
	r.logger.Info("media saved", "path", path, "bytes", len(data))
	return path, true
}

// inferExtension guesses the file type from URL hints, defaulting to jpg.
func inferExtension(mediaURL string) (ext, contentType string) {
	lower := strings.ToLower(mediaURL)
	switch {
	case strings.Contains(lower, ".png"):
		return ".png", "image/png"
	case strings.Contains(lower, ".jpg"), strings.Contains(lower, "jpeg"):
		return ".jpg", "image/jpeg"
	default:
		return ".jpg", "image/jpeg"
	}
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to a timestamp so the filename stays usable.
		return hex.EncodeToString([]byte(time.Now().Format("20060102150405.000000000")))[:2*n]
	}
	return hex.EncodeToString(buf)
}
