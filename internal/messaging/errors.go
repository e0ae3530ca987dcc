package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoAccounts is returned when the dispatcher is constructed without any
// configured provider accounts.
var ErrNoAccounts = errors.New("messaging: no accounts configured")

// AccountFailure records one account's failed attempt during a dispatch.
type AccountFailure struct {
	Account string
	Err     error
}

// ExhaustedError reports that every configured account failed for one send.
type ExhaustedError struct {
	Failures []AccountFailure
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Account, f.Err))
	}
	return "messaging: all accounts exhausted: " + strings.Join(parts, "; ")
}

// apiError is a provider send failure carrying enough detail to classify
// capacity exhaustion.
type apiError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *apiError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("status %d code %d: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// Twilio error codes that mean an account is out of sending capacity rather
// than the message being malformed.
var capacityCodes = map[int]bool{
	21614: true,
	63018: true,
	21211: true,
	21408: true,
}

var capacityPhrases = []string{
	"credit limit",
	"rate limit",
	"too many requests",
	"quota exceeded",
	"daily limit",
	"monthly limit",
}

// IsCapacityError reports whether a send failure indicates the account has
// run out of quota or rate and the dispatcher should try the next one.
func IsCapacityError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		if capacityCodes[apiErr.Code] {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range capacityPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func parseAPIError(status int, body []byte) *apiError {
	out := &apiError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	var parsed struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		out.Code = parsed.Code
		out.Message = parsed.Message
	}
	return out
}
