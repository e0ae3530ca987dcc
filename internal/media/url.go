package media

import (
	"net/http"
	"strings"
)

// AbsoluteURL joins a relative media path with the serving base URL.
// Already-absolute URLs pass through unchanged, so the conversion is
// idempotent.
func AbsoluteURL(base, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// BaseURL derives the externally reachable base address for this backend.
// An explicit override wins; otherwise forwarded-proto/host headers are
// trusted (the service runs behind a proxy in production).
func BaseURL(r *http.Request, override string) string {
	if override != "" {
		return strings.TrimRight(override, "/")
	}
	if r == nil {
		return ""
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if r.TLS == nil {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	if host == "" {
		return ""
	}
	return scheme + "://" + host
}
