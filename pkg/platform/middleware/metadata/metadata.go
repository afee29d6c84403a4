// Package metadata records who sent a request so handlers can stamp it onto
// the events a command appends.
package metadata

import (
	"net"
	"net/http"
	"strings"

	"tavola/pkg/requestcontext"
)

// MaxUserAgent caps the user agent stored in event metadata.
const MaxUserAgent = 512

// ClientMetadata stores the client address and user agent on the request
// context. Apply it after middleware.RequestID.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		if len(ua) > MaxUserAgent {
			ua = ua[:MaxUserAgent]
		}
		ctx := requestcontext.WithClient(r.Context(), ClientIPFromRequest(r), ua)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest returns the originating address. Proxy headers win over
// the socket address, in the order Forwarded, X-Forwarded-For, X-Real-IP.
func ClientIPFromRequest(r *http.Request) string {
	if ip := forwardedFor(r.Header.Get("Forwarded")); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// forwardedFor extracts the first for= node of an RFC 7239 header.
func forwardedFor(header string) string {
	first, _, _ := strings.Cut(header, ",")
	for _, pair := range strings.Split(first, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || !strings.EqualFold(key, "for") {
			continue
		}
		value = strings.Trim(value, `"`)
		if host, _, err := net.SplitHostPort(value); err == nil {
			return strings.Trim(host, "[]")
		}
		return strings.Trim(value, "[]")
	}
	return ""
}
