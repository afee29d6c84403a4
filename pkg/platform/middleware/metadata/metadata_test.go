package metadata

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"tavola/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded header", headers: map[string]string{"Forwarded": `for=192.0.2.60;proto=http;by=203.0.113.43`}, want: "192.0.2.60"},
		{name: "forwarded ipv6 with port", headers: map[string]string{"Forwarded": `for="[2001:db8:cafe::17]:4711", for=10.0.0.1`}, want: "2001:db8:cafe::17"},
		{name: "forwarded wins over x-forwarded-for", headers: map[string]string{"Forwarded": "for=192.0.2.1", "X-Forwarded-For": "10.0.0.1"}, want: "192.0.2.1"},
		{name: "forwarded chain takes first hop", headers: map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, want: "10.0.0.1"},
		{name: "real ip header", headers: map[string]string{"X-Real-IP": " 10.0.0.9 "}, want: "10.0.0.9"},
		{name: "ipv4 remote addr", remote: "192.168.1.4:5123", want: "192.168.1.4"},
		{name: "ipv6 remote addr", remote: "[::1]:8080", want: "::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(req))
		})
	}
}

func TestClientMetadataCapsUserAgent(t *testing.T) {
	var seen requestcontext.Metadata
	h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.From(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:443"
	req.Header.Set("User-Agent", strings.Repeat("a", MaxUserAgent+100))

	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "198.51.100.7", seen.ClientIP)
	assert.Len(t, seen.UserAgent, MaxUserAgent)
}
