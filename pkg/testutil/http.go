// Package testutil provides request builders and response assertions for
// handler and wiring tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ErrorBody is the JSON shape httputil.WriteError renders.
type ErrorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	Reason      string `json:"reason"`
}

// NewJSONRequest builds a request with body marshaled as JSON. A nil body
// sends no payload.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err, "marshal request body")
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DoRequest serves req and returns the recorded response.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// DecodeJSON decodes the response body into T, failing the test on error.
func DecodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "decode response: %s", rr.Body.String())
	return out
}

func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status, body: %s", rr.Body.String())
}

// AssertRejected checks the status, the error code and, when reason is not
// empty, the rejection reason.
func AssertRejected(t *testing.T, rr *httptest.ResponseRecorder, status int, code, reason string) {
	t.Helper()
	AssertStatus(t, rr, status)
	body := DecodeJSON[ErrorBody](t, rr)
	assert.Equal(t, code, body.Error, "unexpected error code")
	if reason != "" {
		assert.Equal(t, reason, body.Reason, "unexpected rejection reason")
	}
}
