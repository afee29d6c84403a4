package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext holds the HTTP client and the last response of a scenario.
type TestContext struct {
	BaseURL    string
	BusinessID string
	client     *http.Client

	lastStatus int
	lastBody   []byte
	vars       map[string]string
}

// NewTestContext targets a running server at baseURL.
func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		BusinessID: "1",
		client:     &http.Client{Timeout: 10 * time.Second},
		vars:       map[string]string{},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.vars = map[string]string{}
}

func (tc *TestContext) SetBusiness(businessID string) {
	tc.BusinessID = businessID
}

func (tc *TestContext) Set(key, value string) {
	tc.vars[key] = value
}

func (tc *TestContext) Get(key string) string {
	return tc.vars[key]
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body)
}

func (tc *TestContext) PATCH(path string, body any) error {
	return tc.do(http.MethodPatch, path, body)
}

func (tc *TestContext) DELETE(path string) error {
	return tc.do(http.MethodDelete, path, nil)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Business-ID", tc.BusinessID)
	req.Header.Set("User-Agent", "tavola-e2e/1.0")

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	tc.lastStatus = resp.StatusCode
	return nil
}

func (tc *TestContext) GetLastStatusCode() int {
	return tc.lastStatus
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.lastBody
}

// GetResponseField reads a dotted path ("orders.0.status") from the last
// JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var doc any
	if err := json.Unmarshal(tc.lastBody, &doc); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	cur := doc
	for _, part := range strings.Split(field, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %q not found in %s", field, tc.lastBody)
			}
			cur = v
		case []any:
			var i int
			if _, err := fmt.Sscanf(part, "%d", &i); err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %q", part, field)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("field %q not found in %s", field, tc.lastBody)
		}
	}
	return cur, nil
}
