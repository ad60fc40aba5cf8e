package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TestContext holds per-scenario state shared by every step package.
type TestContext struct {
	BaseURL    string
	HTTPClient *http.Client

	LastResponse     *http.Response
	LastResponseBody []byte
	AccessToken      string
}

func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears response and token state between scenarios.
func (tc *TestContext) Reset() {
	tc.LastResponse = nil
	tc.LastResponseBody = nil
	tc.AccessToken = ""
}

func (tc *TestContext) POST(path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, tc.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return tc.do(req)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	req, err := http.NewRequest(http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return tc.do(req)
}

// GETAuthorized sends the stored access token as a bearer credential.
func (tc *TestContext) GETAuthorized(path string) error {
	return tc.GET(path, map[string]string{"Authorization": "Bearer " + tc.AccessToken})
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	tc.LastResponse = resp
	tc.LastResponseBody = body
	return nil
}

func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	v, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %q not found in response: %s", field, tc.LastResponseBody)
	}
	return v, nil
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.LastResponse == nil {
		return ""
	}
	return tc.LastResponse.Header.Get(name)
}

func (tc *TestContext) GetLastResponseBody() []byte { return tc.LastResponseBody }

func (tc *TestContext) GetAccessToken() string { return tc.AccessToken }

func (tc *TestContext) SetAccessToken(token string) { tc.AccessToken = token }
