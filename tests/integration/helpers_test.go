package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"os"
	"testing"
	"time"
)

// Ports the services listen on by default.
const (
	shopAPIPort    = 8080
	storefrontPort = 8081
)

// baseURL returns the base URL for a service running on the given port.
// INTEGRATION_HOST overrides localhost.
func baseURL(port int) string {
	host := os.Getenv("INTEGRATION_HOST")
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

// uniqueEmail generates a unique email address to avoid test collisions.
func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d-%d@test.example.com", prefix, time.Now().UnixNano(), rand.Intn(100000))
}

// skipIfNotRunning performs a quick health check against a service.
// If the service is unreachable, the test is skipped (not failed).
func skipIfNotRunning(t *testing.T, port int) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL(port) + "/health/live")
	if err != nil {
		t.Skipf("service on port %d not reachable (Docker not running?): %v", port, err)
	}
	resp.Body.Close()
}

// browser is an HTTP client with a cookie jar, so storefront requests keep
// one session like a real browser tab.
type browser struct {
	client *http.Client
	token  string
}

func newBrowser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("creating cookie jar failed: %v", err)
	}
	// The confirmation request stays open for the whole poll deadline.
	return &browser{client: &http.Client{Jar: jar, Timeout: 60 * time.Second}}
}

// do sends a JSON request and decodes the JSON response into a map.
func (b *browser) do(t *testing.T, method, url string, body any) (int, map[string]any) {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling request body failed: %v", err)
		}
		bodyReader = bytes.NewReader(jsonBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		t.Fatalf("creating %s request for %s failed: %v", method, url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp.Body)
}

// login registers a fresh account on the shop API and keeps its token.
func (b *browser) login(t *testing.T) string {
	t.Helper()
	email := uniqueEmail("comprador")
	status, body := b.do(t, http.MethodPost, baseURL(shopAPIPort)+"/api/register", map[string]string{
		"email":    email,
		"password": "secreto123",
	})
	if status != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %v", status, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("register: response has no token: %v", body)
	}
	b.token = token
	return email
}

// decodeBody reads the response body and attempts to decode it as JSON.
// If the body is empty or not JSON, it returns an empty map.
func decodeBody(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("reading response body failed: %v", err)
	}
	if len(raw) == 0 {
		return map[string]any{}
	}
	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		// Not JSON; return the raw string in a "raw" key for debugging.
		return map[string]any{"raw": string(raw)}
	}
	return result
}

// data returns the "data" object of an enveloped response.
func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("response has no data object: %v", body)
	}
	return d
}
