package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected method POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/list-guilds" {
			t.Errorf("Expected path /api/list-guilds, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("User-Agent") != "chatload-test" {
			t.Errorf("Expected client header User-Agent, got %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}

		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Error decoding body: %v", err)
		}
		if body["limit"] != float64(5) {
			t.Errorf("Expected limit 5, got %v", body["limit"])
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"guilds":[{"guild_id":42}]}`))
	}))
	defer server.Close()

	client := NewClient(
		WithTimeout(5*time.Second),
		WithHeader("User-Agent", "chatload-test"),
		WithBaseURL(server.URL+"/api"),
	)

	req := NewRequest("POST", "/list-guilds").
		WithBearerToken("tok").
		WithBody(map[string]int{"limit": 5})

	resp, err := client.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("Error executing request: %v", err)
	}

	if !resp.IsSuccess() {
		t.Errorf("Expected success, got %d", resp.StatusCode)
	}
	if resp.GetHeader("Content-Type") != "application/json" {
		t.Errorf("Expected Content-Type: application/json, got %s", resp.GetHeader("Content-Type"))
	}
	if resp.BodyString() != `{"guilds":[{"guild_id":42}]}` {
		t.Errorf("Unexpected body %s", resp.BodyString())
	}

	id, err := resp.Extract("$.guilds[0].guild_id")
	if err != nil || id != "42" {
		t.Errorf("Extract = %q, %v; want 42", id, err)
	}

	var decoded struct {
		Guilds []struct {
			GuildID uint64 `json:"guild_id"`
		} `json:"guilds"`
	}
	if err := resp.DecodeJSON(&decoded); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if len(decoded.Guilds) != 1 || decoded.Guilds[0].GuildID != 42 {
		t.Errorf("Unexpected decoded body %+v", decoded)
	}

	if resp.Timing.TotalTime <= 0 {
		t.Error("Expected total time to be recorded")
	}
	if resp.Timing.TimeToFirstByte <= 0 || resp.Timing.TimeToFirstByte > resp.Timing.TotalTime {
		t.Errorf("Unexpected time to first byte %v (total %v)", resp.Timing.TimeToFirstByte, resp.Timing.TotalTime)
	}
}

func TestClient_DoRawBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("filename") != "notes.txt" {
			t.Errorf("Expected filename query, got %q", r.URL.RawQuery)
		}
		if r.Header.Get("Content-Type") != "text/plain" {
			t.Errorf("Expected text/plain content type, got %q", r.Header.Get("Content-Type"))
		}
		data, _ := io.ReadAll(r.Body)
		if string(data) != "raw bytes" {
			t.Errorf("Expected raw body, got %q", data)
		}
		w.Write([]byte(`{"id":"m1"}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	req := NewRequest("POST", "/media").
		WithQueryParam("filename", "notes.txt").
		WithHeader("Content-Type", "text/plain").
		WithBody([]byte("raw bytes"))

	resp, err := client.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("Error executing request: %v", err)
	}
	if id, err := resp.Extract("$.id"); err != nil || id != "m1" {
		t.Errorf("Extract = %q, %v; want m1", id, err)
	}
}

func TestClient_StatusClasses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	resp, err := client.Do(context.Background(), NewRequest("GET", "missing"))
	if err != nil {
		t.Fatalf("Error executing request: %v", err)
	}
	if !resp.IsClientError() || resp.IsSuccess() || resp.IsServerError() {
		t.Errorf("Expected client error classification for %d", resp.StatusCode)
	}

	resp, err = client.Do(context.Background(), NewRequest("GET", "/boom"))
	if err != nil {
		t.Fatalf("Error executing request: %v", err)
	}
	if !resp.IsServerError() {
		t.Errorf("Expected server error classification for %d", resp.StatusCode)
	}
}

func TestClient_DoHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Do(ctx, NewRequest("GET", "/slow")); err == nil {
		t.Error("Expected error when context expires")
	}
}

func TestClient_WithOptions(t *testing.T) {
	client := NewClient(
		WithTimeout(10*time.Second),
		WithBaseURL("https://example.com"),
		WithHeader("X-Test", "test-value"),
		WithInsecureSkipVerify(true),
		WithMaxConnsPerHost(8),
	)

	if client.httpClient.Timeout != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %v", client.httpClient.Timeout)
	}
	if client.BaseURL() != "https://example.com" {
		t.Errorf("Expected baseURL https://example.com, got %s", client.BaseURL())
	}
	if client.headers["X-Test"] != "test-value" {
		t.Errorf("Expected header X-Test: test-value, got %s", client.headers["X-Test"])
	}
	if client.TLSConfig() == nil || !client.TLSConfig().InsecureSkipVerify {
		t.Error("Expected InsecureSkipVerify to be set")
	}
	if client.transport.MaxConnsPerHost != 8 {
		t.Errorf("Expected MaxConnsPerHost 8, got %d", client.transport.MaxConnsPerHost)
	}
}

func TestRequest_URL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		path     string
		query    map[string]string
		expected string
	}{
		{"no base path", "https://chat.example.com", "auth/login", nil, "https://chat.example.com/auth/login"},
		{"base path", "https://chat.example.com/api/", "/send-message", nil, "https://chat.example.com/api/send-message"},
		{"query", "http://localhost:2289/api", "events", map[string]string{"token": "abc"}, "http://localhost:2289/api/events?token=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest("GET", tt.path)
			for k, v := range tt.query {
				req.WithQueryParam(k, v)
			}
			u, err := req.URL(tt.baseURL)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if u.String() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, u.String())
			}
		})
	}
}
