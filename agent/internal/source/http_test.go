package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/linkpulse/linkpulse/agent/internal/config"
)

const samplePage = `{
  "rows": [
    {"timestamp": "2024-03-01 08:00:00", "status": "Session Start"},
    {"timestamp": "2024-03-01 09:30:00", "status": "Session Stop"},
    {"timestamp": "garbage", "status": "Session Start"}
  ],
  "summary": "Showing 1 to 3 of 1,234 entries"
}`

func newTestSource(t *testing.T, h http.HandlerFunc) (*httpSource, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &httpSource{endpoint: srv.URL + "/api/sessions", client: srv.Client()}, srv
}

func TestHTTPSource_FetchPage(t *testing.T) {
	var gotQuery map[string]string
	s, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(samplePage))
	})

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	page, err := s.FetchPage(context.Background(), Query{
		Username:  "alice@isp",
		Start:     start,
		End:       start.Add(24 * time.Hour),
		Offset:    200,
		Limit:     100,
		WantTotal: true,
	})
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if len(page.Rows) != 3 {
		t.Fatalf("rows: got %d, want 3", len(page.Rows))
	}
	if page.Rows[1].StatusText != "Session Stop" {
		t.Errorf("rows[1].StatusText = %q", page.Rows[1].StatusText)
	}
	if page.TotalHint == nil || *page.TotalHint != 1234 {
		t.Errorf("TotalHint = %v, want 1234", page.TotalHint)
	}

	want := map[string]string{
		"username": "alice@isp",
		"start":    "2024-03-01T00:00:00Z",
		"end":      "2024-03-02T00:00:00Z",
		"offset":   "200",
		"limit":    "100",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}
}

func TestHTTPSource_TotalHeaderWins(t *testing.T) {
	s, _ := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Total-Count", "42")
		_, _ = w.Write([]byte(samplePage))
	})
	page, err := s.FetchPage(context.Background(), Query{Username: "u", Limit: 10, WantTotal: true})
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if page.TotalHint == nil || *page.TotalHint != 42 {
		t.Errorf("TotalHint = %v, want 42", page.TotalHint)
	}
}

func TestHTTPSource_TotalNotRequested(t *testing.T) {
	s, _ := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	})
	page, err := s.FetchPage(context.Background(), Query{Username: "u", Limit: 10})
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if page.TotalHint != nil {
		t.Errorf("TotalHint = %d, want nil", *page.TotalHint)
	}
}

func TestHTTPSource_Non200Response(t *testing.T) {
	s, _ := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if _, err := s.FetchPage(context.Background(), Query{Username: "u", Limit: 10}); err == nil {
		t.Fatal("FetchPage() should fail on 502")
	}
}

func TestHTTPSource_InvalidJSON(t *testing.T) {
	s, _ := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>login</html>"))
	})
	if _, err := s.FetchPage(context.Background(), Query{Username: "u", Limit: 10}); err == nil {
		t.Fatal("FetchPage() should fail on a non-JSON body")
	}
}

func TestHTTPSource_ConnectFailure(t *testing.T) {
	s := &httpSource{endpoint: "http://127.0.0.1:1/sessions", client: http.DefaultClient}
	if _, err := s.FetchPage(context.Background(), Query{Username: "u", Limit: 10}); err == nil {
		t.Fatal("FetchPage() should fail when the endpoint is unreachable")
	}
}

func TestTotalHint(t *testing.T) {
	tests := []struct {
		header, summary string
		want            *int
	}{
		{"", "Showing 1 to 100 of 1,234 entries", intp(1234)},
		{"", "showing 0 to 0 of 0 entries", intp(0)},
		{"17", "of 99 entries", intp(17)},
		{"abc", "of 99 entries", intp(99)},
		{"-1", "", intp(-1)},
		{"", "no footer", nil},
		{"", "", nil},
	}
	for _, tc := range tests {
		got := totalHint(tc.header, tc.summary)
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("totalHint(%q, %q) = %d, want nil", tc.header, tc.summary, *got)
		case tc.want != nil && (got == nil || *got != *tc.want):
			t.Errorf("totalHint(%q, %q) = %v, want %d", tc.header, tc.summary, got, *tc.want)
		}
	}
}

func TestHTTPSource_APIKeyAuth(t *testing.T) {
	const wantKey = "test-secret-key"
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		_, _ = w.Write([]byte(`{"rows":[]}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_SOURCE_KEY", wantKey)
	src := config.Source{
		Type:     "http",
		Endpoint: srv.URL,
		Auth:     config.AuthConfig{Mode: "apikey", Header: "X-API-Key", KeyEnv: "TEST_SOURCE_KEY"},
	}
	client, err := buildHTTPClient(src)
	if err != nil {
		t.Fatalf("buildHTTPClient: %v", err)
	}
	s := &httpSource{endpoint: src.Endpoint, client: client}
	s.FetchPage(context.Background(), Query{Username: "u", Limit: 1}) //nolint:errcheck

	if gotKey != wantKey {
		t.Errorf("X-API-Key header = %q, want %q", gotKey, wantKey)
	}
}

func TestHTTPSource_BasicAuth(t *testing.T) {
	var gotUser, gotPass string
	var ok bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, ok = r.BasicAuth()
		_, _ = w.Write([]byte(`{"rows":[]}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_SOURCE_PASSWORD", "hunter2")
	src := config.Source{
		Type:     "http",
		Endpoint: srv.URL,
		Auth:     config.AuthConfig{Mode: "basic", Username: "operator", PasswordEnv: "TEST_SOURCE_PASSWORD"},
	}
	client, err := buildHTTPClient(src)
	if err != nil {
		t.Fatalf("buildHTTPClient: %v", err)
	}
	s := &httpSource{endpoint: src.Endpoint, client: client}
	s.FetchPage(context.Background(), Query{Username: "u", Limit: 1}) //nolint:errcheck

	if !ok || gotUser != "operator" || gotPass != "hunter2" {
		t.Errorf("basic auth = (%q, %q, %v), want (operator, hunter2, true)", gotUser, gotPass, ok)
	}
}

func TestHTTPSource_BearerAuth(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"rows":[]}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_SOURCE_TOKEN", "mytoken")
	src := config.Source{
		Type:     "http",
		Endpoint: srv.URL,
		Auth:     config.AuthConfig{Mode: "bearer", TokenEnv: "TEST_SOURCE_TOKEN"},
	}
	s, err := New(src)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.FetchPage(context.Background(), Query{Username: "u", Limit: 1}) //nolint:errcheck

	if gotAuth != "Bearer mytoken" {
		t.Errorf("Authorization header = %q, want %q", gotAuth, "Bearer mytoken")
	}
}

func TestNew_UnsupportedType(t *testing.T) {
	if _, err := New(config.Source{Type: "ldap", Endpoint: "ldap://localhost"}); err == nil {
		t.Fatal("New() with unsupported type should return error")
	}
}

func intp(n int) *int { return &n }
