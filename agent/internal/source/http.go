package source

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/linkpulse/linkpulse/agent/internal/config"
)

const (
	defaultRequestTimeout = 10 * time.Second

	// maxPageBytes bounds a single decoded page body.
	maxPageBytes = 16 << 20

	totalCountHeader = "X-Total-Count"
)

// summaryTotal matches table footers such as "Showing 1 to 100 of 1,234 entries".
var summaryTotal = regexp.MustCompile(`(?i)of\s+([\d,]+)\s+entries`)

// pageDoc is the JSON body returned by the upstream endpoint.
type pageDoc struct {
	Rows []struct {
		Username  string `json:"username,omitempty"`
		Timestamp string `json:"timestamp"`
		Status    string `json:"status"`
	} `json:"rows"`
	Summary string `json:"summary,omitempty"`
}

type httpSource struct {
	endpoint string
	client   *http.Client
}

// FetchPage performs GET {endpoint}?username=&start=&end=&offset=&limit= and
// decodes the returned rows. Any non-200 response is an error.
func (s *httpSource) FetchPage(ctx context.Context, q Query) (*Page, error) {
	u, err := pageURL(s.endpoint, q)
	if err != nil {
		return nil, fmt.Errorf("source: build url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("source: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("source: unexpected status %d", resp.StatusCode)
	}

	var doc pageDoc
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPageBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("source: decode page: %w", err)
	}

	page := &Page{Rows: make([]RawRow, 0, len(doc.Rows))}
	for _, r := range doc.Rows {
		page.Rows = append(page.Rows, RawRow{TimestampText: r.Timestamp, StatusText: r.Status})
	}
	if q.WantTotal {
		page.TotalHint = totalHint(resp.Header.Get(totalCountHeader), doc.Summary)
	}
	return page, nil
}

func pageURL(endpoint string, q Query) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	v := u.Query()
	v.Set("username", q.Username)
	if !q.Start.IsZero() {
		v.Set("start", q.Start.UTC().Format(time.RFC3339))
	}
	if !q.End.IsZero() {
		v.Set("end", q.End.UTC().Format(time.RFC3339))
	}
	v.Set("offset", strconv.Itoa(q.Offset))
	v.Set("limit", strconv.Itoa(q.Limit))
	u.RawQuery = v.Encode()
	return u.String(), nil
}

// totalHint prefers the header and falls back to the summary text. A missing
// or unparsable value yields nil. Negative values are passed through; the
// paginator treats them as unknown.
func totalHint(header, summary string) *int {
	if h := strings.TrimSpace(header); h != "" {
		if n, err := strconv.Atoi(h); err == nil {
			return &n
		}
	}
	m := summaryTotal.FindStringSubmatch(summary)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.EffectiveHeader(), t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the source's auth and TLS settings.
func buildHTTPClient(src config.Source) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: src.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if src.Auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(src.Auth.CertFile, src.Auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}

		if src.Auth.CAFile != "" {
			caPEM, err := os.ReadFile(src.Auth.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("no valid certs found in ca file %q", src.Auth.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	timeout := src.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &http.Client{
		Transport: &authRoundTripper{
			base: &http.Transport{TLSClientConfig: tlsCfg},
			auth: src.Auth,
		},
		Timeout: timeout,
	}, nil
}
