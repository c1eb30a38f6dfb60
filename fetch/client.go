package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"time"
)

// ClientConfig holds options for NewClient
type ClientConfig struct {
	// UserAgent is sent with every request when not empty.
	UserAgent string
	// Timeout bounds a single request. 0 means no timeout: a hanging
	// source stalls the run.
	Timeout time.Duration
}

// NewClient returns an HTTP client that also serves file:// URLs from the
// local file system.
func NewClient(cfg ClientConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))

	var rt http.RoundTripper = transport
	if cfg.UserAgent != "" {
		rt = &userAgentTransport{base: transport, agent: cfg.UserAgent}
	}
	return &http.Client{Transport: rt, Timeout: cfg.Timeout}
}

type userAgentTransport struct {
	base  http.RoundTripper
	agent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(req)
}

// StatusError reports a response with a non-success status code.
type StatusError struct {
	URL    string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %s", e.URL, e.Status)
}

// Document is a retrieved resource.
type Document struct {
	URL         *url.URL
	ContentType string
	Body        []byte
}

// Location turns a path or URL into an absolute URL. Anything that is not
// an http, https or file URL is treated as a local path.
func Location(s string) (*url.URL, error) {
	if u, err := url.Parse(s); err == nil {
		switch u.Scheme {
		case "http", "https", "file":
			return u, nil
		}
	}
	abs, err := filepath.Abs(s)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve path %q: %w", s, err)
	}
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}, nil
}

// Get retrieves u. Responses outside the 2xx range are returned as
// *StatusError.
func Get(ctx context.Context, client *http.Client, u string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to prepare request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: u, Status: resp.Status, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read response body: %w", err)
	}
	final := req.URL
	if resp.Request != nil {
		// after redirects
		final = resp.Request.URL
	}
	return &Document{
		URL:         final,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
