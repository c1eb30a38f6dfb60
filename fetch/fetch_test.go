package fetch

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/nicehtml"
	"github.com/wippyai/nicehtml/errors"
)

func TestCacheBust(t *testing.T) {
	ts := time.UnixMilli(1760799600123)

	tests := []struct {
		name     string
		location string
		param    string
		want     string
	}{
		{"no query", "https://example.com/a.nh", "timestamp", "https://example.com/a.nh?timestamp=1760799600123"},
		{"existing query", "https://example.com/a.nh?v=2", "timestamp", "https://example.com/a.nh?v=2&timestamp=1760799600123"},
		{"custom param", "/frag/a.nh", "t", "/frag/a.nh?t=1760799600123"},
		{"fragment kept", "https://example.com/a.nh#top", "timestamp", "https://example.com/a.nh?timestamp=1760799600123#top"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CacheBust(tt.location, tt.param, ts)
			if err != nil {
				t.Fatalf("CacheBust failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCacheBust_InvalidLocation(t *testing.T) {
	if _, err := CacheBust("http://[::1", "timestamp", time.Now()); err == nil {
		t.Fatal("expected error for malformed location")
	}
}

func TestLocation(t *testing.T) {
	u, err := Location("https://example.com/page.html")
	if err != nil {
		t.Fatalf("Location failed: %v", err)
	}
	if u.Scheme != "https" || u.Host != "example.com" {
		t.Errorf("unexpected url %s", u)
	}

	u, err = Location("testdata/page.html")
	if err != nil {
		t.Fatalf("Location failed: %v", err)
	}
	if u.Scheme != "file" {
		t.Errorf("expected file scheme, got %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/testdata/page.html") {
		t.Errorf("unexpected path %q", u.Path)
	}
	if !filepath.IsAbs(filepath.FromSlash(u.Path)) {
		t.Errorf("path %q is not absolute", u.Path)
	}
}

func TestGet(t *testing.T) {
	var agent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.Header.Get("User-Agent"))
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{UserAgent: "nicehtml-test"})
	ctx := context.Background()

	doc, err := Get(ctx, client, srv.URL+"/ok")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(doc.Body) != "hello" {
		t.Errorf("body = %q", doc.Body)
	}
	if doc.ContentType != "text/plain" {
		t.Errorf("content type = %q", doc.ContentType)
	}
	if got := agent.Load(); got != "nicehtml-test" {
		t.Errorf("user agent = %v", got)
	}

	_, err = Get(ctx, client, srv.URL+"/missing")
	var se *StatusError
	if !stderrors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusNotFound {
		t.Errorf("code = %d", se.Code)
	}
}

func TestGet_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frag.nh")
	if err := os.WriteFile(path, []byte("<p>local</p>"), 0o644); err != nil {
		t.Fatal(err)
	}

	u, err := Location(path)
	if err != nil {
		t.Fatalf("Location failed: %v", err)
	}

	doc, err := Get(context.Background(), NewClient(ClientConfig{}), u.String())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(doc.Body) != "<p>local</p>" {
		t.Errorf("body = %q", doc.Body)
	}
}

func TestResolver_InlineNoNetwork(t *testing.T) {
	var calls atomic.Int32
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, stderrors.New("network disabled")
	})}

	r := NewResolver(client)
	res := r.Resolve(context.Background(), nicehtml.Fragment{Index: 0, Origin: nicehtml.OriginInline, Content: "A"})
	if !res.OK() {
		t.Fatalf("inline fragment failed: %v", res.Err)
	}
	if res.Content != "A" {
		t.Errorf("content = %q", res.Content)
	}
	if calls.Load() != 0 {
		t.Errorf("inline fragment issued %d requests", calls.Load())
	}
}

func TestResolver_CacheBustUnique(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.RawQuery)
		mu.Unlock()
		_, _ = w.Write([]byte("B"))
	}))
	defer srv.Close()

	now := time.UnixMilli(1000)
	clock := func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}

	r := NewResolver(NewClient(ClientConfig{}), WithClock(clock))
	f := nicehtml.Fragment{Index: 0, Origin: nicehtml.OriginRemote, Source: srv.URL + "/b.nh"}
	for i := 0; i < 2; i++ {
		res := r.Resolve(context.Background(), f)
		if !res.OK() {
			t.Fatalf("resolve failed: %v", res.Err)
		}
		if res.Content != "B" {
			t.Errorf("content = %q", res.Content)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(seen))
	}
	if seen[0] != "timestamp=1001" || seen[1] != "timestamp=1002" {
		t.Errorf("unexpected queries %v", seen)
	}
}

func TestResolver_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	r := NewResolver(NewClient(ClientConfig{}), WithLogger(zap.New(core)), WithCacheBustParam("v"))

	tests := []struct {
		name string
		kind errors.Kind
		f    nicehtml.Fragment
	}{
		{"server error", errors.KindStatus, nicehtml.Fragment{Index: 1, Origin: nicehtml.OriginRemote, Source: srv.URL + "/b.nh"}},
		{"transport error", errors.KindFetch, nicehtml.Fragment{Index: 2, Origin: nicehtml.OriginRemote, Source: "http://127.0.0.1:1/c.nh"}},
		{"no source", errors.KindInvalidInput, nicehtml.Fragment{Index: 3, Origin: nicehtml.OriginRemote}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(context.Background(), tt.f)
			if res.OK() {
				t.Fatal("expected failure")
			}
			if !stderrors.Is(res.Err, errors.FragmentResolutionFailure) {
				t.Errorf("error %v is not a resolution failure", res.Err)
			}
			var e *errors.Error
			if !stderrors.As(res.Err, &e) {
				t.Fatalf("expected *errors.Error, got %T", res.Err)
			}
			if e.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", e.Kind, tt.kind)
			}
			if stderrors.Is(res.Err, errors.EngineLoadFailure) {
				t.Error("resolution failure must not match engine load failure")
			}
		})
	}

	if n := logs.FilterMessage("Unable to load fragment").Len(); n != len(tests) {
		t.Errorf("expected %d logged failures, got %d", len(tests), n)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
