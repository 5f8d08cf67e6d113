package redirect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"ResearchPosts/internal/config"
)

func newTestResolver(t *testing.T, shortener *httptest.Server) *HeadResolver {
	t.Helper()

	u, err := url.Parse(shortener.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return NewHeadResolver(config.RedirectConfig{
		RequestsPerSecond: 100,
		Burst:             10,
		ShortenerHosts:    []string{u.Hostname()},
	}, shortener.Client())
}

func TestExpandFollowsRedirects(t *testing.T) {
	t.Parallel()

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	var (
		mu      sync.Mutex
		methods []string
	)
	shortener := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		methods = append(methods, r.Method)
		mu.Unlock()
		http.Redirect(w, r, target.URL+"/abs/2301.00001", http.StatusMovedPermanently)
	}))
	defer shortener.Close()

	res := newTestResolver(t, shortener)

	got, err := res.Expand(context.Background(), shortener.URL+"/abc")
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	if got != target.URL+"/abs/2301.00001" {
		t.Fatalf("unexpected final url: %s", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(methods) != 1 || methods[0] != http.MethodHead {
		t.Fatalf("expected one HEAD request, got %v", methods)
	}
}

func TestExpandFallsBackToGet(t *testing.T) {
	t.Parallel()

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer target.Close()

	shortener := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		http.Redirect(w, r, target.URL+"/paper.pdf", http.StatusFound)
	}))
	defer shortener.Close()

	got, err := newTestResolver(t, shortener).Expand(context.Background(), shortener.URL+"/x")
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	if got != target.URL+"/paper.pdf" {
		t.Fatalf("unexpected final url: %s", got)
	}
}

func TestExpandLeavesOtherHostsAlone(t *testing.T) {
	t.Parallel()

	res := NewHeadResolver(config.RedirectConfig{ShortenerHosts: []string{"lnkd.in"}}, nil)

	for _, link := range []string{"https://arxiv.org/abs/1", "", "::not a url"} {
		got, err := res.Expand(context.Background(), link)
		if err != nil || got != link {
			t.Fatalf("Expand(%q) = %q, %v", link, got, err)
		}
	}
}

func TestExpandReportsErrorStatus(t *testing.T) {
	t.Parallel()

	shortener := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer shortener.Close()

	link := shortener.URL + "/gone"
	got, err := newTestResolver(t, shortener).Expand(context.Background(), link)
	if err == nil {
		t.Fatalf("expected error for 404")
	}
	if got != link {
		t.Fatalf("original link should be returned on failure, got %s", got)
	}
}

func TestNewHeadResolverLeavesCallerClientAlone(t *testing.T) {
	t.Parallel()

	caller := &http.Client{}
	res := NewHeadResolver(config.RedirectConfig{}, caller)

	if caller.CheckRedirect != nil {
		t.Fatalf("caller client redirect policy was modified")
	}
	if res.client == caller || res.client.CheckRedirect == nil {
		t.Fatalf("resolver should own a copy with its redirect policy")
	}
}
