// Package redirect expands shortened links by following HTTP redirects.
package redirect

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ResearchPosts/internal/config"
	"ResearchPosts/internal/ports"
)

const maxRedirects = 10

// HeadResolver issues HEAD requests against shortener hosts and reports the final URL.
// Links on other hosts are returned untouched without network I/O.
type HeadResolver struct {
	client  *http.Client
	limiter *rate.Limiter
	hosts   map[string]struct{}
}

var _ ports.RedirectResolver = (*HeadResolver)(nil)

// NewHeadResolver builds a resolver from configuration. A nil client gets the configured timeout;
// a given client is copied so the caller's redirect policy is left untouched.
func NewHeadResolver(cfg config.RedirectConfig, base *http.Client) *HeadResolver {
	var client *http.Client
	if base != nil {
		copied := *base
		client = &copied
	} else {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	hosts := make(map[string]struct{}, len(cfg.ShortenerHosts))
	for _, h := range cfg.ShortenerHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts[h] = struct{}{}
		}
	}

	return &HeadResolver{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		hosts:   hosts,
	}
}

// Expand returns the final URL behind link.
func (r *HeadResolver) Expand(ctx context.Context, link string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil || !r.isShortener(parsed.Hostname()) {
		return link, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return link, fmt.Errorf("wait for redirect slot: %w", err)
	}

	final, status, err := r.follow(ctx, http.MethodHead, parsed.String())
	if err == nil && status == http.StatusMethodNotAllowed {
		final, status, err = r.follow(ctx, http.MethodGet, parsed.String())
	}
	if err != nil {
		return link, err
	}
	if status >= http.StatusBadRequest {
		return link, fmt.Errorf("expand %s: status %d", link, status)
	}

	return final, nil
}

func (r *HeadResolver) follow(ctx context.Context, method, link string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, link, nil)
	if err != nil {
		return "", 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "ResearchPosts/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("expand %s: %w", link, err)
	}
	defer resp.Body.Close()

	return resp.Request.URL.String(), resp.StatusCode, nil
}

func (r *HeadResolver) isShortener(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	_, ok := r.hosts[host]
	return ok
}
