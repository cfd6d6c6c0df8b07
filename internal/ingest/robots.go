package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsChecker caches robots.txt verdicts per host. Fetch failures allow
// the URL; an unreachable robots.txt must not block a book download.
type robotsChecker struct {
	cache      map[string]*robotstxt.RobotsData
	mu         sync.RWMutex
	httpClient *http.Client
	agent      string
}

func newRobotsChecker(httpClient *http.Client, agent string) *robotsChecker {
	return &robotsChecker{
		cache:      make(map[string]*robotstxt.RobotsData),
		httpClient: httpClient,
		agent:      agent,
	}
}

// allowed reports whether robots.txt permits fetching the URL.
func (r *robotsChecker) allowed(ctx context.Context, parsed *url.URL) bool {
	data, err := r.robotsData(ctx, parsed)
	if err != nil {
		return true
	}
	return data.TestAgent(parsed.Path, r.agent)
}

func (r *robotsChecker) robotsData(ctx context.Context, parsed *url.URL) (*robotstxt.RobotsData, error) {
	r.mu.RLock()
	data, exists := r.cache[parsed.Host]
	r.mu.RUnlock()
	if exists {
		return data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", parsed.Scheme, parsed.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.agent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		data, _ := robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
		r.store(parsed.Host, data)
		return data, nil
	}

	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	r.store(parsed.Host, data)
	return data, nil
}

func (r *robotsChecker) store(host string, data *robotstxt.RobotsData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[host] = data
}

// robotsAgent reduces a User-Agent header to the product token robots.txt
// groups match against.
func robotsAgent(userAgent string) string {
	parts := strings.Fields(userAgent)
	if len(parts) == 0 {
		return userAgent
	}
	return strings.Split(parts[0], "/")[0]
}
