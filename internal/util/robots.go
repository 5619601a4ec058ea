package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsChecker answers whether a feed or API URL may be fetched under the
// host's robots.txt. Parsed policies are cached per host for the process
// lifetime; feed hosts rarely change their policy mid-run.
type RobotsChecker struct {
	mu         sync.RWMutex
	policies   map[string]*robotstxt.RobotsData
	httpClient *http.Client
	userAgent  string
}

// NewRobotsChecker creates a checker identifying itself with userAgent.
func NewRobotsChecker(userAgent string, timeout time.Duration) *RobotsChecker {
	return &RobotsChecker{
		policies:   make(map[string]*robotstxt.RobotsData),
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// CanFetch reports whether rawURL is fetchable and any crawl delay the host
// requests. An unreachable robots.txt allows the fetch: politeness must not
// turn into an availability dependency.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}

	policy, err := r.policyFor(ctx, parsed.Scheme, parsed.Host)
	if err != nil {
		return true, 0, nil
	}

	allowed := policy.TestAgent(parsed.Path, r.userAgent)

	var crawlDelay time.Duration
	if group := policy.FindGroup(r.userAgent); group != nil {
		crawlDelay = group.CrawlDelay
	}
	return allowed, crawlDelay, nil
}

// Clear drops all cached policies.
func (r *RobotsChecker) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies = make(map[string]*robotstxt.RobotsData)
}

func (r *RobotsChecker) policyFor(ctx context.Context, scheme, host string) (*robotstxt.RobotsData, error) {
	r.mu.RLock()
	policy, ok := r.policies[host]
	r.mu.RUnlock()
	if ok {
		return policy, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var policyErr error
	if resp.StatusCode == http.StatusNotFound {
		policy, policyErr = robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
	} else {
		policy, policyErr = robotstxt.FromResponse(resp)
	}
	if policyErr != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", policyErr)
	}

	r.mu.Lock()
	r.policies[host] = policy
	r.mu.Unlock()
	return policy, nil
}
