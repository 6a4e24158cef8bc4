package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/noah-isme/backend-kasir/internal/resilience"
)

// HTTPSource pulls product definitions from the store backend. Lookups run
// behind a circuit breaker so a dead store link degrades to cache misses
// instead of hanging the lane.
type HTTPSource struct {
	BaseURL     string
	Client      *http.Client
	Breaker     *resilience.Breaker
	MaxAttempts int
	BaseBackoff time.Duration
}

// Product implements Source against GET {base}/products/{id}.
func (s *HTTPSource) Product(ctx context.Context, id string) (Product, error) {
	if s == nil || s.BaseURL == "" {
		return Product{}, errors.New("catalog: http source not configured")
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	maxAttempts := s.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	endpoint := s.BaseURL + "/products/" + url.PathEscape(id)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if s.Breaker != nil && !s.Breaker.Allow(ctx) {
			return Product{}, resilience.ErrOpenCircuit
		}
		p, err := s.fetch(ctx, client, endpoint)
		if err == nil {
			s.report(ctx, true)
			return p, nil
		}
		if errors.Is(err, ErrNotFound) {
			// a missing product is an answer, not an outage
			s.report(ctx, true)
			return Product{}, err
		}
		s.report(ctx, false)
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		timer := time.NewTimer(resilience.Backoff(s.BaseBackoff, attempt, 0.2))
		select {
		case <-ctx.Done():
			timer.Stop()
			return Product{}, ctx.Err()
		case <-timer.C:
		}
	}
	return Product{}, fmt.Errorf("catalog: fetch %s: %w", id, lastErr)
}

func (s *HTTPSource) fetch(ctx context.Context, client *http.Client, endpoint string) (Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Product{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Product{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Product{}, ErrNotFound
	case resp.StatusCode >= 300:
		return Product{}, errors.New(resp.Status)
	}
	var p Product
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *HTTPSource) report(ctx context.Context, ok bool) {
	if s.Breaker != nil {
		s.Breaker.Report(ctx, ok)
	}
}
