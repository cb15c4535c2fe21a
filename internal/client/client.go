// Package client fetches the offer feed from the upstream endpoint.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/cache"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/models"
)

// ErrMissingOffersKey is returned when the feed payload has no top-level
// "offers" key. An empty offers array is fine; a missing key is not.
var ErrMissingOffersKey = errors.New("client: payload is missing the offers key")

// StatusError reports a non-200 response from the feed endpoint.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client: feed returned status %d for %s", e.StatusCode, e.URL)
}

// Option configures an OffersClient.
type Option func(*OffersClient)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *OffersClient) { c.httpClient = hc }
}

// WithCache enables cache-aside reads of the feed payload with the given TTL.
func WithCache(store cache.Cache, ttl time.Duration) Option {
	return func(c *OffersClient) {
		c.cache = store
		c.cacheTTL = ttl
	}
}

// WithLenientStatus restores the legacy behavior of logging a warning on a
// non-200 response and decoding the body anyway, instead of failing. Off
// by default; kept only for parity with the old ingest script.
func WithLenientStatus() Option {
	return func(c *OffersClient) { c.lenientStatus = true }
}

// OffersClient performs the single blocking GET against the feed URL.
type OffersClient struct {
	url           string
	httpClient    *http.Client
	cache         cache.Cache
	cacheTTL      time.Duration
	lenientStatus bool
}

// New creates an offers client for the given feed URL.
func New(url string, opts ...Option) *OffersClient {
	c := &OffersClient{
		url:        url,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the configured feed URL.
func (c *OffersClient) URL() string { return c.url }

// FetchOffers retrieves and decodes the offer list. With a cache
// configured it serves from cache first and stores fresh payloads after
// a successful fetch.
func (c *OffersClient) FetchOffers(ctx context.Context) ([]models.Offer, error) {
	if c.cache != nil {
		var cached []models.Offer
		err := cache.GetJSON(ctx, c.cache, cache.OffersKey(c.url), &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			log.Printf("offers cache read failed, falling through to fetch: %v", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("client: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: fetching offers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if !c.lenientStatus {
			return nil, &StatusError{StatusCode: resp.StatusCode, URL: c.url}
		}
		log.Printf("WARNING: feed returned status %d for %s, decoding anyway", resp.StatusCode, c.url)
	}

	offers, err := decodePayload(resp.Body)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := cache.SetJSON(ctx, c.cache, cache.OffersKey(c.url), offers, c.cacheTTL); err != nil {
			log.Printf("offers cache write failed: %v", err)
		}
	}
	return offers, nil
}

// decodePayload decodes the feed body, distinguishing a missing offers
// key from an empty offers array.
func decodePayload(r io.Reader) ([]models.Offer, error) {
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("client: decoding payload: %w", err)
	}

	raw, ok := payload["offers"]
	if !ok {
		return nil, ErrMissingOffersKey
	}

	var offers []models.Offer
	if err := json.Unmarshal(raw, &offers); err != nil {
		return nil, fmt.Errorf("client: decoding offers: %w", err)
	}
	return offers, nil
}
