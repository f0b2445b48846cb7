package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bluele/gcache"
	"github.com/cenkalti/backoff/v4"

	"github.com/citec-spbu/Transport/internal/database"
)

// ResponseStore is the persistent response tier.
// *database.CrawlDB satisfies it.
type ResponseStore interface {
	GetResponse(ctx context.Context, key string, maxAge time.Duration) (*database.CachedResponse, error)
	PutResponse(ctx context.Context, resp *database.CachedResponse) error
}

// Response is a successfully fetched page.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
	FetchedAt  time.Time

	// FromCache is true when no network request was made.
	FromCache bool
}

// Stats counts client activity since creation.
type Stats struct {
	Requests    int64
	NetworkHits int64
	MemoryHits  int64
	StoreHits   int64
	Retries     int64
	Failures    int64
}

// Client fetches pages through an in-memory LRU, a persistent store and
// finally the network, retrying transient failures with exponential backoff.
// A Client is safe for concurrent use.
type Client struct {
	http   *http.Client
	store  ResponseStore
	memory gcache.Cache
	logger *slog.Logger

	timeout       time.Duration
	maxAge        time.Duration
	maxRetries    int
	retryInterval time.Duration
	maxBodySize   int64
	readCache     bool
	offline       bool

	requests    atomic.Int64
	networkHits atomic.Int64
	memoryHits  atomic.Int64
	storeHits   atomic.Int64
	retries     atomic.Int64
	failures    atomic.Int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithStore sets the persistent response tier.
func WithStore(store ResponseStore) ClientOption {
	return func(c *Client) {
		c.store = store
	}
}

// WithMemoryCache sets the LRU capacity. Zero disables the memory tier.
func WithMemoryCache(size int) ClientOption {
	return func(c *Client) {
		if size <= 0 {
			c.memory = nil
			return
		}
		c.memory = gcache.New(size).LRU().Build()
	}
}

// WithTimeout sets the deadline of a single request attempt.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxAge sets how long cached responses stay fresh.
func WithMaxAge(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxAge = d
	}
}

// WithRetry sets the retry budget and the first backoff interval.
func WithRetry(maxRetries int, interval time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryInterval = interval
	}
}

// WithMaxBodySize limits how many bytes of a body are read.
func WithMaxBodySize(size int64) ClientOption {
	return func(c *Client) {
		c.maxBodySize = size
	}
}

// WithReadCache toggles lookups in the cache tiers. Responses are
// stored either way.
func WithReadCache(enabled bool) ClientOption {
	return func(c *Client) {
		c.readCache = enabled
	}
}

// WithOffline disables the network. Cached responses of any age are served.
func WithOffline(offline bool) ClientOption {
	return func(c *Client) {
		c.offline = offline
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client on top of httpClient.
func NewClient(httpClient *http.Client, opts ...ClientOption) *Client {
	c := &Client{
		http:          httpClient,
		memory:        gcache.New(512).LRU().Build(),
		logger:        slog.Default(),
		timeout:       10 * time.Second,
		maxAge:        30 * 24 * time.Hour,
		maxRetries:    5,
		retryInterval: 2 * time.Second,
		maxBodySize:   5 * 1024 * 1024,
		readCache:     true,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch returns the body of rawURL.
// Any failure is reported as an error wrapping ErrUnavailable.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	return c.FetchWithTimeout(ctx, rawURL, 0)
}

// FetchWithTimeout is Fetch with a per-attempt deadline that replaces the
// client timeout when positive.
func (c *Client) FetchWithTimeout(ctx context.Context, rawURL string, timeout time.Duration) (*Response, error) {
	key := database.ResponseKey(rawURL)

	if resp := c.lookup(ctx, key); resp != nil {
		return resp, nil
	}

	if c.offline {
		c.failures.Add(1)
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, rawURL, ErrOffline)
	}

	resp, err := c.retrieve(ctx, rawURL, timeout)
	if err != nil {
		c.failures.Add(1)
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, rawURL, err)
	}
	c.networkHits.Add(1)
	c.remember(ctx, key, resp)

	return resp, nil
}

// Stats returns a snapshot of the client counters.
func (c *Client) Stats() Stats {
	return Stats{
		Requests:    c.requests.Load(),
		NetworkHits: c.networkHits.Load(),
		MemoryHits:  c.memoryHits.Load(),
		StoreHits:   c.storeHits.Load(),
		Retries:     c.retries.Load(),
		Failures:    c.failures.Load(),
	}
}

func (c *Client) cacheAge() time.Duration {
	if c.offline {
		return time.Duration(math.MaxInt64)
	}
	return c.maxAge
}

func (c *Client) lookup(ctx context.Context, key string) *Response {
	if !c.readCache && !c.offline {
		return nil
	}

	if c.memory != nil {
		if v, err := c.memory.Get(key); err == nil {
			if resp, ok := v.(*Response); ok && time.Since(resp.FetchedAt) <= c.cacheAge() {
				c.memoryHits.Add(1)
				hit := *resp
				hit.FromCache = true
				return &hit
			}
		}
	}

	if c.store == nil {
		return nil
	}
	cached, err := c.store.GetResponse(ctx, key, c.cacheAge())
	if err != nil {
		c.logger.Debug("response store lookup failed", "error", err)
		return nil
	}
	if cached == nil {
		return nil
	}

	c.storeHits.Add(1)
	resp := &Response{
		URL:        cached.URL,
		StatusCode: cached.StatusCode,
		Body:       cached.Body,
		FetchedAt:  cached.FetchedAt,
		FromCache:  true,
	}
	if c.memory != nil {
		_ = c.memory.Set(key, resp)
	}
	return resp
}

func (c *Client) remember(ctx context.Context, key string, resp *Response) {
	if c.memory != nil {
		_ = c.memory.Set(key, resp)
	}
	if c.store == nil {
		return
	}
	err := c.store.PutResponse(ctx, &database.CachedResponse{
		Key:        key,
		URL:        resp.URL,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		FetchedAt:  resp.FetchedAt,
	})
	if err != nil {
		c.logger.Warn("failed to store response", "url", resp.URL, "error", err)
	}
}

// retrieve performs the GET with retries on transport errors and on
// 500, 502, 503 and 504. Other statuses fail immediately.
func (c *Client) retrieve(ctx context.Context, rawURL string, timeout time.Duration) (*Response, error) {
	operation := func() (*Response, error) {
		c.requests.Add(1)
		resp, err := c.get(ctx, rawURL, timeout)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		var se *StatusError
		if errors.As(err, &se) && !IsRetryableStatus(se.StatusCode) {
			return nil, backoff.Permanent(err)
		}
		if errors.Is(err, ErrBodyTooLarge) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	notify := func(err error, wait time.Duration) {
		c.retries.Add(1)
		c.logger.Info("retrying request", "url", rawURL, "wait", wait, "error", err)
	}

	return backoff.RetryNotifyWithData(operation, c.newBackOff(ctx), notify)
}

// newBackOff returns a policy waiting interval, 2x interval, 4x interval...
// for at most maxRetries retries.
func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = c.retryInterval << 6
	b.MaxElapsedTime = 0
	b.Reset()

	retries := c.maxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

func (c *Client) get(ctx context.Context, rawURL string, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, ErrBodyTooLarge
	}

	c.logger.Debug("fetched page", "url", rawURL, "bytes", len(body))

	return &Response{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Body:       body,
		FetchedAt:  time.Now(),
	}, nil
}
