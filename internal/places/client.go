package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const maxDocumentBytes = 1 << 20

// Client fetches raw opening-hours documents from a places-directory API.
type Client struct {
	endpoint   string
	apiKey     string
	fieldMask  string
	httpClient *http.Client
	limiter    *rate.Limiter

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client for the place details endpoint.
func NewClient(endpoint, apiKey, fieldMask string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		fieldMask:  fieldMask,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UseRedisCache configures optional Redis caching of the raw document.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseRateLimit caps upstream requests to perMinute. Cache hits are free.
func (c *Client) UseRateLimit(perMinute float64) {
	if perMinute <= 0 {
		c.limiter = nil
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(perMinute/60), 1)
}

// Name identifies the source in logs and storage.
func (c *Client) Name() string {
	return c.endpoint
}

// Fetch returns the raw document bytes.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	cacheKey := "places:document:" + c.endpoint
	if data, ok := c.readCache(ctx, cacheKey); ok {
		return data, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	data, err := c.doGet(ctx)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, data)
	return data, nil
}

func (c *Client) doGet(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}
	c.addHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch document: http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("fetch document: response is not valid JSON")
	}
	return data, nil
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Goog-Api-Key", c.apiKey)
	}
	if c.fieldMask != "" {
		req.Header.Set("X-Goog-FieldMask", c.fieldMask)
	}
}

func (c *Client) readCache(ctx context.Context, key string) ([]byte, bool) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return nil, false
	}
	val, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *Client) writeCache(ctx context.Context, key string, data []byte) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

// FileSource reads a document previously saved to disk.
type FileSource struct {
	Path string
}

func (f FileSource) Name() string {
	return "file:" + f.Path
}

func (f FileSource) Fetch(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read document file: %w", err)
	}
	return data, nil
}
