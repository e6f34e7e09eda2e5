// Package backend is the typed HTTP client of the club's booking backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tennisluv/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
	cachePrefix    = "tennisluv:backend:"
)

// Client calls the booking backend. Every authenticated call takes the session's
// bearer token explicitly; the client holds no per-user state.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration

	now func() time.Time
}

// NewClient constructs a client with baseURL and request timeout (10s when 0).
func NewClient(baseURL string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "backend").Logger()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     l,
		now:        time.Now,
	}
}

// UseRedisCache configures optional Redis caching for catalog-like reads.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// checkToken rejects missing and locally expired tokens without a round trip.
func (c *Client) checkToken(token string) error {
	if TokenExpired(token, c.now()) {
		return &APIError{Status: http.StatusUnauthorized, kind: ErrAuthExpired}
	}
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, cachePrefix+key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(val, out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, cachePrefix+key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (c *Client) doGet(ctx context.Context, op, path, token string, out any) error {
	return c.doJSON(ctx, op, http.MethodGet, path, token, nil, out)
}

func (c *Client) doPost(ctx context.Context, op, path, token string, body, out any) error {
	return c.doJSON(ctx, op, http.MethodPost, path, token, body, out)
}

func (c *Client) doPut(ctx context.Context, op, path, token string, body, out any) error {
	return c.doJSON(ctx, op, http.MethodPut, path, token, body, out)
}

func (c *Client) doDelete(ctx context.Context, op, path, token string) error {
	return c.doJSON(ctx, op, http.MethodDelete, path, token, nil, nil)
}

func (c *Client) doJSON(ctx context.Context, op, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req, op, out)
}

// do sends req and decodes a 2xx body into out. A *string out receives the raw
// body, which some endpoints use for plain-text confirmations.
func (c *Client) do(req *http.Request, op string, out any) (err error) {
	start := c.now()
	defer func() {
		metrics.ObserveBackend(op, Outcome(err), c.now().Sub(start))
		ev := c.logger.Debug()
		if err != nil {
			ev = c.logger.Warn().Err(err)
		}
		ev.Str("op", op).Str("method", req.Method).Str("path", req.URL.Path).
			Dur("duration", c.now().Sub(start)).Msg("backend call")
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return req.Context().Err()
		}
		return transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return transportError(err)
	}
	if resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if s, ok := out.(*string); ok {
		*s = strings.TrimSpace(string(data))
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Status: resp.StatusCode, kind: ErrServer, Message: fmt.Sprintf("decode %s response: %v", op, err)}
	}
	return nil
}
