package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hotel-reservation/internal/config"
)

// CacheStore is the Redis subset the response cache uses.
type CacheStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetEx(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// cachedResponse is what is stored under a cache key.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

func (r cachedResponse) marshal() ([]byte, error) { return json.Marshal(r) }

func unmarshalCached(bs []byte) (cachedResponse, bool) {
	var r cachedResponse
	if err := json.Unmarshal(bs, &r); err != nil || r.Status == 0 {
		return cachedResponse{}, false
	}
	return r, true
}

// replay writes a stored response.  Content-Length is left to the
// server since the body is written in one piece.
func (r cachedResponse) replay(c echo.Context) error {
	h := c.Response().Header()
	for k, vals := range r.Header {
		if k == echo.HeaderContentLength {
			continue
		}
		h[k] = append(h[k], vals...)
	}
	h.Set("X-Cache", "HIT")
	c.Response().WriteHeader(r.Status)
	_, err := c.Response().Write(r.Body)
	return err
}

// cappedBuffer keeps what is written to it until max bytes would be
// exceeded, then drops everything and stays spilled.
type cappedBuffer struct {
	bytes.Buffer
	max     int
	spilled bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.spilled {
		return len(p), nil
	}
	if b.max > 0 && b.Len()+len(p) > b.max {
		b.spilled = true
		b.Reset()
		return len(p), nil
	}
	return b.Buffer.Write(p)
}

// teeWriter copies the response body into a side writer.
type teeWriter struct {
	http.ResponseWriter
	body io.Writer
}

func (w teeWriter) Write(p []byte) (int, error) {
	_, _ = w.body.Write(p)
	return w.ResponseWriter.Write(p)
}

// cacheKey hashes method, route and raw query under the configured
// prefix.
func cacheKey(prefix string, c echo.Context) string {
	req := c.Request()
	sum := sha256.Sum256([]byte(req.Method + " " + c.Path() + "?" + req.URL.RawQuery))
	return prefix + ":" + hex.EncodeToString(sum[:16])
}

// NewRedisCache replays cached 200 responses for the configured methods.
// Misses and Redis errors fall through to the handler.
func NewRedisCache(cfg config.CacheConfig, rdb CacheStore) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			key := cacheKey(cfg.Prefix, c)
			if bs, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
				if cached, ok := unmarshalCached(bs); ok {
					return cached.replay(c)
				}
			}

			res := c.Response()
			buf := &cappedBuffer{max: cfg.MaxBodyBytes}
			res.Writer = teeWriter{ResponseWriter: res.Writer, body: buf}
			res.Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if res.Status != http.StatusOK || buf.spilled {
				return nil
			}
			stored := cachedResponse{Status: res.Status, Header: res.Header().Clone(), Body: buf.Bytes()}
			stored.Header.Del("X-Cache")
			if payload, err := stored.marshal(); err == nil {
				// The request context may be cancelled once the body is out.
				_ = rdb.SetEx(context.Background(), key, payload, cfg.TTL).Err()
			}
			return nil
		}
	}
}
