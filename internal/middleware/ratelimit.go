package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/config"
)

// gcra keeps one theoretical arrival time per key.  A request is let in
// when the arrival time it would push the key to stays within burst
// emission intervals of now.  Returns {allowed, remaining, retry_ms}.
var gcra = redis.NewScript(`
local now = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local emission = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local tat = tonumber(redis.call('GET', KEYS[1]) or now)
if tat < now then
	tat = now
end
local next_tat = tat + emission
local allow_at = next_tat - burst * emission
if allow_at > now then
	return {0, 0, allow_at - now}
end
redis.call('SET', KEYS[1], next_tat, 'PX', math.max(ttl, next_tat - now))
return {1, math.floor((now - allow_at) / emission), 0}
`)

// quota is one limiter decision.
type quota struct {
	limit     int
	remaining int64
	retry     time.Duration
}

func (q quota) allowed() bool { return q.retry <= 0 }

func (q quota) retrySeconds() int { return int(math.Ceil(q.retry.Seconds())) }

func (q quota) writeHeaders(h http.Header) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(q.limit))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(q.remaining, 10))
	if !q.allowed() {
		h.Set("Retry-After", strconv.Itoa(q.retrySeconds()))
	}
}

// emissionMillis is the time one token takes to come back.
func emissionMillis(cfg config.RateLimitConfig) int64 {
	per := int64(cfg.RefillTokens)
	if per < 1 {
		per = 1
	}
	ms := cfg.RefillInterval.Milliseconds() / per
	if ms < 1 {
		ms = 1
	}
	return ms
}

// NewTokenBucket limits requests per client IP and route, allowing
// bursts of cfg.Capacity.  Redis errors let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb redis.Scripter, log *logrus.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	emission := emissionMillis(cfg)
	ttl := cfg.TTL.Milliseconds()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg.Prefix, c)
			res, err := gcra.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(), cfg.Capacity, emission, ttl).Int64Slice()
			if err != nil || len(res) != 3 {
				log.WithFields(logrus.Fields{"key": key, "error": fmt.Sprint(err)}).Warn("rate limiter unavailable")
				return next(c)
			}
			q := quota{limit: cfg.Capacity, remaining: res[1]}
			if res[0] != 1 {
				q.retry = time.Duration(res[2]) * time.Millisecond
			}
			q.writeHeaders(c.Response().Header())
			if q.allowed() {
				return next(c)
			}
			log.WithFields(logrus.Fields{"key": key, "retry_after": q.retrySeconds()}).Info("rate limit exceeded")
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		}
	}
}

func rateKey(prefix string, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return strings.Join([]string{prefix, "ip", ip, "route", c.Request().Method + " " + c.Path()}, ":")
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
