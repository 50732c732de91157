package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rateLimitPrefix = "yourauth:ratelimit"

// rateLimit counts requests per developer and client IP in fixed windows.
// A caller over the limit is blocked for BlockDuration. Redis failures let
// traffic through.
func (a *API) rateLimit(next http.Handler) http.Handler {
	rdb := a.opts.Redis
	if rdb == nil {
		return next
	}
	limit := a.opts.RateLimit
	window := a.opts.RateWindow
	blockDuration := a.opts.BlockDuration

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		clientID := "ip:" + clientIP(r)
		if dev := developerFrom(r); dev != nil {
			clientID = "dev:" + dev.ID + ":" + clientID
		}
		key := rateLimitPrefix + ":" + clientID
		blockKey := key + ":blocked"

		blocked, err := rdb.Get(ctx, blockKey).Result()
		if err == nil && blocked == "1" {
			ttl, _ := rdb.TTL(ctx, blockKey).Result()
			w.Header().Set("Retry-After", strconv.Itoa(int(ttl/time.Second)))
			writeStatus(w, http.StatusTooManyRequests, "too many requests, try again in "+ttl.String())
			return
		}

		// the window expiry is set in the same transaction as the increment,
		// so a counter never outlives its window
		var incr *redis.IntCmd
		var expire *redis.BoolCmd
		_, err = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			expire = pipe.ExpireNX(ctx, key, window)
			return nil
		})
		if err != nil {
			a.logger.Warn("rate limiter unavailable", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if err := expire.Err(); err != nil {
			a.logger.Warn("failed to set rate limit window", zap.String("key", key), zap.Error(err))
		}
		count := incr.Val()

		if count > int64(limit) {
			if err := rdb.Set(ctx, blockKey, "1", blockDuration).Err(); err != nil {
				a.logger.Warn("failed to block client", zap.String("key", blockKey), zap.Error(err))
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(blockDuration/time.Second)))
			writeStatus(w, http.StatusTooManyRequests, "too many requests, blocked for "+blockDuration.String())
			return
		}

		ttl, _ := rdb.TTL(ctx, key).Result()
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit-int(count)))
		w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(ttl/time.Second)))

		next.ServeHTTP(w, r)
	})
}
