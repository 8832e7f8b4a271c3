package middleware

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/romastokriceri/mystorage/internal/config"
)

// captureWriter duplicates the response into a buffer while forwarding
// it to the client, so successful bodies can be stored in Redis.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.size < cw.limit {
		remain := cw.limit - cw.size
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// cacheKey builds the Redis key for a request. The authenticated user
// id is always part of the key: box and item listings differ per user,
// and a shared key would leak one user's boxes to another.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	var uid uint64
	if v, ok := c.Get(ContextUserID).(uint64); ok {
		uid = v
	}
	h := sha1.New()
	h.Write([]byte(c.Request().Method))
	h.Write([]byte{0})
	h.Write([]byte(c.Path()))
	h.Write([]byte{0})
	h.Write([]byte(c.QueryString()))
	digest := hex.EncodeToString(h.Sum(nil))
	return cfg.Prefix + ":" + strconv.FormatUint(uid, 10) + ":" + digest
}

// ResponseCache returns middleware that serves cached JSON bodies for
// configured methods (normally just GET) and stores fresh 200 responses
// with the configured TTL. Mutating requests pass straight through.
// Staleness is bounded by the TTL; a freshly granted or revoked share
// may take up to that long to show in listings, which is acceptable for
// the short TTLs this middleware is configured with.
func ResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rdb == nil || !cfg.Enabled || !cfg.Methods[c.Request().Method] {
				return next(c)
			}
			key := cacheKey(cfg, c)
			ctx := c.Request().Context()

			if body, err := rdb.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
				c.Response().Header().Set("X-Cache", "HIT")
				return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
			}

			cw := &captureWriter{
				ResponseWriter: c.Response().Writer,
				status:         http.StatusOK,
				limit:          int64(cfg.MaxBodyBytes),
			}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK && cw.size <= cw.limit {
				// Best effort: a failed SET only costs a future miss.
				rdb.Set(ctx, key, cw.buf.Bytes(), cfg.TTL)
			}
			return nil
		}
	}
}
