package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adiwidodo/classadmin-api/internal/repository"
	"github.com/adiwidodo/classadmin-api/internal/service"
)

const cacheKeyPrefix = "resp:"

type bodyCaptureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// CachePage serves GET responses from Redis with a short TTL. Only
// collaborator listings sit behind this; the calendar endpoint stays
// uncached because materialization is a pure recomputation by design.
func CachePage(cache *repository.CacheRepository, ttl time.Duration, metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cache == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cacheKeyPrefix + c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			key += "?" + c.Request.URL.RawQuery
		}

		if payload, err := cache.GetBytes(c.Request.Context(), key); err == nil {
			metrics.RecordCacheOperation(true)
			c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
			c.Abort()
			return
		}
		metrics.RecordCacheOperation(false)

		writer := &bodyCaptureWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		if c.Writer.Status() == http.StatusOK {
			_ = cache.SetBytes(c.Request.Context(), key, writer.buf.Bytes(), ttl)
		}
	}
}

// InvalidateCache drops cached listings for a path prefix after a mutation.
func InvalidateCache(cache *repository.CacheRepository, pathPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if cache == nil || c.Request.Method == http.MethodGet {
			return
		}
		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		_ = cache.DeleteByPattern(c.Request.Context(), cacheKeyPrefix+pathPrefix+"*")
	}
}
