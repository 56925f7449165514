package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-grading-api/pkg/middleware/requestid"
)

const (
	responseMetaKey  = "response_meta"
	responseStartKey = "response_meta_start"
	cacheHitKey      = "cache_hit"
)

// WithResponseMeta starts the metadata that cached class views attach to
// their envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit records whether the payload was served from the averages cache.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)[cacheHitKey] = hit
}

// ExtractMeta returns the metadata stored on the context, stamped with the
// time spent so far and the request id. Nil when nothing was recorded.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta, ok := storedMeta(c)
	if !ok {
		return nil
	}
	if v, exists := c.Get(responseStartKey); exists {
		if start, ok := v.(time.Time); ok {
			meta["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
	if reqID := requestid.Value(c); reqID != "" {
		meta["request_id"] = reqID
	}
	return meta
}

func storedMeta(c *gin.Context) (map[string]interface{}, bool) {
	v, exists := c.Get(responseMetaKey)
	if !exists {
		return nil, false
	}
	meta, ok := v.(map[string]interface{})
	return meta, ok
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta, ok := storedMeta(c); ok {
		return meta
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
