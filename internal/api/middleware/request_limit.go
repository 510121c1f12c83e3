package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultMaxRequestSize bounds panel API request bodies. Settings
// payloads are tiny JSON documents; anything near this limit is abuse.
const DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

// RequestSizeLimitMiddleware limits request body size. http.MaxBytesReader
// returns 413 when the limit is exceeded and closes the connection to
// stop slow-reading attacks.
func RequestSizeLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
