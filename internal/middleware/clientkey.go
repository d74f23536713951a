package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// clientKeyCtxKey is the Gin context key holding the derived throttle key.
const clientKeyCtxKey = "client_key"

// UnknownClientKey is the shared bucket for origin-less clients. Deliberate
// conservative default: clients that hide their origin throttle together.
const UnknownClientKey = "unknown"

// ClientKeyMiddleware derives the rate-limiter key for the request:
// first hop of X-Forwarded-For, else the direct connection address, else
// the shared "unknown" bucket.
func ClientKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(clientKeyCtxKey, deriveClientKey(c))
		c.Next()
	}
}

// ClientKey returns the derived throttle key from the request context.
func ClientKey(c *gin.Context) string {
	v, _ := c.Get(clientKeyCtxKey)
	s, _ := v.(string)
	if s == "" {
		return UnknownClientKey
	}
	return s
}

func deriveClientKey(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		// First entry is the original client; later hops are proxies.
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}

	remote := strings.TrimSpace(c.Request.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
		return host
	}
	if remote != "" {
		return remote
	}
	return UnknownClientKey
}
