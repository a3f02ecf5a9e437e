// Package auth gates every route behind a single shared secret.
package auth

import (
	"crypto/subtle"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

// publicPaths lists the read-only binary-serving routes that stay reachable
// without the secret, so page images, covers and thumbnails can be embedded
// directly by a browser.
var publicPaths = regexp.MustCompile(`^/(?:books/[^/]+/(?:images/[^/]+|cover)|collections/[^/]+/thumbnail)$`)

// Middleware checks the Authorization header against the configured secret.
type Middleware struct {
	secret string
}

// NewMiddleware creates the shared-secret middleware.
func NewMiddleware(secret string) *Middleware {
	return &Middleware{secret: secret}
}

// Handler returns the gin middleware. GET requests to public asset paths
// bypass the check; everything else must present the exact secret.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet && publicPaths.MatchString(c.Request.URL.Path) {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if subtle.ConstantTimeCompare([]byte(header), []byte(m.secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
