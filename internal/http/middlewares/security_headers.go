package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	apiCSP = "default-src 'none'; frame-ancestors 'none'"
	// ticket PNGs are rendered inline by scanner UIs
	ticketImageCSP = "default-src 'none'; img-src 'self' data:; frame-ancestors 'none'"
)

type SecurityOptions struct {
	// HSTS adds Strict-Transport-Security. Off in dev.
	HSTS bool
}

// SecurityHeaders sets the response headers every route shares. Responses
// are not cacheable unless a handler overrides Cache-Control (ETag reads,
// ticket images).
func SecurityHeaders(opts SecurityOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Resource-Policy", "same-site")
		h.Set("Cache-Control", "no-store")
		if opts.HSTS {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		if strings.HasPrefix(c.Request.URL.Path, "/registrations/qrcode/") && strings.HasSuffix(c.Request.URL.Path, "/png") {
			h.Set("Content-Security-Policy", ticketImageCSP)
		} else {
			h.Set("Content-Security-Policy", apiCSP)
		}
		c.Next()
	}
}
