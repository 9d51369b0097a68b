package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	RoleAdmin     = "admin"
	RoleOrganizer = "organizer"
)

// RequireRole admits callers holding any of the given roles.
func (m *AuthMiddleware) RequireRole(allowed ...string) gin.HandlerFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok || role == "" {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "Missing identity context")
			return
		}
		if _, ok := set[role]; !ok {
			abortAuth(c, http.StatusForbidden, "forbidden", "One of these roles is required: "+strings.Join(allowed, ", "))
			return
		}
		c.Next()
	}
}
