package middlewares

import (
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireJSON guards the registration write routes. The body must be
// declared as application/json (or a +json type) and, when a charset is
// given, it must be UTF-8.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		mt, params, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
		if err != nil || !isJSONMediaType(mt) {
			abortWithError(c, http.StatusUnsupportedMediaType, "unsupported_media_type",
				"Content-Type must be application/json")
			return
		}
		if cs, ok := params["charset"]; ok && !strings.EqualFold(cs, "utf-8") {
			abortWithError(c, http.StatusUnsupportedMediaType, "unsupported_media_type",
				"Request bodies must be UTF-8 encoded JSON")
			return
		}
		c.Next()
	}
}

func isJSONMediaType(mt string) bool {
	return mt == "application/json" || (strings.HasPrefix(mt, "application/") && strings.HasSuffix(mt, "+json"))
}
