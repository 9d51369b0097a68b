package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Versioned payloads supply their own validator instead of being hashed.
type Versioned interface {
	Version() string
}

func RespondJSONWithETag(ctx *gin.Context, status int, payload interface{}) {
	etag, err := etagFor(payload)
	if err != nil {
		ctx.JSON(status, payload)
		return
	}

	ctx.Header("ETag", etag)
	ctx.Header("Cache-Control", "private, no-cache")

	if ifNoneMatchMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(status, payload)
}

func etagFor(payload interface{}) (string, error) {
	if v, ok := payload.(Versioned); ok {
		return `W/"` + v.Version() + `"`, nil
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}

// ifNoneMatchMatches uses weak comparison, which is what GET revalidation
// calls for.
func ifNoneMatchMatches(header, current string) bool {
	header = strings.TrimSpace(header)
	if header == "" || current == "" {
		return false
	}
	if header == "*" {
		return true
	}

	want := opaqueTag(current)
	for _, part := range strings.Split(header, ",") {
		if opaqueTag(part) == want {
			return true
		}
	}
	return false
}

func opaqueTag(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "W/")
}
