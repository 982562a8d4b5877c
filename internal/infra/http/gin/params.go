package ginserver

import (
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
)

const idempotencyHeader = "Idempotency-Key"

func requestKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(idempotencyHeader))
}

// Numeric query params are lenient: garbage and negatives read as zero and
// the domain normalisation applies its own defaults.

func queryInt(c *gin.Context, name string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(c.Query(name)))
	return max(n, 0)
}

func queryIntOr(c *gin.Context, name string, fallback int) int {
	if n := queryInt(c, name); n > 0 {
		return n
	}
	return fallback
}

func queryCents(c *gin.Context, name string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(c.Query(name)), 10, 64)
	return max(n, 0)
}

func queryBool(c *gin.Context, name string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(c.Query(name)))
	return b
}

// queryTime accepts RFC3339 or a plain date. ok is false only for a value
// that is present but unparsable.
func queryTime(c *gin.Context, name string) (t time.Time, ok bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return time.Time{}, true
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}
