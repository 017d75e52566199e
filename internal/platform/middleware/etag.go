package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// ETagConfig controls conditional GET handling for read-only resources.
type ETagConfig struct {
	// MaxAge is the Cache-Control max-age in seconds. Zero omits it.
	MaxAge int
}

// etagWriter holds the body back until the tag is known.
type etagWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (w *etagWriter) Write(b []byte) (int, error) { return w.body.Write(b) }
func (w *etagWriter) WriteHeader(code int)        { w.status = code }
func (w *etagWriter) Flush()                      {}

// ETag tags successful GET and HEAD responses with a strong entity tag
// derived from the body and answers a matching If-None-Match with 304.
func ETag(cfg ETagConfig) echo.MiddlewareFunc {
	cacheControl := "no-cache"
	if cfg.MaxAge > 0 {
		cacheControl = "public, max-age=" + strconv.Itoa(cfg.MaxAge)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				return next(c)
			}

			res := c.Response()
			orig := res.Writer
			w := &etagWriter{ResponseWriter: orig, status: http.StatusOK}
			res.Writer = w
			err := next(c)
			res.Writer = orig
			if err != nil {
				return err
			}

			if w.status != http.StatusOK {
				orig.WriteHeader(w.status)
				_, err := orig.Write(w.body.Bytes())
				return err
			}

			tag := entityTag(w.body.Bytes())
			orig.Header().Set("ETag", tag)
			orig.Header().Set(echo.HeaderCacheControl, cacheControl)

			if matchesETag(req.Header.Get("If-None-Match"), tag) {
				orig.Header().Del(echo.HeaderContentLength)
				orig.Header().Del(echo.HeaderContentType)
				res.Status = http.StatusNotModified
				orig.WriteHeader(http.StatusNotModified)
				return nil
			}

			orig.WriteHeader(http.StatusOK)
			_, err = orig.Write(w.body.Bytes())
			return err
		}
	}
}

func entityTag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// matchesETag reports whether an If-None-Match header names tag. Weak
// validators compare equal to their strong form.
func matchesETag(header, tag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == tag {
			return true
		}
	}
	return false
}
