// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements CaptureBody, which caps the request body size and
// buffers the body once so that both the validation stage and the error
// dispatcher (for its log record) can read it.
package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-events-backend/internal/apperr"
)

// ctxKeyBody is the Gin context key holding the buffered request body.
const ctxKeyBody = "request.body"

// CaptureBody reads up to maxBytes of the request body, stores it in the Gin
// context and rewinds c.Request.Body. Oversized bodies abort the request with
// a classified 413 failure; other read errors are recorded unclassified.
func CaptureBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}

		data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				_ = c.Error(apperr.PayloadTooLarge(err))
			} else {
				_ = c.Error(err)
			}
			c.Abort()
			return
		}

		c.Set(ctxKeyBody, data)
		c.Request.Body = io.NopCloser(bytes.NewReader(data))
		c.Next()
	}
}

// BodyFrom returns the buffered request body, or nil when CaptureBody did not
// run or the request had no body.
func BodyFrom(c *gin.Context) []byte {
	if v, ok := c.Get(ctxKeyBody); ok {
		if b, ok := v.([]byte); ok {
			return b
		}
	}
	return nil
}
