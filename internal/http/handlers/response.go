// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by every endpoint. Success
// bodies use the envelope package's {data, meta} shape. Failures are never
// rendered here: fail records the error on the Gin context and aborts, and
// the dispatcher middleware turns it into the error envelope and the log
// record.
//
// Example success response:
//
//	HTTP/1.1 201 Created
//	{
//	  "data": { "id": "7a8d9f4c-...", "name": "Athens", "country": "GR" },
//	  "meta": { "url": "/api/v1/cities", "method": "POST", "request_id": "...", "timestamp": "..." }
//	}
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-events-backend/internal/http/envelope"
	"github.com/tbourn/go-events-backend/internal/http/middleware"
)

// ErrorResponse documents the error envelope for OpenAPI. The runtime type is
// envelope.Error; message is either a string or a list of issues.
type ErrorResponse struct {
	Code    string        `json:"code,omitempty" example:"validation_failed"`
	Message any           `json:"message"`
	Meta    envelope.Meta `json:"meta"`
}

// fail hands err to the dispatcher and stops the handler chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Fail is the exported variant of fail() for router-level fallbacks.
func Fail(c *gin.Context, err error) { fail(c, err) }

// meta builds the envelope metadata for the current request.
func meta(c *gin.Context, now time.Time) envelope.Meta {
	return envelope.NewMeta(c.Request.URL.RequestURI(), c.Request.Method, middleware.RequestIDFrom(c), now)
}

// ok writes data wrapped in the success envelope.
func (h *Handlers) ok(c *gin.Context, status int, data any) {
	c.JSON(status, envelope.NewSuccess(data, meta(c, h.now())))
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
