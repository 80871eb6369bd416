package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-events-backend/internal/apperr"
	"github.com/tbourn/go-events-backend/internal/http/middleware"
	"github.com/tbourn/go-events-backend/internal/validation"
)

// rawBody returns the buffered body from CaptureBody, reading the request
// directly when the middleware did not run.
func rawBody(c *gin.Context) ([]byte, error) {
	if b := middleware.BodyFrom(c); b != nil {
		return b, nil
	}
	if c.Request.Body == nil {
		return nil, nil
	}
	return io.ReadAll(c.Request.Body)
}

// decodeJSON parses a JSON body into a generic value, keeping numbers as
// json.Number so integer fields are not rounded through float64. An empty
// body decodes to nil.
func decodeJSON(b []byte) (any, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errTrailingData
	}
	return v, nil
}

var errTrailingData = errors.New("unexpected data after JSON body")

// bindBody validates the JSON body against schema and decodes it into dst.
func (h *Handlers) bindBody(c *gin.Context, schema validation.Schema, dst any) error {
	b, err := rawBody(c)
	if err != nil {
		return err
	}
	v, err := decodeJSON(b)
	if err != nil {
		return apperr.Wrap(err, http.StatusBadRequest, apperr.CodeBadRequest, "malformed JSON body")
	}
	return h.validator.Decode(schema, v, dst)
}

// bindQuery validates the query string against schema and decodes it into dst.
func (h *Handlers) bindQuery(c *gin.Context, schema validation.Schema, dst any) error {
	return h.validator.Decode(schema, validation.FromValues(c.Request.URL.Query()), dst)
}

// bindPath validates the route parameters against schema and decodes them
// into dst.
func (h *Handlers) bindPath(c *gin.Context, schema validation.Schema, dst any) error {
	params := make(map[string]any, len(c.Params))
	for _, p := range c.Params {
		params[p.Key] = p.Value
	}
	return h.validator.Decode(schema, params, dst)
}
