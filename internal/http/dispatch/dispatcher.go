package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-events-backend/internal/apperr"
	"github.com/tbourn/go-events-backend/internal/http/envelope"
	"github.com/tbourn/go-events-backend/internal/http/middleware"
)

const (
	categoryClassified   = "classified_failure"
	categoryUnclassified = "unclassified_failure"

	// DefaultGenericMessage is shown to clients for unclassified 5xx failures.
	DefaultGenericMessage = "internal server error"
)

// DefaultPassThrough is the set of statuses an unclassified error may carry
// through StatusCode() instead of collapsing to 500.
var DefaultPassThrough = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusMethodNotAllowed,
	http.StatusConflict,
	http.StatusRequestEntityTooLarge,
	http.StatusUnprocessableEntity,
	http.StatusTooManyRequests,
}

// Options tunes a Dispatcher. Zero values select the defaults.
type Options struct {
	GenericMessage string
	PassThrough    []int
	Redactor       *middleware.Redactor
	Now            func() time.Time
}

// Dispatcher turns failures into log records and error envelopes. It holds no
// per-request state and is safe for concurrent use.
type Dispatcher struct {
	log         zerolog.Logger
	generic     string
	passThrough map[int]struct{}
	redactor    *middleware.Redactor
	now         func() time.Time
}

// New builds a Dispatcher writing failure records to logger.
func New(logger zerolog.Logger, opts Options) *Dispatcher {
	d := &Dispatcher{
		log:         logger,
		generic:     opts.GenericMessage,
		passThrough: make(map[int]struct{}),
		redactor:    opts.Redactor,
		now:         opts.Now,
	}
	if strings.TrimSpace(d.generic) == "" {
		d.generic = DefaultGenericMessage
	}
	statuses := opts.PassThrough
	if statuses == nil {
		statuses = DefaultPassThrough
	}
	for _, s := range statuses {
		d.passThrough[s] = struct{}{}
	}
	if d.redactor == nil {
		d.redactor = middleware.NewRedactor(middleware.RedactOptions{})
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Request is the transport-independent view of the failed request.
type Request struct {
	Ctx       context.Context
	URL       string
	Method    string
	RequestID string
	Body      []byte
	Headers   http.Header
	Query     url.Values
	Params    map[string]string
}

// Outcome is what gets written to the client.
type Outcome struct {
	Status int
	Body   envelope.Error
}

// Resolve classifies err, logs it and returns the response to send.
func (d *Dispatcher) Resolve(req Request, err error) Outcome {
	return d.dispatch(req, Classify(err))
}

func (d *Dispatcher) dispatch(req Request, f Failure) Outcome {
	meta := envelope.NewMeta(req.URL, req.Method, req.RequestID, d.now())
	switch f := f.(type) {
	case Classified:
		return d.classified(req, meta, f)
	case Unclassified:
		return d.unclassified(req, meta, f)
	default:
		// Failure is sealed; reaching here means a variant was added without a case.
		panic("dispatch: unhandled failure variant")
	}
}

func (d *Dispatcher) classified(req Request, meta envelope.Meta, f Classified) Outcome {
	e := f.Err
	status, code := e.Status, e.Code
	if status < 400 || status > 599 {
		// Not a failure status; the caller's code no longer describes the response.
		status, code = http.StatusInternalServerError, ""
	}
	if code == "" {
		code = statusLabel(status)
	}

	var msg envelope.Message
	if code == apperr.CodeValidation && status == http.StatusUnprocessableEntity {
		msg = envelope.Issues(e.Fields)
	} else {
		msg = envelope.Plain(e.Message)
	}

	ev := d.log.Warn()
	if status >= 500 {
		ev = d.log.Error()
		markSpan(req.Ctx, e, "classified failure")
	}
	ev = d.record(ev, categoryClassified, req, meta, msg)
	if len(e.Fields) > 0 {
		ev = ev.Interface("errors", e.Fields)
	}
	if e.Cause != nil {
		ev = ev.AnErr("cause", e.Cause)
	}
	ev.Str("code", code).Int("status", status).Msg("request failed")

	middleware.RecordFailure("classified", code, status)
	return Outcome{Status: status, Body: envelope.NewError(code, msg, meta)}
}

func (d *Dispatcher) unclassified(req Request, meta envelope.Meta, f Unclassified) Outcome {
	status := http.StatusInternalServerError
	if s, ok := statusOf(f.Err); ok {
		if _, allowed := d.passThrough[s]; allowed {
			status = s
		}
	}

	text := d.generic
	if status < 500 {
		text = http.StatusText(status)
	}
	msg := envelope.Plain(text)

	ev := d.record(d.log.Error(), categoryUnclassified, req, meta, msg)
	if f.Stack != nil {
		ev = ev.Err(f.Err).Str("stack", string(f.Stack))
	} else {
		ev = ev.Stack().Err(f.Err)
	}
	ev.Int("status", status).Msg("request failed")

	markSpan(req.Ctx, f.Err, "unclassified failure")
	middleware.RecordFailure("unclassified", "", status)
	return Outcome{Status: status, Body: envelope.NewError("", msg, meta)}
}

// record adds the fields shared by both handlers.
func (d *Dispatcher) record(ev *zerolog.Event, category string, req Request, meta envelope.Meta, msg envelope.Message) *zerolog.Event {
	rd := zerolog.Dict().
		Interface("headers", d.redactor.Headers(req.Headers)).
		Interface("query", req.Query).
		Interface("params", req.Params).
		Str("url", req.URL)
	if len(req.Body) > 0 {
		if json.Valid(req.Body) {
			rd = rd.RawJSON("body", req.Body)
		} else {
			rd = rd.Str("body", string(req.Body))
		}
	}
	return ev.
		Str("category", category).
		Str("request_id", req.RequestID).
		Dict("request", rd).
		Interface("meta", meta).
		Interface("message", msg)
}

// Handle renders err on c. When a response was already written the failure is
// still logged but nothing more is sent.
func (d *Dispatcher) Handle(c *gin.Context, err error) {
	d.write(c, d.Resolve(requestFrom(c), err))
}

// HandlePanic renders a recovered panic as an unclassified failure. It has
// the middleware.PanicHandler signature.
func (d *Dispatcher) HandlePanic(c *gin.Context, value any, stack []byte) {
	d.write(c, d.dispatch(requestFrom(c), Unclassified{Err: panicError(value), Stack: stack}))
}

// Middleware renders the last error recorded on the context once the rest of
// the chain has returned without writing a response.
func (d *Dispatcher) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		d.Handle(c, c.Errors.Last().Err)
	}
}

func (d *Dispatcher) write(c *gin.Context, out Outcome) {
	if c.Writer.Written() {
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(out.Status, out.Body)
}

func requestFrom(c *gin.Context) Request {
	params := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		params[p.Key] = p.Value
	}
	return Request{
		Ctx:       c.Request.Context(),
		URL:       c.Request.URL.RequestURI(),
		Method:    c.Request.Method,
		RequestID: middleware.RequestIDFrom(c),
		Body:      middleware.BodyFrom(c),
		Headers:   c.Request.Header,
		Query:     c.Request.URL.Query(),
		Params:    params,
	}
}

type statusCoder interface {
	StatusCode() int
}

func statusOf(err error) (int, bool) {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	return 0, false
}

// statusLabel renders a status as a snake_case label, e.g. 404 -> not_found.
func statusLabel(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(strings.ToLower(text), "'", "")
	text = strings.ReplaceAll(text, "-", "_")
	return strings.ReplaceAll(text, " ", "_")
}

func markSpan(ctx context.Context, err error, desc string) {
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, desc)
}
