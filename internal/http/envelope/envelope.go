// Package envelope builds the canonical JSON bodies sent to clients.
//
// Every error response has the shape
//
//	{ "code"?: string, "message": string | [{ "source"?: {"pointer": string}, "detail": string }], "meta": {...} }
//
// and every success response carries the same meta next to a data payload:
//
//	{ "data": <payload>, "meta": {...} }
//
// Builders here are pure. They copy the values they need out of failure
// objects so an envelope never references driver errors or other internals.
package envelope

import (
	"encoding/json"
	"time"

	"github.com/tbourn/go-events-backend/internal/apperr"
)

// Meta is attached to every envelope for traceability.
type Meta struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMeta builds request metadata; the timestamp is normalized to UTC.
func NewMeta(url, method, requestID string, now time.Time) Meta {
	return Meta{URL: url, Method: method, RequestID: requestID, Timestamp: now.UTC()}
}

// Source points at the offending input field.
type Source struct {
	Pointer string `json:"pointer"`
}

// Issue is the public rendering of one FieldError.
type Issue struct {
	Source *Source `json:"source,omitempty"`
	Detail string  `json:"detail"`
}

// Message is either a plain string or a list of issues. The zero value is an
// empty plain message.
type Message struct {
	text   string
	issues []Issue
	isList bool
}

// Plain wraps a client-safe string.
func Plain(text string) Message { return Message{text: text} }

// Issues converts field errors into their public shape. Source is omitted
// for payload-level errors (empty field).
func Issues(fields []apperr.FieldError) Message {
	out := make([]Issue, 0, len(fields))
	for _, f := range fields {
		is := Issue{Detail: f.Message}
		if f.Field != "" {
			is.Source = &Source{Pointer: f.Field}
		}
		out = append(out, is)
	}
	return Message{issues: out, isList: true}
}

// IsList reports whether the message renders as an array.
func (m Message) IsList() bool { return m.isList }

// Text returns the plain text ("" for lists).
func (m Message) Text() string { return m.text }

// List returns a copy of the issues (nil for plain messages).
func (m Message) List() []Issue {
	if !m.isList {
		return nil
	}
	out := make([]Issue, len(m.issues))
	copy(out, m.issues)
	return out
}

// MarshalJSON renders the message as a string or as an array.
func (m Message) MarshalJSON() ([]byte, error) {
	if m.isList {
		return json.Marshal(m.issues)
	}
	return json.Marshal(m.text)
}

// UnmarshalJSON accepts either rendering.
func (m *Message) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = Plain(s)
		return nil
	}
	var issues []Issue
	if err := json.Unmarshal(b, &issues); err != nil {
		return err
	}
	*m = Message{issues: issues, isList: true}
	return nil
}

// Error is the error envelope.
type Error struct {
	Code    string  `json:"code,omitempty"`
	Message Message `json:"message"`
	Meta    Meta    `json:"meta"`
}

// NewError builds an error envelope.
func NewError(code string, msg Message, meta Meta) Error {
	return Error{Code: code, Message: msg, Meta: meta}
}

// Success is the success envelope.
type Success struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// NewSuccess builds a success envelope.
func NewSuccess(data any, meta Meta) Success {
	return Success{Data: data, Meta: meta}
}
