// Package dispatch converts every failure raised while serving a request into
// one structured log record and one error envelope.
//
// Failures are first classified into a closed set of variants:
//
//   - Classified:   an *apperr.Error raised intentionally by application code.
//     Its status, code and message are trusted and rendered as-is (validation
//     failures are rendered as a list of field issues).
//   - Unclassified: anything else, including recovered panics. The client gets
//     a generic message; the full error and stack only go to the log.
//
// The Dispatcher is the single place where failures become responses.
// Handlers and middleware record failures on the Gin context (c.Error) and
// abort; Middleware() renders them once the chain unwinds.
package dispatch

import (
	"fmt"

	"github.com/tbourn/go-events-backend/internal/apperr"
)

// Failure is the sealed sum type of request failures.
type Failure interface {
	failure()
}

// Classified wraps a failure raised intentionally with a known status/code.
type Classified struct {
	Err *apperr.Error
}

// Unclassified wraps any other error. Stack is set for recovered panics.
type Unclassified struct {
	Err   error
	Stack []byte
}

func (Classified) failure()   {}
func (Unclassified) failure() {}

// Classify maps err onto a Failure variant. A classified failure anywhere in
// err's chain wins.
func Classify(err error) Failure {
	if e, ok := apperr.As(err); ok {
		return Classified{Err: e}
	}
	return Unclassified{Err: err}
}

// panicError turns a recovered value into an error, keeping error values
// reachable through errors.As.
func panicError(v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", v)
}
