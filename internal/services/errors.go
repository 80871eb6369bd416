// Package services defines the business logic for cities and events.
// This file centralizes the classified failures returned by service methods.
// They carry their own status and code, so handlers pass them straight to
// the dispatcher without translating.
package services

import (
	"errors"

	"github.com/tbourn/go-events-backend/internal/apperr"
	"github.com/tbourn/go-events-backend/internal/repo"
)

// Classified failures raised by the service layer.
var (
	// ErrCityNotFound indicates that the requested city does not exist.
	ErrCityNotFound = apperr.NotFound(apperr.CodeCityNotFound, "city not found")

	// ErrEventNotFound indicates that the requested event does not exist.
	ErrEventNotFound = apperr.NotFound(apperr.CodeEventNotFound, "event not found")

	// ErrCityExists is returned when a city with the same name and country
	// is already registered.
	ErrCityExists = apperr.Conflict("a city with this name and country already exists")

	// ErrIdempotencyInFlight is returned when another request holds the same
	// Idempotency-Key but its result cannot be replayed.
	ErrIdempotencyInFlight = apperr.Conflict("a request with this Idempotency-Key is already being processed")
)

// unknownCityMessage is the field message for an event whose city_id has
// no matching city.
const unknownCityMessage = "city_id references an unknown city"

// unknownCity turns a foreign key violation on events.city_id into the
// validation failure clients see; the driver error stays as the cause.
func unknownCity(cause error) error {
	return apperr.Validation([]apperr.FieldError{
		{Field: "city_id", Message: unknownCityMessage},
	}).WithCause(cause)
}

// notFound maps repo.ErrNotFound to classified; other errors pass through.
func notFound(err error, classified *apperr.Error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return classified
	}
	return err
}
