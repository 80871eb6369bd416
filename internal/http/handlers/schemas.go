package handlers

import (
	"github.com/tbourn/go-events-backend/internal/domain"
	"github.com/tbourn/go-events-backend/internal/validation"
)

// Input schemas, one per request shape. Field order is the order in which
// violations are reported.
var (
	createCitySchema = validation.Schema{
		{Name: "name", Type: validation.String, Rules: "required,min=1,max=120"},
		{Name: "country", Type: validation.String, Rules: "len=2,alpha"},
	}

	pageSchema = validation.Schema{
		{Name: "page", Type: validation.Int, Rules: "min=1"},
		{Name: "page_size", Type: validation.Int, Rules: "min=1,max=100"},
	}

	listEventsSchema = append(validation.Schema{
		{Name: "city_id", Type: validation.UUID},
	}, pageSchema...)

	idPathSchema = validation.Schema{
		{Name: "id", Type: validation.UUID, Rules: "required"},
	}

	createEventSchema = validation.Schema{
		{Name: "name", Type: validation.String, Rules: "required,min=1,max=255"},
		{Name: "city_id", Type: validation.UUID, Rules: "required"},
		{Name: "capacity", Type: validation.Int, Rules: "min=1"},
	}

	renameEventSchema = validation.Schema{
		{Name: "name", Type: validation.String, Rules: "required,min=1,max=255"},
	}
)

//
// DTOs
//

// CreateCityRequest is the JSON payload for creating a city.
type CreateCityRequest struct {
	// Name is the display name (1–120 chars).
	Name string `json:"name" example:"Athens"`
	// Country is an optional ISO 3166-1 alpha-2 code.
	Country string `json:"country,omitempty" example:"GR"`
}

// CreateEventRequest is the JSON payload for creating an event.
type CreateEventRequest struct {
	// Name is the event title (1–255 chars).
	Name string `json:"name" example:"Jazz night"`
	// CityID references an existing city.
	CityID string `json:"city_id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// Capacity optionally limits attendance (>= 1).
	Capacity *int `json:"capacity,omitempty" example:"120"`
}

// RenameEventRequest is the JSON payload for renaming an event.
type RenameEventRequest struct {
	Name string `json:"name" example:"Blues night"`
}

// pageQuery carries the validated list query parameters.
type pageQuery struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	CityID   string `json:"city_id"`
}

// idParam carries a validated :id path parameter.
type idParam struct {
	ID string `json:"id"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListCitiesResponse wraps a page of cities and pagination information.
type ListCitiesResponse struct {
	Cities     []domain.City `json:"cities"`
	Pagination Pagination    `json:"pagination"`
}

// ListEventsResponse wraps a page of events and pagination information.
type ListEventsResponse struct {
	Events     []domain.Event `json:"events"`
	Pagination Pagination     `json:"pagination"`
}
