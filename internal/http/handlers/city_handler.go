// City HTTP handlers.
//
// This file exposes REST endpoints for city resources:
//   - POST   /cities        (create)
//   - GET    /cities        (list, paginated)
//   - GET    /cities/{id}   (fetch)
//
// Handlers are transport-thin: they run the validation stage on the input,
// call application services, and write success envelopes. Every failure is
// handed to the dispatcher through fail().
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-events-backend/internal/domain"
	"github.com/tbourn/go-events-backend/internal/services"
	"github.com/tbourn/go-events-backend/internal/utils"
	"github.com/tbourn/go-events-backend/internal/validation"
)

//
// Service contracts (context-aware)
//

// CityService defines city operations consumed by HTTP handlers.
type CityService interface {
	// Create registers a city.
	Create(ctx context.Context, name, country string) (*domain.City, error)
	// Get fetches one city.
	Get(ctx context.Context, id string) (*domain.City, error)
	// ListPage returns a page of cities and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.City, int64, error)
}

// EventService defines event operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type EventService interface {
	// CreateIdempotent inserts an event, replaying a previous result for the
	// same (userID, key) when key is non-empty.
	CreateIdempotent(ctx context.Context, userID, key string, in services.NewEvent) (*domain.Event, bool, error)
	// Get fetches one event.
	Get(ctx context.Context, id string) (*domain.Event, error)
	// ListPage returns a page of events, optionally for one city.
	ListPage(ctx context.Context, cityID string, page, pageSize int) ([]domain.Event, int64, error)
	// Stats returns the count and latest update time used for ETags.
	Stats(ctx context.Context, cityID string) (int64, *time.Time, error)
	// Rename changes an event's name.
	Rename(ctx context.Context, id, name string) error
	// Delete removes an event.
	Delete(ctx context.Context, id string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for cities and events.
type Handlers struct {
	cities    CityService
	events    EventService
	validator *validation.Stage
	now       func() time.Time
}

// New constructs Handlers bound to the given services and validation stage.
func New(cities CityService, events EventService, v *validation.Stage) *Handlers {
	return &Handlers{cities: cities, events: events, validator: v, now: time.Now}
}

func pagination(page, pageSize int, total int64) Pagination {
	page, pageSize = utils.ClampPage(page, pageSize)
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// CreateCity godoc
// @ID          createCity
// @Summary     Create a city
// @Description Registers a city. Name and country are validated; (name, country) must be unique.
// @Tags        Cities
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateCityRequest  true  "Create city payload"
//
// @Success     201  {object}  domain.City
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed JSON"
// @Failure     409  {object}  handlers.ErrorResponse  "City exists"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /cities [post]
func (h *Handlers) CreateCity(c *gin.Context) {
	var req CreateCityRequest
	if err := h.bindBody(c, createCitySchema, &req); err != nil {
		fail(c, err)
		return
	}

	city, err := h.cities.Create(c.Request.Context(), req.Name, req.Country)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, city)
}

// ListCities godoc
// @ID          listCities
// @Summary     List cities (paginated)
// @Tags        Cities
// @Produce     json
//
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListCitiesResponse
// @Failure     422  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /cities [get]
func (h *Handlers) ListCities(c *gin.Context) {
	var q pageQuery
	if err := h.bindQuery(c, pageSchema, &q); err != nil {
		fail(c, err)
		return
	}

	items, total, err := h.cities.ListPage(c.Request.Context(), q.Page, q.PageSize)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, ListCitiesResponse{
		Cities:     items,
		Pagination: pagination(q.Page, q.PageSize, total),
	})
}

// GetCity godoc
// @ID          getCity
// @Summary     Fetch a city
// @Tags        Cities
// @Produce     json
//
// @Param       id  path  string  true  "City ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.City
// @Failure     404  {object}  handlers.ErrorResponse  "City not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation failed"
// @Router      /cities/{id} [get]
func (h *Handlers) GetCity(c *gin.Context) {
	var p idParam
	if err := h.bindPath(c, idPathSchema, &p); err != nil {
		fail(c, err)
		return
	}

	city, err := h.cities.Get(c.Request.Context(), p.ID)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, city)
}
