// Event HTTP handlers.
//
// This file exposes REST endpoints for event resources:
//   - POST   /events        (create, idempotent with Idempotency-Key)
//   - GET    /events        (list, paginated, ETag support)
//   - GET    /events/{id}   (fetch)
//   - PUT    /events/{id}   (rename)
//   - DELETE /events/{id}   (delete)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// creation exists for the same user and key, the stored event is returned
// with 200 and `Idempotency-Replayed: true` instead of creating a new one.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-events-backend/internal/http/middleware"
	"github.com/tbourn/go-events-backend/internal/services"
	"github.com/tbourn/go-events-backend/internal/utils"
)

// HeaderReplayed marks responses served from an idempotency record.
const HeaderReplayed = "Idempotency-Replayed"

// CreateEvent godoc
// @ID          createEvent
// @Summary     Create an event
// @Description Creates an event in an existing city. Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Events
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false  "User ID (demo header)"                   example(user123)
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"        example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreateEventRequest  true  "Create event payload"
//
// @Success     201  {object}  domain.Event
// @Success     200  {object}  domain.Event            "Replayed result"
// @Header      200  {string}  Idempotency-Replayed    "true when replayed"
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed JSON or Idempotency-Key"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation failed (including unknown city_id)"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /events [post]
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if err := h.bindBody(c, createEventSchema, &req); err != nil {
		fail(c, err)
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	ev, replayed, err := h.events.CreateIdempotent(c.Request.Context(), middleware.UserID(c), key, services.NewEvent{
		Name:     req.Name,
		CityID:   req.CityID,
		Capacity: req.Capacity,
	})
	if err != nil {
		fail(c, err)
		return
	}
	if replayed {
		c.Header(HeaderReplayed, "true")
		h.ok(c, http.StatusOK, ev)
		return
	}
	h.ok(c, http.StatusCreated, ev)
}

// ListEvents godoc
// @ID          listEvents
// @Summary     List events (paginated)
// @Description Returns a page of events, optionally for one city. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Events
// @Produce     json
//
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"  example(W/\"events:all:3:1700000000\")
// @Param       city_id        query   string  false  "Filter by city"              format(uuid)
// @Param       page           query   int     false  "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListEventsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     404  {object} handlers.ErrorResponse "City not found"
// @Failure     422  {object} handlers.ErrorResponse "Validation failed"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /events [get]
func (h *Handlers) ListEvents(c *gin.Context) {
	var q pageQuery
	if err := h.bindQuery(c, listEventsSchema, &q); err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	count, maxTS, err := h.events.Stats(ctx, q.CityID)
	if err != nil {
		middleware.LoggerFrom(c).Debug().Err(err).Msg("etag precheck skipped")
	}
	if err == nil && count > 0 {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		scope := q.CityID
		if scope == "" {
			scope = "all"
		}
		page, pageSize := utils.ClampPage(q.Page, q.PageSize)
		etag := fmt.Sprintf(`W/"events:%s:%d:%d:%d:%d"`, scope, count, ts, page, pageSize)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.events.ListPage(ctx, q.CityID, q.Page, q.PageSize)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, ListEventsResponse{
		Events:     items,
		Pagination: pagination(q.Page, q.PageSize, total),
	})
}

// GetEvent godoc
// @ID          getEvent
// @Summary     Fetch an event
// @Tags        Events
// @Produce     json
//
// @Param       id  path  string  true  "Event ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Event
// @Failure     404  {object}  handlers.ErrorResponse  "Event not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation failed"
// @Router      /events/{id} [get]
func (h *Handlers) GetEvent(c *gin.Context) {
	var p idParam
	if err := h.bindPath(c, idPathSchema, &p); err != nil {
		fail(c, err)
		return
	}

	ev, err := h.events.Get(c.Request.Context(), p.ID)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, ev)
}

// RenameEvent godoc
// @ID          renameEvent
// @Summary     Rename an event
// @Tags        Events
// @Accept      json
//
// @Param       id    path  string                        true  "Event ID (UUID)"  format(uuid)
// @Param       body  body  handlers.RenameEventRequest  true  "New name"
//
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Event not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation failed"
// @Router      /events/{id} [put]
func (h *Handlers) RenameEvent(c *gin.Context) {
	var p idParam
	if err := h.bindPath(c, idPathSchema, &p); err != nil {
		fail(c, err)
		return
	}
	var req RenameEventRequest
	if err := h.bindBody(c, renameEventSchema, &req); err != nil {
		fail(c, err)
		return
	}

	if err := h.events.Rename(c.Request.Context(), p.ID, req.Name); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

// DeleteEvent godoc
// @ID          deleteEvent
// @Summary     Delete an event
// @Tags        Events
//
// @Param       id  path  string  true  "Event ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Event not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation failed"
// @Router      /events/{id} [delete]
func (h *Handlers) DeleteEvent(c *gin.Context) {
	var p idParam
	if err := h.bindPath(c, idPathSchema, &p); err != nil {
		fail(c, err)
		return
	}

	if err := h.events.Delete(c.Request.Context(), p.ID); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}
