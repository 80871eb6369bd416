// Package services – EventService
//
// This file implements EventService, which owns the lifecycle of events.
// Creation is optionally idempotent: a (user, Idempotency-Key) pair seen
// within the TTL replays the originally created event instead of inserting
// a duplicate. The event row and its idempotency record are written in one
// transaction.
//
// Observability: all public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-events-backend/internal/domain"
	"github.com/tbourn/go-events-backend/internal/observability"
	"github.com/tbourn/go-events-backend/internal/repo"
	"github.com/tbourn/go-events-backend/internal/utils"
)

// DefaultIdempotencyTTL applies when EventService.IdempotencyTTL is unset.
const DefaultIdempotencyTTL = 24 * time.Hour

// NewEvent carries the validated fields of an event to create.
type NewEvent struct {
	Name     string
	CityID   string
	Capacity *int
}

// EventService coordinates event persistence.
type EventService struct {
	DB *gorm.DB

	// IdempotencyTTL bounds how long a key replays its event.
	IdempotencyTTL time.Duration

	// Now is the clock used for idempotency lookups; nil means time.Now.
	Now func() time.Time
}

// Create inserts an event without idempotency.
func (s *EventService) Create(ctx context.Context, in NewEvent) (*domain.Event, error) {
	ev, _, err := s.CreateIdempotent(ctx, "", "", in)
	return ev, err
}

// CreateIdempotent inserts an event. When key is non-empty and a live
// record exists for (userID, key), the stored event is returned with
// replayed=true and nothing is written.
//
// An unknown city_id surfaces as a validation failure on city_id.
func (s *EventService) CreateIdempotent(ctx context.Context, userID, key string, in NewEvent) (ev *domain.Event, replayed bool, err error) {
	ctx, span := observability.StartSpan(ctx, "EventService.Create",
		attribute.String("city.id", in.CityID),
		attribute.String("user.id", userID),
		attribute.Bool("idempotent", key != ""),
	)
	defer func() { observability.EndSpan(span, err) }()

	if key != "" {
		if ev, err = s.replay(ctx, userID, key); ev != nil || err != nil {
			return ev, ev != nil, err
		}
	}

	name := normalizeName(in.Name)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := repo.CreateEvent(ctx, tx, name, in.CityID, in.Capacity)
		if err != nil {
			return err
		}
		if key != "" {
			if err := repo.PurgeIdempotency(ctx, tx, userID, key, s.now()); err != nil {
				return err
			}
			if _, err := repo.CreateIdempotency(ctx, tx, userID, key, created.ID, http.StatusCreated, s.ttl()); err != nil {
				return err
			}
		}
		ev = created
		return nil
	})

	switch {
	case err == nil:
		return ev, false, nil
	case errors.Is(err, repo.ErrForeignKey):
		return nil, false, unknownCity(err)
	case key != "" && errors.Is(err, repo.ErrDuplicate):
		// A concurrent request with the same key won the race.
		if ev, err = s.replay(ctx, userID, key); ev != nil || err != nil {
			return ev, ev != nil, err
		}
		return nil, false, ErrIdempotencyInFlight
	default:
		return nil, false, err
	}
}

// replay returns the event recorded for (userID, key), or (nil, nil) when
// there is no live record.
func (s *EventService) replay(ctx context.Context, userID, key string) (*domain.Event, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, key, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ev, err := repo.GetEvent(ctx, s.DB, rec.EventID)
	if err != nil {
		return nil, notFound(err, ErrEventNotFound)
	}
	return ev, nil
}

// Get returns one event or ErrEventNotFound.
func (s *EventService) Get(ctx context.Context, id string) (ev *domain.Event, err error) {
	ctx, span := observability.StartSpan(ctx, "EventService.Get", attribute.String("event.id", id))
	defer func() { observability.EndSpan(span, err) }()

	ev, err = repo.GetEvent(ctx, s.DB, id)
	if err != nil {
		return nil, notFound(err, ErrEventNotFound)
	}
	return ev, nil
}

// ListPage returns a page of events (optionally for one city) and the total
// count. Filtering by a city that does not exist is ErrCityNotFound.
func (s *EventService) ListPage(ctx context.Context, cityID string, page, pageSize int) (items []domain.Event, total int64, err error) {
	page, pageSize = utils.ClampPage(page, pageSize)
	ctx, span := observability.StartSpan(ctx, "EventService.ListPage",
		attribute.String("city.id", cityID),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)
	defer func() { observability.EndSpan(span, err) }()

	if cityID != "" {
		if _, err = repo.GetCity(ctx, s.DB, cityID); err != nil {
			return nil, 0, notFound(err, ErrCityNotFound)
		}
	}

	total, err = repo.CountEvents(ctx, s.DB, cityID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Event{}, 0, nil
	}
	items, err = repo.ListEventsPage(ctx, s.DB, cityID, utils.Offset(page, pageSize), pageSize)
	return items, total, err
}

// Stats returns the count and latest update time of the events matched by
// cityID, used for ETag generation.
func (s *EventService) Stats(ctx context.Context, cityID string) (int64, *time.Time, error) {
	return repo.EventsStats(ctx, s.DB, cityID)
}

// Rename changes an event's name.
func (s *EventService) Rename(ctx context.Context, id, name string) (err error) {
	ctx, span := observability.StartSpan(ctx, "EventService.Rename", attribute.String("event.id", id))
	defer func() { observability.EndSpan(span, err) }()

	return notFound(repo.UpdateEventName(ctx, s.DB, id, normalizeName(name)), ErrEventNotFound)
}

// Delete soft-deletes an event.
func (s *EventService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := observability.StartSpan(ctx, "EventService.Delete", attribute.String("event.id", id))
	defer func() { observability.EndSpan(span, err) }()

	return notFound(repo.DeleteEvent(ctx, s.DB, id), ErrEventNotFound)
}

func (s *EventService) ttl() time.Duration {
	if s.IdempotencyTTL <= 0 {
		return DefaultIdempotencyTTL
	}
	return s.IdempotencyTTL
}

func (s *EventService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
