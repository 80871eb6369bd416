// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Event model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Error semantics:
//   - Missing rows return ErrNotFound (gorm.ErrRecordNotFound).
//   - An unknown city_id returns an error matching ErrForeignKey that still
//     wraps the driver error.
//   - Other DB errors are wrapped with a stack trace.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-events-backend/internal/domain"
)

// CreateEvent inserts a new Event hosted by cityID. The foreign key on
// city_id is enforced by the database.
func CreateEvent(ctx context.Context, db *gorm.DB, name, cityID string, capacity *int) (*domain.Event, error) {
	e := &domain.Event{
		ID:        uuid.NewString(),
		Name:      name,
		CityID:    cityID,
		Capacity:  capacity,
		CreatedAt: time.Now().UTC(),
	}
	// Omit the association so GORM never upserts an empty City.
	if err := db.WithContext(ctx).Omit("City").Create(e).Error; err != nil {
		return nil, translate(err, "create event")
	}
	return e, nil
}

// GetEvent fetches a single event by ID, or ErrNotFound.
func GetEvent(ctx context.Context, db *gorm.DB, id string) (*domain.Event, error) {
	var e domain.Event
	if err := db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, translate(err, "get event")
	}
	return &e, nil
}

func eventsScope(ctx context.Context, db *gorm.DB, cityID string) *gorm.DB {
	q := db.WithContext(ctx).Model(&domain.Event{})
	if cityID != "" {
		q = q.Where("city_id = ?", cityID)
	}
	return q
}

// CountEvents returns the number of live events, optionally restricted to
// one city (empty cityID means all).
func CountEvents(ctx context.Context, db *gorm.DB, cityID string) (int64, error) {
	var total int64
	err := eventsScope(ctx, db, cityID).Count(&total).Error
	return total, translate(err, "count events")
}

// ListEventsPage returns events newest first, optionally restricted to one
// city.
func ListEventsPage(ctx context.Context, db *gorm.DB, cityID string, offset, limit int) ([]domain.Event, error) {
	var out []domain.Event
	err := eventsScope(ctx, db, cityID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, translate(err, "list events")
}

// UpdateEventName renames an event. It returns ErrNotFound when no live row
// matches id.
func UpdateEventName(ctx context.Context, db *gorm.DB, id, name string) error {
	res := db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("id = ?", id).
		Update("name", name)
	if res.Error != nil {
		return translate(res.Error, "update event")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEvent soft-deletes an event. It returns ErrNotFound when no live row
// matches id.
func DeleteEvent(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Event{})
	if res.Error != nil {
		return translate(res.Error, "delete event")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
