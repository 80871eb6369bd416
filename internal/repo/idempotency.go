// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the Idempotency
// model used to implement safe-retry semantics for event creation.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-events-backend/internal/domain"
)

// GetIdempotency returns a non-expired record for (userID, key) or
// ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, userID, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("user_id = ? AND key = ? AND expires_at > ?", userID, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, translate(err, "get idempotency")
	}
	return &rec, nil
}

// HasIdempotency reports whether a live record exists for (userID, key).
func HasIdempotency(ctx context.Context, db *gorm.DB, userID, key string, now time.Time) (bool, error) {
	_, err := GetIdempotency(ctx, db, userID, key, now)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// CreateIdempotency inserts a record; a clash on (user_id, key) returns an
// error matching ErrDuplicate.
func CreateIdempotency(ctx context.Context, db *gorm.DB, userID, key, eventID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		UserID:    userID,
		Key:       key,
		EventID:   eventID,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, translate(err, "create idempotency")
	}
	return rec, nil
}

// PurgeIdempotency removes expired records for (userID, key) so the key can
// be reused.
func PurgeIdempotency(ctx context.Context, db *gorm.DB, userID, key string, now time.Time) error {
	err := db.WithContext(ctx).
		Where("user_id = ? AND key = ? AND expires_at <= ?", userID, key, now).
		Delete(&domain.Idempotency{}).Error
	return translate(err, "purge idempotency")
}
