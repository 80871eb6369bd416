package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-events-backend/internal/domain"
)

// CreateCity inserts a new City with a random UUID. A clash on
// (name, country) returns an error matching ErrDuplicate.
func CreateCity(ctx context.Context, db *gorm.DB, name, country string) (*domain.City, error) {
	c := &domain.City{
		ID:        uuid.NewString(),
		Name:      name,
		Country:   country,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, translate(err, "create city")
	}
	return c, nil
}

// GetCity fetches a single city by ID, or ErrNotFound.
func GetCity(ctx context.Context, db *gorm.DB, id string) (*domain.City, error) {
	var c domain.City
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err, "get city")
	}
	return &c, nil
}

// CountCities returns the total number of live cities.
func CountCities(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.City{}).Count(&total).Error
	return total, translate(err, "count cities")
}

// ListCitiesPage returns cities ordered by name, then country. The caller
// computes offset and limit.
func ListCitiesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.City, error) {
	var out []domain.City
	err := db.WithContext(ctx).
		Order("name ASC, country ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, translate(err, "list cities")
}
