// Package services – CityService
//
// This file implements CityService, which manages the lifecycle of cities.
// It normalizes names and country codes before persisting and turns
// repository errors into classified failures (not found, conflict).
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
	"gorm.io/gorm"

	"github.com/tbourn/go-events-backend/internal/domain"
	"github.com/tbourn/go-events-backend/internal/observability"
	"github.com/tbourn/go-events-backend/internal/repo"
	"github.com/tbourn/go-events-backend/internal/utils"
)

// CityRepo defines the repository contract required by CityService.
type CityRepo interface {
	// CreateCity inserts a new city row.
	CreateCity(ctx context.Context, db *gorm.DB, name, country string) (*domain.City, error)

	// GetCity fetches a city by ID.
	GetCity(ctx context.Context, db *gorm.DB, id string) (*domain.City, error)

	// CountCities returns the total number of cities for pagination.
	CountCities(ctx context.Context, db *gorm.DB) (int64, error)

	// ListCitiesPage returns one page of cities.
	ListCitiesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.City, error)
}

// CityService provides city-level operations.
type CityService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the city repository used by this service.
	Repo CityRepo

	// Locale drives upper-casing of country codes.
	Locale language.Tag
}

// NewCityService constructs a CityService.
func NewCityService(db *gorm.DB, r CityRepo) *CityService {
	return &CityService{DB: db, Repo: r, Locale: language.Und}
}

// Create registers a city. Names are width-folded and whitespace-collapsed;
// country codes are upper-cased.
func (s *CityService) Create(ctx context.Context, name, country string) (city *domain.City, err error) {
	ctx, span := observability.StartSpan(ctx, "CityService.Create")
	defer func() { observability.EndSpan(span, err) }()

	name = normalizeName(name)
	country = cases.Upper(s.Locale).String(strings.TrimSpace(country))
	span.SetAttributes(attribute.String("city.name", name), attribute.String("city.country", country))

	city, err = s.Repo.CreateCity(ctx, s.DB, name, country)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrCityExists.WithCause(err)
	}
	return city, err
}

// Get returns one city or ErrCityNotFound.
func (s *CityService) Get(ctx context.Context, id string) (city *domain.City, err error) {
	ctx, span := observability.StartSpan(ctx, "CityService.Get", attribute.String("city.id", id))
	defer func() { observability.EndSpan(span, err) }()

	city, err = s.Repo.GetCity(ctx, s.DB, id)
	if err != nil {
		return nil, notFound(err, ErrCityNotFound)
	}
	return city, nil
}

// ListPage returns a page of cities and the total count. Out-of-range
// paging values are clamped.
func (s *CityService) ListPage(ctx context.Context, page, pageSize int) (items []domain.City, total int64, err error) {
	page, pageSize = utils.ClampPage(page, pageSize)
	ctx, span := observability.StartSpan(ctx, "CityService.ListPage",
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)
	defer func() { observability.EndSpan(span, err) }()

	total, err = s.Repo.CountCities(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.City{}, 0, nil
	}
	items, err = s.Repo.ListCitiesPage(ctx, s.DB, utils.Offset(page, pageSize), pageSize)
	return items, total, err
}

// normalizeName folds full-width characters to their narrow forms, trims
// whitespace and collapses runs of it to one space.
func normalizeName(s string) string {
	s = width.Fold.String(s)
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
