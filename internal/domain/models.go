// Package domain defines the persistence models for cities and events. These
// types are mapped with GORM and form the core data layer of the events
// backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// City is a place where events are hosted. A (name, country) pair is unique
// among live rows.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name: display name, normalized by the service layer.
//   - Country: optional ISO 3166-1 alpha-2 code, upper-cased.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
type City struct {
	ID        string         `json:"id"                gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name"              gorm:"type:varchar(120);not null;uniqueIndex:ux_city_name_country,priority:1"`
	Country   string         `json:"country,omitempty" gorm:"type:char(2);not null;default:'';uniqueIndex:ux_city_name_country,priority:2"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"                 gorm:"index"`
}

// TableName returns the database table name for City.
func (City) TableName() string { return "cities" }

// Event is a scheduled happening in a city. CityID must reference an
// existing city; the database rejects orphans through the foreign key.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Name: event title.
//   - CityID: foreign key to the hosting city (indexed).
//   - Capacity: optional seat limit.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
//   - City: FK association; a city with events cannot be hard-deleted.
type Event struct {
	ID        string         `json:"id"                 gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name"               gorm:"type:varchar(255);not null"`
	CityID    string         `json:"city_id"            gorm:"type:char(36);not null;index:idx_city_events,priority:1"`
	Capacity  *int           `json:"capacity,omitempty" gorm:"check:capacity IS NULL OR capacity > 0"`
	CreatedAt time.Time      `json:"created_at"         gorm:"index:idx_city_events,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"                  gorm:"index"`

	City City `json:"-" gorm:"foreignKey:CityID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Event.
func (Event) TableName() string { return "events" }
