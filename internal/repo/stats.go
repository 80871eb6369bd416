// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// EventsStats returns the number of live events (optionally for one city)
// and the greatest UpdatedAt among them. maxUpdatedAt is nil when there are
// no rows.
func EventsStats(ctx context.Context, db *gorm.DB, cityID string) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = eventsScope(ctx, db, cityID).Count(&count).Error; err != nil {
		return 0, nil, translate(err, "events stats")
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = eventsScope(ctx, db, cityID).Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, translate(err, "events stats")
	}
	return count, &row.UpdatedAt, nil
}
