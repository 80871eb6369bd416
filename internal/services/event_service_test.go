package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-events-backend/internal/apperr"
	"github.com/tbourn/go-events-backend/internal/domain"
	"github.com/tbourn/go-events-backend/internal/repo"
)

var dbSeq atomic.Int64

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(fmt.Sprintf("file:services_%d?mode=memory&cache=shared", dbSeq.Add(1)))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newEventFixture(t *testing.T) (*EventService, *domain.City) {
	t.Helper()
	db := newServiceDB(t)
	city, err := repo.CreateCity(context.Background(), db, "Athens", "GR")
	if err != nil {
		t.Fatalf("seed city: %v", err)
	}
	return &EventService{DB: db, IdempotencyTTL: time.Hour}, city
}

func TestEventService_Create_UnknownCityIsValidationFailure(t *testing.T) {
	s, _ := newEventFixture(t)

	_, err := s.Create(context.Background(), NewEvent{Name: "Gig", CityID: "00000000-0000-0000-0000-000000000001"})
	e, ok := apperr.As(err)
	if !ok || !e.IsValidation() {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if len(e.Fields) != 1 || e.Fields[0].Field != "city_id" || e.Fields[0].Message != unknownCityMessage {
		t.Fatalf("unexpected fields: %+v", e.Fields)
	}
	if !errors.Is(err, repo.ErrForeignKey) {
		t.Fatalf("driver error must be kept as the cause: %v", e.Cause)
	}
}

func TestEventService_CreateGetRenameDelete(t *testing.T) {
	s, city := newEventFixture(t)
	ctx := context.Background()
	capacity := 10

	ev, err := s.Create(ctx, NewEvent{Name: "  Jazz   night ", CityID: city.ID, Capacity: &capacity})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ev.Name != "Jazz night" || ev.CityID != city.ID || *ev.Capacity != 10 {
		t.Fatalf("unexpected event: %+v", ev)
	}

	got, err := s.Get(ctx, ev.ID)
	if err != nil || got.ID != ev.ID {
		t.Fatalf("Get: %+v %v", got, err)
	}
	if err := s.Rename(ctx, ev.ID, "Blues night"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	got, _ = s.Get(ctx, ev.ID)
	if got.Name != "Blues night" {
		t.Fatalf("rename not persisted: %+v", got)
	}

	if err := s.Delete(ctx, ev.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, ev.ID); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, ev.ID); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound on second delete, got %v", err)
	}
	if err := s.Rename(ctx, ev.ID, "x"); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound on rename, got %v", err)
	}
}

func TestEventService_CreateIdempotent_Replays(t *testing.T) {
	s, city := newEventFixture(t)
	ctx := context.Background()
	in := NewEvent{Name: "Meetup", CityID: city.ID}

	first, replayed, err := s.CreateIdempotent(ctx, "u1", "key-1", in)
	if err != nil || replayed {
		t.Fatalf("first create: %+v replayed=%v err=%v", first, replayed, err)
	}
	again, replayed, err := s.CreateIdempotent(ctx, "u1", "key-1", in)
	if err != nil || !replayed || again.ID != first.ID {
		t.Fatalf("replay: %+v replayed=%v err=%v", again, replayed, err)
	}
	other, replayed, err := s.CreateIdempotent(ctx, "u2", "key-1", in)
	if err != nil || replayed || other.ID == first.ID {
		t.Fatalf("other user must create a new event: %+v replayed=%v err=%v", other, replayed, err)
	}

	total, _, _ := s.Stats(ctx, city.ID)
	if total != 2 {
		t.Fatalf("expected 2 events, got %d", total)
	}

	rec, err := repo.GetIdempotency(ctx, s.DB, "u1", "key-1", time.Now().UTC())
	if err != nil || rec.Status != http.StatusCreated || rec.EventID != first.ID {
		t.Fatalf("idempotency record: %+v %v", rec, err)
	}
}

func TestEventService_CreateIdempotent_ExpiredKeyCreatesAgain(t *testing.T) {
	s, city := newEventFixture(t)
	ctx := context.Background()

	first, _, err := s.CreateIdempotent(ctx, "u1", "k", NewEvent{Name: "A", CityID: city.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	second, replayed, err := s.CreateIdempotent(ctx, "u1", "k", NewEvent{Name: "B", CityID: city.ID})
	if err != nil || replayed || second.ID == first.ID {
		t.Fatalf("expired key must create a new event: %+v replayed=%v err=%v", second, replayed, err)
	}
	if n, _, _ := s.Stats(ctx, ""); n != 2 {
		t.Fatalf("events = %d; want 2", n)
	}
}

func TestEventService_CreateIdempotent_FailedInsertKeepsKeyFree(t *testing.T) {
	s, city := newEventFixture(t)
	ctx := context.Background()

	if _, _, err := s.CreateIdempotent(ctx, "u1", "k", NewEvent{Name: "A", CityID: "00000000-0000-0000-0000-000000000001"}); err == nil {
		t.Fatalf("expected failure for unknown city")
	}
	ev, replayed, err := s.CreateIdempotent(ctx, "u1", "k", NewEvent{Name: "A", CityID: city.ID})
	if err != nil || replayed || ev == nil {
		t.Fatalf("key must be usable after a rolled back attempt: %+v %v %v", ev, replayed, err)
	}
}

func TestEventService_ListPage(t *testing.T) {
	s, city := newEventFixture(t)
	ctx := context.Background()

	items, total, err := s.ListPage(ctx, "", 1, 20)
	if err != nil || total != 0 || items == nil {
		t.Fatalf("empty list: %v %d %v", items, total, err)
	}

	for i := 0; i < 3; i++ {
		if _, err := s.Create(ctx, NewEvent{Name: fmt.Sprintf("e%d", i), CityID: city.ID}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	items, total, err = s.ListPage(ctx, city.ID, 2, 2)
	if err != nil || total != 3 || len(items) != 1 {
		t.Fatalf("page 2: items=%v total=%d err=%v", items, total, err)
	}

	if _, _, err := s.ListPage(ctx, "00000000-0000-0000-0000-000000000009", 1, 20); !errors.Is(err, ErrCityNotFound) {
		t.Fatalf("expected ErrCityNotFound for unknown city filter, got %v", err)
	}
}
