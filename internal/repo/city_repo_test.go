package repo

import (
	"context"
	"errors"
	"testing"
)

func TestCreateCity_Error_NoTable(t *testing.T) {
	db := newTestDB(t, false)
	c, err := CreateCity(context.Background(), db, "Athens", "GR")
	if err == nil || c != nil {
		t.Fatalf("expected error creating without table, got city=%v err=%v", c, err)
	}
}

func TestCreateCity_PersistsAndRejectsDuplicate(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	c, err := CreateCity(ctx, db, "Athens", "GR")
	if err != nil {
		t.Fatalf("CreateCity: %v", err)
	}
	if c.ID == "" || c.Name != "Athens" || c.Country != "GR" || c.CreatedAt.IsZero() {
		t.Fatalf("unexpected city: %+v", c)
	}

	got, err := GetCity(ctx, db, c.ID)
	if err != nil || got.Name != "Athens" {
		t.Fatalf("GetCity: %+v %v", got, err)
	}

	_, err = CreateCity(ctx, db, "Athens", "GR")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestGetCity_NotFound(t *testing.T) {
	db := newTestDB(t, true)
	if _, err := GetCity(context.Background(), db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListCitiesPage_OrderAndCount(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	for _, n := range []string{"Paris", "Berlin", "Athens"} {
		seedCity(t, db, n, "")
	}

	total, err := CountCities(ctx, db)
	if err != nil || total != 3 {
		t.Fatalf("CountCities = %d, %v", total, err)
	}

	page, err := ListCitiesPage(ctx, db, 0, 2)
	if err != nil {
		t.Fatalf("ListCitiesPage: %v", err)
	}
	if len(page) != 2 || page[0].Name != "Athens" || page[1].Name != "Berlin" {
		t.Fatalf("unexpected first page: %+v", page)
	}
	page, _ = ListCitiesPage(ctx, db, 2, 2)
	if len(page) != 1 || page[0].Name != "Paris" {
		t.Fatalf("unexpected second page: %+v", page)
	}
}
