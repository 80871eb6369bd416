package domain

import (
	"testing"
	"time"
)

func TestIdempotency_InsertAndUniqueUserKey(t *testing.T) {
	db := newDomainDB(t)
	now := time.Now().UTC()

	rec := &Idempotency{
		ID:        "id-1",
		UserID:    "u1",
		Key:       "k1",
		EventID:   "e1",
		Status:    201,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("insert valid: %v", err)
	}

	var got Idempotency
	if err := db.First(&got, "id = ?", "id-1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.UserID != "u1" || got.Key != "k1" || got.EventID != "e1" || got.Status != 201 {
		t.Fatalf("unexpected row: %+v", got)
	}
	if !got.ExpiresAt.After(now) {
		t.Fatalf("ExpiresAt should be after CreatedAt: %v vs %v", got.ExpiresAt, now)
	}

	dup := &Idempotency{ID: "id-2", UserID: "u1", Key: "k1", EventID: "e2", Status: 201, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected UNIQUE violation on (user_id, key)")
	}

	other := &Idempotency{ID: "id-3", UserID: "u2", Key: "k1", EventID: "e3", Status: 201, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("same key for another user must be allowed: %v", err)
	}
}

func TestIdempotency_NotNullColumns(t *testing.T) {
	db := newDomainDB(t)
	now := time.Now().UTC()

	cols := []string{"user_id", "key", "event_id", "status"}
	for _, col := range cols {
		vals := map[string]any{
			"id": "x-" + col, "user_id": "u", "key": "k-" + col, "event_id": "e",
			"status": 201, "created_at": now, "expires_at": now.Add(time.Hour),
		}
		vals[col] = nil
		if err := db.Table("idempotency").Create(vals).Error; err == nil {
			t.Fatalf("expected NOT NULL violation when inserting NULL into %q", col)
		}
	}
}
