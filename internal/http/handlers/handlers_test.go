package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-events-backend/internal/domain"
	"github.com/tbourn/go-events-backend/internal/http/dispatch"
	"github.com/tbourn/go-events-backend/internal/http/middleware"
	"github.com/tbourn/go-events-backend/internal/services"
	"github.com/tbourn/go-events-backend/internal/validation"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testStage() *validation.Stage {
	return validation.New(validation.Options{
		Whitelist:          true,
		Transform:          true,
		ImplicitConversion: true,
	})
}

// newTestRouter mounts h's routes behind the same error pipeline the
// production router uses. Failure records are written to logs.
func newTestRouter(h *Handlers, logs *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h.now = func() time.Time { return fixedNow }

	d := dispatch.New(zerolog.New(logs), dispatch.Options{Now: func() time.Time { return fixedNow }})
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		d.Middleware(),
		middleware.Recovery(d.HandlePanic),
		middleware.CaptureBody(1<<20),
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil),
	)
	r.POST("/cities", h.CreateCity)
	r.GET("/cities", h.ListCities)
	r.GET("/cities/:id", h.GetCity)
	r.POST("/events", h.CreateEvent)
	r.GET("/events", h.ListEvents)
	r.GET("/events/:id", h.GetEvent)
	r.PUT("/events/:id", h.RenameEvent)
	r.DELETE("/events/:id", h.DeleteEvent)
	return r
}

func do(r http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v; body=%s", err, w.Body.String())
	}
	return out
}

// issues returns the error envelope's message as (pointer, detail) pairs.
func issues(t *testing.T, body map[string]any) [][2]string {
	t.Helper()
	list, ok := body["message"].([]any)
	if !ok {
		t.Fatalf("expected issue list, got %#v", body["message"])
	}
	out := make([][2]string, 0, len(list))
	for _, it := range list {
		m := it.(map[string]any)
		var ptr string
		if src, ok := m["source"].(map[string]any); ok {
			ptr, _ = src["pointer"].(string)
		}
		out = append(out, [2]string{ptr, m["detail"].(string)})
	}
	return out
}

// ----- Fake services -----

type fakeCities struct {
	createName, createCountry string
	city                      *domain.City
	err                       error

	page, pageSize int
	items          []domain.City
	total          int64
}

func (f *fakeCities) Create(ctx context.Context, name, country string) (*domain.City, error) {
	f.createName, f.createCountry = name, country
	return f.city, f.err
}

func (f *fakeCities) Get(ctx context.Context, id string) (*domain.City, error) {
	return f.city, f.err
}

func (f *fakeCities) ListPage(ctx context.Context, page, pageSize int) ([]domain.City, int64, error) {
	f.page, f.pageSize = page, pageSize
	return f.items, f.total, f.err
}

type fakeEvents struct {
	in       services.NewEvent
	userID   string
	key      string
	event    *domain.Event
	replayed bool
	err      error
}

func (f *fakeEvents) CreateIdempotent(ctx context.Context, userID, key string, in services.NewEvent) (*domain.Event, bool, error) {
	f.userID, f.key, f.in = userID, key, in
	return f.event, f.replayed, f.err
}

func (f *fakeEvents) Get(ctx context.Context, id string) (*domain.Event, error) { return f.event, f.err }

func (f *fakeEvents) ListPage(ctx context.Context, cityID string, page, pageSize int) ([]domain.Event, int64, error) {
	return nil, 0, f.err
}

func (f *fakeEvents) Stats(ctx context.Context, cityID string) (int64, *time.Time, error) {
	return 0, nil, f.err
}

func (f *fakeEvents) Rename(ctx context.Context, id, name string) error { return f.err }

func (f *fakeEvents) Delete(ctx context.Context, id string) error { return f.err }
