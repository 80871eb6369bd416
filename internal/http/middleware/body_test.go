package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCaptureBody_BuffersAndRewinds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CaptureBody(1 << 10))
	r.POST("/events", func(c *gin.Context) {
		if got := string(BodyFrom(c)); got != `{"name":"x"}` {
			t.Fatalf("BodyFrom = %q", got)
		}
		again, _ := io.ReadAll(c.Request.Body)
		if string(again) != `{"name":"x"}` {
			t.Fatalf("request body not rewound: %q", again)
		}
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"name":"x"}`)))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestCaptureBody_NoBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CaptureBody(1 << 10))
	r.GET("/events", func(c *gin.Context) {
		if BodyFrom(c) != nil {
			t.Fatalf("expected nil body")
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCaptureBody_TooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handlerRan := false
	r := gin.New()
	r.Use(failureSink(), CaptureBody(8))
	r.POST("/events", func(c *gin.Context) { handlerRan = true })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(strings.Repeat("a", 64))))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "payload_too_large") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if handlerRan {
		t.Fatalf("handler must not run for oversized bodies")
	}
}
