// README: Tests for API key middleware and recovery.
package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"qibla/internal/http/middleware"
	qlog "qibla/internal/log"
)

func newTestRouter(key string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Recovery(qlog.Discard()), middleware.Auth(key))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		header string
		value  string
		want   int
	}{
		{"disabled", "", "", "", http.StatusOK},
		{"missing", "secret", "", "", http.StatusUnauthorized},
		{"wrong", "secret", "X-API-Key", "nope", http.StatusUnauthorized},
		{"api key header", "secret", "X-API-Key", "secret", http.StatusOK},
		{"bearer", "secret", "Authorization", "Bearer secret", http.StatusOK},
		{"bad scheme", "secret", "Authorization", "Token secret", http.StatusUnauthorized},
		{"no scheme", "secret", "Authorization", "secret", http.StatusUnauthorized},
		{"empty bearer", "secret", "Authorization", "Bearer ", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(tt.key)
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	r := newTestRouter("")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
