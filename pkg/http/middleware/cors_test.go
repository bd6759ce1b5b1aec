package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func serveCORS(t *testing.T, origins []string, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Use(CORS(origins))
	e.Any("/api/v1/price", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(method, "/api/v1/price", nil)
	if origin != "" {
		req.Header.Set(echo.HeaderOrigin, origin)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowedOrigin(t *testing.T) {
	rec := serveCORS(t, []string{"https://desk.example"}, http.MethodGet, "https://desk.example")
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "https://desk.example" {
		t.Fatalf("allow-origin = %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCORSRejectedOrigin(t *testing.T) {
	rec := serveCORS(t, []string{"https://desk.example"}, http.MethodGet, "https://other.example")
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
	if rec.Header().Get(echo.HeaderVary) != echo.HeaderOrigin {
		t.Fatalf("missing Vary header")
	}
}

func TestCORSPreflightWildcard(t *testing.T) {
	rec := serveCORS(t, []string{"*"}, http.MethodOptions, "https://any.example")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get(echo.HeaderAccessControlAllowMethods) == "" || rec.Header().Get(echo.HeaderAccessControlMaxAge) != "600" {
		t.Fatalf("preflight headers missing: %v", rec.Header())
	}
}
