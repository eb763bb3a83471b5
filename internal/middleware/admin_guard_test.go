package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAdminGuard(t *testing.T) {
	next := func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	}

	cases := []struct {
		name string
		role any
		want int
	}{
		{"admin passes", "admin", http.StatusOK},
		{"client refused", "client", http.StatusForbidden},
		{"vendor refused", "vendor", http.StatusForbidden},
		{"no role refused", nil, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/admin/transactions", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tc.role != nil {
				c.Set("role", tc.role)
			}

			if err := AdminGuard(next)(c); err != nil {
				t.Fatalf("middleware error: %v", err)
			}
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
