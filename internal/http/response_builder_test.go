package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"presupuesto/internal/core"
	"presupuesto/internal/suggest"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/purchases/abc").
		JSON(map[string]string{"id": "abc"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeJSON {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("Location") != "/api/purchases/abc" {
		t.Errorf("Location header not set")
	}
	if strings.TrimSpace(w.Body.String()) != `{"id":"abc"}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().JSON(map[string]any{"bad": make(chan int)}).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestErrorFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"validation", fmt.Errorf("set sales: %w", core.ErrInvalidAmount), http.StatusUnprocessableEntity, "validation_failed"},
		{"year-month", core.ErrInvalidYearMonth, http.StatusUnprocessableEntity, "validation_failed"},
		{"empty description", suggest.ErrEmptyDescription, http.StatusUnprocessableEntity, "validation_failed"},
		{"not found", fmt.Errorf("delete purchase x: %w", core.ErrPurchaseNotFound), http.StatusNotFound, "not_found"},
		{"suggester off", suggest.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
		{"store failure", errors.New("database is locked"), http.StatusInternalServerError, "internal"},
		{"timeout", context.DeadlineExceeded, http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/budget/2025-03", nil)
			w := httptest.NewRecorder()
			errorFor(r, "read", tt.err).Write(w)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if !strings.Contains(w.Body.String(), `"code":"`+tt.code+`"`) {
				t.Errorf("body %s missing code %s", w.Body.String(), tt.code)
			}
			if tt.want == http.StatusInternalServerError && strings.Contains(w.Body.String(), tt.err.Error()) {
				t.Errorf("internal error leaked to client: %s", w.Body.String())
			}
		})
	}
}
