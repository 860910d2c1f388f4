package middleware_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/acrewise/acrewise/pkg/middleware"
)

func TestTenantDevOwnerWhenVerifierNil(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	var gotOwner string
	handler := middleware.Tenant(nil, "org_id", "dev", logger)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotOwner, _ = middleware.OwnerFromContext(r.Context())
		}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/documents", nil))

	if gotOwner != "dev" {
		t.Errorf("owner = %q, want dev", gotOwner)
	}
}

func TestOwnerFromContext(t *testing.T) {
	ctx := middleware.WithOwner(t.Context(), "acme")

	owner, ok := middleware.OwnerFromContext(ctx)
	if !ok || owner != "acme" {
		t.Errorf("OwnerFromContext = %q, %v", owner, ok)
	}

	if _, ok := middleware.OwnerFromContext(t.Context()); ok {
		t.Error("bare context should carry no owner")
	}
}
