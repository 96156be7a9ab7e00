package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baatasaari/agenthub-knowledge/internal/api"
)

type contextKey string

const TenantIDKey contextKey = "tenant_id"

// TenantContext lifts the tenant id from the route into the request
// context so logging and telemetry can tag every event with it. Requests
// without a tenant id are rejected before reaching a handler.
func TenantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenantID")
		if tenantID == "" {
			api.Error(w, http.StatusBadRequest, "tenant id is required")
			return
		}

		ctx := context.WithValue(r.Context(), TenantIDKey, tenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetTenantID returns the tenant id from context.
func GetTenantID(ctx context.Context) string {
	tenantID, _ := ctx.Value(TenantIDKey).(string)
	return tenantID
}
