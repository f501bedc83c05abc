package middleware

import (
	"context"
	"net/http"

	"github.com/rpattn/billingapi/internal/entityloader"
	"github.com/rpattn/billingapi/internal/repository"
	"github.com/rpattn/billingapi/internal/schema"
)

type ctxKey string

const entityLoaderKey ctxKey = "entityLoader"

// DataLoaderMiddleware gives every request its own batching relation loader
func DataLoaderMiddleware(store repository.Store, registry *schema.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := entityloader.NewEntityLoader(store, registry)

			ctx := context.WithValue(r.Context(), entityLoaderKey, loader)
			ctx = repository.WithResolver(ctx, loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EntityLoaderFromContext retrieves the request's loader
func EntityLoaderFromContext(ctx context.Context) *entityloader.EntityLoader {
	if l, ok := ctx.Value(entityLoaderKey).(*entityloader.EntityLoader); ok {
		return l
	}
	return nil
}
