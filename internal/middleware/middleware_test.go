package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rpattn/billingapi/internal/domain"
	"github.com/rpattn/billingapi/internal/repository"
)

func newRouter(t *testing.T, mws ...func(http.Handler) http.Handler) *chi.Mux {
	t.Helper()
	r := chi.NewRouter()
	r.Use(mws...)
	r.Get("/api/payment/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	return r
}

func TestLoggingMiddleware_LogsRoutePattern(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newRouter(t, LoggingMiddleware(zap.New(core)))

	req := httptest.NewRequest(http.MethodGet, "/api/payment/"+uuid.NewString(), nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["route"] != "/api/payment/{id}" {
		t.Fatalf("expected route pattern, got %v", fields["route"])
	}
	if fields["status"] != int64(http.StatusTeapot) {
		t.Fatalf("expected status 418, got %v", fields["status"])
	}
}

func TestMetrics_CountsByRoute(t *testing.T) {
	m := NewMetrics()
	r := newRouter(t, m.Instrument)

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/payment/"+uuid.NewString(), nil))
	}

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "billing_api_http_requests_total" {
			continue
		}
		if len(mf.GetMetric()) != 1 {
			t.Fatalf("expected a single series, got %d", len(mf.GetMetric()))
		}
		metric := mf.GetMetric()[0]
		if got := metric.GetCounter().GetValue(); got != 3 {
			t.Fatalf("expected 3 requests, got %v", got)
		}
		for _, label := range metric.GetLabel() {
			if label.GetName() == "route" && label.GetValue() != "/api/payment/{id}" {
				t.Fatalf("unexpected route label %q", label.GetValue())
			}
		}
		return
	}
	t.Fatalf("requests_total not registered")
}

func TestDataLoaderMiddleware_InstallsResolver(t *testing.T) {
	reg, err := domain.NewRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	store := repository.NewMemoryStore(reg)

	var sawLoader, sawResolver bool
	handler := DataLoaderMiddleware(store, reg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLoader = EntityLoaderFromContext(r.Context()) != nil
		_, sawResolver = repository.ResolverFromContext(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !sawLoader || !sawResolver {
		t.Fatalf("expected loader and resolver in context, got loader=%v resolver=%v", sawLoader, sawResolver)
	}
}
