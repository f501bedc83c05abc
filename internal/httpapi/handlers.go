package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rpattn/billingapi/internal/domain"
	"github.com/rpattn/billingapi/internal/service"
)

type ctxKey struct{}

// withService resolves the {entity} segment to its service.
func (a *API) withService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "entity")
		svc, ok := a.services.Lookup(name)
		if !ok {
			a.writeError(w, r, domain.NewError(domain.KindNotFound, "", fmt.Sprintf("unknown entity type %q", name)))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, svc)))
	})
}

func serviceFrom(r *http.Request) *service.Service {
	return r.Context().Value(ctxKey{}).(*service.Service)
}

func (a *API) schemas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.registry.Descriptors())
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r, a.defaultPageSize)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	records, err := serviceFrom(r).Get(r.Context(), params)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	svc := serviceFrom(r)
	entity, err := a.decode(w, r, svc)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	id, err := svc.Create(r.Context(), entity)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uuid.UUID{"id": id})
}

func (a *API) export(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r, a.defaultPageSize)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.exporter.Serve(w, r, serviceFrom(r), params)
}

func (a *API) importFile(w http.ResponseWriter, r *http.Request) {
	a.importer.Serve(w, r, serviceFrom(r))
}

func (a *API) getByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	record, err := serviceFrom(r).GetByID(r.Context(), id, r.URL.Query().Get("fields"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (a *API) update(w http.ResponseWriter, r *http.Request) {
	svc := serviceFrom(r)
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	entity, err := a.decode(w, r, svc)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := svc.Update(r.Context(), id, entity); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeStatus(w)
}

func (a *API) patch(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := serviceFrom(r).Patch(r.Context(), id, body); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeStatus(w)
}

func (a *API) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := serviceFrom(r).Delete(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeStatus(w)
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, svc *service.Service) (any, error) {
	body, err := readBody(w, r)
	if err != nil {
		return nil, err
	}
	return svc.Decode(body)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.InvalidRequest(fmt.Sprintf("read body: %v", err))
	}
	return body, nil
}

func writeStatus(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"status": true})
}
