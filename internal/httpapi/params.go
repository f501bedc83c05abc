package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/billingapi/internal/domain"
	"github.com/rpattn/billingapi/internal/query"
)

// listParams decodes the list query string. Missing page values fall back
// to page 1 and defaultSize; range checks are left to the query engine.
func listParams(r *http.Request, defaultSize int) (query.ListParams, error) {
	q := r.URL.Query()
	params := query.ListParams{
		Filters:    q.Get("filters"),
		SearchTerm: q.Get("searchTerm"),
		SortField:  q.Get("sortField"),
		SortOrder:  q.Get("sortOrder"),
		Fields:     q.Get("fields"),
		PageNumber: query.DefaultPageNumber,
		PageSize:   defaultSize,
	}

	var err error
	if params.PageNumber, err = intParam(q.Get("pageNumber"), "pageNumber", params.PageNumber); err != nil {
		return query.ListParams{}, err
	}
	if params.PageSize, err = intParam(q.Get("pageSize"), "pageSize", params.PageSize); err != nil {
		return query.ListParams{}, err
	}
	return params, nil
}

func intParam(raw, name string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.InvalidPage(fmt.Sprintf("%s must be an integer", name))
	}
	return n, nil
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewError(domain.KindInvalidRequest, "id", "must be a UUID")
	}
	return id, nil
}
