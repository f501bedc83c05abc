package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/rpattn/billingapi/internal/domain"
	"github.com/rpattn/billingapi/internal/export"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var statusByKind = map[domain.ErrorKind]int{
	domain.KindInvalidFilter:        http.StatusBadRequest,
	domain.KindInvalidSort:          http.StatusBadRequest,
	domain.KindInvalidPage:          http.StatusBadRequest,
	domain.KindPatch:                http.StatusBadRequest,
	domain.KindMismatchedIdentifier: http.StatusBadRequest,
	domain.KindInvalidRequest:       http.StatusBadRequest,
	domain.KindNotFound:             http.StatusNotFound,
	domain.KindUnauthenticated:      http.StatusUnauthorized,
	domain.KindForbidden:            http.StatusForbidden,
}

// statusFor maps err to a response status and body. Errors without a
// caller-facing kind become an opaque 500.
func statusFor(err error) (int, errorBody) {
	var de *domain.Error
	if errors.As(err, &de) {
		if status, ok := statusByKind[de.Kind]; ok {
			return status, errorBody{Error: string(de.Kind), Message: de.Message()}
		}
	}
	if errors.Is(err, export.ErrUnsupportedFormat) {
		return http.StatusBadRequest, errorBody{Error: string(domain.KindInvalidRequest), Message: err.Error()}
	}
	return http.StatusInternalServerError, errorBody{Error: "Internal", Message: "internal server error"}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
