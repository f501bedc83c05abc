package ingestion

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpattn/billingapi/internal/domain"
)

// Handler exposes ingestion as a multipart upload endpoint.
type Handler struct {
	service        *Service
	maxUploadBytes int64
	onError        func(http.ResponseWriter, *http.Request, error)
}

// NewHTTPHandler wraps the service. onError renders failures.
func NewHTTPHandler(service *Service, maxUploadBytes int64, onError func(http.ResponseWriter, *http.Request, error)) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &Handler{service: service, maxUploadBytes: maxUploadBytes, onError: onError}
}

// Serve imports the "file" part of the request into target. Optional form
// values: "dryRun" (bool) and "headerRow" (1-based line of the header).
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, target Target) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.onError(w, r, domain.InvalidRequest(fmt.Sprintf("invalid form data: %v", err)))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.onError(w, r, domain.InvalidRequest(fmt.Sprintf("file required: %v", err)))
		return
	}
	defer file.Close()

	req := Request{FileName: header.Filename, Data: file}
	if raw := strings.TrimSpace(r.FormValue("dryRun")); raw != "" {
		dryRun, err := strconv.ParseBool(raw)
		if err != nil {
			h.onError(w, r, domain.InvalidRequest("dryRun must be a boolean"))
			return
		}
		req.DryRun = dryRun
	}
	if raw := strings.TrimSpace(r.FormValue("headerRow")); raw != "" {
		line, err := strconv.Atoi(raw)
		if err != nil || line < 1 {
			h.onError(w, r, domain.InvalidRequest("headerRow must be a positive line number"))
			return
		}
		idx := line - 1
		req.HeaderRowIndex = &idx
	}

	summary, err := h.service.Import(r.Context(), target, req)
	if err != nil {
		if _, ok := domain.KindOf(err); !ok {
			err = domain.InvalidRequest(err.Error())
		}
		h.onError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
