package export

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rpattn/billingapi/internal/query"
)

// Handler streams exports over HTTP.
type Handler struct {
	service *Service
	now     func() time.Time
	onError func(http.ResponseWriter, *http.Request, error)
}

// NewHTTPHandler wraps the service. onError renders failures that happen
// before any byte of the file has been sent.
func NewHTTPHandler(service *Service, onError func(http.ResponseWriter, *http.Request, error)) *Handler {
	return &Handler{service: service, now: time.Now, onError: onError}
}

// Serve exports src filtered and projected by params in the format named by
// the "format" query parameter.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, src Source, params query.ListParams) {
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.onError(w, r, err)
		return
	}

	out := &lazyResponse{
		w:           w,
		contentType: format.ContentType(),
		filename:    FileName(src.Descriptor(), format, h.now()),
	}
	if _, err := h.service.Write(r.Context(), src, params, format, out); err != nil {
		if !out.started {
			h.onError(w, r, err)
			return
		}
		h.service.logger.Error("export aborted mid-stream",
			zap.String("entity", src.Descriptor().Name()), zap.Error(err))
		return
	}
	if !out.started {
		out.start()
	}
}

// lazyResponse defers the download headers until the first byte is written,
// so a rejected request can still get a regular error response.
type lazyResponse struct {
	w           http.ResponseWriter
	contentType string
	filename    string
	started     bool
}

func (l *lazyResponse) start() {
	l.started = true
	l.w.Header().Set("Content-Type", l.contentType)
	l.w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", l.filename))
	l.w.WriteHeader(http.StatusOK)
}

func (l *lazyResponse) Write(p []byte) (int, error) {
	if !l.started {
		l.start()
	}
	return l.w.Write(p)
}
