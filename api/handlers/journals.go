package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/canbahi79-lgtm/formatfactory/api/journals"
	"github.com/canbahi79-lgtm/formatfactory/api/middleware"
)

type JournalSource interface {
	FetchAll(ctx context.Context) ([]journals.Journal, error)
}

type JournalCache interface {
	Get(ctx context.Context) ([]journals.Journal, bool)
	Set(ctx context.Context, items []journals.Journal) error
}

type JournalHandler struct {
	source JournalSource
	cache  JournalCache
	logger *zap.Logger
}

func NewJournalHandler(source JournalSource, cache JournalCache, logger *zap.Logger) *JournalHandler {
	return &JournalHandler{
		source: source,
		cache:  cache,
		logger: logger,
	}
}

// List handles GET /api/journals, serving the cached directory when it is
// still fresh.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	if items, ok := h.cache.Get(r.Context()); ok {
		h.respondJSON(w, http.StatusOK, items)
		return
	}

	items, err := h.source.FetchAll(r.Context())
	if err != nil {
		h.logger.Error("Journal scrape failed",
			zap.String("trace_id", traceID),
			zap.Error(err),
		)
		h.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "scrape_failed"})
		return
	}

	if err := h.cache.Set(r.Context(), items); err != nil {
		h.logger.Warn("Failed to cache journal directory",
			zap.String("trace_id", traceID),
			zap.Error(err),
		)
	}

	h.respondJSON(w, http.StatusOK, items)
}

func (h *JournalHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
