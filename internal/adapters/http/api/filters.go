package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/stampview/pkg/logger"
	"github.com/okian/stampview/pkg/metrics"
)

// FiltersHandler serves the selectable values per filter column.
type FiltersHandler struct {
	deps Dependencies
}

// NewFiltersHandler creates a new filters handler.
func NewFiltersHandler(deps Dependencies) *FiltersHandler {
	return &FiltersHandler{deps: deps}
}

// HandleFilters handles GET /api/filters requests. The ETag follows the
// loaded datasets, so clients can revalidate with If-None-Match.
func (h *FiltersHandler) HandleFilters(w http.ResponseWriter, r *http.Request) {
	const op = "api.filters"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	etag := fmt.Sprintf(`"%016x"`, h.deps.Fingerprint())
	if etagMatch(r.Header.Get("If-None-Match"), etag) {
		metrics.RecordFilterValuesRequest("not_modified")
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	values, err := h.deps.FilterValues(r.Context())
	if err != nil {
		metrics.RecordFilterValuesRequest("error")
		logger.Get().Error(r.Context(), "filter values failed", logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}

	metrics.RecordFilterValuesRequest("ok")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, values)
}

func etagMatch(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag || candidate == "*" {
			return true
		}
	}
	return false
}
