package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/okian/stampview/internal/domain/filter"
	"github.com/okian/stampview/pkg/logger"
)

// RowLimitHeader carries the configured row cap on /api/data responses.
const RowLimitHeader = "X-Row-Limit"

const maxBodyBytes = 1 << 20

// DataHandler serves filtered measurements and their time series.
type DataHandler struct {
	deps Dependencies
}

// NewDataHandler creates a new data handler.
func NewDataHandler(deps Dependencies) *DataHandler {
	return &DataHandler{deps: deps}
}

// HandleData handles GET and POST /api/data requests.
func (h *DataHandler) HandleData(w http.ResponseWriter, r *http.Request) {
	const op = "api.data"

	var (
		sel filter.Selection
		err error
	)
	switch r.Method {
	case http.MethodGet:
		sel, err = selectionFromQuery(r.URL.Query())
	case http.MethodPost:
		var body []byte
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err == nil {
			sel, err = selectionFromJSON(body)
		}
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	payload, err := h.deps.Query(r.Context(), sel)
	if err != nil {
		logger.Get().Error(r.Context(), "query failed", logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}

	w.Header().Set(RowLimitHeader, strconv.Itoa(h.deps.RowLimit()))
	writeJSON(w, http.StatusOK, payload)
}
