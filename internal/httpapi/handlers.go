package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/listquery/internal/catalog"
	"github.com/coral-mesh/listquery/internal/querylog"
	"github.com/coral-mesh/listquery/pkg/query"
)

type handlers struct {
	catalog      Catalog
	history      Recorder
	maxTop       int
	queryTimeout time.Duration
	logger       zerolog.Logger
}

func (h *handlers) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK\n"))
	})
	mux.HandleFunc("GET /v1/datasets", h.listDatasets)
	mux.HandleFunc("GET /v1/datasets/{name}", h.listDataset)

	// Outermost first: request ID, access log, ETag.
	return RequestID(AccessLog(h.logger)(ETag(mux)))
}

func (h *handlers) listDatasets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"datasets": h.catalog.Names()})
}

func (h *handlers) listDataset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	start := time.Now()

	page, err := h.list(r, name)

	if h.history != nil {
		entry := &querylog.Entry{
			RequestID:  GetRequestID(r.Context()),
			Dataset:    name,
			RawQuery:   r.URL.RawQuery,
			DurationMs: float64(time.Since(start).Microseconds()) / 1000,
		}
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Count = page.Count
			entry.Returned = len(page.Items)
		}
		if recErr := h.history.Record(r.Context(), entry); recErr != nil {
			h.logger.Warn().Err(recErr).Msg("Failed to record query")
		}
	}

	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) list(r *http.Request, name string) (*query.Page[map[string]any], error) {
	params, err := query.ParseParams(r.URL.RawQuery)
	if err != nil {
		return nil, err
	}
	settings, err := query.SettingsFromParams(params)
	if err != nil {
		return nil, err
	}
	if h.maxTop > 0 && (settings.Top == nil || *settings.Top > h.maxTop) {
		settings.Top = query.Int(h.maxTop)
	}

	ctx := r.Context()
	if h.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.queryTimeout)
		defer cancel()
	}

	page, err := h.catalog.List(ctx, name, settings)
	if err != nil {
		return nil, err
	}
	if next := nextPageLink(requestURL(r), settings, page.Count); next != nil {
		page.NextPageLink = next.String()
	}
	return page, nil
}

// pagingParams are replaced in next-page links by explicit $skip and $top.
var pagingParams = []string{"$skip", "skip", "$top", "top", "$page", "page", "$pagesize", "pagesize"}

// nextPageLink returns the URL of the page after the current one, or nil when
// the request was not paged or the current page is the last.
func nextPageLink(u *url.URL, settings *query.Settings, count int64) *url.URL {
	if settings.Top == nil || *settings.Top == 0 {
		return nil
	}
	skip := 0
	if settings.Skip != nil {
		skip = *settings.Skip
	}
	top := *settings.Top
	if int64(skip+top) >= count {
		return nil
	}

	values := u.Query()
	for _, p := range pagingParams {
		values.Del(p)
	}
	values.Set("$skip", strconv.Itoa(skip+top))
	values.Set("$top", strconv.Itoa(top))

	next := *u
	next.RawQuery = values.Encode()
	return &next
}

// requestURL reconstructs the absolute URL the client used.
func requestURL(r *http.Request) *url.URL {
	u := *r.URL
	u.Host = r.Host
	u.Scheme = "http"
	if r.TLS != nil {
		u.Scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		u.Scheme = proto
	}
	return &u
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrDatasetNotFound):
		return http.StatusNotFound
	case errors.Is(err, query.ErrInvalidParameter),
		errors.Is(err, query.ErrMalformedFilter),
		errors.Is(err, query.ErrUnknownField),
		errors.Is(err, query.ErrTypeMismatch),
		errors.Is(err, query.ErrInvalidExpression):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	event := h.logger.Debug()
	if status >= http.StatusInternalServerError {
		event = h.logger.Error()
	}
	event.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("List request failed")

	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: GetRequestID(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
