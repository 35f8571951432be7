package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/tim-schilling/publicworks/internal/analysis"
	"github.com/tim-schilling/publicworks/internal/store"
	"github.com/tim-schilling/publicworks/internal/web/middleware"
)

// DefaultLimit is the number of groups returned when a request names none.
const DefaultLimit = 10

// Config holds the feature switches handlers consult.
type Config struct {
	ExportEnabled bool
}

// APIHandler serves aggregation, chart, option and statistics endpoints
type APIHandler struct {
	Engine *analysis.Engine
	Store  store.Store
	Config *Config
}

// ErrorResponse is the body of every failed API request
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

// writeError maps query failures to status codes and logs server-side ones.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		verr *analysis.ValidationError
		bad  *badRequest
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &bad):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, analysis.ErrUnknownFilter):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	default:
		middleware.Logger(ctx).WithError(err).Error("query failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func limitParam(v url.Values) (int, error) {
	raw := v.Get("limit")
	if raw == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, &badRequest{msg: "limit must be a positive integer"}
	}
	return n, nil
}

func filters(v url.Values) analysis.Filters {
	return analysis.Filters{
		Department: v.Get("department"),
		Division:   v.Get("division"),
		Category:   v.Get("category"),
	}
}

// aggregateQuery reads the /api/aggregate parameters.
func aggregateQuery(v url.Values) (analysis.Query, error) {
	limit, err := limitParam(v)
	if err != nil {
		return analysis.Query{}, err
	}
	q := analysis.Query{
		Dataset: analysis.Dataset(v.Get("dataset")),
		Group:   analysis.Group(v.Get("domain")),
		Filters: filters(v),
		OrderBy: analysis.OrderBy{
			Measure: analysis.Measure(v.Get("order")),
			Stat:    analysis.Stat(v.Get("stat")),
		},
		Limit: limit,
	}
	for _, m := range v["measure"] {
		q.Measures = append(q.Measures, analysis.Measure(m))
	}
	return q, nil
}

// chartQuery reads the dashboard chart parameters: range is the measure and
// value the statistic bars are sized and ranked by.
func chartQuery(v url.Values) (analysis.Query, error) {
	limit, err := limitParam(v)
	if err != nil {
		return analysis.Query{}, err
	}
	measure := analysis.Measure(v.Get("range"))
	stat := analysis.Stat(v.Get("value"))
	if stat == "" {
		stat = analysis.Avg
	}
	return analysis.Query{
		Dataset:  analysis.Dataset(v.Get("dataset")),
		Group:    analysis.Group(v.Get("domain")),
		Measures: []analysis.Measure{measure},
		Filters:  filters(v),
		OrderBy:  analysis.OrderBy{Measure: measure, Stat: stat},
		Limit:    limit,
	}, nil
}

// Aggregate returns grouped statistics
func (h *APIHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	q, err := aggregateQuery(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	results, err := h.Engine.Aggregate(r.Context(), q)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Chart returns one aggregation shaped for the dashboard bar chart
func (h *APIHandler) Chart(w http.ResponseWriter, r *http.Request) {
	q, err := chartQuery(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	results, err := h.Engine.Aggregate(r.Context(), q)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	chart := analysis.NewChart(results, q.OrderBy.Measure, q.OrderBy.Stat)
	writeJSON(w, http.StatusOK, map[string]any{"chart": chart})
}

// Options returns the filter drop-down values
func (h *APIHandler) Options(w http.ResponseWriter, r *http.Request) {
	opts, err := h.Engine.Options(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// StatsResponse holds record counts per table
type StatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// GetStats returns record counts
func (h *APIHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Store.Counts(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Counts: counts})
}
