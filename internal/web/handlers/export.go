package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/tim-schilling/publicworks/internal/analysis"
)

// ExportHandler serves aggregations as file downloads
type ExportHandler struct {
	Engine *analysis.Engine
	Config *Config
}

var contentTypes = map[string]string{
	"csv":  "text/csv",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ExportData takes the /api/aggregate parameters plus format=csv|xlsx
func (h *ExportHandler) ExportData(w http.ResponseWriter, r *http.Request) {
	if !h.Config.ExportEnabled {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "export disabled"})
		return
	}

	v := r.URL.Query()
	format := v.Get("format")
	if format == "" {
		format = "csv"
	}
	contentType, ok := contentTypes[format]
	if !ok {
		writeError(r.Context(), w, &badRequest{msg: fmt.Sprintf("unsupported format %q", format)})
		return
	}

	q, err := aggregateQuery(v)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if v.Get("limit") == "" {
		q.Limit = 0
	}
	results, err := h.Engine.Aggregate(r.Context(), q)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	var buf bytes.Buffer
	if format == "xlsx" {
		err = analysis.WriteXLSX(&buf, q.Group, q.Measures, results)
	} else {
		err = analysis.WriteCSV(&buf, q.Group, q.Measures, results)
	}
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, q.Group, format))
	_, _ = w.Write(buf.Bytes())
}
