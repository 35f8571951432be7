package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(get().rowsTotal.WithLabelValues("order", "created"))
	RowProcessed("order", "created")
	RowProcessed("order", "created")
	assert.Equal(t, before+2, testutil.ToFloat64(get().rowsTotal.WithLabelValues("order", "created")))

	before = testutil.ToFloat64(get().referencesTotal.WithLabelValues("category", "merged"))
	ReferenceChanged("category", "merged")
	assert.Equal(t, before+1, testutil.ToFloat64(get().referencesTotal.WithLabelValues("category", "merged")))

	before = testutil.ToFloat64(get().queryTotal.WithLabelValues("orders", "error"))
	QueryFinished("orders", time.Millisecond, errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(get().queryTotal.WithLabelValues("orders", "error")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	ImportFinished("detail", 2*time.Second)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "publicworks_ingest_file_duration_seconds"))
}
