package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStorageOp(t *testing.T) {
	m := New()

	m.ObserveStorageOp("put", nil, 10*time.Millisecond)
	m.ObserveStorageOp("put", errors.New("boom"), time.Millisecond)
	m.ObserveStorageOp("put", nil, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StorageOps().WithLabelValues("put", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageOps().WithLabelValues("put", OutcomeFailure)))
}

func TestReplicationCounters(t *testing.T) {
	m := New()

	m.ObjectReplicated(nil)
	m.ObjectReplicated(errors.New("denied"))
	m.ReplicationFinished("completed_with_warnings", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReplicatedObjects().WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReplicatedObjects().WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReplicationRuns().WithLabelValues("completed_with_warnings")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveStorageOp("delete", nil, time.Millisecond)
		m.ObjectReplicated(nil)
		m.ReplicationFinished("completed", time.Second)
		m.ObserveHTTPRequest("/health", http.MethodGet, "200", time.Millisecond)
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest("/health", http.MethodGet, "200", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "catalog_http_requests_total")
}
