package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromCounters(t *testing.T) {
	p := NewProm("badges")
	p.IncEvents("copied")
	p.IncEvents("copied")
	p.IncEvents("filtered")
	p.IncCopies("success")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.events.WithLabelValues("copied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.events.WithLabelValues("filtered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.copies.WithLabelValues("success")))

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `badges_events_total{outcome="copied"} 2`)
}

func TestNoopSatisfiesMetrics(t *testing.T) {
	var m Metrics = Noop{}
	m.IncEvents("copied")
	m.IncCopies("success")
}
