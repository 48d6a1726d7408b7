package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollectorsAreIndependent(t *testing.T) {
	a := NewCollector()
	b := NewCollector()

	a.RecordAdmission(3, 1)
	assert.Equal(t, 3.0, testutil.ToFloat64(a.jobsAdmitted))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.jobsAdmitted))
}

func TestJobLifecycle(t *testing.T) {
	c := NewCollector()

	c.JobSubmitted()
	c.JobSubmitted()
	assert.Equal(t, 2.0, testutil.ToFloat64(c.jobsInFlight))

	c.EncodeStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.encodesActive))
	c.EncodeFinished()

	c.JobFinished("succeeded", "encode", 3*time.Second)
	c.JobFinished("skipped", "none", time.Second)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.jobsInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.jobsFinished.WithLabelValues("succeeded", "encode")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.jobsFinished.WithLabelValues("skipped", "none")))
}

func TestReconcileAndWatchdog(t *testing.T) {
	c := NewCollector()
	c.RecordReconcile(2, 1)
	c.RecordReconcile(0, 0)
	c.RecordOverruns(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.reconcilePasses))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.reconcileDeleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reconcileFailures))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.watchdogOverruns))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordAdmission(1, 1)
		c.JobSubmitted()
		c.JobFinished("failed", "copy", time.Second)
		c.EncodeStarted()
		c.EncodeFinished()
		c.RecordReconcile(1, 1)
		c.RecordOverruns(1)
		c.RunFinished(time.Second)
	})
}

func TestHandlerServesMetrics(t *testing.T) {
	c := NewCollector()
	c.RunFinished(time.Minute)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "mirror_runs_total 1")
}
