package refresh

import (
	"context"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/credfresh/internal/config"
)

func TestRecordersNeverPanic(t *testing.T) {
	// Recording is a no-op until InitMetrics runs; callers must be able to
	// record unconditionally either way.
	recordAttempt("svc-uninitialized", true)
	recordClassification("svc-uninitialized", "valid")
}

func TestInitMetrics_Idempotent(t *testing.T) {
	InitMetrics()
	InitMetrics()

	require.NotNil(t, attemptsTotal)
	require.NotNil(t, classificationsTotal)
}

func TestRecordAttempt(t *testing.T) {
	InitMetrics()

	recordAttempt("metrics-svc-a", true)
	recordAttempt("metrics-svc-a", true)
	recordAttempt("metrics-svc-a", false)

	assert.Equal(t, 2.0, promtest.ToFloat64(attemptsTotal.WithLabelValues("metrics-svc-a", "success")))
	assert.Equal(t, 1.0, promtest.ToFloat64(attemptsTotal.WithLabelValues("metrics-svc-a", "failure")))
}

func TestAssess_RecordsClassifications(t *testing.T) {
	InitMetrics()

	orch, _, _ := testHarness(t, map[string]config.ServicePolicy{
		"metrics-svc-b": scriptedPolicy("scripted"),
	}, nil)

	// No bundle on the fake store, so every assessment classifies unknown.
	_, err := orch.Assess(context.Background(), []string{"metrics-svc-b"})
	require.NoError(t, err)
	_, err = orch.Assess(context.Background(), []string{"metrics-svc-b"})
	require.NoError(t, err)

	assert.Equal(t, 2.0, promtest.ToFloat64(classificationsTotal.WithLabelValues("metrics-svc-b", "unknown")))
}
