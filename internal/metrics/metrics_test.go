package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Increment(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.IncrementRecorded("update", "product")
	m.IncrementRecorded("update", "product")
	m.IncrementUpdateSkipped("product")
	m.IncrementSaveFailure("insert", "product_category")
	m.IncrementPublishFailure()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.EntriesRecorded.WithLabelValues("update", "product")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.UpdatesSkipped.WithLabelValues("product")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SaveFailures.WithLabelValues("insert", "product_category")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PublishFailures))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.IncrementRecorded("insert", "product")
		m.IncrementUpdateSkipped("product")
		m.IncrementSaveFailure("insert", "product")
		m.IncrementPublishFailure()
	})
}

func TestNewWithRegistry_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewWithRegistry(reg)

	assert.Panics(t, func() { NewWithRegistry(reg) })
}
