package obs

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.TreeBuilt(KindSurface, 16)
	m.TreeBuilt(KindSurface, 4)
	m.TreeBuilt(KindCurve, 8)
	m.BuildFailed()
	m.Solve(SolveFound)
	m.Solve(SolveRetried)
	m.Solve(SolveFound)
	m.Intersection(3, 1)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.treesBuilt.WithLabelValues(KindSurface)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.treesBuilt.WithLabelValues(KindCurve)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.buildFailures), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.solves.WithLabelValues(SolveFound)), 0)
	assert.InDelta(t, 3.0, testutil.ToFloat64(m.droppedPairs), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.polylines), 0)
}

func TestMetricsDoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TreeBuilt(KindSurface, 1)
		m.BuildFailed()
		m.Solve(SolveMissed)
		m.Intersection(1, 1)
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(&buf, "debug", FormatJSON)
	require.NoError(t, err)
	l.Debug("built", "leaves", 4)
	assert.Contains(t, buf.String(), `"leaves":4`)

	_, err = NewLogger(&buf, "loud", FormatText)
	assert.Error(t, err)
	_, err = NewLogger(&buf, "info", "xml")
	assert.Error(t, err)

	assert.NotNil(t, Logger(nil))
	assert.Same(t, l, Logger(l))
}
