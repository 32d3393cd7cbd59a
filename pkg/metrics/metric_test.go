package metrics

import (
	"testing"
	"time"

	"github.com/lintang-b-s/tiledroute/pkg/geo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRouteMetricsObserve(t *testing.T) {
	m := NewRouteMetrics(prometheus.NewRegistry())

	s := NewPathStatistics(geo.NewCoordinate(1, 1), geo.NewCoordinate(1, 1.01), "auto")
	s.Algorithm = "bidirectional_astar"
	s.Success = SUCCESS
	s.Passes = 2
	s.Runtime = 15 * time.Millisecond
	s.ScheduleUnavailable = 3
	m.Observe(s)
	m.Observe(s)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("auto", SUCCESS)))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.scheduleUnavailable))

	failed := NewPathStatistics(geo.NewCoordinate(1, 1), geo.NewCoordinate(1, 1.01), "auto")
	failed.Success = "fail_invalid_origin"
	m.Observe(failed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("auto", "fail_invalid_origin")))
}

func TestNilRouteMetrics(t *testing.T) {
	var m *RouteMetrics
	assert.NotPanics(t, func() { m.Observe(&PathStatistics{}) })
}

func TestPathStatisticsLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewPathStatistics(geo.NewCoordinate(1, 2), geo.NewCoordinate(3, 4), "pedestrian")
	s.Success = SUCCESS
	s.Log(zap.New(core))

	entries := logs.FilterMessage("[STATISTICS]").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "pedestrian", fields["costing"])
		assert.Equal(t, SUCCESS, fields["success"])
		assert.Equal(t, 3.0, fields["destination_lat"])
	}
}
