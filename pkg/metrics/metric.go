package metrics

import (
	"time"

	"github.com/lintang-b-s/tiledroute/pkg/geo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	SUCCESS = "success"
)

// PathStatistics. one statistics row per route request.
type PathStatistics struct {
	Origin      geo.Coordinate
	Destination geo.Coordinate
	Costing     string
	Algorithm   string
	Success     string
	Passes      int
	Runtime     time.Duration
	TripTime    float64 // seconds
	TripDist    float64 // meters
	ArcDist     float64 // meters, great-circle distance through every location

	Iterations          int
	ScheduleUnavailable int
}

func NewPathStatistics(origin, destination geo.Coordinate, costingName string) *PathStatistics {
	return &PathStatistics{Origin: origin, Destination: destination, Costing: costingName}
}

func (s *PathStatistics) Fields() []zap.Field {
	return []zap.Field{
		zap.Float64("origin_lat", s.Origin.Lat),
		zap.Float64("origin_lon", s.Origin.Lon),
		zap.Float64("destination_lat", s.Destination.Lat),
		zap.Float64("destination_lon", s.Destination.Lon),
		zap.String("costing", s.Costing),
		zap.String("algorithm", s.Algorithm),
		zap.String("success", s.Success),
		zap.Int("passes", s.Passes),
		zap.Int64("runtime_ms", s.Runtime.Milliseconds()),
		zap.Float64("trip_time", s.TripTime),
		zap.Float64("trip_dist", s.TripDist),
		zap.Float64("arc_dist", s.ArcDist),
	}
}

func (s *PathStatistics) Log(log *zap.Logger) {
	log.Info("[STATISTICS]", s.Fields()...)
}

// RouteMetrics exports route statistics to prometheus. A nil *RouteMetrics records nothing.
type RouteMetrics struct {
	requests            *prometheus.CounterVec
	passes              *prometheus.HistogramVec
	duration            *prometheus.HistogramVec
	iterations          *prometheus.HistogramVec
	scheduleUnavailable prometheus.Counter
}

func NewRouteMetrics(reg prometheus.Registerer) *RouteMetrics {
	factory := promauto.With(reg)
	return &RouteMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "route_requests_total",
			Help: "Total route requests by costing and result",
		}, []string{"costing", "result"}),
		passes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "route_passes",
			Help:    "Number of search passes per route request",
			Buckets: []float64{1, 2, 3, 6, 9},
		}, []string{"algorithm"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "route_duration_seconds",
			Help:    "Route request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}, []string{"algorithm"}),
		iterations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "route_search_iterations",
			Help:    "Labels settled per route request",
			Buckets: prometheus.ExponentialBuckets(10, 4, 10),
		}, []string{"algorithm"}),
		scheduleUnavailable: factory.NewCounter(prometheus.CounterOpts{
			Name: "route_schedule_unavailable_total",
			Help: "Transit branches pruned for lack of a departure within the schedule horizon",
		}),
	}
}

func (m *RouteMetrics) Observe(s *PathStatistics) {
	if m == nil || s == nil {
		return
	}
	m.requests.WithLabelValues(s.Costing, s.Success).Inc()
	if s.Algorithm == "" {
		return
	}
	m.passes.WithLabelValues(s.Algorithm).Observe(float64(s.Passes))
	m.duration.WithLabelValues(s.Algorithm).Observe(s.Runtime.Seconds())
	m.iterations.WithLabelValues(s.Algorithm).Observe(float64(s.Iterations))
	if s.ScheduleUnavailable > 0 {
		m.scheduleUnavailable.Add(float64(s.ScheduleUnavailable))
	}
}
