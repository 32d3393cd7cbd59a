package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lintang-b-s/tiledroute/pkg/costing"
	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"github.com/lintang-b-s/tiledroute/pkg/engine/routing"
	"github.com/lintang-b-s/tiledroute/pkg/geo"
	"github.com/lintang-b-s/tiledroute/pkg/metrics"
	"github.com/lintang-b-s/tiledroute/pkg/schedule"
	"github.com/lintang-b-s/tiledroute/pkg/util"
	"github.com/paulmach/osm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RegionChecker. connectivity regions of a location, used to reject disconnected requests before searching.
type RegionChecker interface {
	Regions(reader da.GraphReader, loc *da.Location) []uint32
}

type RelaxFactors struct {
	Factor                float64
	ExpansionWithinFactor float64
}

type Config struct {
	Routing routing.Options
	// Timeout bounds one request, zero means none.
	Timeout      time.Duration
	Connectivity bool
	Parallelism  int
	// Relax overrides the relax factors declared by an algorithm, keyed by algorithm name.
	Relax map[string]RelaxFactors
}

func DefaultConfig() Config {
	return Config{Routing: routing.DefaultOptions(), Parallelism: 4}
}

// algorithmSet. one instance of every path algorithm, owned by one request at a time.
type algorithmSet struct {
	astar         routing.PathAlgorithm
	bidirectional routing.PathAlgorithm
	multimodal    routing.PathAlgorithm
}

type Engine struct {
	reader   da.GraphReader
	factory  *costing.Factory
	provider schedule.Provider
	regions  RegionChecker
	metrics  *metrics.RouteMetrics
	cfg      Config
	log      *zap.Logger
	now      func() time.Time

	newAlgorithms func() *algorithmSet
	pool          sync.Pool
}

type Option func(*Engine)

func WithScheduleProvider(p schedule.Provider) Option {
	return func(e *Engine) { e.provider = p }
}

func WithRegionChecker(r RegionChecker) Option {
	return func(e *Engine) { e.regions = r }
}

func WithMetrics(m *metrics.RouteMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(reader da.GraphReader, factory *costing.Factory, cfg Config, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		reader:   reader,
		factory:  factory,
		provider: schedule.NewTimetable(),
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.newAlgorithms = func() *algorithmSet {
		return &algorithmSet{
			astar:         routing.NewAStar(e.cfg.Routing, e.log),
			bidirectional: routing.NewBidirectionalAStar(e.cfg.Routing, e.log),
			multimodal:    routing.NewMultiModal(e.cfg.Routing, e.provider, e.log),
		}
	}
	e.pool.New = func() any { return e.newAlgorithms() }
	return e
}

func (e *Engine) Factory() *costing.Factory {
	return e.factory
}

func (e *Engine) GraphReader() da.GraphReader {
	return e.reader
}

// createCostings builds the costings of a request and returns the travel mode the search starts in.
func (e *Engine) createCostings(req Request) (routing.ModeCostings, da.TravelMode, error) {
	names := []string{req.Costing}
	if req.Costing == costing.Multimodal {
		names = []string{costing.Auto, costing.Pedestrian, costing.Bicycle, costing.Transit}
	}
	costings := make(routing.ModeCostings, len(names))
	mode := da.PEDESTRIAN
	for _, name := range names {
		c, err := e.factory.Create(name, req.CostingOptions[name])
		if err != nil {
			return nil, 0, util.WrapErrorf(err, ErrCostingConfiguration, "costing %q", name)
		}
		costings[c.TravelMode()] = c
		if req.Costing != costing.Multimodal {
			mode = c.TravelMode()
		}
	}
	return costings, mode, nil
}

// selectAlgorithm: multimodal for transit requests, bidirectional for pedestrians, otherwise bidirectional
// unless both locations share a candidate edge.
func selectAlgorithm(algs *algorithmSet, costingName string, origin, dest *da.Location) routing.PathAlgorithm {
	switch costingName {
	case costing.Multimodal:
		return algs.multimodal
	case costing.Pedestrian:
		return algs.bidirectional
	}
	for _, a := range origin.Edges {
		if dest.HasEdge(a.Id) {
			return algs.astar
		}
	}
	return algs.bidirectional
}

// applyDateTime sets the clock of the first location (current, depart at) or the last (arrive by).
func (e *Engine) applyDateTime(req Request, locs []da.Location) error {
	dt := req.DateTime
	if dt == nil {
		if req.Costing != costing.Multimodal || locs[0].DateTime >= 0 {
			return nil
		}
		dt = &DateTime{Type: DATE_TIME_CURRENT}
	}
	secondsOfDay := func(t time.Time) float64 {
		return float64(t.Hour()*3600 + t.Minute()*60 + t.Second())
	}

	switch dt.Type {
	case DATE_TIME_CURRENT:
		locs[0].DateTime = secondsOfDay(e.now())
	case DATE_TIME_DEPART_AT, DATE_TIME_ARRIVE_BY:
		t, err := time.ParseInLocation(DateTimeLayout, dt.Value, time.Local)
		if err != nil {
			return util.WrapErrorf(err, ErrCostingConfiguration, "invalid date_time value %q", dt.Value)
		}
		if dt.Type == DATE_TIME_DEPART_AT {
			locs[0].DateTime = secondsOfDay(t)
			break
		}
		if req.Costing == costing.Multimodal {
			return util.WrapErrorf(nil, ErrCostingConfiguration, "arrive by is not supported for multimodal routes")
		}
		locs[len(locs)-1].DateTime = secondsOfDay(t)
	default:
		return util.WrapErrorf(nil, ErrCostingConfiguration, "unknown date_time type %d", dt.Type)
	}
	return nil
}

// connected reports whether one region is shared by every location.
func (e *Engine) connected(locs []da.Location) bool {
	counts := make(map[uint32]int)
	for i := range locs {
		for _, r := range e.regions.Regions(e.reader, &locs[i]) {
			counts[r]++
		}
	}
	for _, n := range counts {
		if n == len(locs) {
			return true
		}
	}
	return false
}

// Route computes every leg of req. Configuration and location errors are returned as errors; a request
// that finds no path returns a Result with a failure reason.
func (e *Engine) Route(ctx context.Context, req Request) (*Result, error) {
	t0 := time.Now()
	if len(req.Locations) < 2 {
		return nil, util.WrapErrorf(ErrInvalidLocation, util.ErrBadParamInput, "at least two locations are required")
	}
	locs := make([]da.Location, len(req.Locations))
	copy(locs, req.Locations)

	stats := metrics.NewPathStatistics(locs[0].Coordinate, locs[len(locs)-1].Coordinate, req.Costing)
	for i := 0; i+1 < len(locs); i++ {
		stats.ArcDist += geo.DistanceMeters(locs[i].Coordinate, locs[i+1].Coordinate)
	}
	finish := func(res *Result) *Result {
		res.Runtime = time.Since(t0)
		stats.Runtime = res.Runtime
		stats.Success = metrics.SUCCESS
		if !res.Succeeded() {
			stats.Success = res.Failure
		}
		stats.TripTime = res.Time()
		stats.TripDist = res.Distance()
		stats.Log(e.log)
		e.metrics.Observe(stats)
		return res
	}

	costings, mode, err := e.createCostings(req)
	if err != nil {
		return nil, err
	}
	for i := range locs {
		if len(locs[i].Edges) == 0 {
			finish(&Result{Failure: FailInvalidOrigin, Err: ErrInvalidLocation})
			return nil, util.WrapErrorf(ErrInvalidLocation, util.ErrBadParamInput,
				"location %d (%f,%f) has no candidate edges", i, locs[i].Coordinate.Lat, locs[i].Coordinate.Lon)
		}
	}
	if err := e.applyDateTime(req, locs); err != nil {
		return nil, err
	}

	if e.cfg.Connectivity && e.regions != nil && !e.connected(locs) {
		e.log.Info("No tile connectivity between locations")
		return finish(&Result{Failure: FailNoConnectivity, Err: ErrNoPathFound}), nil
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	algs := e.pool.Get().(*algorithmSet)
	defer e.pool.Put(algs)

	res := &Result{}
	for i := 0; i+1 < len(locs); i++ {
		origin, dest := &locs[i], &locs[i+1]
		alg := selectAlgorithm(algs, req.Costing, origin, dest)
		stats.Algorithm = alg.Name()

		leg := e.routeLeg(ctx, alg, origin, dest, costings, mode)
		stats.Passes += leg.Passes
		res.Passes += leg.Passes
		stats.Iterations += leg.Stats.Iterations
		stats.ScheduleUnavailable += leg.Stats.ScheduleUnavailable
		if len(leg.Path) == 0 {
			res.Legs = nil
			res.Failure, res.Err = e.classifyFailure(origin, dest)
			if res.Err == ErrNoPathFound && leg.Stats.ScheduleUnavailable > 0 {
				res.Err = util.WrapErrorf(ErrScheduleUnavailable, ErrNoPathFound,
					"%d transit departures beyond the schedule horizon", leg.Stats.ScheduleUnavailable)
			}
			return finish(res), nil
		}

		leg.Time = leg.Path[len(leg.Path)-1].ElapsedTime
		leg.Distance = pathDistance(e.reader, leg.Path, origin, dest)
		res.Legs = append(res.Legs, leg)
		e.log.Info("leg found", zap.Int("leg", i), zap.String("algorithm", leg.Algorithm),
			zap.Float64("trip_time", leg.Time), zap.Float64("trip_length", leg.Distance))

		if req.MultiRun > 0 {
			e.multiRun(ctx, alg, origin, dest, costings, mode, req.MultiRun)
		}
		// the next leg departs when this one arrives
		if origin.DateTime >= 0 && dest.DateTime < 0 {
			dest.DateTime = origin.DateTime + leg.Time
		}
	}
	return finish(res), nil
}

// classifyFailure distinguishes endpoints on disconnected edges from a missing route.
func (e *Engine) classifyFailure(origin, dest *da.Location) (string, error) {
	originWays := e.unreachableWays(origin, "Origin")
	destWays := e.unreachableWays(dest, "Destination")
	switch {
	case len(originWays) > 0 && len(destWays) > 0:
		return FailUnreachableLocations, &UnreachableError{Which: "locations", WayIds: append(originWays, destWays...)}
	case len(originWays) > 0:
		return FailUnreachableOrigin, &UnreachableError{Which: "origin", WayIds: originWays}
	case len(destWays) > 0:
		return FailUnreachableDestination, &UnreachableError{Which: "destination", WayIds: destWays}
	}
	return FailNoRoute, ErrNoPathFound
}

func (e *Engine) unreachableWays(loc *da.Location, which string) []osm.WayID {
	ways := make([]osm.WayID, 0)
	for _, pe := range loc.Edges {
		edge, tile := da.GetDirectedEdge(e.reader, pe.Id)
		if edge == nil {
			continue
		}
		var wayId osm.WayID
		if ei := tile.EdgeInfo(pe.Id.Index()); ei != nil {
			wayId = ei.WayId()
		}
		if edge.Unreachable() {
			e.log.Info(which+" edge is unconnected", zap.Int64("way_id", int64(wayId)))
			ways = append(ways, wayId)
		}
		e.log.Debug(which+" way", zap.Int64("way_id", int64(wayId)))
	}
	return ways
}

// pathDistance. meters traveled along path, counting only the used part of the first and last edges.
func pathDistance(reader da.GraphReader, path []routing.PathInfo, origin, dest *da.Location) float64 {
	percent := func(loc *da.Location, id da.GraphId) float64 {
		for _, pe := range loc.Edges {
			if pe.Id == id {
				return pe.PercentAlong
			}
		}
		return 0
	}
	total := 0.0
	for i, p := range path {
		edge, _ := da.GetDirectedEdge(reader, p.EdgeId)
		if edge == nil {
			continue
		}
		start, end := 0.0, 1.0
		if i == 0 {
			start = percent(origin, p.EdgeId)
		}
		if i == len(path)-1 {
			end = percent(dest, p.EdgeId)
		}
		if end > start {
			total += edge.Length() * (end - start)
		}
	}
	return total
}

// RouteBatch routes reqs concurrently, at most Parallelism at a time. results[i] belongs to reqs[i].
func (e *Engine) RouteBatch(ctx context.Context, reqs []Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.Parallelism > 0 {
		g.SetLimit(e.cfg.Parallelism)
	}
	for i := range reqs {
		i := i
		g.Go(func() error {
			res, err := e.Route(gctx, reqs[i])
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
