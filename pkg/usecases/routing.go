package usecases

import (
	"context"
	"errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/lintang-b-s/tiledroute/pkg/costing"
	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"github.com/lintang-b-s/tiledroute/pkg/engine"
	"github.com/lintang-b-s/tiledroute/pkg/engine/routing"
	"github.com/lintang-b-s/tiledroute/pkg/geo"
	"github.com/lintang-b-s/tiledroute/pkg/metrics"
	"github.com/lintang-b-s/tiledroute/pkg/util"
	"go.uber.org/zap"
)

type RoutingEngine interface {
	Route(ctx context.Context, req engine.Request) (*engine.Result, error)
	Factory() *costing.Factory
	GraphReader() da.GraphReader
}

type Correlator interface {
	Correlate(lat, lon float64, heading *float64, allowed func(*da.DirectedEdge) bool) (da.Location, error)
}

type RoutingService struct {
	log        *zap.Logger
	engine     RoutingEngine
	correlator Correlator
	validate   *validator.Validate
	trans      ut.Translator
}

func NewRoutingService(log *zap.Logger, engine RoutingEngine, correlator Correlator) *RoutingService {
	if log == nil {
		log = zap.NewNop()
	}
	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	return &RoutingService{
		log:        log,
		engine:     engine,
		correlator: correlator,
		validate:   validate,
		trans:      trans,
	}
}

func translateError(err error, trans ut.Translator) []error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{err}
	}
	errs := make([]error, 0, len(verrs))
	for _, e := range verrs {
		errs = append(errs, errors.New(e.Translate(trans)))
	}
	return errs
}

func (rs *RoutingService) Validate(req RouteRequest) error {
	if err := rs.validate.Struct(req); err != nil {
		vv := translateError(err, rs.trans)
		vvString := []string{}
		for _, v := range vv {
			vvString = append(vvString, v.Error())
		}
		return util.WrapErrorf(err, util.ErrBadParamInput, "validation error: %v", vvString)
	}
	return nil
}

// correlate snaps every location onto edges the request's costing may use. Multimodal requests start
// and end on foot.
func (rs *RoutingService) correlate(req RouteRequest) ([]da.Location, error) {
	name := req.Costing
	if name == costing.Multimodal {
		name = costing.Pedestrian
	}
	c, err := rs.engine.Factory().Create(name, req.CostingOptions[name])
	if err != nil {
		return nil, util.WrapErrorf(err, engine.ErrCostingConfiguration, "costing %q", name)
	}

	locs := make([]da.Location, 0, len(req.Locations))
	for i, l := range req.Locations {
		loc, err := rs.correlator.Correlate(l.Lat, l.Lon, l.Heading, c.Allowed)
		if err != nil {
			return nil, util.WrapErrorf(err, engine.ErrInvalidLocation, "location %d (%f,%f)", i, l.Lat, l.Lon)
		}
		locs = append(locs, loc)
	}
	return locs, nil
}

// Route validates, correlates and routes req. A request that finds no path returns a Trip with the failure
// status together with the failure error.
func (rs *RoutingService) Route(ctx context.Context, req RouteRequest) (*Trip, error) {
	if err := rs.Validate(req); err != nil {
		return nil, err
	}
	locs, err := rs.correlate(req)
	if err != nil {
		return nil, err
	}

	res, err := rs.engine.Route(ctx, engine.Request{
		Locations:      locs,
		Costing:        req.Costing,
		CostingOptions: req.CostingOptions,
		DateTime:       req.dateTime(),
		MultiRun:       req.MultiRun,
	})
	if err != nil {
		return nil, err
	}
	if !res.Succeeded() {
		return &Trip{Status: res.Failure, Legs: []TripLeg{}}, res.Err
	}

	trip := &Trip{Status: metrics.SUCCESS, Legs: make([]TripLeg, 0, len(res.Legs))}
	for i, leg := range res.Legs {
		tl := TripLeg{
			Time:      util.RoundFloat(leg.Time, 3),
			Length:    util.RoundFloat(leg.Distance/1000, 3),
			Shape:     geo.EncodePolyline(rs.shape(leg.Path, &locs[i], &locs[i+1])),
			Algorithm: leg.Algorithm,
			Passes:    leg.Passes,
			Modes:     modes(leg.Path),
		}
		trip.Legs = append(trip.Legs, tl)
		trip.Summary.Time += tl.Time
		trip.Summary.Length += tl.Length
	}
	rs.log.Debug("trip", zap.Int("legs", len(trip.Legs)), zap.Float64("time", trip.Summary.Time),
		zap.Float64("length", trip.Summary.Length))
	return trip, nil
}

// shape of a path from the projected origin to the projected destination.
func (rs *RoutingService) shape(path []routing.PathInfo, origin, dest *da.Location) []geo.Coordinate {
	reader := rs.engine.GraphReader()
	projected := func(loc *da.Location, id da.GraphId) (geo.Coordinate, bool) {
		for _, pe := range loc.Edges {
			if pe.Id == id {
				return pe.Projected, true
			}
		}
		return geo.Coordinate{}, false
	}

	coords := make([]geo.Coordinate, 0, len(path)+1)
	add := func(c geo.Coordinate) {
		if n := len(coords); n > 0 && coords[n-1] == c {
			return
		}
		coords = append(coords, c)
	}
	for i, p := range path {
		edge, _ := da.GetDirectedEdge(reader, p.EdgeId)
		if edge == nil || edge.IsTransition() {
			continue
		}
		if i == 0 {
			if c, ok := projected(origin, p.EdgeId); ok {
				add(c)
			}
		}
		if len(coords) == 0 {
			if start, _ := da.GetNodeInfo(reader, da.GetStartNode(reader, p.EdgeId)); start != nil {
				add(start.Coordinate())
			}
		}
		if i == len(path)-1 {
			if c, ok := projected(dest, p.EdgeId); ok {
				add(c)
				continue
			}
		}
		if end, _ := da.GetNodeInfo(reader, edge.EndNode()); end != nil {
			add(end.Coordinate())
		}
	}
	return coords
}

// modes traveled in path order, consecutive duplicates collapsed.
func modes(path []routing.PathInfo) []string {
	out := make([]string, 0, 2)
	for _, p := range path {
		m := p.Mode.String()
		if len(out) == 0 || out[len(out)-1] != m {
			out = append(out, m)
		}
	}
	return out
}
