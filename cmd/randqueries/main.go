package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lintang-b-s/tiledroute/pkg"
	"github.com/lintang-b-s/tiledroute/pkg/concurrent"
	"github.com/lintang-b-s/tiledroute/pkg/connectivity"
	"github.com/lintang-b-s/tiledroute/pkg/costing"
	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"github.com/lintang-b-s/tiledroute/pkg/engine"
	"github.com/lintang-b-s/tiledroute/pkg/geo"
	"github.com/lintang-b-s/tiledroute/pkg/logger"
	"github.com/lintang-b-s/tiledroute/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

var (
	rows        = flag.Int("rows", 100, "grid rows")
	cols        = flag.Int("cols", 100, "grid columns")
	numQueries  = flag.Int("queries", 10000, "number of random queries")
	numWorkers  = flag.Int("workers", 8, "concurrent queries")
	costingType = flag.String("type", "auto", "costing of every query")
	seed        = flag.Uint64("seed", 0, "random seed, zero seeds from the clock")
	onewayRatio = flag.Float64("oneway", 0.1, "share of one way roads")
	minRegion   = flag.Int("min_region", 0, "flag edges in connectivity regions smaller than this as unreachable")
	tileDir     = flag.String("tile_dir", "", "also write the grid tiles to this directory")
	outFile     = flag.String("out", "rand_queries_result.txt", "result file")
	logLevel    = flag.String("log_level", "warn", "log level")
	roadClasses = flag.String("classes", "residential:30,tertiary:50,secondary:70", "road classes and their speeds (kph) drawn for grid roads")
)

const gridStep = 0.001 // degrees

type grid struct {
	b      *da.GraphBuilder
	coords []geo.Coordinate
	// roads[i] is {forward handle, reverse handle, from node, to node}
	roads [][4]int
}

type roadClass struct {
	class pkg.OsmHighwayType
	speed float64
}

// parseRoadClasses parses "class:speed,...".
func parseRoadClasses(s string) ([]roadClass, error) {
	out := make([]roadClass, 0)
	for _, part := range strings.Split(s, ",") {
		name, speed, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("%q: expected class:speed", part)
		}
		class := pkg.GetHighwayType(name)
		if class == pkg.UNKNOWN {
			return nil, fmt.Errorf("%q: unknown road class", name)
		}
		kph, err := strconv.ParseFloat(speed, 64)
		if err != nil || kph <= 0 {
			return nil, fmt.Errorf("%q: invalid speed", part)
		}
		out = append(out, roadClass{class: class, speed: kph})
	}
	return out, nil
}

func buildGrid(rd *rand.Rand, classes []roadClass) *grid {
	g := &grid{b: da.NewGraphBuilder(da.DefaultTileHierarchy())}
	nodes := make([][]int, *rows)
	for r := 0; r < *rows; r++ {
		nodes[r] = make([]int, *cols)
		for c := 0; c < *cols; c++ {
			coord := geo.NewCoordinate(float64(r)*gridStep, float64(c)*gridStep)
			nodes[r][c] = g.b.AddNode(da.NodeSpec{Lat: coord.Lat, Lon: coord.Lon, Level: pkg.LOCAL_LEVEL})
			g.coords = append(g.coords, coord)
		}
	}

	addRoad := func(a, c int) {
		rc := classes[rd.Intn(len(classes))]
		spec := da.EdgeSpec{Speed: rc.speed, Class: rc.class, Access: da.ALL_ACCESS}
		fwd, rev := g.b.AddRoad(a, c, spec, rd.Float64() < *onewayRatio)
		g.roads = append(g.roads, [4]int{fwd, rev, a, c})
	}
	for r := 0; r < *rows; r++ {
		for c := 0; c < *cols; c++ {
			if c+1 < *cols {
				addRoad(nodes[r][c], nodes[r][c+1])
			}
			if r+1 < *rows {
				addRoad(nodes[r][c], nodes[r+1][c])
			}
		}
	}
	return g
}

// location on a random road, correlated to both of its directions.
func (g *grid) randomLocation(rd *rand.Rand) da.Location {
	road := g.roads[rd.Intn(len(g.roads))]
	pct := rd.Float64()
	p := geo.Interpolate(g.coords[road[2]], g.coords[road[3]], pct)
	loc := da.NewLocation(p.Lat, p.Lon)
	loc.Edges = []da.PathEdge{
		{Id: g.b.EdgeId(road[0]), PercentAlong: pct, Projected: p},
		{Id: g.b.EdgeId(road[1]), PercentAlong: 1 - pct, Projected: p},
	}
	return loc
}

type query struct {
	row         int
	origin      da.Location
	destination da.Location
}

type queryResult struct {
	row     int
	status  string
	passes  int
	time    float64
	dist    float64
	runtime time.Duration
	err     error
}

func main() {
	flag.Parse()
	log, err := logger.New(*logLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	s := *seed
	if s == 0 {
		s = uint64(time.Now().UnixNano())
	}
	rd := rand.New(rand.NewSource(s))

	classes, err := parseRoadClasses(*roadClasses)
	if err != nil {
		log.Fatal("invalid road classes", zap.Error(err))
	}
	for _, rc := range classes {
		log.Debug("road class", zap.Stringer("class", rc.class), zap.Float64("speed", rc.speed))
	}

	g := buildGrid(rd, classes)
	reader, err := g.b.Build()
	if err != nil {
		panic(err)
	}
	log.Info("grid built", zap.Int("roads", len(g.roads)), zap.Uint64("seed", s))

	if *minRegion > 0 {
		cm := connectivity.Build(reader.Tiles(), log)
		marked := cm.MarkUnreachable(reader.Tiles(), *minRegion)
		log.Info("marked unreachable edges", zap.Int("regions", cm.NumComponents()), zap.Int("edges", marked))
	}

	if *tileDir != "" {
		store, err := da.NewTileStore(*tileDir, 1, reader.TileHierarchy(), log)
		if err != nil {
			panic(err)
		}
		for _, t := range reader.Tiles() {
			if err := store.WriteTile(t); err != nil {
				panic(err)
			}
		}
		log.Info("tiles written", zap.String("tileDir", *tileDir))
	}

	reg := prometheus.NewRegistry()
	re := engine.NewEngine(reader, costing.NewDefaultFactory(), engine.DefaultConfig(), log,
		engine.WithMetrics(metrics.NewRouteMetrics(reg)))

	queries := make([]query, *numQueries)
	for i := range queries {
		queries[i] = query{row: i, origin: g.randomLocation(rd), destination: g.randomLocation(rd)}
	}

	fout, err := os.Create(*outFile)
	if err != nil {
		panic(err)
	}
	defer fout.Close()
	w := bufio.NewWriter(fout)
	defer w.Flush()

	workers := concurrent.NewWorkerPool[query, queryResult](*numWorkers, len(queries))
	workers.Start(context.Background(), func(ctx context.Context, q query) queryResult {
		res, err := re.Route(ctx, engine.Request{
			Locations: []da.Location{q.origin, q.destination},
			Costing:   *costingType,
		})
		if err != nil {
			return queryResult{row: q.row, err: err}
		}
		qr := queryResult{row: q.row, status: metrics.SUCCESS, time: res.Time(), dist: res.Distance(),
			passes: res.Passes, runtime: res.Runtime}
		if !res.Succeeded() {
			qr.status = res.Failure
		}
		return qr
	})
	for _, q := range queries {
		workers.AddJob(q)
	}
	workers.Close()

	done, failed := 0, 0
	for r := range workers.Results() {
		done++
		if r.err != nil {
			log.Error("query failed", zap.Int("row", r.row), zap.Error(r.err))
			failed++
			continue
		}
		if r.status != metrics.SUCCESS {
			failed++
		}
		if _, err := fmt.Fprintf(w, "%d %s %d %.3f %.3f %d\n", r.row, r.status, r.passes, r.time, r.dist,
			r.runtime.Microseconds()); err != nil {
			panic(err)
		}
		if done%1000 == 0 {
			log.Sugar().Infof("done query %v", done)
		}
	}
	log.Warn("random queries finished", zap.Int("queries", done), zap.Int("failed", failed),
		zap.String("out", *outFile))
}
