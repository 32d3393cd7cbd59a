package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"github.com/lintang-b-s/tiledroute/pkg/engine"
	"github.com/lintang-b-s/tiledroute/pkg/logger"
	"github.com/lintang-b-s/tiledroute/pkg/schedule"
	"github.com/lintang-b-s/tiledroute/pkg/spatialindex"
	"github.com/lintang-b-s/tiledroute/pkg/usecases"
	"github.com/lintang-b-s/tiledroute/pkg/util"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	configFile            = flag.String("config", "", "config file (yaml or json)")
	requestFile           = flag.String("j", "", "json route request file, overrides -origin/-destination/-type")
	origin                = flag.String("origin", "", "origin as lat,lon")
	destination           = flag.String("destination", "", "destination as lat,lon")
	costingType           = flag.String("type", "auto", "costing: auto, auto_shorter, bus, bicycle, pedestrian, truck, transit, multimodal")
	connectivity          = flag.Bool("connectivity", false, "reject requests whose locations share no connectivity region")
	multiRun              = flag.Int("multi-run", 0, "rerun every leg this many times and log the average search time")
	scheduleFile          = flag.String("schedule", "", "transit departures csv (line_id,trip_id,departure_secs,arrival_secs)")
	leafBoundingBoxRadius = flag.Float64("leaf_bounding_box_radius", 20, "r-tree bounding box padding of an edge in meters")
)

func parseLatLon(s string) (usecases.LocationRequest, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return usecases.LocationRequest{}, fmt.Errorf("%q: expected lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return usecases.LocationRequest{}, fmt.Errorf("%q: invalid latitude: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return usecases.LocationRequest{}, fmt.Errorf("%q: invalid longitude: %w", s, err)
	}
	return usecases.LocationRequest{Lat: lat, Lon: lon}, nil
}

func readRequest() (usecases.RouteRequest, error) {
	var req usecases.RouteRequest
	if *requestFile != "" {
		data, err := os.ReadFile(*requestFile)
		if err != nil {
			return req, err
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("decoding %s: %w", *requestFile, err)
		}
	} else {
		o, err := parseLatLon(*origin)
		if err != nil {
			return req, err
		}
		d, err := parseLatLon(*destination)
		if err != nil {
			return req, err
		}
		req = usecases.RouteRequest{Locations: []usecases.LocationRequest{o, d}, Costing: *costingType}
	}
	if *multiRun > 0 {
		req.MultiRun = *multiRun
	}
	return req, nil
}

func main() {
	flag.Parse()
	cfg, err := util.ReadConfig(*configFile)
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if *connectivity {
		cfg.Thor.Connectivity = true
	}

	req, err := readRequest()
	if err != nil {
		log.Fatal("invalid request", zap.Error(err))
	}

	var provider schedule.Provider
	if *scheduleFile != "" {
		tt, err := schedule.ReadCSVFile(*scheduleFile)
		if err != nil {
			log.Fatal("unable to read schedule", zap.Error(err))
		}
		log.Info("schedule loaded", zap.Int("lines", tt.LineCount()))
		provider = tt
	}

	routingEngine, err := engine.Open(cfg, provider, prometheus.NewRegistry(), log)
	if err != nil {
		log.Fatal("unable to start routing engine", zap.Error(err))
	}

	tiles, err := da.AllTiles(routingEngine.GraphReader())
	if err != nil {
		log.Fatal("unable to read tiles", zap.Error(err))
	}
	rtree := spatialindex.NewRtree()
	rtree.Build(routingEngine.GraphReader(), tiles, *leafBoundingBoxRadius, log)
	correlator := spatialindex.NewCorrelator(rtree, routingEngine.GraphReader(), cfg.Loki.SearchRadius,
		cfg.Loki.HeadingTolerance, cfg.Loki.MaxCandidates)

	routingService := usecases.NewRoutingService(log, routingEngine, correlator)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trip, err := routingService.Route(ctx, req)
	if trip != nil {
		out, merr := json.MarshalIndent(trip, "", "  ")
		if merr != nil {
			log.Fatal("encoding trip", zap.Error(merr))
		}
		fmt.Println(string(out))
	}
	if err != nil {
		var ue *engine.UnreachableError
		switch {
		case errors.As(err, &ue):
			log.Error("location is unreachable", zap.String("which", ue.Which), zap.Error(err))
		case errors.Is(err, engine.ErrNoPathFound):
			log.Error("no path found", zap.Error(err))
		default:
			log.Error("route request failed", zap.Error(err))
		}
		log.Sync()
		os.Exit(1)
	}
}
