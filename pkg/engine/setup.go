package engine

import (
	"fmt"
	"strconv"

	"github.com/lintang-b-s/tiledroute/pkg/connectivity"
	"github.com/lintang-b-s/tiledroute/pkg/costing"
	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"github.com/lintang-b-s/tiledroute/pkg/engine/routing"
	"github.com/lintang-b-s/tiledroute/pkg/metrics"
	"github.com/lintang-b-s/tiledroute/pkg/schedule"
	"github.com/lintang-b-s/tiledroute/pkg/util"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// NewConfig converts the thor section of the config file.
func NewConfig(cfg *util.Config) Config {
	c := DefaultConfig()
	c.Routing = routing.Options{
		Adjacency: da.AdjacencyOptions{
			Type:        da.ParseAdjacencyType(cfg.Thor.Adjacency.Type),
			BucketSize:  cfg.Thor.Adjacency.BucketSize,
			BucketRange: cfg.Thor.Adjacency.BucketRange,
		},
		MaxIterations: cfg.Thor.MaxIterations,
	}
	c.Timeout = cfg.Thor.Timeout
	c.Connectivity = cfg.Thor.Connectivity
	if cfg.Thor.Parallelism > 0 {
		c.Parallelism = cfg.Thor.Parallelism
	}
	c.Relax = make(map[string]RelaxFactors, len(cfg.Thor.Relax))
	for name, r := range cfg.Thor.Relax {
		c.Relax[name] = RelaxFactors{Factor: r.Factor, ExpansionWithinFactor: r.ExpansionWithinFactor}
	}
	return c
}

// NewFactory registers the built-in costings with the configured defaults and hierarchy limits.
func NewFactory(cfg *util.Config) (*costing.Factory, error) {
	f := costing.NewDefaultFactory()
	for name, opts := range cfg.CostingOptions {
		if !f.Has(name) {
			return nil, util.WrapErrorf(costing.ErrUnknownCosting, ErrCostingConfiguration,
				"costing_options.%s", name)
		}
		f.SetDefaults(name, opts)
	}

	if len(cfg.Thor.HierarchyLimits) > 0 {
		limits := da.DefaultHierarchyLimits()
		for key, l := range cfg.Thor.HierarchyLimits {
			level, err := strconv.Atoi(key)
			if err != nil || level < 0 || level >= len(limits) {
				return nil, util.WrapErrorf(err, ErrCostingConfiguration, "thor.hierarchy_limits: invalid level %q", key)
			}
			limits[level] = da.NewHierarchyLimits(l.MaxUpTransitions, l.ExpansionWithinDist)
		}
		f.SetHierarchyLimits(limits)
	}
	return f, nil
}

// Open wires an engine over the tiles in graph.tile_dir. provider may be nil when no schedule is loaded.
func Open(cfg *util.Config, provider schedule.Provider, reg prometheus.Registerer, log *zap.Logger) (*Engine, error) {
	log.Info("Starting routing engine...")

	log.Info("Opening tiles from ", zap.String("tileDir", cfg.Graph.TileDir))
	store, err := da.NewTileStore(cfg.Graph.TileDir, cfg.Graph.CacheSize, da.DefaultTileHierarchy(), log)
	if err != nil {
		return nil, err
	}

	factory, err := NewFactory(cfg)
	if err != nil {
		return nil, err
	}

	opts := []Option{}
	if provider != nil {
		opts = append(opts, WithScheduleProvider(provider))
	}
	if reg != nil {
		opts = append(opts, WithMetrics(metrics.NewRouteMetrics(reg)))
	}

	if cfg.Thor.Connectivity {
		log.Info("Building connectivity map...")
		tiles, err := store.Tiles()
		if err != nil {
			return nil, fmt.Errorf("reading tiles: %w", err)
		}
		opts = append(opts, WithRegionChecker(connectivity.Build(tiles, log)))
	}

	return NewEngine(store, factory, NewConfig(cfg), log, opts...), nil
}
