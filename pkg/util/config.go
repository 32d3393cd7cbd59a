package util

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Graph   GraphConfig   `mapstructure:"graph"`
	Thor    ThorConfig    `mapstructure:"thor"`
	Loki    LokiConfig    `mapstructure:"loki"`

	// CostingOptions holds per mode defaults, keyed by costing name.
	CostingOptions map[string]map[string]interface{} `mapstructure:"costing_options"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type GraphConfig struct {
	TileDir   string `mapstructure:"tile_dir"`
	CacheSize int    `mapstructure:"cache_size"`
}

type AdjacencyConfig struct {
	// Type is "bucket" or "heap".
	Type        string  `mapstructure:"type"`
	BucketSize  float64 `mapstructure:"bucket_size"`
	BucketRange float64 `mapstructure:"bucket_range"`
}

type RelaxConfig struct {
	Factor                float64 `mapstructure:"factor"`
	ExpansionWithinFactor float64 `mapstructure:"expansion_within_factor"`
}

type HierarchyLimitConfig struct {
	MaxUpTransitions    uint32  `mapstructure:"max_up_transitions"`
	ExpansionWithinDist float64 `mapstructure:"expansion_within_dist"`
}

type ThorConfig struct {
	MaxIterations int             `mapstructure:"max_iterations"`
	Timeout       time.Duration   `mapstructure:"timeout"`
	Connectivity  bool            `mapstructure:"connectivity"`
	Parallelism   int             `mapstructure:"parallelism"`
	Adjacency     AdjacencyConfig `mapstructure:"adjacency"`

	// Relax overrides the relaxation factors declared by each algorithm, keyed by algorithm name.
	Relax map[string]RelaxConfig `mapstructure:"relax"`

	// HierarchyLimits keyed by level number ("0", "1", "2").
	HierarchyLimits map[string]HierarchyLimitConfig `mapstructure:"hierarchy_limits"`
}

type LokiConfig struct {
	SearchRadius     float64 `mapstructure:"search_radius"`
	HeadingTolerance float64 `mapstructure:"heading_tolerance"`
	MaxCandidates    int     `mapstructure:"max_candidates"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("graph.tile_dir", "./data/tiles")
	v.SetDefault("graph.cache_size", 1024)
	v.SetDefault("thor.max_iterations", 2000000)
	v.SetDefault("thor.timeout", "30s")
	v.SetDefault("thor.connectivity", false)
	v.SetDefault("thor.parallelism", 4)
	v.SetDefault("thor.adjacency.type", "bucket")
	v.SetDefault("thor.adjacency.bucket_size", 1.0)
	v.SetDefault("thor.adjacency.bucket_range", 20000.0)
	v.SetDefault("loki.search_radius", 50.0)
	v.SetDefault("loki.heading_tolerance", 60.0)
	v.SetDefault("loki.max_candidates", 8)
}

// ReadConfig loads the config file at path. An empty path only applies defaults.
func ReadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}
