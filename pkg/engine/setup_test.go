package engine

import (
	"testing"
	"time"

	"github.com/lintang-b-s/tiledroute/pkg/costing"
	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"github.com/lintang-b-s/tiledroute/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultFileConfig(t *testing.T) *util.Config {
	t.Helper()
	cfg, err := util.ReadConfig("")
	require.NoError(t, err)
	return cfg
}

func TestNewConfig(t *testing.T) {
	cfg := defaultFileConfig(t)
	cfg.Thor.Adjacency.Type = "heap"
	cfg.Thor.Connectivity = true
	cfg.Thor.Relax = map[string]util.RelaxConfig{"astar": {Factor: 2, ExpansionWithinFactor: 3}}

	c := NewConfig(cfg)
	assert.Equal(t, da.HEAP_ADJACENCY, c.Routing.Adjacency.Type)
	assert.Equal(t, 20000.0, c.Routing.Adjacency.BucketRange)
	assert.Equal(t, 2000000, c.Routing.MaxIterations)
	assert.Equal(t, 30*time.Second, c.Timeout)
	assert.True(t, c.Connectivity)
	assert.Equal(t, 4, c.Parallelism)
	assert.Equal(t, RelaxFactors{Factor: 2, ExpansionWithinFactor: 3}, c.Relax["astar"])
}

func TestNewFactory(t *testing.T) {
	cfg := defaultFileConfig(t)
	cfg.CostingOptions = map[string]map[string]interface{}{costing.Auto: {"use_highways": 0.25}}
	cfg.Thor.HierarchyLimits = map[string]util.HierarchyLimitConfig{
		"1": {MaxUpTransitions: 50, ExpansionWithinDist: 2000},
	}

	f, err := NewFactory(cfg)
	require.NoError(t, err)

	auto, err := f.Create(costing.Auto, nil)
	require.NoError(t, err)
	limits := auto.HierarchyLimits()
	assert.Equal(t, uint32(50), limits[1].MaxUpTransitions)
	assert.Equal(t, 2000.0, limits[1].ExpansionWithinDist)
	assert.Equal(t, da.DefaultHierarchyLimits()[2], limits[2])

	bicycle, err := f.Create(costing.Bicycle, nil)
	require.NoError(t, err)
	assert.Equal(t, da.UnlimitedTransitions, bicycle.HierarchyLimits()[1].MaxUpTransitions)

	_, err = f.Create(costing.Auto, map[string]interface{}{"use_highways": 2.0})
	assert.ErrorIs(t, err, costing.ErrInvalidOptions)
}

func TestNewFactoryErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *util.Config)
		target error
	}{
		{"unknown costing", func(cfg *util.Config) {
			cfg.CostingOptions = map[string]map[string]interface{}{"hovercraft": {}}
		}, costing.ErrUnknownCosting},
		{"level out of range", func(cfg *util.Config) {
			cfg.Thor.HierarchyLimits = map[string]util.HierarchyLimitConfig{"7": {}}
		}, ErrCostingConfiguration},
		{"level not a number", func(cfg *util.Config) {
			cfg.Thor.HierarchyLimits = map[string]util.HierarchyLimitConfig{"local": {}}
		}, ErrCostingConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultFileConfig(t)
			tt.modify(cfg)
			_, err := NewFactory(cfg)
			assert.ErrorIs(t, err, ErrCostingConfiguration)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}
