package costing

import (
	"fmt"
	"sync"

	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"golang.org/x/exp/slices"
)

type CreateFunc func(opts Options) *Costing

// Factory creates costings by name. Configured defaults are merged under request overrides.
type Factory struct {
	mu       sync.RWMutex
	creators map[string]CreateFunc
	defaults map[string]map[string]interface{}
	limits   []da.HierarchyLimits
}

func NewFactory() *Factory {
	return &Factory{
		creators: make(map[string]CreateFunc),
		defaults: make(map[string]map[string]interface{}),
	}
}

// NewDefaultFactory registers every built-in mode.
func NewDefaultFactory() *Factory {
	f := NewFactory()
	f.Register(Auto, CreateAutoCost)
	f.Register(AutoShorter, CreateAutoShorterCost)
	f.Register(Bus, CreateBusCost)
	f.Register(Bicycle, CreateBicycleCost)
	f.Register(Pedestrian, CreatePedestrianCost)
	f.Register(Truck, CreateTruckCost)
	f.Register(Transit, CreateTransitCost)
	return f
}

func (f *Factory) Register(name string, fn CreateFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creators[name] = fn
}

// SetDefaults sets the configured options of a mode.
func (f *Factory) SetDefaults(name string, opts map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaults[name] = opts
}

// SetHierarchyLimits replaces the limits of every mode that uses the vehicle defaults.
func (f *Factory) SetHierarchyLimits(limits []da.HierarchyLimits) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = limits
}

func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.creators))
	for name := range f.creators {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (f *Factory) Has(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.creators[name]
	return ok
}

// Create builds a fresh costing. overrides win over the configured defaults.
func (f *Factory) Create(name string, overrides map[string]interface{}) (*Costing, error) {
	f.mu.RLock()
	fn, ok := f.creators[name]
	defaults := f.defaults[name]
	limits := f.limits
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCosting, name)
	}
	opts, err := decodeOptions(name, defaults, overrides)
	if err != nil {
		return nil, err
	}
	c := fn(opts)
	if limits != nil && c.TravelMode() == da.DRIVE {
		c.SetHierarchyLimits(limits)
	}
	return c, nil
}
