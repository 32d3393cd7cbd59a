package costing

import (
	"math"

	"github.com/lintang-b-s/tiledroute/pkg"
	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
)

// Cost. weighted cost plus elapsed seconds.
type Cost struct {
	Cost float64
	Secs float64
}

func NewCost(cost, secs float64) Cost {
	return Cost{Cost: cost, Secs: secs}
}

func (c Cost) Add(o Cost) Cost {
	return Cost{Cost: c.Cost + o.Cost, Secs: c.Secs + o.Secs}
}

func (c Cost) Scale(f float64) Cost {
	return Cost{Cost: c.Cost * f, Secs: c.Secs * f}
}

// Excluded marks an impassable transition.
var Excluded = Cost{Cost: pkg.INF_WEIGHT, Secs: pkg.INF_WEIGHT}

func (c Cost) IsExcluded() bool {
	return c.Cost >= pkg.INF_WEIGHT
}

// modeFuncs. the behavior that differs between travel modes.
type modeFuncs struct {
	edgeCost      func(c *Costing, e *da.DirectedEdge) Cost
	allowed       func(c *Costing, e *da.DirectedEdge) bool
	turnCost      func(c *Costing, turn pkg.TurnType) float64
	allowUTurn    bool
	minCostFactor float64 // lower bound of cost per second of travel at top speed
	costPerMeter  bool    // cost is distance, not time
}

/*
Costing. one travel mode's weighting: a parameter table plus the function set selected by the mode.
Each request owns its instance; RelaxHierarchyLimits and DisableHighwayTransitions mutate only it.
*/
type Costing struct {
	name           string
	mode           da.TravelMode
	access         da.Access
	opts           Options
	limits         []da.HierarchyLimits
	allowMultiPass bool
	fn             modeFuncs
}

func (c *Costing) Name() string { return c.name }
func (c *Costing) TravelMode() da.TravelMode { return c.mode }
func (c *Costing) AccessMask() da.Access { return c.access }
func (c *Costing) Options() Options { return c.opts }
func (c *Costing) AllowMultiPass() bool { return c.allowMultiPass }

// HierarchyLimits returns a copy with zeroed transition counters.
func (c *Costing) HierarchyLimits() []da.HierarchyLimits {
	limits := make([]da.HierarchyLimits, len(c.limits))
	copy(limits, c.limits)
	for i := range limits {
		limits[i].Reset()
	}
	return limits
}

func (c *Costing) SetHierarchyLimits(limits []da.HierarchyLimits) {
	c.limits = make([]da.HierarchyLimits, len(limits))
	copy(c.limits, limits)
}

func (c *Costing) RelaxHierarchyLimits(factor, withinFactor float64) {
	for i := range c.limits {
		c.limits[i].Relax(factor, withinFactor)
	}
}

// DisableHighwayTransitions forbids moving up from the arterial level onto the highway level and
// lifts every other limit, so local and arterial roads stay fully reachable.
func (c *Costing) DisableHighwayTransitions() {
	for i := range c.limits {
		if i == int(pkg.ARTERIAL_LEVEL) {
			c.limits[i].DisableUpTransitions()
			continue
		}
		c.limits[i].Unlimit()
	}
}

func (c *Costing) Clone() *Costing {
	clone := *c
	clone.SetHierarchyLimits(c.limits)
	return &clone
}

// Allowed is the hard edge filter for traversing e in its own direction.
func (c *Costing) Allowed(e *da.DirectedEdge) bool {
	if e.ForwardAccess()&c.access == 0 {
		return false
	}
	return c.fn.allowed(c, e)
}

func (c *Costing) AllowedNode(n *da.NodeInfo) bool {
	return n.Access()&c.access != 0
}

func (c *Costing) EdgeCost(e *da.DirectedEdge) Cost {
	return c.fn.edgeCost(c, e)
}

// speedMps clamps the edge speed to the mode's top speed.
func (c *Costing) speedMps(e *da.DirectedEdge, fallbackKph float64) float64 {
	kph := e.Speed()
	if kph <= 0 {
		kph = fallbackKph
	}
	kph = math.Min(kph, c.opts.TopSpeed)
	return kph / 3.6
}

func turnType(from, to *da.DirectedEdge) pkg.TurnType {
	delta := math.Mod(to.BeginHeading()-from.EndHeading()+360, 360)
	switch {
	case delta <= 20 || delta >= 340:
		return pkg.STRAIGHT_ON
	case delta <= 60:
		return pkg.SLIGHT_RIGHT
	case delta <= 120:
		return pkg.RIGHT_TURN
	case delta < 170:
		return pkg.SHARP_RIGHT
	case delta <= 190:
		return pkg.U_TURN
	case delta < 240:
		return pkg.SHARP_LEFT
	case delta < 300:
		return pkg.LEFT_TURN
	default:
		return pkg.SLIGHT_LEFT
	}
}

func isUTurn(from, to *da.DirectedEdge) bool {
	return to.LocalIdx() == from.OppIndex() && !to.IsTransition()
}

func countDrivable(node *da.NodeInfo) uint32 {
	return node.EdgeCount()
}

/*
TransitionCost of turning from `from` onto `to` at node. from is nil when there is no comparable
predecessor edge (origin seeds, expansion across hierarchy levels); only node costs apply then.
Returns Excluded for restricted turns and for U-turns outside dead ends.
*/
func (c *Costing) TransitionCost(from, to *da.DirectedEdge, node *da.NodeInfo) Cost {
	var cost Cost

	if from != nil {
		if from.IsRestricted(to) {
			return Excluded
		}
		if isUTurn(from, to) {
			if !c.fn.allowUTurn && countDrivable(node) > 1 {
				return Excluded
			}
		}
		if t := turnType(from, to); t != pkg.STRAIGHT_ON {
			secs := c.fn.turnCost(c, t)
			cost = cost.Add(NewCost(secs+c.opts.ManeuverPenalty*boolToFloat(from.Classification() != to.Classification()), secs))
		}
		if to.DestOnly() && !from.DestOnly() {
			cost.Cost += c.opts.DestinationOnlyPenalty
		}
		if to.Use() == da.FERRY_USE && from.Use() != da.FERRY_USE {
			cost = cost.Add(NewCost(c.opts.FerryCost, c.opts.FerryCost))
		}
		if to.Toll() && !from.Toll() {
			cost.Cost += c.opts.TollBoothPenalty
		}
	}

	if node != nil {
		switch node.Type() {
		case da.GATE_NODE:
			cost = cost.Add(NewCost(c.opts.GateCost+c.opts.GatePenalty, c.opts.GateCost))
		case da.TOLL_BOOTH_NODE:
			cost = cost.Add(NewCost(c.opts.TollBoothCost+c.opts.TollBoothPenalty, c.opts.TollBoothCost))
		}
	}
	return cost
}

// Heuristic. admissible lower bound on the cost of traveling distMeters.
func (c *Costing) Heuristic(distMeters float64) float64 {
	return distMeters * c.MinCostPerMeter()
}

func (c *Costing) MinCostPerMeter() float64 {
	if c.fn.costPerMeter {
		return c.fn.minCostFactor
	}
	return c.fn.minCostFactor / (c.opts.TopSpeed / 3.6)
}

// TransitCost of waiting, then riding, optionally after changing trips.
func (c *Costing) TransitCost(waitSecs, rideSecs float64, transfer bool, use da.EdgeUse) Cost {
	factor := 1.0
	switch use {
	case da.BUS_USE:
		factor = modeFactor(c.opts.UseBus)
	case da.RAIL_USE:
		factor = modeFactor(c.opts.UseRail)
	}
	cost := NewCost(waitSecs*c.opts.WaitFactor+rideSecs*factor, waitSecs+rideSecs)
	if transfer {
		cost = cost.Add(NewCost(c.opts.TransferCost+c.opts.TransferPenalty, c.opts.TransferCost))
	}
	return cost
}

// ScheduleHorizon in seconds. Departures later than this after the current clock are not considered.
func (c *Costing) ScheduleHorizon() float64 {
	return c.opts.ScheduleHorizon
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// modeFactor maps a 0..1 preference to a multiplier >= 1; 1 means no penalty.
func modeFactor(use float64) float64 {
	return 1 + 2*(1-use)
}
