package costing

import (
	"math"

	"github.com/lintang-b-s/tiledroute/pkg"
	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
)

const (
	Auto        = "auto"
	AutoShorter = "auto_shorter"
	Bus         = "bus"
	Bicycle     = "bicycle"
	Pedestrian  = "pedestrian"
	Truck       = "truck"
	Transit     = "transit"
	Multimodal  = "multimodal"
)

const (
	defaultSpeed = 20.0 // km/h, used for edges without a speed
)

// avoid turns a preference below neutral into an additive factor in [0,1].
func avoid(pref float64) float64 {
	return 2 * math.Max(0, 0.5-pref)
}

func isHighway(class pkg.OsmHighwayType) bool {
	switch class {
	case pkg.MOTORWAY, pkg.TRUNK, pkg.MOTORWAY_LINK, pkg.TRUNK_LINK, pkg.MOTORROAD:
		return true
	}
	return false
}

func vehicleFactor(c *Costing, e *da.DirectedEdge) float64 {
	factor := 1.0
	if isHighway(e.Classification()) {
		factor += avoid(c.opts.UseHighways)
	} else if c.opts.UseHighways > 0.5 {
		factor += c.opts.UseHighways - 0.5
	}
	if e.Classification() == pkg.LIVING_STREET {
		factor += avoid(c.opts.UseLivingStreets)
	}
	if e.Toll() {
		factor += avoid(c.opts.UseTolls)
	}
	if e.Use() == da.FERRY_USE {
		factor += avoid(c.opts.UseFerry)
	}
	return factor
}

func autoEdgeCost(c *Costing, e *da.DirectedEdge) Cost {
	secs := e.Length() / c.speedMps(e, defaultSpeed)
	return NewCost(secs*vehicleFactor(c, e), secs)
}

func autoShorterEdgeCost(c *Costing, e *da.DirectedEdge) Cost {
	secs := e.Length() / c.speedMps(e, defaultSpeed)
	return NewCost(e.Length()*vehicleFactor(c, e), secs)
}

func truckEdgeCost(c *Costing, e *da.DirectedEdge) Cost {
	secs := e.Length() / c.speedMps(e, defaultSpeed)
	factor := vehicleFactor(c, e)
	switch e.Classification() {
	case pkg.RESIDENTIAL, pkg.LIVING_STREET, pkg.SERVICE:
		factor += 0.5
	}
	return NewCost(secs*factor, secs)
}

func vehicleAllowed(c *Costing, e *da.DirectedEdge) bool {
	switch e.Use() {
	case da.FOOTWAY_USE, da.CYCLEWAY_USE, da.BUS_USE, da.RAIL_USE, da.TRANSIT_CONNECTION_USE:
		return false
	}
	return true
}

func vehicleTurnCost(c *Costing, turn pkg.TurnType) float64 {
	switch turn {
	case pkg.SLIGHT_LEFT, pkg.SLIGHT_RIGHT:
		return 1
	case pkg.RIGHT_TURN:
		return 2.5
	case pkg.LEFT_TURN:
		return 5
	case pkg.SHARP_LEFT, pkg.SHARP_RIGHT:
		return 7.5
	case pkg.U_TURN:
		return 20
	default:
		return 0
	}
}

func bicycleEdgeCost(c *Costing, e *da.DirectedEdge) Cost {
	speed := math.Min(c.opts.CyclingSpeed, c.opts.TopSpeed) / 3.6
	if e.Use() == da.FERRY_USE {
		speed = c.speedMps(e, defaultSpeed)
	}
	secs := e.Length() / speed
	factor := 1.0
	switch e.Use() {
	case da.CYCLEWAY_USE:
	case da.FERRY_USE:
		factor += avoid(c.opts.UseFerry)
	default:
		factor += 1 - c.opts.UseRoads
	}
	return NewCost(secs*factor, secs)
}

func bicycleAllowed(c *Costing, e *da.DirectedEdge) bool {
	return !e.Use().IsTransitLine() && e.Use() != da.TRANSIT_CONNECTION_USE
}

func bicycleTurnCost(c *Costing, turn pkg.TurnType) float64 {
	return vehicleTurnCost(c, turn) / 2
}

func pedestrianEdgeCost(c *Costing, e *da.DirectedEdge) Cost {
	speed := math.Min(c.opts.WalkingSpeed, c.opts.TopSpeed) / 3.6
	if e.Use() == da.FERRY_USE {
		speed = c.speedMps(e, defaultSpeed)
	}
	secs := e.Length() / speed
	factor := 1.0
	if e.Use() == da.FERRY_USE {
		factor += avoid(c.opts.UseFerry)
	}
	return NewCost(secs*factor, secs)
}

func pedestrianAllowed(c *Costing, e *da.DirectedEdge) bool {
	return !e.Use().IsTransitLine()
}

func noTurnCost(c *Costing, turn pkg.TurnType) float64 {
	return 0
}

// transitEdgeCost is the unscheduled ride time; scheduled rides are priced with TransitCost.
func transitEdgeCost(c *Costing, e *da.DirectedEdge) Cost {
	secs := e.Length() / c.speedMps(e, defaultSpeed)
	return NewCost(secs, secs)
}

func transitAllowed(c *Costing, e *da.DirectedEdge) bool {
	switch e.Use() {
	case da.BUS_USE:
		return c.opts.UseBus > 0
	case da.RAIL_USE:
		return c.opts.UseRail > 0
	case da.TRANSIT_CONNECTION_USE:
		return true
	}
	return false
}

var (
	autoFuncs = modeFuncs{
		edgeCost: autoEdgeCost, allowed: vehicleAllowed, turnCost: vehicleTurnCost, minCostFactor: 1,
	}
	autoShorterFuncs = modeFuncs{
		edgeCost: autoShorterEdgeCost, allowed: vehicleAllowed, turnCost: vehicleTurnCost, minCostFactor: 1,
		costPerMeter: true,
	}
	truckFuncs = modeFuncs{
		edgeCost: truckEdgeCost, allowed: vehicleAllowed, turnCost: vehicleTurnCost, minCostFactor: 1,
	}
	bicycleFuncs = modeFuncs{
		edgeCost: bicycleEdgeCost, allowed: bicycleAllowed, turnCost: bicycleTurnCost, minCostFactor: 1,
	}
	pedestrianFuncs = modeFuncs{
		edgeCost: pedestrianEdgeCost, allowed: pedestrianAllowed, turnCost: noTurnCost, minCostFactor: 1,
		allowUTurn: true,
	}
	transitFuncs = modeFuncs{
		edgeCost: transitEdgeCost, allowed: transitAllowed, turnCost: noTurnCost, minCostFactor: 1,
		allowUTurn: true,
	}
)

func newCosting(name string, mode da.TravelMode, access da.Access, opts Options, limits []da.HierarchyLimits,
	multiPass bool, fn modeFuncs) *Costing {
	c := &Costing{
		name:           name,
		mode:           mode,
		access:         access,
		opts:           opts,
		allowMultiPass: multiPass,
		fn:             fn,
	}
	c.SetHierarchyLimits(limits)
	return c
}

func CreateAutoCost(opts Options) *Costing {
	return newCosting(Auto, da.DRIVE, da.AUTO_ACCESS, opts, da.DefaultHierarchyLimits(), true, autoFuncs)
}

func CreateAutoShorterCost(opts Options) *Costing {
	return newCosting(AutoShorter, da.DRIVE, da.AUTO_ACCESS, opts, da.DefaultHierarchyLimits(), true, autoShorterFuncs)
}

func CreateBusCost(opts Options) *Costing {
	return newCosting(Bus, da.DRIVE, da.BUS_ACCESS, opts, da.DefaultHierarchyLimits(), true, autoFuncs)
}

func CreateTruckCost(opts Options) *Costing {
	return newCosting(Truck, da.DRIVE, da.TRUCK_ACCESS, opts, da.DefaultHierarchyLimits(), true, truckFuncs)
}

func CreateBicycleCost(opts Options) *Costing {
	return newCosting(Bicycle, da.BICYCLE, da.BICYCLE_ACCESS, opts, da.UnlimitedHierarchyLimits(), false, bicycleFuncs)
}

func CreatePedestrianCost(opts Options) *Costing {
	return newCosting(Pedestrian, da.PEDESTRIAN, da.PEDESTRIAN_ACCESS, opts, da.UnlimitedHierarchyLimits(), false,
		pedestrianFuncs)
}

func CreateTransitCost(opts Options) *Costing {
	return newCosting(Transit, da.TRANSIT, da.TRANSIT_ACCESS, opts, da.UnlimitedHierarchyLimits(), false, transitFuncs)
}
