package usecases

import (
	"github.com/lintang-b-s/tiledroute/pkg/engine"
)

type LocationRequest struct {
	Lat     float64  `json:"lat" validate:"min=-90,max=90"`
	Lon     float64  `json:"lon" validate:"min=-180,max=180"`
	Heading *float64 `json:"heading,omitempty" validate:"omitempty,min=0,max=360"`
}

type DateTimeRequest struct {
	// Type is 0 (current), 1 (depart at) or 2 (arrive by).
	Type  int    `json:"type" validate:"min=0,max=2"`
	Value string `json:"value" validate:"required_unless=Type 0"`
}

// RouteRequest is the json route request read by the command line tools.
type RouteRequest struct {
	Locations      []LocationRequest                 `json:"locations" validate:"required,min=2,dive"`
	Costing        string                            `json:"costing" validate:"required,oneof=auto auto_shorter bus bicycle pedestrian truck transit multimodal"`
	CostingOptions map[string]map[string]interface{} `json:"costing_options,omitempty"`
	DateTime       *DateTimeRequest                  `json:"date_time,omitempty"`
	MultiRun       int                               `json:"multi_run,omitempty" validate:"min=0"`
}

func (r RouteRequest) dateTime() *engine.DateTime {
	if r.DateTime == nil {
		return nil
	}
	return &engine.DateTime{Type: engine.DateTimeType(r.DateTime.Type), Value: r.DateTime.Value}
}

type TripLeg struct {
	Time      float64  `json:"time"`   // seconds
	Length    float64  `json:"length"` // kilometers
	Shape     string   `json:"shape"`  // encoded polyline, precision 5
	Algorithm string   `json:"algorithm"`
	Passes    int      `json:"passes"`
	Modes     []string `json:"modes"`
}

type TripSummary struct {
	Time   float64 `json:"time"`
	Length float64 `json:"length"`
}

type Trip struct {
	Status  string      `json:"status"`
	Legs    []TripLeg   `json:"legs"`
	Summary TripSummary `json:"summary"`
}
