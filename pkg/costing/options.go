package costing

import (
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

var (
	ErrUnknownCosting = errors.New("no costing method found")
	ErrInvalidOptions = errors.New("invalid costing options")
)

// Options. the parameter table of a costing. Every field can be set from config or per request.
type Options struct {
	TopSpeed float64 `mapstructure:"top_speed"` // kph

	// preferences in [0,1]; 0.5 is neutral
	UseHighways      float64 `mapstructure:"use_highways"`
	UseTolls         float64 `mapstructure:"use_tolls"`
	UseFerry         float64 `mapstructure:"use_ferry"`
	UseRoads         float64 `mapstructure:"use_roads"`
	UseLivingStreets float64 `mapstructure:"use_living_streets"`

	// fixed costs in seconds, penalties in cost units
	ManeuverPenalty        float64 `mapstructure:"maneuver_penalty"`
	DestinationOnlyPenalty float64 `mapstructure:"destination_only_penalty"`
	GateCost               float64 `mapstructure:"gate_cost"`
	GatePenalty            float64 `mapstructure:"gate_penalty"`
	TollBoothCost          float64 `mapstructure:"toll_booth_cost"`
	TollBoothPenalty       float64 `mapstructure:"toll_booth_penalty"`
	FerryCost              float64 `mapstructure:"ferry_cost"`

	WalkingSpeed float64 `mapstructure:"walking_speed"` // kph
	CyclingSpeed float64 `mapstructure:"cycling_speed"` // kph

	// transit
	UseBus          float64 `mapstructure:"use_bus"`
	UseRail         float64 `mapstructure:"use_rail"`
	WaitFactor      float64 `mapstructure:"wait_factor"`
	TransferCost    float64 `mapstructure:"transfer_cost"`
	TransferPenalty float64 `mapstructure:"transfer_penalty"`
	ScheduleHorizon float64 `mapstructure:"schedule_horizon"` // seconds
}

func defaultOptions(name string) Options {
	o := Options{
		TopSpeed:               140,
		UseHighways:            0.5,
		UseTolls:               0.5,
		UseFerry:               0.5,
		UseRoads:               0.5,
		UseLivingStreets:       0.5,
		ManeuverPenalty:        5,
		DestinationOnlyPenalty: 600,
		GateCost:               30,
		GatePenalty:            300,
		TollBoothCost:          15,
		TollBoothPenalty:       0,
		FerryCost:              300,
		WalkingSpeed:           5.1,
		CyclingSpeed:           20,
		UseBus:                 0.5,
		UseRail:                0.6,
		WaitFactor:             1,
		TransferCost:           15,
		TransferPenalty:        300,
		ScheduleHorizon:        3600,
	}
	switch name {
	case Truck:
		o.TopSpeed = 90
	case Bus:
		o.TopSpeed = 100
	case Bicycle:
		o.TopSpeed = o.CyclingSpeed
		o.ManeuverPenalty = 0
	case Pedestrian:
		o.TopSpeed = o.WalkingSpeed
		o.ManeuverPenalty = 0
		o.GatePenalty = 0
	case Transit:
		o.TopSpeed = 200
	}
	return o
}

// decodeOptions layers each override map on top of the mode defaults. Later maps win.
// Unknown keys and values of the wrong type are rejected.
func decodeOptions(name string, overrides ...map[string]interface{}) (Options, error) {
	opts := defaultOptions(name)
	userSetSpeed := false
	for _, m := range overrides {
		if len(m) == 0 {
			continue
		}
		if _, ok := m["top_speed"]; ok {
			userSetSpeed = true
		}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			ErrorUnused:      true,
			WeaklyTypedInput: true,
			Result:           &opts,
		})
		if err != nil {
			return Options{}, err
		}
		if err := dec.Decode(m); err != nil {
			return Options{}, fmt.Errorf("%w for %s: %v", ErrInvalidOptions, name, err)
		}
	}

	if !userSetSpeed {
		switch name {
		case Pedestrian:
			opts.TopSpeed = opts.WalkingSpeed
		case Bicycle:
			opts.TopSpeed = opts.CyclingSpeed
		}
	}
	if err := opts.validate(); err != nil {
		return Options{}, fmt.Errorf("%w for %s: %v", ErrInvalidOptions, name, err)
	}
	return opts, nil
}

func (o Options) validate() error {
	if o.TopSpeed <= 0 {
		return errors.New("top_speed must be positive")
	}
	if o.WalkingSpeed <= 0 || o.CyclingSpeed <= 0 {
		return errors.New("travel speeds must be positive")
	}
	prefs := map[string]float64{
		"use_highways": o.UseHighways, "use_tolls": o.UseTolls, "use_ferry": o.UseFerry,
		"use_roads": o.UseRoads, "use_living_streets": o.UseLivingStreets, "use_bus": o.UseBus, "use_rail": o.UseRail,
	}
	for k, v := range prefs {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1]", k)
		}
	}
	for k, v := range map[string]float64{
		"maneuver_penalty": o.ManeuverPenalty, "destination_only_penalty": o.DestinationOnlyPenalty,
		"gate_cost": o.GateCost, "gate_penalty": o.GatePenalty, "toll_booth_cost": o.TollBoothCost,
		"toll_booth_penalty": o.TollBoothPenalty, "ferry_cost": o.FerryCost, "wait_factor": o.WaitFactor,
		"transfer_cost": o.TransferCost, "transfer_penalty": o.TransferPenalty, "schedule_horizon": o.ScheduleHorizon,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", k)
		}
	}
	return nil
}
