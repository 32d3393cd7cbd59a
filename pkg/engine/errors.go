package engine

import (
	"errors"
	"fmt"

	"github.com/paulmach/osm"
)

var (
	ErrInvalidLocation      = errors.New("no suitable edges near location")
	ErrNoPathFound          = errors.New("no path could be found")
	ErrCostingConfiguration = errors.New("invalid costing configuration")
	ErrScheduleUnavailable  = errors.New("no transit departure within the schedule horizon")
	ErrUnreachable          = errors.New("location is unreachable")
)

// failure reasons reported in Result.Failure and in the statistics log
const (
	FailInvalidOrigin          = "fail_invalid_origin"
	FailNoConnectivity         = "fail_no_connectivity"
	FailUnreachableOrigin      = "fail_unreachable_origin"
	FailUnreachableDestination = "fail_unreachable_dest"
	FailUnreachableLocations   = "fail_unreachable_locations"
	FailNoRoute                = "fail_no_route"
)

// UnreachableError. an endpoint lies on an edge flagged as structurally disconnected.
// Which is "origin", "destination" or "locations".
type UnreachableError struct {
	Which  string
	WayIds []osm.WayID
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("%s is unreachable (ways %v)", e.Which, e.WayIds)
}

func (e *UnreachableError) Is(target error) bool {
	return target == ErrUnreachable
}
