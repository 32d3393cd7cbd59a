package engine

import (
	"time"

	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"github.com/lintang-b-s/tiledroute/pkg/engine/routing"
)

type DateTimeType int

const (
	DATE_TIME_CURRENT DateTimeType = iota
	DATE_TIME_DEPART_AT
	DATE_TIME_ARRIVE_BY
)

// DateTimeLayout of DateTime.Value, local time.
const DateTimeLayout = "2006-01-02T15:04"

type DateTime struct {
	Type  DateTimeType
	Value string
}

// Request. correlated locations, at least two, routed leg by leg.
type Request struct {
	Locations []da.Location
	Costing   string
	// CostingOptions are per costing name overrides merged over the configured defaults.
	CostingOptions map[string]map[string]interface{}
	DateTime       *DateTime
	// MultiRun reruns every successful leg this many times to measure the average search time.
	MultiRun int
}

type Leg struct {
	Path      []routing.PathInfo
	Algorithm string
	Passes    int
	Stats     routing.Stats
	Time      float64 // seconds
	Distance  float64 // meters
}

/*
Result of a request. Failure is empty on success; otherwise Legs is empty and Err is ErrNoPathFound or
an *UnreachableError. Passes counts the search passes of every leg, the failed one included.
*/
type Result struct {
	Legs    []Leg
	Passes  int
	Failure string
	Err     error
	Runtime time.Duration
}

func (r *Result) Succeeded() bool {
	return r.Failure == ""
}

func (r *Result) Time() float64 {
	total := 0.0
	for _, l := range r.Legs {
		total += l.Time
	}
	return total
}

func (r *Result) Distance() float64 {
	total := 0.0
	for _, l := range r.Legs {
		total += l.Distance
	}
	return total
}
