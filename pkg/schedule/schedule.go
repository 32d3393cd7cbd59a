package schedule

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"golang.org/x/exp/slices"
)

var ErrInvalidSchedule = errors.New("invalid schedule")

// Departure. one scheduled ride over a transit line edge.
type Departure struct {
	TripId        uint32
	LineId        uint32
	DepartureSecs float64 // seconds after midnight
	ArrivalSecs   float64
}

func (d Departure) RideSecs() float64 {
	return d.ArrivalSecs - d.DepartureSecs
}

// Provider answers time-of-day schedule lookups for transit line edges.
type Provider interface {
	// NextDeparture returns the earliest departure on lineId at or after secs.
	NextDeparture(lineId uint32, secs float64) (Departure, bool)
	// TripDeparture returns the departure of tripId on lineId at or after secs.
	TripDeparture(lineId, tripId uint32, secs float64) (Departure, bool)
}

// Timetable. in-memory Provider with departures per line sorted by departure time.
type Timetable struct {
	mu     sync.RWMutex
	lines  map[uint32][]Departure
	sorted map[uint32]bool
}

func NewTimetable() *Timetable {
	return &Timetable{
		lines:  make(map[uint32][]Departure),
		sorted: make(map[uint32]bool),
	}
}

func (t *Timetable) Add(d Departure) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines[d.LineId] = append(t.lines[d.LineId], d)
	t.sorted[d.LineId] = false
}

func (t *Timetable) departures(lineId uint32) []Departure {
	t.mu.RLock()
	deps, ok := t.lines[lineId]
	sorted := t.sorted[lineId]
	t.mu.RUnlock()
	if !ok || sorted {
		return deps
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	deps = t.lines[lineId]
	if !t.sorted[lineId] {
		slices.SortStableFunc(deps, func(a, b Departure) int {
			switch {
			case a.DepartureSecs < b.DepartureSecs:
				return -1
			case a.DepartureSecs > b.DepartureSecs:
				return 1
			}
			return 0
		})
		t.sorted[lineId] = true
	}
	return deps
}

func (t *Timetable) first(deps []Departure, secs float64) int {
	i, _ := slices.BinarySearchFunc(deps, secs, func(d Departure, s float64) int {
		if d.DepartureSecs < s {
			return -1
		}
		if d.DepartureSecs > s {
			return 1
		}
		return 0
	})
	// BinarySearchFunc may land on any of several equal departures
	for i > 0 && deps[i-1].DepartureSecs >= secs {
		i--
	}
	return i
}

func (t *Timetable) NextDeparture(lineId uint32, secs float64) (Departure, bool) {
	deps := t.departures(lineId)
	i := t.first(deps, secs)
	if i >= len(deps) {
		return Departure{}, false
	}
	return deps[i], true
}

func (t *Timetable) TripDeparture(lineId, tripId uint32, secs float64) (Departure, bool) {
	deps := t.departures(lineId)
	for i := t.first(deps, secs); i < len(deps); i++ {
		if deps[i].TripId == tripId {
			return deps[i], true
		}
	}
	return Departure{}, false
}

func (t *Timetable) LineCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.lines)
}

/*
ReadCSV loads departures with the columns
line_id,trip_id,departure_secs,arrival_secs. A header row is skipped.
*/
func ReadCSV(r io.Reader) (*Timetable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	tt := NewTimetable()
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
		row++
		if row == 1 && rec[0] == "line_id" {
			continue
		}
		d, err := parseDeparture(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidSchedule, row, err)
		}
		tt.Add(d)
	}
	return tt, nil
}

func parseDeparture(rec []string) (Departure, error) {
	line, err := strconv.ParseUint(rec[0], 10, 32)
	if err != nil {
		return Departure{}, err
	}
	trip, err := strconv.ParseUint(rec[1], 10, 32)
	if err != nil {
		return Departure{}, err
	}
	dep, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return Departure{}, err
	}
	arr, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return Departure{}, err
	}
	if arr < dep {
		return Departure{}, errors.New("arrival before departure")
	}
	return Departure{LineId: uint32(line), TripId: uint32(trip), DepartureSecs: dep, ArrivalSecs: arr}, nil
}

func ReadCSVFile(filename string) (*Timetable, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}
