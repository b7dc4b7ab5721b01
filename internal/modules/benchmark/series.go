package benchmark

import (
	"time"

	"github.com/aristath/capm/internal/domain"
)

type keyedDate struct {
	date time.Time
	key  string
}

// Series holds the benchmark lookups of one run. It is never mutated after
// Load returns, so it can be shared between concurrent calculations.
type Series struct {
	consolidated map[time.Time]*float64
	index        map[keyedDate]*float64
	sector       map[keyedDate]*float64
}

// NewSeries builds a series from already keyed values, mainly for tests.
// Index values are given in percent.
func NewSeries(consolidated map[time.Time]*float64, index map[string]map[time.Time]*float64, sector map[string]map[time.Time]*float64) *Series {
	s := &Series{
		consolidated: make(map[time.Time]*float64, len(consolidated)),
		index:        make(map[keyedDate]*float64),
		sector:       make(map[keyedDate]*float64),
	}
	for d, v := range consolidated {
		s.consolidated[domain.TruncateDay(d)] = v
	}
	for id, byDate := range index {
		for d, v := range byDate {
			s.index[keyedDate{date: domain.TruncateDay(d), key: id}] = v
		}
	}
	for id, byDate := range sector {
		for d, v := range byDate {
			s.sector[keyedDate{date: domain.TruncateDay(d), key: id}] = v
		}
	}
	return s
}

// Consolidated returns the consolidated market return on date
func (s *Series) Consolidated(date time.Time) (float64, bool) {
	return lookup(s.consolidated[domain.TruncateDay(date)])
}

// Index returns the return of indexID on date as a proportion
func (s *Series) Index(date time.Time, indexID string) (float64, bool) {
	v, ok := lookup(s.index[keyedDate{date: domain.TruncateDay(date), key: indexID}])
	if !ok {
		return 0, false
	}
	return v / 100, true
}

// Sector returns the return of sectorID on date
func (s *Series) Sector(date time.Time, sectorID string) (float64, bool) {
	return lookup(s.sector[keyedDate{date: domain.TruncateDay(date), key: sectorID}])
}

// a stored null is as unusable as a missing key
func lookup(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}
