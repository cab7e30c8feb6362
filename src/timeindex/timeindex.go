// Package timeindex builds the timepoint table every summary is weighted by:
// which period each sampled hour belongs to, how many hours per year it
// stands for, and its neighbours within the same day.
package timeindex

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"slices"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/ryansname/switchsum/src/tabfile"
)

// HoursPerCalendarYear is the average year length including leap days
const HoursPerCalendarYear = 8766.0

// weightTolerance bounds the per-period weight sum drift
const weightTolerance = 1e-9

var (
	// ErrEmptyPeriod is returned when a period has no sampled hours to weight by
	ErrEmptyPeriod = errors.New("timeindex: period has no sampled hours")
	// ErrDuplicateTimepoint is returned when the schedule lists a timepoint twice
	ErrDuplicateTimepoint = errors.New("timeindex: duplicate timepoint")
)

// Sample is one row of the study schedule
type Sample struct {
	Timepoint     int64
	Period        int
	Date          int
	HoursInSample float64
}

// Timepoint is a sampled hour with its derived weights and neighbours
type Timepoint struct {
	ID            int64
	Period        int
	Date          int
	HoursInSample float64 // hours this sample represents within its period
	HoursPerYear  float64 // HoursInSample spread over the years of the period
	Weight        float64 // share of the period, sums to 1 across a period
	Prior         int64   // previous timepoint on the same date (wraps to the date's last)
	Next          int64   // next timepoint on the same date (wraps to the date's first)
	MonthOfYear   int
	HourOfDay     int
}

// Period summarizes the sampled hours of a planning period
type Period struct {
	Start         int
	HoursInPeriod float64
	NumYears      float64
	Timepoints    []int64 // ascending
}

// Index maps timepoints and periods to their derived attributes
type Index struct {
	timepoints map[int64]*Timepoint
	periods    map[int]*Period
	order      []int
}

// Build derives the index from the study schedule. A numYearsPerPeriod of 0
// derives each period's length from its sampled hours.
func Build(samples []Sample, numYearsPerPeriod float64) (*Index, error) {
	ix := &Index{
		timepoints: make(map[int64]*Timepoint, len(samples)),
		periods:    make(map[int]*Period),
	}
	dates := make(map[int][]int64)
	hoursByPeriod := make(map[int][]float64)

	for _, s := range samples {
		if _, exists := ix.timepoints[s.Timepoint]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateTimepoint, s.Timepoint)
		}
		ix.timepoints[s.Timepoint] = &Timepoint{
			ID:            s.Timepoint,
			Period:        s.Period,
			Date:          s.Date,
			HoursInSample: s.HoursInSample,
			MonthOfYear:   monthOfYear(s.Timepoint),
			HourOfDay:     int(s.Timepoint % 100),
		}
		dates[s.Date] = append(dates[s.Date], s.Timepoint)
		hoursByPeriod[s.Period] = append(hoursByPeriod[s.Period], s.HoursInSample)

		p, ok := ix.periods[s.Period]
		if !ok {
			p = &Period{Start: s.Period}
			ix.periods[s.Period] = p
			ix.order = append(ix.order, s.Period)
		}
		p.Timepoints = append(p.Timepoints, s.Timepoint)
	}
	slices.Sort(ix.order)

	for _, start := range ix.order {
		p := ix.periods[start]
		slices.Sort(p.Timepoints)
		p.HoursInPeriod = floats.Sum(hoursByPeriod[start])
		if p.HoursInPeriod <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrEmptyPeriod, start)
		}
		p.NumYears = numYearsPerPeriod
		if p.NumYears == 0 {
			p.NumYears = math.Round(p.HoursInPeriod / HoursPerCalendarYear)
		}
		if p.NumYears <= 0 {
			return nil, fmt.Errorf("%w: period %d spans %.1f hours, less than half a year", ErrEmptyPeriod, start, p.HoursInPeriod)
		}
	}

	for _, tp := range ix.timepoints {
		p := ix.periods[tp.Period]
		tp.HoursPerYear = tp.HoursInSample / p.NumYears
		tp.Weight = tp.HoursInSample / p.HoursInPeriod
	}

	// Link neighbours within each date; the first hour of a day looks back to
	// the last hour of the same day.
	for _, members := range dates {
		slices.Sort(members)
		n := len(members)
		for i, id := range members {
			tp := ix.timepoints[id]
			tp.Prior = members[(i-1+n)%n]
			tp.Next = members[(i+1)%n]
		}
	}

	for _, start := range ix.order {
		if err := ix.checkWeights(start); err != nil {
			return nil, err
		}
	}
	return ix, nil
}

// checkWeights verifies that a period's weights sum to one
func (ix *Index) checkWeights(period int) error {
	p := ix.periods[period]
	weights := make([]float64, len(p.Timepoints))
	for i, id := range p.Timepoints {
		weights[i] = ix.timepoints[id].Weight
	}
	if sum := floats.Sum(weights); !scalar.EqualWithinAbs(sum, 1, weightTolerance) {
		return fmt.Errorf("timeindex: period %d weights sum to %v", period, sum)
	}
	return nil
}

// monthOfYear extracts MM from a YYYYMMDDHH timepoint ID, or 0 for shorter IDs
func monthOfYear(id int64) int {
	if id < 1_000_000_000 {
		return 0
	}
	return int(id / 10000 % 100)
}

// Load reads study_hours.tab from dir and builds the index
func Load(path string, numYearsPerPeriod float64, logger logrus.FieldLogger) (*Index, error) {
	var samples []Sample
	found, err := tabfile.Scan(path, tabfile.Options{AMPLHeader: filepath.Ext(path) == ".tab", Logger: logger}, func(r tabfile.Row) error {
		var s Sample
		var err error
		if s.Timepoint, err = r.Int64("hour"); err != nil {
			return err
		}
		if s.Period, err = r.Int("period"); err != nil {
			return err
		}
		if s.Date, err = r.Int("date"); err != nil {
			return err
		}
		if s.HoursInSample, err = r.Float("hours_in_sample"); err != nil {
			return err
		}
		samples = append(samples, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("timeindex: study schedule %s not found", path)
	}
	return Build(samples, numYearsPerPeriod)
}

// Timepoint returns the timepoint with the given ID
func (ix *Index) Timepoint(id int64) (*Timepoint, bool) {
	tp, ok := ix.timepoints[id]
	return tp, ok
}

// Period returns the period starting in the given year
func (ix *Index) Period(start int) (*Period, bool) {
	p, ok := ix.periods[start]
	return p, ok
}

// Periods returns all period start years, ascending
func (ix *Index) Periods() []int {
	return slices.Clone(ix.order)
}

// Len returns the number of timepoints
func (ix *Index) Len() int {
	return len(ix.timepoints)
}
