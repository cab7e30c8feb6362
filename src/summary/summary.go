// Package summary aggregates the results of a single model run into
// per-period generation, transmission, system, ramping, net load and
// emissions summaries.
//
// Raw records are accumulated by an Aggregator in any order; derived values
// (capacity factors, levelized costs, percentiles, ramps) are only computed
// by Finalize once every input has been read.
package summary

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ryansname/switchsum/src/reconcile"
	"github.com/ryansname/switchsum/src/timeindex"
)

var (
	// ErrUnknownTechnology is returned for a technology missing from the grouping table
	ErrUnknownTechnology = errors.New("summary: technology not in tech grouping")
	// ErrUnknownPath is returned for a transmission path missing from the line table
	ErrUnknownPath = errors.New("summary: transmission path not in line table")
	// ErrUnknownTimepoint is returned for a timepoint missing from the study schedule
	ErrUnknownTimepoint = reconcile.ErrUnknownTimepoint
	// ErrUnknownPeriod is returned for a period with no schedule or capacity to attach to
	ErrUnknownPeriod = errors.New("summary: unknown period")
)

// StorageFuel marks dispatch rows that charge or discharge storage
const StorageFuel = "Storage"

// hoursPerStandardYear is the generation capacity factor basis
const hoursPerStandardYear = 8760.0

// GenKey identifies a generation aggregate
type GenKey struct {
	Period int
	Group  string
}

// Generation is the running aggregate for one technology group in one period.
// Energy and cost fields are annual.
type Generation struct {
	Period                int
	Group                 string
	Capacity              float64 // MW
	StorageEnergyCapacity float64 // MWh
	CostCapital           float64
	CostFixed             float64
	CostVar               float64
	Emissions             float64 // t-CO2/yr
	EnergyGen             float64 // MWh/yr
	EnergyStored          float64
	EnergyReleased        float64
	Ramp                  reconcile.Totals

	// Set by Finalize
	CapacityFactor float64
	LevelizedCost  float64
	Percentiles    map[float64]float64
}

// Transmission is the running aggregate of all paths in one period
type Transmission struct {
	Period         int
	RatedMW        float64
	RatedMWkm      float64
	DeratedMW      float64
	DeratedMWkm    float64
	CostAnnual     float64
	EnergySent     float64
	EnergyReceived float64
	Ramp           reconcile.Totals

	// Set by Finalize
	CapacityFactor float64
	Percentiles    map[float64]float64 // of hourly MW received
}

// System holds the system-wide totals for one period
type System struct {
	Period         int
	LoadServed     float64 // MWh/yr
	EnergyProduced float64
	PeakDemand     float64 // MW
	HoursInPeriod  float64
	NumYears       float64
	PowerCost      float64 // $/MWh
	Ramp           reconcile.Totals

	// Set by Finalize
	SystemCost     float64
	TotalEmissions float64
}

// emissionSums splits a period's annual emissions by source
type emissionSums struct {
	Direct      float64
	Spinning    float64
	DeepCycling float64
	Startup     float64
}

func (e emissionSums) total() float64 {
	return e.Direct + e.Spinning + e.DeepCycling + e.Startup
}

// GenCapacity is one row of gen_cap. Costs are period-wide.
type GenCapacity struct {
	Period                int
	Technology            string
	Capacity              float64
	StorageEnergyCapacity float64
	CapitalCost           float64
	FixedCost             float64
}

// GenDispatch is one row of generator and storage dispatch. Power is MW at
// the timepoint; emissions are tons and costs are dollars per hour.
type GenDispatch struct {
	Period         int
	Technology     string
	ProjectID      string
	Timepoint      int64
	Fuel           string
	Power          float64
	CO2            float64
	SpinningCO2    float64
	DeepCyclingCO2 float64
	StartupCO2     float64
	VariableCost   float64
}

// TransCapacity is one row of trans_cap for a one-way path
type TransCapacity struct {
	Period    int
	Start     string
	End       string
	MW        float64
	FixedCost float64 // period-wide
}

// TransDispatch is one row of transmission dispatch
type TransDispatch struct {
	Period    int
	Timepoint int64
	From      string
	To        string
	Sent      float64
	Received  float64
}

// Aggregator accumulates the raw records of one run
type Aggregator struct {
	ix      *timeindex.Index
	groups  TechGroups
	classes Classes
	lines   Lines
	logger  logrus.FieldLogger

	gen         map[GenKey]*Generation
	hourly      map[GenKey]map[int64]float64 // MW by timepoint
	trans       map[int]*Transmission
	hourlyTrans map[int]map[int64]float64 // MW received by timepoint
	system      map[int]*System
	load        map[int]map[int64]float64 // MW by timepoint
	emissions   map[int]*emissionSums
	ledger      *reconcile.Ledger
	skipped     int
}

// NewAggregator returns an aggregator with a system record for every period in ix
func NewAggregator(ix *timeindex.Index, groups TechGroups, classes Classes, lines Lines, logger logrus.FieldLogger) *Aggregator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	a := &Aggregator{
		ix:          ix,
		groups:      groups,
		classes:     classes,
		lines:       lines,
		logger:      logger,
		gen:         make(map[GenKey]*Generation),
		hourly:      make(map[GenKey]map[int64]float64),
		trans:       make(map[int]*Transmission),
		hourlyTrans: make(map[int]map[int64]float64),
		system:      make(map[int]*System),
		load:        make(map[int]map[int64]float64),
		emissions:   make(map[int]*emissionSums),
		ledger:      reconcile.NewLedger(),
	}
	for _, start := range ix.Periods() {
		p, _ := ix.Period(start)
		a.system[start] = &System{Period: start, HoursInPeriod: p.HoursInPeriod, NumYears: p.NumYears}
		a.emissions[start] = &emissionSums{}
	}
	return a
}

func (a *Aggregator) period(start int) (*timeindex.Period, error) {
	p, ok := a.ix.Period(start)
	if !ok {
		return nil, fmt.Errorf("%w: %d not in study schedule", ErrUnknownPeriod, start)
	}
	return p, nil
}

func (a *Aggregator) timepoint(id int64) (*timeindex.Timepoint, error) {
	tp, ok := a.ix.Timepoint(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTimepoint, id)
	}
	return tp, nil
}

// AddGenCapacity creates the group's aggregate on first sight and adds the
// installed capacity and annualized capital and fixed costs.
func (a *Aggregator) AddGenCapacity(c GenCapacity) error {
	group, err := a.groups.Group(c.Technology)
	if err != nil {
		return err
	}
	p, err := a.period(c.Period)
	if err != nil {
		return err
	}

	key := GenKey{Period: c.Period, Group: group}
	g, ok := a.gen[key]
	if !ok {
		g = &Generation{Period: c.Period, Group: group}
		a.gen[key] = g
		a.hourly[key] = make(map[int64]float64)
	}
	g.Capacity += c.Capacity
	g.StorageEnergyCapacity += c.StorageEnergyCapacity
	g.CostCapital += c.CapitalCost / p.NumYears
	g.CostFixed += c.FixedCost / p.NumYears
	return nil
}

// AddGenDispatch adds one hour of output. Rows for groups with no installed
// capacity in the period are counted and skipped.
func (a *Aggregator) AddGenDispatch(d GenDispatch) error {
	group, err := a.groups.Group(d.Technology)
	if err != nil {
		return err
	}
	key := GenKey{Period: d.Period, Group: group}
	g, ok := a.gen[key]
	if !ok {
		a.skipped++
		return nil
	}
	tp, err := a.timepoint(d.Timepoint)
	if err != nil {
		return err
	}
	hpy := tp.HoursPerYear

	a.hourly[key][d.Timepoint] += d.Power
	switch {
	case d.Fuel != StorageFuel:
		g.EnergyGen += d.Power * hpy
	case d.Power > 0:
		g.EnergyReleased += d.Power * hpy
	case d.Power < 0:
		g.EnergyStored -= d.Power * hpy
	}

	e := a.emissions[d.Period]
	e.Direct += d.CO2 * hpy
	e.Spinning += d.SpinningCO2 * hpy
	e.DeepCycling += d.DeepCyclingCO2 * hpy
	e.Startup += d.StartupCO2 * hpy
	g.Emissions += (d.CO2 + d.SpinningCO2 + d.DeepCyclingCO2 + d.StartupCO2) * hpy
	g.CostVar += d.VariableCost * hpy

	a.system[d.Period].EnergyProduced += d.Power * hpy

	// Pumped hydro and CAES report storage and generation in separate rows
	if a.classes.Flexible[group] {
		a.ledger.Add(d.Timepoint, group, d.ProjectID, d.Power)
	}
	return nil
}

// AddTransCapacity adds a one-way path's build-out. Each bidirectional line
// is modelled as two symmetric one-way paths, so the rating is halved.
func (a *Aggregator) AddTransCapacity(c TransCapacity) error {
	line, err := a.lines.Lookup(c.Start, c.End)
	if err != nil {
		return err
	}
	p, err := a.period(c.Period)
	if err != nil {
		return err
	}

	t, ok := a.trans[c.Period]
	if !ok {
		t = &Transmission{Period: c.Period}
		a.trans[c.Period] = t
		a.hourlyTrans[c.Period] = make(map[int64]float64)
	}
	mw := c.MW / 2
	mwkm := mw * line.LengthKm
	t.RatedMW += mw
	t.RatedMWkm += mwkm
	t.DeratedMW += mw * line.DeratingFactor
	t.DeratedMWkm += mwkm * line.DeratingFactor
	t.CostAnnual += c.FixedCost / p.NumYears
	return nil
}

// AddTransDispatch adds one hour of flow on a path
func (a *Aggregator) AddTransDispatch(d TransDispatch) error {
	t, ok := a.trans[d.Period]
	if !ok {
		return fmt.Errorf("%w: %d has no transmission capacity", ErrUnknownPeriod, d.Period)
	}
	tp, err := a.timepoint(d.Timepoint)
	if err != nil {
		return err
	}

	a.ledger.AddTransfer(d.Timepoint, d.From, d.To, d.Sent, d.Received)
	t.EnergySent += d.Sent * tp.HoursPerYear
	t.EnergyReceived += d.Received * tp.HoursPerYear
	a.hourlyTrans[d.Period][d.Timepoint] += d.Received
	return nil
}

// AddLoad adds system load at a timepoint
func (a *Aggregator) AddLoad(timepoint int64, mw float64) error {
	tp, err := a.timepoint(timepoint)
	if err != nil {
		return err
	}
	byTP, ok := a.load[tp.Period]
	if !ok {
		byTP = make(map[int64]float64)
		a.load[tp.Period] = byTP
	}
	byTP[timepoint] += mw
	a.system[tp.Period].LoadServed += mw * tp.HoursPerYear
	return nil
}

// AddPeakDemand adds to a period's peak demand. Periods outside the study are ignored.
func (a *Aggregator) AddPeakDemand(period int, mw float64) {
	s, ok := a.system[period]
	if !ok {
		a.logger.WithField("period", period).Debug("Peak demand for period outside study, ignoring")
		return
	}
	s.PeakDemand += mw
}

// SetPowerCost records the average cost of power for a period
func (a *Aggregator) SetPowerCost(period int, cost float64) error {
	s, ok := a.system[period]
	if !ok {
		return fmt.Errorf("%w: %d not in study schedule", ErrUnknownPeriod, period)
	}
	s.PowerCost = cost
	return nil
}
