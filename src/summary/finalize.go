package summary

import (
	"cmp"
	"slices"

	"github.com/ryansname/switchsum/src/cumulative"
	"github.com/ryansname/switchsum/src/percentile"
	"github.com/ryansname/switchsum/src/reconcile"
	"github.com/ryansname/switchsum/src/timeindex"
)

// HourlyOutput is a group's output at one timepoint, zero-filled for hours
// the dispatch file omitted.
type HourlyOutput struct {
	Period         int
	Group          string
	Timepoint      int64
	Power          float64
	HoursPerYear   float64
	Weight         float64
	PercentileRank float64
}

// RampShare is a source's ramping and its share of the system total
type RampShare struct {
	Period    int
	Source    string
	Up        float64
	Down      float64
	UpShare   float64
	DownShare float64
}

// NetLoadHour is system load less intermittent output at one timepoint
type NetLoadHour struct {
	Period         int
	Timepoint      int64
	Load           float64
	NetLoad        float64
	PercentileRank float64
	Intermittent   []float64 // ordered as Result.IntermittentGroups
	Weight         float64
	MonthOfYear    int
	HourOfDay      int
}

// PeriodEmissions compares a period's annual emissions with its target
type PeriodEmissions struct {
	Period            int
	Direct            float64
	Spinning          float64
	DeepCycling       float64
	Startup           float64
	Total             float64
	Target            float64
	OverTarget        float64
	PercentOverTarget float64
	Cumulative        float64 // period tons carried forward
	CumulativeTarget  float64
}

// Result is the finalized summary of a run, every slice in report order
type Result struct {
	Percentiles        []float64
	IntermittentGroups []string
	Generation         []*Generation
	Hourly             []HourlyOutput
	Transmission       []*Transmission
	System             []*System
	Ramps              []RampShare
	NetLoad            []NetLoadHour
	Emissions          []PeriodEmissions
}

// FinalizeOptions controls derived statistics
type FinalizeOptions struct {
	Percentiles []float64 // defaults to percentile.Default
	Targets     CarbonTargets
	BaseTons    float64 // base-year annual emissions the relative targets scale
}

// ratio returns num/den, or 0 when den is 0
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Finalize computes every derived field. The aggregator should not be
// modified afterwards.
func (a *Aggregator) Finalize(opts FinalizeOptions) (*Result, error) {
	targets := opts.Percentiles
	if len(targets) == 0 {
		targets = percentile.Default
	}
	targets = slices.Sorted(slices.Values(targets))

	ramps, err := a.ledger.Ramps(a.ix)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Percentiles:        targets,
		IntermittentGroups: a.classes.IntermittentGroups(),
	}
	a.finalizeGeneration(res, ramps)
	a.finalizeTransmission(res, ramps)
	a.finalizeSystem(res, ramps)
	a.finalizeRamps(res)
	a.finalizeNetLoad(res)
	a.finalizeEmissions(res, opts)
	return res, nil
}

func (a *Aggregator) weight(id int64) float64 {
	tp, _ := a.ix.Timepoint(id)
	return tp.Weight
}

func (a *Aggregator) finalizeGeneration(res *Result, ramps *reconcile.Ramps) {
	keys := make([]GenKey, 0, len(a.gen))
	for k := range a.gen {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y GenKey) int {
		return cmp.Or(cmp.Compare(x.Period, y.Period), cmp.Compare(x.Group, y.Group))
	})

	for _, k := range keys {
		g := a.gen[k]
		delivered := g.EnergyGen + g.EnergyReleased
		// Storage counts released energy toward its capacity factor, not charging
		g.CapacityFactor = ratio(delivered, g.Capacity*hoursPerStandardYear)
		g.LevelizedCost = ratio(g.CostCapital+g.CostFixed+g.CostVar, delivered)
		g.Ramp = ramps.ForGroup(k.Period, k.Group)

		p, _ := a.ix.Period(k.Period)
		observed := a.hourly[k]
		dist := percentile.Compute(percentile.Fill(p.Timepoints, observed, a.weight), res.Percentiles)
		g.Percentiles = dist.Values
		res.Generation = append(res.Generation, g)

		for _, id := range p.Timepoints {
			tp, _ := a.ix.Timepoint(id)
			res.Hourly = append(res.Hourly, HourlyOutput{
				Period:         k.Period,
				Group:          k.Group,
				Timepoint:      id,
				Power:          observed[id],
				HoursPerYear:   tp.HoursPerYear,
				Weight:         tp.Weight,
				PercentileRank: dist.Ranks[id],
			})
		}
	}
}

func (a *Aggregator) finalizeTransmission(res *Result, ramps *reconcile.Ramps) {
	for _, period := range sortedKeys(a.trans) {
		t := a.trans[period]
		t.CapacityFactor = ratio(t.EnergySent, t.RatedMW*timeindex.HoursPerCalendarYear)
		t.Ramp = ramps.ForGroup(period, reconcile.TransmissionGroup)

		p, _ := a.ix.Period(period)
		samples := percentile.Fill(p.Timepoints, a.hourlyTrans[period], a.weight)
		t.Percentiles = percentile.Compute(samples, res.Percentiles).Values
		res.Transmission = append(res.Transmission, t)
	}
}

func (a *Aggregator) finalizeSystem(res *Result, ramps *reconcile.Ramps) {
	for _, period := range a.ix.Periods() {
		s := a.system[period]
		s.SystemCost = s.PowerCost * s.LoadServed
		s.TotalEmissions = a.emissions[period].total()
		s.Ramp = ramps.ForSystem(period)
		res.System = append(res.System, s)
	}
}

// finalizeRamps lists flexible groups, then transmission, as shares of system ramping
func (a *Aggregator) finalizeRamps(res *Result) {
	system := make(map[int]reconcile.Totals, len(res.System))
	for _, s := range res.System {
		system[s.Period] = s.Ramp
	}
	share := func(period int, source string, t reconcile.Totals) RampShare {
		sys := system[period]
		return RampShare{
			Period:    period,
			Source:    source,
			Up:        t.Up,
			Down:      t.Down,
			UpShare:   ratio(t.Up, sys.Up),
			DownShare: ratio(t.Down, sys.Down),
		}
	}

	for _, g := range res.Generation {
		if a.classes.Flexible[g.Group] {
			res.Ramps = append(res.Ramps, share(g.Period, g.Group, g.Ramp))
		}
	}
	for _, t := range res.Transmission {
		res.Ramps = append(res.Ramps, share(t.Period, reconcile.TransmissionGroup, t.Ramp))
	}
}

func (a *Aggregator) finalizeNetLoad(res *Result) {
	for _, period := range sortedKeys(a.load) {
		loads := a.load[period]
		ids := sortedKeys(loads)

		rows := make([]NetLoadHour, 0, len(ids))
		samples := make([]percentile.Sample, 0, len(ids))
		for _, id := range ids {
			tp, _ := a.ix.Timepoint(id)
			row := NetLoadHour{
				Period:       period,
				Timepoint:    id,
				Load:         loads[id],
				NetLoad:      loads[id],
				Intermittent: make([]float64, len(res.IntermittentGroups)),
				Weight:       tp.Weight,
				MonthOfYear:  tp.MonthOfYear,
				HourOfDay:    tp.HourOfDay,
			}
			for i, group := range res.IntermittentGroups {
				out := a.hourly[GenKey{Period: period, Group: group}][id]
				row.Intermittent[i] = out
				row.NetLoad -= out
			}
			rows = append(rows, row)
			samples = append(samples, percentile.Sample{Key: id, Value: row.NetLoad, Weight: tp.Weight})
		}

		ranks := percentile.Compute(samples, nil).Ranks
		for i := range rows {
			rows[i].PercentileRank = ranks[rows[i].Timepoint]
		}
		res.NetLoad = append(res.NetLoad, rows...)
	}
}

func (a *Aggregator) finalizeEmissions(res *Result, opts FinalizeOptions) {
	periods := a.ix.Periods()
	rows := make([]PeriodEmissions, 0, len(periods))
	emitted := make(map[int]float64, len(periods))
	allowed := make(map[int]float64, len(periods))

	for _, period := range periods {
		e := a.emissions[period]
		s := a.system[period]
		row := PeriodEmissions{
			Period:      period,
			Direct:      e.Direct,
			Spinning:    e.Spinning,
			DeepCycling: e.DeepCycling,
			Startup:     e.Startup,
			Total:       e.total(),
		}
		if rel, ok := opts.Targets.ForPeriod(period, s.NumYears); ok {
			row.Target = rel * opts.BaseTons
		}
		row.OverTarget = row.Total - row.Target
		row.PercentOverTarget = ratio(row.OverTarget, row.Target)
		rows = append(rows, row)

		emitted[period] = row.Total * s.NumYears
		allowed[period] = row.Target * s.NumYears
	}

	cumEmitted := cumulative.Carry(emitted, periods)
	cumAllowed := cumulative.Carry(allowed, periods)
	for i := range rows {
		rows[i].Cumulative = cumEmitted[rows[i].Period]
		rows[i].CumulativeTarget = cumAllowed[rows[i].Period]
	}
	res.Emissions = rows
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
