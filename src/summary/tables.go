package summary

import (
	"github.com/ryansname/switchsum/src/percentile"
	"github.com/ryansname/switchsum/src/report"
)

// Report file names
const (
	GenSummaryFile       = "gen_summary.txt"
	GenPercentilesFile   = "gen_percentiles.txt"
	GenHourlyFile        = "gen_hourly_summary.txt"
	SystemSummaryFile    = "sys_summary.txt"
	TransSummaryFile     = "trans_summary.txt"
	RampSummaryFile      = "ramp_summary.txt"
	NetLoadHourlyFile    = "net_load_hourly_summary.txt"
	EmissionsSummaryFile = "emissions_summary.txt"
)

func percentileColumns(targets []float64) []string {
	cols := make([]string, len(targets))
	for i, p := range targets {
		cols[i] = percentile.Label(p)
	}
	return cols
}

func percentileCells(values map[float64]float64, targets []float64) []string {
	cells := make([]string, len(targets))
	for i, p := range targets {
		cells[i] = report.Float(values[p])
	}
	return cells
}

// Tables renders the result as report tables
func (r *Result) Tables() []report.Table {
	return []report.Table{
		r.genSummary(),
		r.genPercentiles(),
		r.genHourly(),
		r.systemSummary(),
		r.transSummary(),
		r.rampSummary(),
		r.netLoadHourly(),
		r.emissionsSummary(),
	}
}

func (r *Result) genSummary() report.Table {
	t := report.Table{
		Name: GenSummaryFile,
		Header: append([]string{
			"period", "technology", "capacity", "capacity_factor", "cost_capital",
			"cost_fixed", "cost_var", "emissions", "energy_gen", "energy_released",
			"energy_stored", "levelized_cost", "storage_energy_capacity",
			"total_hourly_down_ramp", "total_hourly_up_ramp",
		}, percentileColumns(r.Percentiles)...),
	}
	for _, g := range r.Generation {
		t.Append(append([]string{
			report.Int(g.Period), report.Quote(g.Group),
			report.Float(g.Capacity), report.Float(g.CapacityFactor),
			report.Float(g.CostCapital), report.Float(g.CostFixed), report.Float(g.CostVar),
			report.Float(g.Emissions), report.Float(g.EnergyGen),
			report.Float(g.EnergyReleased), report.Float(g.EnergyStored),
			report.Float(g.LevelizedCost), report.Float(g.StorageEnergyCapacity),
			report.Float(g.Ramp.Down), report.Float(g.Ramp.Up),
		}, percentileCells(g.Percentiles, r.Percentiles)...)...)
	}
	return t
}

func (r *Result) genPercentiles() report.Table {
	t := report.Table{
		Name:   GenPercentilesFile,
		Header: []string{"period", "technology", "percentile_num", "percentile_value"},
	}
	for _, g := range r.Generation {
		for _, p := range r.Percentiles {
			t.Append(report.Int(g.Period), report.Quote(g.Group), percentile.Format(p), report.Float(g.Percentiles[p]))
		}
	}
	return t
}

func (r *Result) genHourly() report.Table {
	t := report.Table{
		Name:   GenHourlyFile,
		Header: []string{"period", "technology", "timepoint", "power", "hours_per_year", "weight", "percentile_rank"},
	}
	for _, h := range r.Hourly {
		t.Append(
			report.Int(h.Period), report.Quote(h.Group), report.Int(h.Timepoint),
			report.Float(h.Power), report.Float(h.HoursPerYear),
			report.Float(h.Weight), report.Float(h.PercentileRank),
		)
	}
	return t
}

func (r *Result) systemSummary() report.Table {
	t := report.Table{
		Name: SystemSummaryFile,
		Header: []string{
			"period", "load_served", "energy_produced", "peak_demand", "hours_in_period",
			"num_years_per_period", "power_cost", "system_cost",
			"total_hourly_up_ramp", "total_hourly_down_ramp", "total_emissions",
		},
	}
	for _, s := range r.System {
		t.Append(
			report.Int(s.Period), report.Float(s.LoadServed), report.Float(s.EnergyProduced),
			report.Float(s.PeakDemand), report.Float(s.HoursInPeriod), report.Float(s.NumYears),
			report.Float(s.PowerCost), report.Float(s.SystemCost),
			report.Float(s.Ramp.Up), report.Float(s.Ramp.Down), report.Float(s.TotalEmissions),
		)
	}
	return t
}

func (r *Result) transSummary() report.Table {
	t := report.Table{
		Name: TransSummaryFile,
		Header: append([]string{
			"period", "capacity_factor", "cost_annual", "derated_cap_MW", "derated_cap_MWkm",
			"energy_received", "energy_sent", "rated_cap_MW", "rated_cap_MWkm",
			"total_hourly_down_ramp", "total_hourly_up_ramp",
		}, percentileColumns(r.Percentiles)...),
	}
	for _, tr := range r.Transmission {
		t.Append(append([]string{
			report.Int(tr.Period), report.Float(tr.CapacityFactor), report.Float(tr.CostAnnual),
			report.Float(tr.DeratedMW), report.Float(tr.DeratedMWkm),
			report.Float(tr.EnergyReceived), report.Float(tr.EnergySent),
			report.Float(tr.RatedMW), report.Float(tr.RatedMWkm),
			report.Float(tr.Ramp.Down), report.Float(tr.Ramp.Up),
		}, percentileCells(tr.Percentiles, r.Percentiles)...)...)
	}
	return t
}

func (r *Result) rampSummary() report.Table {
	t := report.Table{
		Name:   RampSummaryFile,
		Header: []string{"period", "source", "total_hourly_up_ramp", "total_hourly_down_ramp", "up_ramp_%", "down_ramp_%"},
	}
	for _, s := range r.Ramps {
		t.Append(
			report.Int(s.Period), report.Quote(s.Source),
			report.Float(s.Up), report.Float(s.Down),
			report.Float(s.UpShare), report.Float(s.DownShare),
		)
	}
	return t
}

func (r *Result) netLoadHourly() report.Table {
	header := []string{"period", "timepoint", "load", "net_load", "percentile_rank"}
	for _, g := range r.IntermittentGroups {
		header = append(header, report.Quote(g))
	}
	header = append(header, "weight", "month_of_year", "hour_of_day")

	t := report.Table{Name: NetLoadHourlyFile, Header: header}
	for _, h := range r.NetLoad {
		row := []string{
			report.Int(h.Period), report.Int(h.Timepoint),
			report.Float(h.Load), report.Float(h.NetLoad), report.Float(h.PercentileRank),
		}
		for _, v := range h.Intermittent {
			row = append(row, report.Float(v))
		}
		row = append(row, report.Float(h.Weight), report.Int(h.MonthOfYear), report.Int(h.HourOfDay))
		t.Append(row...)
	}
	return t
}

func (r *Result) emissionsSummary() report.Table {
	t := report.Table{
		Name: EmissionsSummaryFile,
		Header: []string{
			"period", "direct_emissions", "spinning_emissions", "deep_cycling_emissions",
			"startup_emissions", "total_emissions", "target_emissions", "over_target",
			"percent_over_target", "cumulative_emissions", "cumulative_target",
		},
	}
	for _, e := range r.Emissions {
		t.Append(
			report.Int(e.Period), report.Float(e.Direct), report.Float(e.Spinning),
			report.Float(e.DeepCycling), report.Float(e.Startup), report.Float(e.Total),
			report.Float(e.Target), report.Float(e.OverTarget), report.Float(e.PercentOverTarget),
			report.Float(e.Cumulative), report.Float(e.CumulativeTarget),
		)
	}
	return t
}
