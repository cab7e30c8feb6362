package sweep

import "github.com/ryansname/switchsum/src/report"

// Report file names
const (
	ShortfallFile = "cap_shortfall_summary.txt"
	BiomassFile   = "biomass_consumption_summary.txt"
	GasFile       = "ng_consumption_summary.txt"
)

// Tables renders the sweep summaries as report tables
func (r *Result) Tables() []report.Table {
	shortfalls := report.Table{
		Name:   ShortfallFile,
		Header: []string{"carbon_cost", "test_set_id", "timepoint", "period", "capacity_shortfall_mw"},
	}
	for _, s := range r.Shortfalls {
		shortfalls.Append(report.Int(s.CarbonCost), s.TestSet, s.Timepoint, report.Int(s.Period), report.Float(s.MW))
	}

	biomass := report.Table{
		Name:   BiomassFile,
		Header: []string{"carbon_cost", "period", "load_area", "consumption", "projected_consumption", "percent_over"},
	}
	for _, b := range r.Biomass {
		biomass.Append(
			report.Int(b.CarbonCost), report.Int(b.Period), b.LoadArea,
			report.Float(b.Consumption), report.Float(b.Projected), report.Float(b.PercentOver),
		)
	}

	gas := report.Table{
		Name:   GasFile,
		Header: []string{"carbon_cost", "period", "consumption", "projected_consumption", "percent_over"},
	}
	for _, g := range r.Gas {
		gas.Append(
			report.Int(g.CarbonCost), report.Int(g.Period),
			report.Float(g.Consumption), report.Float(g.Projected), report.Float(g.PercentOver),
		)
	}
	return []report.Table{shortfalls, biomass, gas}
}
