// Package sankey turns a run summary into per-period energy flow diagrams:
// technology groups supply the grid, which serves load, charges storage and
// loses energy in transmission.
package sankey

import (
	"slices"

	"github.com/ryansname/switchsum/src/report"
	"github.com/ryansname/switchsum/src/summary"
)

// FlowsFile is the flow report written next to the run reports
const FlowsFile = "energy_flows.txt"

// ChartFile is the chart configuration written next to the run reports
const ChartFile = "energy_flows.yaml"

// Build derives one diagram per period from res. Zero flows are left out.
func Build(res *summary.Result) []Diagram {
	byPeriod := make(map[int]*Diagram)
	diagram := func(period int) *Diagram {
		d, ok := byPeriod[period]
		if !ok {
			d = &Diagram{Period: period}
			byPeriod[period] = d
		}
		return d
	}
	grid := Node{Name: NodeGrid, Section: SectionGrid}
	add := func(period int, source, target Node, energy float64) {
		if energy <= 0 {
			return
		}
		d := diagram(period)
		d.Flows = append(d.Flows, Flow{Period: period, Source: source, Target: target, Energy: energy})
	}

	for _, g := range res.Generation {
		supply := Node{Name: g.Group, Section: SectionSupply}
		add(g.Period, supply, grid, g.EnergyGen+g.EnergyReleased)
		add(g.Period, grid, Node{Name: NodeStorageCharging, Section: SectionDemand}, g.EnergyStored)
	}
	for _, t := range res.Transmission {
		add(t.Period, grid, Node{Name: NodeTransmission, Section: SectionDemand}, t.EnergySent-t.EnergyReceived)
	}
	for _, s := range res.System {
		add(s.Period, grid, Node{Name: NodeLoad, Section: SectionDemand}, s.LoadServed)
	}

	periods := make([]int, 0, len(byPeriod))
	for p := range byPeriod {
		periods = append(periods, p)
	}
	slices.Sort(periods)

	out := make([]Diagram, 0, len(periods))
	for _, p := range periods {
		d := byPeriod[p]
		d.Flows = merge(d.Flows)
		out = append(out, *d)
	}
	return out
}

// merge sums flows sharing source and target, keeping first appearance order
func merge(flows []Flow) []Flow {
	type edge struct{ source, target Node }
	index := make(map[edge]int)
	var out []Flow
	for _, f := range flows {
		e := edge{f.Source, f.Target}
		if i, ok := index[e]; ok {
			out[i].Energy += f.Energy
			continue
		}
		index[e] = len(out)
		out = append(out, f)
	}
	return out
}

// Table lays the diagrams out as a report
func Table(diagrams []Diagram) report.Table {
	t := report.Table{
		Name:   FlowsFile,
		Header: []string{"period", "source", "target", "energy"},
	}
	for _, d := range diagrams {
		for _, f := range d.Flows {
			t.Append(report.Int(f.Period), report.Quote(f.Source.Name), report.Quote(f.Target.Name), report.Float(f.Energy))
		}
	}
	return t
}
