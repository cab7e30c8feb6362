package summary

import (
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/ryansname/switchsum/src/timeindex"
)

// Options locates the inputs of a run and tunes its statistics
type Options struct {
	InputsDir         string
	ResultsDir        string
	CarbonCost        string // suffix of the per-run result files
	NumYearsPerPeriod float64
	Percentiles       []float64
	EmissionsBaseTons float64
	Logger            logrus.FieldLogger
}

// Run reads every input of a run in dependency order and finalizes the summary.
// Capacity must be read before dispatch so dispatch rows can find their aggregate.
func Run(opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("carbon_cost", opts.CarbonCost)

	input := func(name string) string { return filepath.Join(opts.InputsDir, name) }
	result := func(metric string) string {
		return filepath.Join(opts.ResultsDir, metric+"_"+opts.CarbonCost+".txt")
	}

	groups, err := LoadTechGroups(input("tech_grouping.txt"), logger)
	if err != nil {
		return nil, err
	}
	ix, err := timeindex.Load(input("study_hours.tab"), opts.NumYearsPerPeriod, logger)
	if err != nil {
		return nil, err
	}
	classes, err := LoadClasses(input("generator_info.tab"), groups, logger)
	if err != nil {
		return nil, err
	}
	lines, err := LoadLines(input("transmission_lines.tab"), logger)
	if err != nil {
		return nil, err
	}
	targets, err := LoadCarbonTargets(input("carbon_cap_targets.tab"), logger)
	if err != nil {
		return nil, err
	}

	if len(targets) > 0 && opts.EmissionsBaseTons == 0 {
		logger.WithField("targets", len(targets)).Warn("Carbon cap targets given without emissions base tons, targets will read as zero")
	}

	a := NewAggregator(ix, groups, classes, lines, logger)
	steps := []struct {
		path string
		read func(string) error
	}{
		{input("max_system_loads.tab"), a.ReadPeakDemand},
		{input("system_load.tab"), a.ReadSystemLoad},
		{result("gen_cap"), a.ReadGenCapacity},
		{result("trans_cap"), a.ReadTransCapacity},
		{filepath.Join(opts.ResultsDir, "cost_summary.txt"), a.ReadCostSummary},
		{result("generator_and_storage_dispatch"), a.ReadGenDispatch},
		{result("transmission_dispatch"), a.ReadTransDispatch},
	}
	for _, step := range steps {
		if err := step.read(step.path); err != nil {
			return nil, err
		}
	}

	logger.WithFields(logrus.Fields{
		"periods":    len(ix.Periods()),
		"timepoints": ix.Len(),
		"groups":     len(a.gen),
	}).Info("Inputs read, finalizing summary")

	return a.Finalize(FinalizeOptions{
		Percentiles: opts.Percentiles,
		Targets:     targets,
		BaseTons:    opts.EmissionsBaseTons,
	})
}
