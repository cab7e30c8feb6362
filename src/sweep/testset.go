package sweep

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ryansname/switchsum/src/cumulative"
	"github.com/ryansname/switchsum/src/tabfile"
)

// Column positions in the per-test-set result files. Headers differ between
// model versions, so these files are read by position.
const (
	peakerPeriodCol    = 2
	peakerShortfallCol = 14

	loadInfeasiblePeriodCol    = 2
	loadInfeasibleTimepointCol = 5

	balancingInfeasiblePeriodCol    = 2
	balancingInfeasibleTimepointCol = 4

	biomassPeriodCol      = 2
	biomassLoadAreaCol    = 4
	biomassConsumptionCol = 6

	gasPeriodCol      = 2
	gasConsumptionCol = 4
)

// NoTimepoint marks a shortfall period with no recorded infeasible timepoint
const NoTimepoint = "?"

type biomassKey struct {
	CarbonCost int
	Period     int
	LoadArea   string
}

type gasKey struct {
	CarbonCost int
	Period     int
}

// testSet is everything read from one test_set_N directory
type testSet struct {
	id         string
	shortfalls []Shortfall
	biomass    map[biomassKey]float64
	gas        map[gasKey]float64
}

// carbonCostOf extracts the carbon cost from a {metric}_{cc}.{ext} file name
func carbonCostOf(path, metric string) (int, bool) {
	base := filepath.Base(path)
	s := strings.TrimPrefix(base, metric+"_")
	s = strings.TrimSuffix(s, filepath.Ext(s))
	cc, err := strconv.Atoi(s)
	return cc, err == nil && s != base
}

// glob lists {metric}_{cc} files in dir with their carbon costs, ascending by carbon cost
func glob(dir, metric, ext string, logger logrus.FieldLogger) ([]string, []int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, metric+"_*"+ext))
	if err != nil {
		return nil, nil, fmt.Errorf("sweep: %w", err)
	}
	type found struct {
		path string
		cc   int
	}
	var files []found
	for _, path := range matches {
		cc, ok := carbonCostOf(path, metric)
		if !ok {
			logger.WithField("file", path).Warn("No carbon cost in file name, skipping")
			continue
		}
		files = append(files, found{path, cc})
	}
	slices.SortFunc(files, func(a, b found) int { return a.cc - b.cc })

	paths := make([]string, len(files))
	costs := make([]int, len(files))
	for i, f := range files {
		paths[i], costs[i] = f.path, f.cc
	}
	return paths, costs, nil
}

func readTestSet(dir, id string, logger logrus.FieldLogger) (*testSet, error) {
	logger = logger.WithField("test_set", id)
	ts := &testSet{
		id:      id,
		biomass: make(map[biomassKey]float64),
		gas:     make(map[gasKey]float64),
	}
	results := filepath.Join(dir, "results")

	peakers, costs, err := glob(results, "dispatch_extra_peakers", ".txt", logger)
	if err != nil {
		return nil, err
	}
	for i, path := range peakers {
		rows, err := readShortfalls(path, id, costs[i], logger.WithField("carbon_cost", costs[i]))
		if err != nil {
			return nil, err
		}
		ts.shortfalls = append(ts.shortfalls, rows...)
	}

	biomassFiles, costs, err := glob(results, "biomass_consumed", ".txt", logger)
	if err != nil {
		return nil, err
	}
	for i, path := range biomassFiles {
		cc := costs[i]
		_, err := tabfile.Scan(path, tabfile.Options{Logger: logger}, func(r tabfile.Row) error {
			period, err := r.IntAt(biomassPeriodCol)
			if err != nil {
				return err
			}
			area, err := r.FieldAt(biomassLoadAreaCol)
			if err != nil {
				return err
			}
			consumed, err := r.FloatAt(biomassConsumptionCol)
			if err != nil {
				return err
			}
			ts.biomass[biomassKey{CarbonCost: cc, Period: period, LoadArea: area}] += consumed
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	gasFiles, costs, err := glob(results, "ng_consumed", ".txt", logger)
	if err != nil {
		return nil, err
	}
	for i, path := range gasFiles {
		cc := costs[i]
		_, err := tabfile.Scan(path, tabfile.Options{Logger: logger}, func(r tabfile.Row) error {
			period, err := r.IntAt(gasPeriodCol)
			if err != nil {
				return err
			}
			consumed, err := r.FloatAt(gasConsumptionCol)
			if err != nil {
				return err
			}
			ts.gas[gasKey{CarbonCost: cc, Period: period}] += consumed
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return ts, nil
}

// readInfeasible adds the infeasible timepoints of a file to byTimepoint
func readInfeasible(path string, periodCol, timepointCol int, byTimepoint map[string]int, logger logrus.FieldLogger) error {
	_, err := tabfile.Scan(path, tabfile.Options{Logger: logger}, func(r tabfile.Row) error {
		period, err := r.IntAt(periodCol)
		if err != nil {
			return err
		}
		tp, err := r.FieldAt(timepointCol)
		if err != nil {
			return err
		}
		byTimepoint[tp] = period
		return nil
	})
	return err
}

// readShortfalls crosses the cumulative shortfall of each period with the
// infeasible timepoints recorded for it.
func readShortfalls(peakerPath, testSetID string, cc int, logger logrus.FieldLogger) ([]Shortfall, error) {
	infeasible := make(map[string]int)
	loadPath := strings.Replace(peakerPath, "dispatch_extra_peakers", "load_infeasibilities", 1)
	if err := readInfeasible(loadPath, loadInfeasiblePeriodCol, loadInfeasibleTimepointCol, infeasible, logger); err != nil {
		return nil, err
	}
	balancingPath := strings.Replace(peakerPath, "dispatch_extra_peakers", "balancing_infeasibilities", 1)
	if err := readInfeasible(balancingPath, balancingInfeasiblePeriodCol, balancingInfeasibleTimepointCol, infeasible, logger); err != nil {
		return nil, err
	}

	increments := make(map[int]float64)
	_, err := tabfile.Scan(peakerPath, tabfile.Options{Logger: logger}, func(r tabfile.Row) error {
		period, err := r.IntAt(peakerPeriodCol)
		if err != nil {
			return err
		}
		mw, err := r.FloatAt(peakerShortfallCol)
		if err != nil {
			return err
		}
		increments[period] += mw
		return nil
	})
	if err != nil {
		return nil, err
	}

	timepointsByPeriod := make(map[int][]string)
	var periods []int
	for tp, period := range infeasible {
		timepointsByPeriod[period] = append(timepointsByPeriod[period], tp)
		periods = append(periods, period)
	}
	for period := range increments {
		periods = append(periods, period)
	}

	totals := cumulative.Carry(increments, periods)
	var out []Shortfall
	for _, period := range cumulative.Sorted(totals) {
		tps := timepointsByPeriod[period]
		slices.Sort(tps)
		if len(tps) == 0 {
			tps = []string{NoTimepoint}
		}
		for _, tp := range tps {
			out = append(out, Shortfall{
				CarbonCost: cc,
				TestSet:    testSetID,
				Timepoint:  tp,
				Period:     period,
				MW:         totals[period],
			})
		}
	}
	return out, nil
}
