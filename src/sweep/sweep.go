// Package sweep summarizes a parametric sweep: every test_set_N directory
// holds the results of one replicate for several carbon costs. Test sets are
// read concurrently and merged in a fixed order.
package sweep

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ryansname/switchsum/src/tabfile"
)

// ErrMissingProjection is returned when fuel consumption has no projected
// consumption to compare against.
var ErrMissingProjection = errors.New("sweep: consumption has no projection")

const testSetPrefix = "test_set_"

// Shortfall is the cumulative capacity shortfall of a period in one run,
// repeated for every infeasible timepoint of that period.
type Shortfall struct {
	CarbonCost int
	TestSet    string
	Timepoint  string // NoTimepoint when the period recorded none
	Period     int
	MW         float64
}

// Biomass compares a load area's biomass consumption with its projection
type Biomass struct {
	CarbonCost  int
	Period      int
	LoadArea    string
	Consumption float64
	Projected   float64
	PercentOver float64
}

// Gas compares natural gas consumption with its projection
type Gas struct {
	CarbonCost  int
	Period      int
	Consumption float64
	Projected   float64
	PercentOver float64
}

// Result holds the sweep summaries in report order
type Result struct {
	Shortfalls []Shortfall
	Biomass    []Biomass
	Gas        []Gas
}

// Options locates the sweep
type Options struct {
	Dir     string // holds test_set_* and common_inputs
	Workers int
	Logger  logrus.FieldLogger
}

// compareIDs orders numeric IDs numerically and anything else lexically
func compareIDs(a, b string) int {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return cmp.Compare(x, y)
	}
	return cmp.Compare(a, b)
}

// testSets lists the test set directories under dir, ordered by ID
func testSets(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, testSetPrefix+"*"))
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	var ids []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			ids = append(ids, strings.TrimPrefix(filepath.Base(m), testSetPrefix))
		}
	}
	slices.SortFunc(ids, compareIDs)
	return ids, nil
}

// Run reads every test set and the consumption projections and builds the
// sweep summaries.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	ids, err := testSets(opts.Dir)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"test_sets": len(ids), "workers": workers}).Info("Reading sweep")

	sets := make([]*testSet, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ts, err := readTestSet(filepath.Join(opts.Dir, testSetPrefix+id), id, logger)
			if err != nil {
				return err
			}
			sets[i] = ts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	common := filepath.Join(opts.Dir, "common_inputs")
	biomassProjections, err := readBiomassProjections(common, logger)
	if err != nil {
		return nil, err
	}
	gasProjections, err := readGasProjections(common, logger)
	if err != nil {
		return nil, err
	}

	return merge(sets, biomassProjections, gasProjections)
}

// merge combines test sets in order and compares consumption against projections
func merge(sets []*testSet, biomassProjections map[biomassKey]float64, gasProjections map[gasKey]float64) (*Result, error) {
	res := &Result{}
	biomass := make(map[biomassKey]float64)
	gas := make(map[gasKey]float64)
	for _, ts := range sets {
		res.Shortfalls = append(res.Shortfalls, ts.shortfalls...)
		for k, v := range ts.biomass {
			biomass[k] += v
		}
		for k, v := range ts.gas {
			gas[k] += v
		}
	}

	slices.SortStableFunc(res.Shortfalls, func(a, b Shortfall) int {
		return cmp.Or(
			cmp.Compare(b.MW, a.MW),
			cmp.Compare(a.CarbonCost, b.CarbonCost),
			compareIDs(a.TestSet, b.TestSet),
			cmp.Compare(a.Period, b.Period),
			compareIDs(a.Timepoint, b.Timepoint),
		)
	})

	for k, consumed := range biomass {
		projected, ok := biomassProjections[k]
		if !ok {
			return nil, fmt.Errorf("%w: biomass carbon cost %d period %d load area %s", ErrMissingProjection, k.CarbonCost, k.Period, k.LoadArea)
		}
		res.Biomass = append(res.Biomass, Biomass{
			CarbonCost:  k.CarbonCost,
			Period:      k.Period,
			LoadArea:    k.LoadArea,
			Consumption: consumed,
			Projected:   projected,
			PercentOver: percentOver(consumed, projected),
		})
	}
	slices.SortFunc(res.Biomass, func(a, b Biomass) int {
		return cmp.Or(
			cmp.Compare(b.Consumption-b.Projected, a.Consumption-a.Projected),
			cmp.Compare(a.CarbonCost, b.CarbonCost),
			cmp.Compare(a.Period, b.Period),
			cmp.Compare(a.LoadArea, b.LoadArea),
		)
	})

	for k, consumed := range gas {
		projected, ok := gasProjections[k]
		if !ok {
			return nil, fmt.Errorf("%w: natural gas carbon cost %d period %d", ErrMissingProjection, k.CarbonCost, k.Period)
		}
		res.Gas = append(res.Gas, Gas{
			CarbonCost:  k.CarbonCost,
			Period:      k.Period,
			Consumption: consumed,
			Projected:   projected,
			PercentOver: percentOver(consumed, projected),
		})
	}
	slices.SortFunc(res.Gas, func(a, b Gas) int {
		return cmp.Or(
			cmp.Compare(b.Consumption-b.Projected, a.Consumption-a.Projected),
			cmp.Compare(a.CarbonCost, b.CarbonCost),
			cmp.Compare(a.Period, b.Period),
		)
	})
	return res, nil
}

// percentOver is the fractional over-consumption, 0 without a projection
func percentOver(consumed, projected float64) float64 {
	if projected == 0 {
		return 0
	}
	return (consumed - projected) / projected
}

// Projection file column positions; only breakpoint 1 is the projection
const (
	biomassProjLoadAreaCol    = 0
	biomassProjPeriodCol      = 1
	biomassProjBreakpointCol  = 2
	biomassProjConsumptionCol = 3

	gasProjPeriodCol      = 0
	gasProjBreakpointCol  = 1
	gasProjConsumptionCol = 2

	projectionBreakpoint = 1
)

func readBiomassProjections(dir string, logger logrus.FieldLogger) (map[biomassKey]float64, error) {
	out := make(map[biomassKey]float64)
	paths, costs, err := glob(dir, "biomass_consumption_and_prices_by_period", ".tab", logger)
	if err != nil {
		return nil, err
	}
	for i, path := range paths {
		cc := costs[i]
		_, err := tabfile.Scan(path, tabfile.Options{AMPLHeader: true, Logger: logger}, func(r tabfile.Row) error {
			bp, err := r.IntAt(biomassProjBreakpointCol)
			if err != nil || bp != projectionBreakpoint {
				return err
			}
			area, err := r.FieldAt(biomassProjLoadAreaCol)
			if err != nil {
				return err
			}
			period, err := r.IntAt(biomassProjPeriodCol)
			if err != nil {
				return err
			}
			projected, err := r.FloatAt(biomassProjConsumptionCol)
			if err != nil {
				return err
			}
			out[biomassKey{CarbonCost: cc, Period: period, LoadArea: area}] = projected
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readGasProjections(dir string, logger logrus.FieldLogger) (map[gasKey]float64, error) {
	out := make(map[gasKey]float64)
	paths, costs, err := glob(dir, "ng_consumption_and_prices_by_period", ".tab", logger)
	if err != nil {
		return nil, err
	}
	for i, path := range paths {
		cc := costs[i]
		_, err := tabfile.Scan(path, tabfile.Options{AMPLHeader: true, Logger: logger}, func(r tabfile.Row) error {
			bp, err := r.IntAt(gasProjBreakpointCol)
			if err != nil || bp != projectionBreakpoint {
				return err
			}
			period, err := r.IntAt(gasProjPeriodCol)
			if err != nil {
				return err
			}
			projected, err := r.FloatAt(gasProjConsumptionCol)
			if err != nil {
				return err
			}
			out[gasKey{CarbonCost: cc, Period: period}] = projected
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
