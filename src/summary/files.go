package summary

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/ryansname/switchsum/src/tabfile"
)

// Columns that make up the hourly variable cost of a dispatch row
var variableCostColumns = []string{
	"fuel_cost", "carbon_cost_hourly", "variable_o_m",
	"spinning_fuel_cost", "spinning_carbon_cost_incurred",
	"deep_cycling_fuel_cost", "deep_cycling_carbon_cost",
	"startup_fuel_cost", "startup_nonfuel_cost", "startup_carbon_cost",
}

// Emission columns of a dispatch row: direct, spinning, deep cycling, startup
var emissionColumns = []string{"co2_tons", "spinning_co2_tons", "deep_cycling_co2_tons", "startup_co2_tons"}

// atRow attaches the file position to an error raised while applying a row
func atRow(r tabfile.Row, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s line %d: %w", r.Path, r.Line, err)
}

func (a *Aggregator) scan(path string, amplHeader bool, fn func(tabfile.Row) error) error {
	found, err := tabfile.Scan(path, tabfile.Options{AMPLHeader: amplHeader, Logger: a.logger}, fn)
	if err != nil {
		return err
	}
	if found {
		a.logger.WithField("file", path).Debug("Read input")
	}
	return nil
}

// ReadPeakDemand reads max_system_loads.tab
func (a *Aggregator) ReadPeakDemand(path string) error {
	return a.scan(path, true, func(r tabfile.Row) error {
		period, err := r.Int("period")
		if err != nil {
			return err
		}
		mw, err := r.Float("max_system_load")
		if err != nil {
			return err
		}
		a.AddPeakDemand(period, mw)
		return nil
	})
}

// ReadSystemLoad reads system_load.tab
func (a *Aggregator) ReadSystemLoad(path string) error {
	return a.scan(path, true, func(r tabfile.Row) error {
		tp, err := r.Int64("hour")
		if err != nil {
			return err
		}
		mw, err := r.Float("system_load")
		if err != nil {
			return err
		}
		return atRow(r, a.AddLoad(tp, mw))
	})
}

// ReadGenCapacity reads gen_cap_{cc}.txt
func (a *Aggregator) ReadGenCapacity(path string) error {
	return a.scan(path, false, func(r tabfile.Row) error {
		c := GenCapacity{}
		var err error
		if c.Period, err = r.Int("period"); err != nil {
			return err
		}
		if c.Technology, err = r.String("technology"); err != nil {
			return err
		}
		v, err := r.Floats("capacity", "storage_energy_capacity", "capital_cost", "fixed_o_m_cost")
		if err != nil {
			return err
		}
		c.Capacity, c.StorageEnergyCapacity, c.CapitalCost, c.FixedCost = v[0], v[1], v[2], v[3]
		return atRow(r, a.AddGenCapacity(c))
	})
}

// ReadTransCapacity reads trans_cap_{cc}.txt
func (a *Aggregator) ReadTransCapacity(path string) error {
	return a.scan(path, false, func(r tabfile.Row) error {
		c := TransCapacity{}
		var err error
		if c.Period, err = r.Int("period"); err != nil {
			return err
		}
		if c.Start, err = r.String("start"); err != nil {
			return err
		}
		if c.End, err = r.String("end"); err != nil {
			return err
		}
		v, err := r.Floats("trans_mw", "fixed_cost")
		if err != nil {
			return err
		}
		c.MW, c.FixedCost = v[0], v[1]
		return atRow(r, a.AddTransCapacity(c))
	})
}

// ReadCostSummary reads cost_summary.txt
func (a *Aggregator) ReadCostSummary(path string) error {
	return a.scan(path, false, func(r tabfile.Row) error {
		period, err := r.Int("period")
		if err != nil {
			return err
		}
		cost, err := r.Float("Power_Cost_Per_Period")
		if err != nil {
			return err
		}
		return atRow(r, a.SetPowerCost(period, cost))
	})
}

// ReadGenDispatch reads generator_and_storage_dispatch_{cc}.txt
func (a *Aggregator) ReadGenDispatch(path string) error {
	before := a.skipped
	err := a.scan(path, false, func(r tabfile.Row) error {
		d := GenDispatch{}
		var err error
		if d.Period, err = r.Int("period"); err != nil {
			return err
		}
		if d.Technology, err = r.String("technology"); err != nil {
			return err
		}
		if d.ProjectID, err = r.String("project_id"); err != nil {
			return err
		}
		if d.Timepoint, err = r.Int64("hour"); err != nil {
			return err
		}
		if d.Fuel, err = r.String("fuel"); err != nil {
			return err
		}
		if d.Power, err = r.Float("power"); err != nil {
			return err
		}
		co2, err := r.Floats(emissionColumns...)
		if err != nil {
			return err
		}
		d.CO2, d.SpinningCO2, d.DeepCyclingCO2, d.StartupCO2 = co2[0], co2[1], co2[2], co2[3]
		costs, err := r.Floats(variableCostColumns...)
		if err != nil {
			return err
		}
		d.VariableCost = floats.Sum(costs)
		return atRow(r, a.AddGenDispatch(d))
	})
	if n := a.skipped - before; n > 0 {
		a.logger.WithFields(logrus.Fields{"file": path, "rows": n}).Warn("Dispatch rows without installed capacity skipped")
	}
	return err
}

// ReadTransDispatch reads transmission_dispatch_{cc}.txt
func (a *Aggregator) ReadTransDispatch(path string) error {
	return a.scan(path, false, func(r tabfile.Row) error {
		d := TransDispatch{}
		var err error
		if d.Period, err = r.Int("period"); err != nil {
			return err
		}
		if d.Timepoint, err = r.Int64("hour"); err != nil {
			return err
		}
		if d.From, err = r.String("load_area_from"); err != nil {
			return err
		}
		if d.To, err = r.String("load_area_receive"); err != nil {
			return err
		}
		v, err := r.Floats("power_sent", "power_received")
		if err != nil {
			return err
		}
		d.Sent, d.Received = v[0], v[1]
		return atRow(r, a.AddTransDispatch(d))
	})
}
