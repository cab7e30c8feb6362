package summary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryansname/switchsum/src/report"
)

const amplHeader = "ampl.tab 1 1\n"

// writeRun lays out a small run directory: one period, one date, two hours
func writeRun(t *testing.T) (inputs, results string) {
	t.Helper()
	root := t.TempDir()
	inputs = filepath.Join(root, "inputs")
	results = filepath.Join(root, "results")
	require.NoError(t, os.MkdirAll(inputs, 0o755))
	require.NoError(t, os.MkdirAll(results, 0o755))

	files := map[string]string{
		filepath.Join(inputs, "tech_grouping.txt"): "technology\ttech_group\n" +
			"CCGT\tGas\n" +
			"Wind\tWind\n",
		filepath.Join(inputs, "study_hours.tab"): amplHeader +
			"hour\tperiod\tdate\thours_in_sample\n" +
			"2020011500\t2020\t20200115\t43830\n" +
			"2020011512\t2020\t20200115\t43830\n",
		filepath.Join(inputs, "generator_info.tab"): amplHeader +
			"technology\tdispatchable\tstorage\tintermittent\n" +
			"CCGT\t1\t0\t0\n" +
			"Wind\t0\t0\t1\n",
		filepath.Join(inputs, "max_system_loads.tab"): amplHeader +
			"period\tmax_system_load\n" +
			"2020\t400\n",
		filepath.Join(inputs, "system_load.tab"): amplHeader +
			"hour\tsystem_load\n" +
			"2020011500\t300\n" +
			"2020011512\t200\n",
		filepath.Join(inputs, "transmission_lines.tab"): amplHeader +
			"load_area_start\tload_area_end\ttransmission_length_km\ttransmission_derating_factor\n" +
			"AZ\tCA\t500\t0.9\n",
		filepath.Join(results, "gen_cap_0.txt"): "period\ttechnology\tcapacity\tstorage_energy_capacity\tcapital_cost\tfixed_o_m_cost\n" +
			"2020\tCCGT\t200\t0\t1000\t500\n" +
			"2020\tWind\t100\t0\t0\t0\n",
		filepath.Join(results, "trans_cap_0.txt"): "period\tstart\tend\ttrans_mw\tfixed_cost\n" +
			"2020\tAZ\tCA\t200\t1000\n",
		filepath.Join(results, "cost_summary.txt"): "period\tPower_Cost_Per_Period\n" +
			"2020\t80\n",
		filepath.Join(results, "generator_and_storage_dispatch_0.txt"): "period\ttechnology\tproject_id\thour\tfuel\tpower\t" +
			strings.Join(emissionColumns, "\t") + "\t" + strings.Join(variableCostColumns, "\t") + "\n" +
			"2020\tCCGT\tp1\t2020011500\tGas\t100\t1\t0\t0\t0\t1\t0\t0\t0\t0\t0\t0\t0\t0\t1\n" +
			"2020\tCCGT\tp1\t2020011512\tGas\t50\t1\t0\t0\t0\t0\t0\t0\t0\t0\t0\t0\t0\t0\t0\n" +
			"2020\tWind\tw1\t2020011500\tWind\t40\t0\t0\t0\t0\t0\t0\t0\t0\t0\t0\t0\t0\t0\t0\n",
		filepath.Join(results, "transmission_dispatch_0.txt"): "period\thour\tload_area_from\tload_area_receive\tpower_sent\tpower_received\n" +
			"2020\t2020011500\tAZ\tCA\t80\t76\n",
	}
	for path, body := range files {
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return inputs, results
}

func TestRun(t *testing.T) {
	inputs, results := writeRun(t)
	logger, hook := test.NewNullLogger()

	res, err := Run(Options{
		InputsDir:         inputs,
		ResultsDir:        results,
		CarbonCost:        "0",
		NumYearsPerPeriod: 10,
		Logger:            logger,
	})
	require.NoError(t, err)

	// carbon_cap_targets.tab is optional
	var warned bool
	for _, e := range hook.AllEntries() {
		if file, _ := e.Data["file"].(string); strings.HasSuffix(file, "carbon_cap_targets.tab") {
			warned = true
		}
	}
	assert.True(t, warned)

	gas := generation(t, res, 2020, "Gas")
	assert.Equal(t, 150*hpy, gas.EnergyGen)
	assert.Equal(t, 50.0, gas.Percentiles[50])
	assert.InDelta(t, 2*hpy, gas.CostVar, 1e-9)

	require.Len(t, res.System, 1)
	assert.Equal(t, 400.0, res.System[0].PeakDemand)
	// (300 + 200) MW of load, each hour standing for hpy hours a year
	assert.Equal(t, 500*hpy, res.System[0].LoadServed)
	assert.Equal(t, 80*500*hpy, res.System[0].SystemCost)

	require.Len(t, res.Transmission, 1)
	assert.Equal(t, 100.0, res.Transmission[0].RatedMW)

	require.Len(t, res.NetLoad, 2)
	assert.Equal(t, 260.0, res.NetLoad[0].NetLoad)

	require.Len(t, res.Ramps, 2)
	assert.Equal(t, "Gas", res.Ramps[0].Source)
	assert.Equal(t, "Net_Tx", res.Ramps[1].Source)
}

func TestRun_DerivesYearsPerPeriod(t *testing.T) {
	inputs, results := writeRun(t)
	res, err := Run(Options{InputsDir: inputs, ResultsDir: results, CarbonCost: "0"})
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.System[0].NumYears)
}

func TestRun_UnknownTechnologyInGeneratorInfo(t *testing.T) {
	inputs, results := writeRun(t)
	require.NoError(t, os.WriteFile(filepath.Join(inputs, "tech_grouping.txt"), []byte("technology\ttech_group\nCCGT\tGas\n"), 0o644))

	_, err := Run(Options{InputsDir: inputs, ResultsDir: results, CarbonCost: "0"})
	assert.ErrorIs(t, err, ErrUnknownTechnology)
	assert.Contains(t, err.Error(), "generator_info.tab line")
}

func TestRun_TargetsWithoutBaseTonsWarn(t *testing.T) {
	inputs, results := writeRun(t)
	require.NoError(t, os.WriteFile(filepath.Join(inputs, "carbon_cap_targets.tab"),
		[]byte(amplHeader+"year\tcarbon_emissions_relative_to_base\n2020\t0.8\n"), 0o644))

	tests := []struct {
		name     string
		baseTons float64
		want     bool
	}{
		{"no base tons", 0, true},
		{"base tons set", 1e6, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			_, err := Run(Options{
				InputsDir:         inputs,
				ResultsDir:        results,
				CarbonCost:        "0",
				EmissionsBaseTons: tt.baseTons,
				Logger:            logger,
			})
			require.NoError(t, err)

			var warned bool
			for _, e := range hook.AllEntries() {
				if _, ok := e.Data["targets"]; ok && e.Level == logrus.WarnLevel {
					warned = true
				}
			}
			assert.Equal(t, tt.want, warned)
		})
	}
}

func TestRun_MalformedDispatchIsFatal(t *testing.T) {
	inputs, results := writeRun(t)
	path := filepath.Join(results, "transmission_dispatch_0.txt")
	require.NoError(t, os.WriteFile(path, []byte("period\thour\tload_area_from\tload_area_receive\tpower_sent\tpower_received\n2020\t2020011500\tAZ\tCA\tlots\t76\n"), 0o644))

	_, err := Run(Options{InputsDir: inputs, ResultsDir: results, CarbonCost: "0"})
	assert.Error(t, err)
}

func TestRun_MissingResultsAreEmpty(t *testing.T) {
	inputs, _ := writeRun(t)
	res, err := Run(Options{InputsDir: inputs, ResultsDir: t.TempDir(), CarbonCost: "0"})
	require.NoError(t, err)

	assert.Empty(t, res.Generation)
	assert.Empty(t, res.Transmission)
	require.Len(t, res.System, 1)
	assert.Equal(t, 0.0, res.System[0].PowerCost)
}

func TestTables(t *testing.T) {
	inputs, results := writeRun(t)
	res, err := Run(Options{InputsDir: inputs, ResultsDir: results, CarbonCost: "0"})
	require.NoError(t, err)

	tables := res.Tables()
	byName := make(map[string]report.Table, len(tables))
	for _, table := range tables {
		byName[table.Name] = table
		for i, row := range table.Rows {
			assert.Len(t, row, len(table.Header), "%s row %d", table.Name, i)
		}
	}
	require.Len(t, byName, 8)

	gen := byName[GenSummaryFile]
	assert.Equal(t, []string{
		"period", "technology", "capacity", "capacity_factor", "cost_capital",
		"cost_fixed", "cost_var", "emissions", "energy_gen", "energy_released",
		"energy_stored", "levelized_cost", "storage_energy_capacity",
		"total_hourly_down_ramp", "total_hourly_up_ramp",
		"percentile_0", "percentile_2", "percentile_25", "percentile_50",
		"percentile_75", "percentile_98", "percentile_100",
	}, gen.Header)
	require.Len(t, gen.Rows, 2)
	assert.Equal(t, `"Gas"`, gen.Rows[0][1])
	assert.Equal(t, `"Wind"`, gen.Rows[1][1])
	assert.Equal(t, "657450", gen.Rows[0][gen.Column("energy_gen")])

	assert.Len(t, byName[GenPercentilesFile].Rows, 14)
	assert.Len(t, byName[GenHourlyFile].Rows, 4)

	netLoad := byName[NetLoadHourlyFile]
	assert.Equal(t, []string{"period", "timepoint", "load", "net_load", "percentile_rank", `"Wind"`, "weight", "month_of_year", "hour_of_day"}, netLoad.Header)

	ramp := byName[RampSummaryFile]
	require.Len(t, ramp.Rows, 2)
	assert.Equal(t, `"Net_Tx"`, ramp.Rows[1][1])
}
