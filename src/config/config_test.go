package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flags(t *testing.T, scope Scope, args ...string) *Config {
	t.Helper()
	v := New()
	set := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(v, set, scope)
	require.NoError(t, set.Parse(args))
	require.NoError(t, ReadFile(v))
	c, err := Load(v)
	require.NoError(t, err)
	return c
}

func TestLoad_Defaults(t *testing.T) {
	c := flags(t, ScopeGlobal|ScopeRun|ScopeSweep)

	assert.Equal(t, logrus.InfoLevel, c.LogLevel)
	assert.Equal(t, ".", c.Dir)
	assert.Equal(t, "inputs", c.InputsDir)
	assert.Equal(t, "results", c.ResultsDir)
	assert.Equal(t, "scenario_id.txt", c.ScenarioIDFile)
	assert.Equal(t, "0", c.CarbonCost)
	assert.Equal(t, []float64{0, 2, 25, 50, 75, 98, 100}, c.Percentiles)
	assert.Equal(t, 4, c.Workers)
	assert.Equal(t, "results", c.RunOutputDir())
	assert.Equal(t, ".", c.SweepOutputDir())
	assert.Empty(t, c.Publish.Kafka.Brokers)
	assert.Equal(t, "switchsum_report_rows", c.Publish.Postgres.Table)
}

func TestLoad_Flags(t *testing.T) {
	c := flags(t, ScopeGlobal|ScopeRun|ScopeSweep|ScopePublish,
		"--dir", "/runs/a",
		"--carbon-cost", "50",
		"--num-years-per-period", "10",
		"--percentiles", "90, 10,50,10",
		"--emissions-base-tons", "1e6",
		"--output-dir", "out",
		"--workers", "2",
		"--publish-kafka-brokers", "k1:9092,k2:9092",
		"--log-level", "debug",
	)

	assert.Equal(t, logrus.DebugLevel, c.LogLevel)
	assert.Equal(t, filepath.Join("/runs/a", "inputs"), c.InputsDir)
	assert.Equal(t, "50", c.CarbonCost)
	assert.Equal(t, 10.0, c.NumYearsPerPeriod)
	assert.Equal(t, []float64{10, 50, 90}, c.Percentiles)
	assert.Equal(t, 1e6, c.EmissionsBaseTons)
	assert.Equal(t, filepath.Join("/runs/a", "out"), c.RunOutputDir())
	assert.Equal(t, c.RunOutputDir(), c.SweepOutputDir())
	assert.Equal(t, 2, c.Workers)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Publish.Kafka.Brokers)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SWITCHSUM_CARBON_COST", "25")
	t.Setenv("SWITCHSUM_PUBLISH_MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("SWITCHSUM_EMISSIONS_BASE_TONS", "42")
	t.Setenv("SWITCHSUM_PUBLISH_KAFKA_BROKERS", "k1:9092, k2:9092")

	c := flags(t, ScopeGlobal|ScopeRun|ScopePublish)
	assert.Equal(t, "25", c.CarbonCost)
	assert.Equal(t, "tcp://broker:1883", c.Publish.MQTT.Broker)
	assert.Equal(t, 42.0, c.EmissionsBaseTons)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Publish.Kafka.Brokers)
}

func TestLoad_FlagBeatsEnvironment(t *testing.T) {
	t.Setenv("SWITCHSUM_CARBON_COST", "25")
	c := flags(t, ScopeGlobal|ScopeRun, "--carbon-cost", "75")
	assert.Equal(t, "75", c.CarbonCost)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switchsum.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
carbon_cost: "100"
percentiles: [5, 95]
workers: 3
publish:
  influx:
    url: http://influx:8086
    org: grid
`), 0o644))

	c := flags(t, ScopeGlobal|ScopeRun|ScopeSweep|ScopePublish, "--config", path)
	assert.Equal(t, "100", c.CarbonCost)
	assert.Equal(t, []float64{5, 95}, c.Percentiles)
	assert.Equal(t, 3, c.Workers)
	assert.Equal(t, "http://influx:8086", c.Publish.Influx.URL)
	assert.Equal(t, "grid", c.Publish.Influx.Org)
	assert.Equal(t, "switchsum", c.Publish.Influx.Bucket)
}

func TestReadFile_Missing(t *testing.T) {
	v := New()
	v.Set("config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, ReadFile(v))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"zero workers", "workers", 0},
		{"negative years", "num_years_per_period", -1.0},
		{"bad log level", "log_level", "chatty"},
		{"percentile too large", "percentiles", "50,101"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParsePercentiles(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    []float64
		wantErr bool
	}{
		{"nil is default", nil, []float64{0, 2, 25, 50, 75, 98, 100}, false},
		{"string", "75,25", []float64{25, 75}, false},
		{"fractional", "99.5", []float64{99.5}, false},
		{"list", []any{100, "0", 50.0}, []float64{0, 50, 100}, false},
		{"empty string", "", nil, true},
		{"not a number", "median", nil, true},
		{"negative", []any{-1}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePercentiles(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	logger, _ := test.NewNullLogger()
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env"), logger))
	assert.NoError(t, LoadEnvFile("", logger))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SWITCHSUM_TEST_ENV_FILE=loaded\n"), 0o644))
	t.Setenv("SWITCHSUM_TEST_ENV_FILE", "")
	require.NoError(t, os.Unsetenv("SWITCHSUM_TEST_ENV_FILE"))
	require.NoError(t, LoadEnvFile(path, logger))
	assert.Equal(t, "loaded", os.Getenv("SWITCHSUM_TEST_ENV_FILE"))
}
