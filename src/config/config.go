// Package config layers settings from flags, SWITCHSUM_* environment
// variables, an optional config file and defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ryansname/switchsum/src/percentile"
)

// EnvPrefix prefixes every environment variable, e.g. SWITCHSUM_CARBON_COST
const EnvPrefix = "SWITCHSUM"

// Scope selects which commands carry an option's flag
type Scope uint8

const (
	ScopeGlobal Scope = 1 << iota
	ScopeRun
	ScopeSweep
	ScopeBrowse
	ScopePublish
)

// ErrInvalid is returned for settings that parse but make no sense
var ErrInvalid = errors.New("config: invalid setting")

type option struct {
	key        string
	usage      string
	defaultVal any
	scope      Scope
}

// flagName is the command line spelling of a key: publish.mqtt.broker -> publish-mqtt-broker
func (o option) flagName() string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(o.key)
}

var options = []option{
	{key: "config", usage: "configuration file (any format viper reads)", defaultVal: "", scope: ScopeGlobal},
	{key: "env_file", usage: "dotenv file loaded before the environment is read", defaultVal: ".env", scope: ScopeGlobal},
	{key: "log_level", usage: "log level (debug, info, warn, error)", defaultVal: "info", scope: ScopeGlobal},
	{key: "dir", usage: "run or sweep root directory", defaultVal: ".", scope: ScopeGlobal},
	{key: "inputs_dir", usage: "model inputs, relative to dir", defaultVal: "inputs", scope: ScopeRun},
	{key: "results_dir", usage: "model results, relative to dir", defaultVal: "results", scope: ScopeRun | ScopeBrowse},
	{key: "output_dir", usage: "where reports are written; defaults to results_dir for run and dir for sweep", defaultVal: "", scope: ScopeRun | ScopeSweep | ScopeBrowse},
	{key: "scenario_id_file", usage: "file holding the integer scenario id, relative to dir", defaultVal: "scenario_id.txt", scope: ScopeRun | ScopeSweep},
	{key: "carbon_cost", usage: "carbon cost suffix of the result files to summarize", defaultVal: "0", scope: ScopeRun},
	{key: "num_years_per_period", usage: "years per period; 0 derives it from each period's sampled hours", defaultVal: 0.0, scope: ScopeRun},
	{key: "percentiles", usage: "percentile targets, ascending", defaultVal: "0,2,25,50,75,98,100", scope: ScopeRun},
	{key: "emissions.base_tons", usage: "base year annual emissions the carbon cap targets are relative to", defaultVal: 0.0, scope: ScopeRun},
	{key: "workers", usage: "test sets read concurrently", defaultVal: 4, scope: ScopeSweep},

	{key: "publish.mqtt.broker", usage: "MQTT broker URL; empty disables", defaultVal: "", scope: ScopePublish},
	{key: "publish.mqtt.client_id", usage: "MQTT client id", defaultVal: "switchsum", scope: ScopePublish},
	{key: "publish.mqtt.username", usage: "MQTT username", defaultVal: "", scope: ScopePublish},
	{key: "publish.mqtt.password", usage: "MQTT password", defaultVal: "", scope: ScopePublish},
	{key: "publish.mqtt.topic", usage: "MQTT topic prefix", defaultVal: "switchsum", scope: ScopePublish},
	{key: "publish.influx.url", usage: "InfluxDB URL; empty disables", defaultVal: "", scope: ScopePublish},
	{key: "publish.influx.token", usage: "InfluxDB token", defaultVal: "", scope: ScopePublish},
	{key: "publish.influx.org", usage: "InfluxDB organization", defaultVal: "", scope: ScopePublish},
	{key: "publish.influx.bucket", usage: "InfluxDB bucket", defaultVal: "switchsum", scope: ScopePublish},
	{key: "publish.kafka.brokers", usage: "Kafka brokers; empty disables", defaultVal: []string{}, scope: ScopePublish},
	{key: "publish.kafka.topic", usage: "Kafka topic", defaultVal: "switchsum-reports", scope: ScopePublish},
	{key: "publish.postgres.url", usage: "PostgreSQL connection URL; empty disables", defaultVal: "", scope: ScopePublish},
	{key: "publish.postgres.table", usage: "PostgreSQL table receiving report rows", defaultVal: "switchsum_report_rows", scope: ScopePublish},
}

// New returns a viper instance with defaults and environment binding
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, o := range options {
		v.SetDefault(o.key, o.defaultVal)
	}
	return v
}

// BindFlags adds the flags of every option in scope to set and binds them to v
func BindFlags(v *viper.Viper, set *pflag.FlagSet, scope Scope) {
	for _, o := range options {
		if o.scope&scope == 0 {
			continue
		}
		name := o.flagName()
		if set.Lookup(name) == nil {
			switch d := o.defaultVal.(type) {
			case string:
				set.String(name, d, o.usage)
			case float64:
				set.Float64(name, d, o.usage)
			case int:
				set.Int(name, d, o.usage)
			case []string:
				set.StringSlice(name, d, o.usage)
			default:
				panic(fmt.Sprintf("config: option %s has unsupported default %T", o.key, d))
			}
		}
		// Binding errors only occur for a nil flag
		_ = v.BindPFlag(o.key, set.Lookup(name))
	}
}

// LoadEnvFile loads a dotenv file into the process environment. A missing
// file is not an error.
func LoadEnvFile(path string, logger logrus.FieldLogger) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.WithField("file", path).Debug("No env file, using the environment as is")
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// ReadFile reads the config file named by the "config" key, if any
func ReadFile(v *viper.Viper) error {
	path := v.GetString("config")
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: problem reading configuration file: %w", err)
	}
	return nil
}

// MQTT configures the MQTT sink
type MQTT struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

// Influx configures the InfluxDB sink
type Influx struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Kafka configures the Kafka sink
type Kafka struct {
	Brokers []string
	Topic   string
}

// Postgres configures the PostgreSQL sink
type Postgres struct {
	URL   string
	Table string
}

// Publish configures the optional report sinks
type Publish struct {
	MQTT     MQTT
	Influx   Influx
	Kafka    Kafka
	Postgres Postgres
}

// Config is the resolved configuration
type Config struct {
	LogLevel          logrus.Level
	Dir               string
	InputsDir         string
	ResultsDir        string
	OutputDir         string
	ScenarioIDFile    string
	CarbonCost        string
	NumYearsPerPeriod float64
	Percentiles       []float64
	EmissionsBaseTons float64
	Workers           int
	Publish           Publish
}

// under resolves a relative path against dir
func under(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Load resolves v into a Config, validating as it goes
func Load(v *viper.Viper) (*Config, error) {
	level, err := logrus.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return nil, fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}
	percentiles, err := ParsePercentiles(v.Get("percentiles"))
	if err != nil {
		return nil, err
	}

	dir := v.GetString("dir")
	c := &Config{
		LogLevel:          level,
		Dir:               dir,
		InputsDir:         under(dir, v.GetString("inputs_dir")),
		ResultsDir:        under(dir, v.GetString("results_dir")),
		ScenarioIDFile:    under(dir, v.GetString("scenario_id_file")),
		CarbonCost:        v.GetString("carbon_cost"),
		NumYearsPerPeriod: v.GetFloat64("num_years_per_period"),
		Percentiles:       percentiles,
		EmissionsBaseTons: v.GetFloat64("emissions.base_tons"),
		Workers:           v.GetInt("workers"),
		Publish: Publish{
			MQTT: MQTT{
				Broker:   v.GetString("publish.mqtt.broker"),
				ClientID: v.GetString("publish.mqtt.client_id"),
				Username: v.GetString("publish.mqtt.username"),
				Password: v.GetString("publish.mqtt.password"),
				Topic:    v.GetString("publish.mqtt.topic"),
			},
			Influx: Influx{
				URL:    v.GetString("publish.influx.url"),
				Token:  v.GetString("publish.influx.token"),
				Org:    v.GetString("publish.influx.org"),
				Bucket: v.GetString("publish.influx.bucket"),
			},
			Kafka: Kafka{
				Brokers: nonEmpty(v.GetStringSlice("publish.kafka.brokers")),
				Topic:   v.GetString("publish.kafka.topic"),
			},
			Postgres: Postgres{
				URL:   v.GetString("publish.postgres.url"),
				Table: v.GetString("publish.postgres.table"),
			},
		},
	}
	if out := v.GetString("output_dir"); out != "" {
		c.OutputDir = under(dir, out)
	}
	if c.Workers < 1 {
		return nil, fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalid, c.Workers)
	}
	if c.NumYearsPerPeriod < 0 {
		return nil, fmt.Errorf("%w: num_years_per_period is negative", ErrInvalid)
	}
	return c, nil
}

// RunOutputDir is where single-run reports are written
func (c *Config) RunOutputDir() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return c.ResultsDir
}

// SweepOutputDir is where sweep reports are written
func (c *Config) SweepOutputDir() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return c.Dir
}

// nonEmpty splits comma separated entries and drops blanks. Environment
// variables arrive as one comma separated string.
func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, s := range strings.Split(entry, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// ParsePercentiles accepts a comma separated string or a list of numbers.
// Targets must lie in [0, 100]; they are returned sorted and deduplicated.
func ParsePercentiles(raw any) ([]float64, error) {
	var items []any
	switch r := raw.(type) {
	case nil:
		return slices.Clone(percentile.Default), nil
	case string:
		for _, s := range strings.Split(r, ",") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
	default:
		list, err := cast.ToSliceE(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: percentiles: %v", ErrInvalid, err)
		}
		items = list
	}

	out := make([]float64, 0, len(items))
	for _, item := range items {
		p, err := cast.ToFloat64E(item)
		if err != nil {
			return nil, fmt.Errorf("%w: percentile %v: %v", ErrInvalid, item, err)
		}
		if p < 0 || p > 100 {
			return nil, fmt.Errorf("%w: percentile %v outside [0, 100]", ErrInvalid, p)
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no percentiles", ErrInvalid)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
