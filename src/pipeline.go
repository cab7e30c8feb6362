package main

import (
	"context"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ryansname/switchsum/src/browse"
	"github.com/ryansname/switchsum/src/publish"
	"github.com/ryansname/switchsum/src/report"
	"github.com/ryansname/switchsum/src/sankey"
	"github.com/ryansname/switchsum/src/summary"
	"github.com/ryansname/switchsum/src/sweep"
)

// pipeline summarizes, writes the reports and publishes them
func (c *command) pipeline(ctx context.Context, single, sweeps bool) error {
	runID := uuid.New()
	logger := c.logger.WithField("run_id", runID)

	scenarioID, err := report.ReadScenarioID(c.cfg.ScenarioIDFile)
	if err != nil {
		return err
	}
	logger = logger.WithField("scenario_id", scenarioID)
	start := time.Now()

	var published []report.Table
	if single {
		tables, diagrams, err := c.summarize(logger)
		if err != nil {
			return err
		}
		if err := report.Write(c.cfg.RunOutputDir(), scenarioID, tables, logger); err != nil {
			return err
		}
		if err := sankey.WriteChart(c.cfg.RunOutputDir(), diagrams, logger); err != nil {
			return err
		}
		published = append(published, tables...)
	}
	if sweeps {
		tables, err := c.sweep(ctx, logger)
		if err != nil {
			return err
		}
		if err := report.Write(c.cfg.SweepOutputDir(), scenarioID, tables, logger); err != nil {
			return err
		}
		published = append(published, tables...)
	}
	logger.WithFields(logrus.Fields{"reports": len(published), "elapsed": time.Since(start).Round(time.Millisecond)}).Info("Reports written")

	return c.publish(ctx, runID, scenarioID, published, logger)
}

func (c *command) summarize(logger logrus.FieldLogger) ([]report.Table, []sankey.Diagram, error) {
	logger.WithFields(logrus.Fields{
		"inputs":      c.cfg.InputsDir,
		"results":     c.cfg.ResultsDir,
		"carbon_cost": c.cfg.CarbonCost,
	}).Info("Summarizing run")

	res, err := summary.Run(summary.Options{
		InputsDir:         c.cfg.InputsDir,
		ResultsDir:        c.cfg.ResultsDir,
		CarbonCost:        c.cfg.CarbonCost,
		NumYearsPerPeriod: c.cfg.NumYearsPerPeriod,
		Percentiles:       c.cfg.Percentiles,
		EmissionsBaseTons: c.cfg.EmissionsBaseTons,
		Logger:            logger,
	})
	if err != nil {
		return nil, nil, err
	}
	diagrams := sankey.Build(res)
	return append(res.Tables(), sankey.Table(diagrams)), diagrams, nil
}

func (c *command) sweep(ctx context.Context, logger logrus.FieldLogger) ([]report.Table, error) {
	res, err := sweep.Run(ctx, sweep.Options{
		Dir:     c.cfg.Dir,
		Workers: c.cfg.Workers,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return res.Tables(), nil
}

// publish sends the reports to every configured sink
func (c *command) publish(ctx context.Context, runID uuid.UUID, scenarioID int, tables []report.Table, logger logrus.FieldLogger) error {
	sinks, err := publish.Open(ctx, c.cfg.Publish, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			logger.WithError(err).Warn("Closing sinks failed")
		}
	}()
	if sinks.Len() == 0 {
		logger.Debug("No sinks configured, skipping publish")
		return nil
	}
	return sinks.Publish(ctx, publish.Batches(runID, scenarioID, time.Now(), tables))
}

func (c *command) browse(ctx context.Context) error {
	dirs := []string{c.cfg.RunOutputDir(), c.cfg.SweepOutputDir()}
	dirs = slices.Compact(dirs)
	return browse.New(dirs, os.Stdout, c.logger).Run(ctx)
}
