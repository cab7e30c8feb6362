package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ryansname/switchsum/src/config"
)

// command carries one subcommand's configuration. Each subcommand gets its
// own viper so flags shared by several commands bind to the right flag set.
type command struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *logrus.Logger
}

func newCommand(root, cmd *cobra.Command, scope config.Scope) *command {
	c := &command{v: config.New(), logger: logrus.StandardLogger()}
	config.BindFlags(c.v, root.PersistentFlags(), config.ScopeGlobal)
	config.BindFlags(c.v, cmd.Flags(), scope)
	cmd.PreRunE = func(*cobra.Command, []string) error {
		return c.setup()
	}
	return c
}

// setup resolves configuration: dotenv, then the config file, then flags and environment
func (c *command) setup() error {
	if err := config.LoadEnvFile(c.v.GetString("env_file"), c.logger); err != nil {
		return err
	}
	if err := config.ReadFile(c.v); err != nil {
		return err
	}
	cfg, err := config.Load(c.v)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger.SetLevel(cfg.LogLevel)
	if path := c.v.ConfigFileUsed(); path != "" {
		c.logger.WithField("file", path).Info("Loaded configuration file")
	}
	return nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "switchsum",
		Short: "Summarize SWITCH power system model results",
		Long: `switchsum reads the inputs and results of a SWITCH capacity expansion
run and writes tab-delimited summary reports: generation by technology group,
hourly dispatch percentiles, system costs, transmission, ramping, net load and
emissions. The sweep command summarizes capacity shortfalls and fuel
consumption across the test sets of a parametric sweep.

Settings come from flags, SWITCHSUM_* environment variables (a .env file is
loaded first), and an optional configuration file, in that order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		},
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Summarize a single model run",
		Args:  cobra.NoArgs,
	}
	run := newCommand(root, runCmd, config.ScopeRun|config.ScopePublish)
	runCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return run.pipeline(cmd.Context(), true, false)
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Summarize the test sets of a parametric sweep",
		Args:  cobra.NoArgs,
	}
	sw := newCommand(root, sweepCmd, config.ScopeSweep|config.ScopePublish)
	sweepCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return sw.pipeline(cmd.Context(), false, true)
	}

	allCmd := &cobra.Command{
		Use:   "all",
		Short: "Run both the single-run and sweep summaries",
		Args:  cobra.NoArgs,
	}
	all := newCommand(root, allCmd, config.ScopeRun|config.ScopeSweep|config.ScopePublish)
	allCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return all.pipeline(cmd.Context(), true, true)
	}

	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "Interactively inspect written reports",
		Args:  cobra.NoArgs,
	}
	br := newCommand(root, browseCmd, config.ScopeBrowse)
	browseCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return br.browse(cmd.Context())
	}

	root.AddCommand(runCmd, sweepCmd, allCmd, browseCmd)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("switchsum failed")
		stop()
		os.Exit(1)
	}
}
