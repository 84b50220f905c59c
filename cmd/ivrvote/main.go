package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ivr-voting/config"
	"ivr-voting/registry"
	"ivr-voting/service"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "ivrvote",
	Short:         "Telephone voting bridge for an end-to-end verifiable election backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML configuration file (environment variables override it)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override "+config.EnvTracingLevel)
}

// setup loads the configuration and builds the logger and coordinator
// shared by every subcommand.
func setup() (*config.Config, *logrus.Logger, *service.Coordinator, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if logLevel != "" {
		cfg.TracingLevel = logLevel
	}
	log, err := config.NewLogger(cfg.TracingLevel, os.Stderr)
	if err != nil {
		return nil, nil, nil, err
	}
	backend := registry.NewHTTPBackend(cfg.HTTPTimeout.Duration, logrus.NewEntry(log))
	coord, err := service.NewCoordinator(cfg, backend, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, coord, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
