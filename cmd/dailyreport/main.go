package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"dailyreport/infrastructure/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:          "dailyreport",
		Short:        "Daily production and pending report dashboard.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (yaml, json or toml)")

	load := func() (config.Config, error) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return config.Config{}, err
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
		return cfg, nil
	}

	root.AddCommand(newServeCmd(load), newMigrateCmd(load), newExportCmd(load))
	return root
}
