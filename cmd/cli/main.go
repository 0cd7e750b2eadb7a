package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/StreamDNA/pkg/logger"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna"
)

// app carries the configuration resolved before any subcommand runs.
type app struct {
	configPath string
	cfg        *Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	defaults := defaultConfig()

	rootCmd := &cobra.Command{
		Use:           "streamdna",
		Short:         "Identify videos in encrypted adaptive streams from segment sizes",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg

			level, _ := logger.ParseLevel(cfg.LogLevel)
			logger.SetLevel(level)
			logger.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (env: "+ConfigPathEnvVar+")")
	rootCmd.PersistentFlags().String("db", defaults.DB, "fingerprint database (.txt text format, .sqlite/.db SQLite)")
	rootCmd.PersistentFlags().String("log-level", defaults.LogLevel, "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Int("workers", defaults.Workers, "concurrent workers")

	rootCmd.AddCommand(
		newSetupCmd(a),
		newAttackCmd(a),
		newClassifyCmd(a),
		newListCmd(a),
		newConvertCmd(),
	)
	return rootCmd
}

// service opens the fingerprint database with the resolved configuration.
func (a *app) service(cmd *cobra.Command) (streamdna.Service, error) {
	log := logger.GetLogger()
	return streamdna.NewService(
		streamdna.WithDBPath(a.cfg.DB),
		streamdna.WithLogger(log),
		streamdna.WithVideos(a.cfg.Videos),
		streamdna.WithWorkers(a.cfg.Workers),
		streamdna.WithWindow(a.cfg.Start, a.cfg.End),
		streamdna.WithLoose(a.cfg.Loose),
		streamdna.WithVerbose(a.cfg.Verbose),
		streamdna.WithKeepGoing(a.cfg.KeepGoing),
		streamdna.WithOutput(cmd.OutOrStdout()),
	)
}

func addWindowFlags(cmd *cobra.Command) {
	defaults := defaultConfig()
	cmd.Flags().IntP("start", "s", defaults.Start, "eavesdropping start time, in seconds from end of trace")
	cmd.Flags().IntP("end", "e", defaults.End, "eavesdropping end time, in seconds from end of trace")
	cmd.Flags().Bool("loose", false, "use loose ranges for range search")
}
