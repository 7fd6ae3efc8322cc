package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/ttystep/internal/cli"
	"github.com/aretw0/ttystep/internal/config"
	"github.com/aretw0/ttystep/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfg    = config.Default()
	logger = logging.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "ttystep",
	Short: "ttystep turns a blocking console program into a steppable environment",
	Long: `ttystep wraps a console program that reads keys and draws on a terminal,
and drives it one key at a time: every step feeds one action and returns the
output the program produced until it waited for input again. Every byte of
output is recorded in ttyrec format.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded

		if lvl, _ := cmd.Flags().GetString("log-level"); cmd.Flags().Changed("log-level") {
			level, err := logging.ParseLevel(lvl)
			if err != nil {
				return err
			}
			cfg.LogLevel = level.String()
		}
		debug, _ := cmd.Flags().GetBool("debug")
		logger = cli.NewLogger(cfg.Level(), debug)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./"+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log everything to stderr")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

// addSessionFlags registers the flags shared by commands that start sessions.
func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("program", "p", "", "Program to wrap")
	cmd.Flags().StringP("strategy", "s", "", "Reset strategy: isolated, inplace or relay")
	cmd.Flags().StringP("recording", "o", "", "ttyrec recording path")
	cmd.Flags().Bool("append", false, "Append to an existing recording")
	cmd.Flags().Bool("record-actions", false, "Record every action on channel 1")
	cmd.Flags().Duration("settle", 0, "Relay settle window")
	cmd.Flags().String("image", "", "External program image (isolated and relay)")
	cmd.Flags().StringSlice("image-args", nil, "Arguments of the external image")
}

// applySessionFlags lets explicitly set flags override the loaded config.
func applySessionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("program") {
		cfg.Program, _ = f.GetString("program")
	}
	if f.Changed("strategy") {
		cfg.Strategy, _ = f.GetString("strategy")
	}
	if f.Changed("recording") {
		cfg.Recording, _ = f.GetString("recording")
	}
	if f.Changed("append") {
		cfg.Append, _ = f.GetBool("append")
	}
	if f.Changed("record-actions") {
		cfg.RecordActions, _ = f.GetBool("record-actions")
	}
	if f.Changed("settle") {
		cfg.Settle, _ = f.GetDuration("settle")
	}
	if f.Changed("image") {
		cfg.Image, _ = f.GetString("image")
	}
	if f.Changed("image-args") {
		cfg.ImageArgs, _ = f.GetStringSlice("image-args")
	}
}

func sessionLogger() *slog.Logger {
	return logger.With("component", "session")
}
