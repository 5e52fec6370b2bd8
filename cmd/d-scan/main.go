package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/devos-os/d-scan/internal/config"
	"github.com/devos-os/d-scan/internal/logging"
)

var version = "dev"

var (
	cfg        *config.Config
	configPath string
	logLevel   string
	logJSON    bool
)

// exitCode lets a command pick the process exit status without printing an error.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err == nil {
		return
	}
	var code exitCode
	if errors.As(err, &code) {
		os.Exit(int(code))
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(2)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "d-scan",
		Short:         "DevOS Security Scanner",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level = logLevel
			}
			if cmd.Flags().Changed("log-json") {
				cfg.Logging.JSON = logJSON
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.JSON, os.Stderr)
			log.Debug().Str("config", configPath).Msg("config loaded")
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default .d-scan.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "JSON logs (for CI)")

	rootCmd.AddCommand(
		newScanCmd(),
		newIacCmd(),
		newSandboxCmd(),
		newWatchCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Manage d-scan configuration"}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create ~/.config/devos/d-scan.env template",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GlobalEnvPath()
			if err != nil {
				return err
			}
			created, err := config.CreateTemplate(path)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "ℹ️  Created default config at: %s\n", path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Config already exists: %s\n", path)
			}
			return nil
		},
	})
	return cmd
}
