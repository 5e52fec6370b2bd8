package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/devos-os/d-scan/internal/runner"
	"github.com/devos-os/d-scan/internal/sandbox"
	"github.com/devos-os/d-scan/internal/source"
)

func newSandboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run the scanner inside an isolated container",
	}
	cmd.AddCommand(newSandboxRunCmd(), newSandboxEntryCmd(), newSandboxCleanupCmd())
	return cmd
}

// newManager prefers the Docker SDK and falls back to the docker CLI.
func newManager() (*sandbox.Manager, func()) {
	exec := runner.NewExec()
	dc, err := sandbox.NewDockerClient()
	if err != nil {
		log.Debug().Err(err).Msg("docker SDK unavailable, using CLI")
		return sandbox.NewManager(exec, nil), func() {}
	}
	return sandbox.NewManager(exec, dc), func() { _ = dc.Close() }
}

func newSandboxRunCmd() *cobra.Command {
	var (
		out      outputFlags
		image    string
		timeout  time.Duration
		memory   int
		cpus     float64
		network  bool
		language string
	)

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Scan a file inside a resource-capped, network-isolated container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.apply(cmd); err != nil {
				return err
			}
			if cmd.Flags().Changed("image") {
				cfg.Sandbox.Image = image
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Sandbox.Timeout = timeout
			}
			if cmd.Flags().Changed("memory") {
				cfg.Sandbox.MemoryMB = memory
			}
			if cmd.Flags().Changed("cpus") {
				cfg.Sandbox.CPUs = cpus
			}
			if cmd.Flags().Changed("network") {
				cfg.Sandbox.Network = network
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			lang, err := source.ParseLanguage(language)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if lang == source.LangAuto {
				lang = source.Detect(args[0], string(data))
			}

			ctx := cmd.Context()
			mgr, closeFn := newManager()
			defer closeFn()

			if !mgr.Available(ctx) {
				return sandbox.ErrDockerUnavailable
			}
			ok, err := mgr.ImageExists(ctx, cfg.Sandbox.Image)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("sandbox image %s not found, build it with: docker build -t %s .", cfg.Sandbox.Image, cfg.Sandbox.Image)
			}

			report, res, err := mgr.ScanInSandbox(ctx, string(data), lang, sandbox.Request{
				Image:    cfg.Sandbox.Image,
				CPUs:     cfg.Sandbox.CPUs,
				MemoryMB: cfg.Sandbox.MemoryMB,
				Timeout:  cfg.Sandbox.Timeout,
				Network:  cfg.Sandbox.Network,
			})
			log.Info().
				Str("container", res.Name).
				Dur("duration", res.Duration).
				Bool("timedOut", res.TimedOut).
				Int("exitCode", res.ExitCode).
				Msg("sandbox finished")
			if err != nil {
				return err
			}
			for i := range report.Issues {
				report.Issues[i].File = args[0]
			}
			return out.emit(cmd, args[0], report.Issues, nil)
		},
	}

	out.register(cmd)
	cmd.Flags().StringVar(&image, "image", sandbox.DefaultImage, "Sandbox image")
	cmd.Flags().DurationVar(&timeout, "timeout", sandbox.DefaultTimeout, "Kill the container after this long")
	cmd.Flags().IntVar(&memory, "memory", sandbox.DefaultMemoryMB, "Memory limit in MB")
	cmd.Flags().Float64Var(&cpus, "cpus", sandbox.DefaultCPUs, "CPU limit in cores")
	cmd.Flags().BoolVar(&network, "network", false, "Allow network access (isolated by default)")
	cmd.Flags().StringVar(&language, "language", "auto", "Language hint")
	return cmd
}

func newSandboxEntryCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "entry",
		Short:  "Container entrypoint: scan $SCAN_CODE_FILE and print JSON",
		Hidden: true,
		// внутри контейнера нет конфига и логи не нужны
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if code := sandbox.Entrypoint(os.Getenv, cmd.OutOrStdout(), cmd.ErrOrStderr()); code != 0 {
				return exitCode(code)
			}
			return nil
		},
	}
}

func newSandboxCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Force-remove leftover scanner- containers",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, closeFn := newManager()
			defer closeFn()

			n, err := mgr.CleanupAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("cleanup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🧹 Removed %d container(s)\n", n)
			return nil
		},
	}
}
