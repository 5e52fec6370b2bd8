package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/reporters"
	"github.com/devos-os/d-scan/internal/runner"
	"github.com/devos-os/d-scan/internal/tools"
)

// outputFlags are shared by scan, iac and sandbox run.
type outputFlags struct {
	severity string
	failOn   string
	format   string
	report   string
	details  bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.severity, "severity", "", "Minimum severity to report (low, medium, high, critical)")
	cmd.Flags().StringVar(&o.failOn, "fail-on", "", "Exit 1 if any finding is at or above this level (none disables)")
	cmd.Flags().StringVar(&o.format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&o.report, "report", "", "HTML report file")
	cmd.Flags().BoolVar(&o.details, "details", false, "Print message and fix for every finding")
}

// apply переносит флаги поверх конфига и проверяет их.
func (o *outputFlags) apply(cmd *cobra.Command) error {
	if cmd.Flags().Changed("severity") {
		cfg.Severity.Min = o.severity
	}
	if cmd.Flags().Changed("fail-on") {
		cfg.Severity.FailOn = o.failOn
	}
	if o.format != "text" && o.format != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", o.format)
	}
	if _, err := core.ParseSeverity(cfg.Severity.Min); err != nil {
		return err
	}
	_, _, err := cfg.FailOn()
	return err
}

// emit prints the findings at or above the minimum severity and maps
// fail-on onto the exit code. fail-on looks at all findings, not only
// the printed ones.
func (o *outputFlags) emit(cmd *cobra.Command, root string, all []core.Finding, warnings []error) error {
	shown := core.FilterAtOrAbove(all, cfg.MinSeverity())
	out := cmd.OutOrStdout()

	switch o.format {
	case "json":
		if err := reporters.WriteJSON(out, reporters.NewExport(root, shown, warnings)); err != nil {
			return err
		}
	default:
		reporters.PrintTable(out, shown)
		if o.details {
			fmt.Fprintln(out)
			reporters.PrintDetails(out, shown)
		}
		for _, w := range warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  %v\n", w)
		}
	}

	if o.report != "" {
		if err := reporters.GenerateHTML(shown, o.report); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "\n📄 HTML Report generated: %s\n", o.report)
	}

	level, enabled, err := cfg.FailOn()
	if err != nil {
		return err
	}
	if enabled && core.AnyAtOrAbove(all, level) {
		return exitCode(1)
	}
	return nil
}

// adapters builds the external tool adapters enabled by config or --tools.
func adapters(all bool, names ...string) []tools.Adapter {
	exec := runner.NewExec()
	enabled := map[string]bool{
		"gitleaks": all || cfg.Tools.Gitleaks,
		"checkov":  all || cfg.Tools.Checkov,
		"trivy":    all || cfg.Tools.Trivy,
	}
	var out []tools.Adapter
	for _, name := range names {
		if !enabled[name] {
			continue
		}
		switch strings.ToLower(name) {
		case "gitleaks":
			out = append(out, tools.NewGitleaks(exec, nil))
		case "checkov":
			out = append(out, tools.NewCheckov(exec, nil))
		case "trivy":
			out = append(out, tools.NewTrivy(exec, nil))
		}
	}
	return out
}
