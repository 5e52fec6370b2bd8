package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/devos-os/d-scan/internal"
	"github.com/devos-os/d-scan/internal/git"
	"github.com/devos-os/d-scan/internal/modules/deps"
	"github.com/devos-os/d-scan/internal/rules"
	"github.com/devos-os/d-scan/internal/runner"
	"github.com/devos-os/d-scan/internal/source"
	"github.com/devos-os/d-scan/internal/tools"
)

func newScanCmd() *cobra.Command {
	var (
		out        outputFlags
		language   string
		categories []string
		changed    bool
		ci         bool
		base       string
		withTools  bool
	)

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan source files and manifests under path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			if err := out.apply(cmd); err != nil {
				return err
			}

			opts, err := internal.OptionsFromConfig(cfg)
			if err != nil {
				return err
			}
			// фильтр по severity делает emit, чтобы fail-on видел все находки
			opts.MinSeverity = 0

			lang, err := source.ParseLanguage(language)
			if err != nil {
				return err
			}
			opts.Language = lang

			if len(categories) > 0 {
				opts.Categories = nil
				for _, name := range categories {
					cat, ok := rules.ParseCategory(name)
					if !ok {
						return fmt.Errorf("unknown category %q", name)
					}
					opts.Categories = append(opts.Categories, cat)
				}
			}

			opts.Adapters = adapters(withTools, "gitleaks", "checkov")
			if withTools || cfg.Tools.Trivy {
				opts.Trivy = tools.NewTrivy(runner.NewExec(), nil)
			}
			if withTools || cfg.Tools.NpmAudit {
				opts.Audit = deps.NewAuditor(runner.NewExec(), tools.EnsureTool)
			}
			orch := internal.New(opts)

			ctx := cmd.Context()
			var res internal.Result
			if changed || ci {
				repo, err := git.Open(ctx, runner.NewExec(), root)
				if err != nil {
					return err
				}
				files, err := repo.ChangedFiles(ctx, ci, base)
				if err != nil {
					return err
				}
				if len(files) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No changed files.")
					return nil
				}
				res = orch.ScanFiles(ctx, repo.Root(), files)
			} else {
				abs, err := filepath.Abs(root)
				if err != nil {
					return err
				}
				res, err = orch.ScanTree(ctx, abs)
				if err != nil {
					return err
				}
			}
			return out.emit(cmd, res.Root, res.Findings, res.Warnings)
		},
	}

	out.register(cmd)
	cmd.Flags().StringVar(&language, "language", "auto", "Language hint (auto detects per file)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "Categories to run (default all)")
	cmd.Flags().BoolVar(&changed, "changed", false, "Scan only files changed in the working tree")
	cmd.Flags().BoolVar(&ci, "ci", false, "CI mode: scan files changed against --base")
	cmd.Flags().StringVar(&base, "base", git.DefaultBase, "Diff base for --ci")
	cmd.Flags().BoolVar(&withTools, "tools", false, "Also run gitleaks, checkov, trivy and npm audit when installed")
	return cmd
}
