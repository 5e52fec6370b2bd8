package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/devos-os/d-scan/internal"
	"github.com/devos-os/d-scan/internal/reporters"
	"github.com/devos-os/d-scan/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-scan files as they change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			root, err := filepath.Abs(root)
			if err != nil {
				return err
			}

			opts, err := internal.OptionsFromConfig(cfg)
			if err != nil {
				return err
			}
			orch := internal.New(opts)
			out := cmd.OutOrStdout()

			return watch.Watch(cmd.Context(), root, watch.Options{Debounce: debounce, Exclude: opts.Exclude},
				func(ctx context.Context, paths []string) {
					res := orch.ScanFiles(ctx, root, paths)
					if res.Files == 0 {
						return
					}
					fmt.Fprintf(out, "\n[%s] %d file(s) changed\n", time.Now().Format(time.Kitchen), res.Files)
					reporters.PrintTable(out, res.Findings)
				})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Wait this long after the last change")
	return cmd
}
