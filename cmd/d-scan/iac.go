package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/modules/container"
	"github.com/devos-os/d-scan/internal/rules"
)

func newIacCmd() *cobra.Command {
	var (
		out       outputFlags
		kind      string
		withTools bool
	)

	cmd := &cobra.Command{
		Use:   "iac <file>",
		Short: "Scan a Dockerfile, Terraform file or Kubernetes manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if err := out.apply(cmd); err != nil {
				return err
			}

			cat, err := iacCategory(path, kind)
			if err != nil {
				return err
			}
			findings, err := container.ScanFile(path, cat)
			if err != nil {
				return err
			}

			var warnings []error
			if ext := adapters(withTools, "checkov", "trivy"); len(ext) > 0 {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				for _, a := range ext {
					more, err := a.Scan(cmd.Context(), string(data), path)
					if err != nil {
						warnings = append(warnings, fmt.Errorf("%s: %w", a.Name(), err))
						continue
					}
					findings = append(findings, more...)
				}
			}
			return out.emit(cmd, path, findings, warnings)
		},
	}

	out.register(cmd)
	cmd.Flags().StringVar(&kind, "type", "auto", "dockerfile, terraform, kubernetes or auto")
	cmd.Flags().BoolVar(&withTools, "tools", false, "Also run checkov and trivy when installed")
	return cmd
}

func iacCategory(path, kind string) (core.Category, error) {
	if kind == "" || kind == "auto" {
		cat, ok := container.DetectCategory(path)
		if !ok {
			return "", fmt.Errorf("cannot detect IaC type of %s, use --type", path)
		}
		return cat, nil
	}
	cat, ok := rules.ParseCategory(kind)
	if !ok {
		return "", fmt.Errorf("unknown IaC type %q", kind)
	}
	for _, m := range rules.ManifestCategories() {
		if m == cat {
			return cat, nil
		}
	}
	return "", fmt.Errorf("%q is not an IaC type", kind)
}
