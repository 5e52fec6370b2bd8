package internal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/devos-os/d-scan/internal/config"
	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/modules/code"      // лексические правила
	"github.com/devos-os/d-scan/internal/modules/container" // Dockerfile / Terraform / Kubernetes
	"github.com/devos-os/d-scan/internal/modules/deps"
	"github.com/devos-os/d-scan/internal/source"
	"github.com/devos-os/d-scan/internal/tools"
)

// Файлы без "кодового" расширения, в которых обычно живут секреты.
var configLike = map[string]bool{
	".env": true, ".json": true, ".properties": true, ".ini": true,
	".conf": true, ".cfg": true, ".toml": true, ".xml": true,
}

// Options controls a scan run. Zero values mean: detect languages, all
// categories, report everything, no external tools.
type Options struct {
	Language    source.Language
	Categories  []core.Category
	MinSeverity core.Severity
	Exclude     *config.Excluder
	MaxFileSize int64

	Adapters []tools.Adapter
	// Trivy runs once over the whole tree (dependency CVEs); nil disables it.
	Trivy *tools.Trivy
	// Audit runs npm audit once over the tree root; nil disables it.
	Audit *deps.Auditor
}

// OptionsFromConfig maps the loaded config onto scan options. Tool adapters
// are left to the caller.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	ex, err := cfg.Excluder()
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		Language:    source.LangAuto,
		MinSeverity: cfg.MinSeverity(),
		Exclude:     ex,
		MaxFileSize: cfg.Scan.MaxFileSize,
	}
	// пустой список в конфиге = все категории, включая IaC
	if len(cfg.Scan.Categories) > 0 {
		opts.Categories = cfg.Categories()
	}
	return opts, nil
}

// Result of a scan. Warnings hold soft failures: unreadable files, tool
// errors. They never abort the run.
type Result struct {
	Root     string
	Files    int
	Findings []core.Finding
	Warnings []error
}

type Orchestrator struct {
	opts    Options
	enabled map[core.Category]bool
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{opts: opts}
	if len(opts.Categories) > 0 {
		o.enabled = make(map[core.Category]bool, len(opts.Categories))
		for _, c := range opts.Categories {
			o.enabled[c] = true
		}
	}
	return o
}

// ScanTree walks root depth-first and scans every supported file in turn.
func (o *Orchestrator) ScanTree(ctx context.Context, root string) (Result, error) {
	res := Result{Root: root}

	info, err := os.Stat(root)
	if err != nil {
		return res, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		o.scanInto(ctx, &res, root)
		return o.finish(ctx, res, ""), nil
	}

	log.Info().Str("root", root).Msg("scanning tree")
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			res.Warnings = append(res.Warnings, err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, _ := filepath.Rel(root, path)
		if rel != "." && o.opts.Exclude.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() || !supported(path) {
			return nil
		}
		o.scanInto(ctx, &res, path)
		return nil
	})
	if err != nil {
		return res, err
	}
	return o.finish(ctx, res, root), nil
}

// ScanFiles scans an explicit list of files (git changed-files mode). root is
// used for exclude matching only.
func (o *Orchestrator) ScanFiles(ctx context.Context, root string, files []string) Result {
	res := Result{Root: root}
	for _, path := range files {
		if ctx.Err() != nil {
			res.Warnings = append(res.Warnings, ctx.Err())
			break
		}
		if rel, err := filepath.Rel(root, path); err == nil && o.opts.Exclude.Match(rel) {
			continue
		}
		if !supported(path) {
			continue
		}
		o.scanInto(ctx, &res, path)
	}
	return o.finish(ctx, res, "")
}

func (o *Orchestrator) scanInto(ctx context.Context, res *Result, path string) {
	findings, warns := o.ScanFile(ctx, path)
	res.Files++
	res.Findings = append(res.Findings, findings...)
	res.Warnings = append(res.Warnings, warns...)
}

// ScanFile runs the native rules and the enabled adapters over one file.
// All failures are soft: they come back as warnings next to the findings.
func (o *Orchestrator) ScanFile(ctx context.Context, path string) ([]core.Finding, []error) {
	logger := log.With().Str("file", path).Logger()

	info, err := os.Stat(path)
	if err != nil {
		logger.Warn().Err(err).Msg("skipping unreadable file")
		return nil, []error{&code.InputError{Path: path, Err: err}}
	}
	if o.opts.MaxFileSize > 0 && info.Size() > o.opts.MaxFileSize {
		logger.Debug().Int64("size", info.Size()).Msg("skipping large file")
		return nil, nil
	}

	var findings []core.Finding
	var warns []error

	// IaC: документные правила
	if cat, ok := container.DetectCategory(path); ok && o.allowed(cat) {
		iac, err := container.ScanFile(path, cat)
		if err != nil {
			logger.Warn().Err(err).Msg("manifest scan failed")
			warns = append(warns, err)
		}
		findings = append(findings, iac...)
	}

	if deps.IsManifest(path) && o.allowed(core.CatDependencies) {
		vuln, err := deps.ScanFile(path)
		if err != nil {
			logger.Warn().Err(err).Msg("dependency manifest scan failed")
			warns = append(warns, err)
		}
		findings = append(findings, vuln...)
	}

	lang := o.opts.Language
	if lang == "" || lang == source.LangAuto {
		lang = source.LangAuto
		if configLike[strings.ToLower(filepath.Ext(path))] || strings.HasPrefix(filepath.Base(path), ".env") {
			lang = source.LangUnknown
		}
	}
	lexical, err := code.ScanFile(path, lang)
	if err != nil {
		if errors.Is(err, code.ErrUnreadable) {
			logger.Warn().Err(err).Msg("skipping unreadable file")
		}
		return findings, append(warns, err)
	}
	for _, f := range lexical {
		if o.allowed(f.Category) {
			findings = append(findings, f)
		}
	}

	if len(o.opts.Adapters) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return findings, append(warns, err)
		}
		for _, a := range o.opts.Adapters {
			ext, err := a.Scan(ctx, string(data), filepath.Base(path))
			if err != nil {
				logger.Warn().Err(err).Str("tool", a.Name()).Msg("external tool failed")
				warns = append(warns, fmt.Errorf("%s: %w", a.Name(), err))
				continue
			}
			for i := range ext {
				ext[i].File = path
			}
			findings = append(findings, ext...)
		}
	}
	return findings, warns
}

func (o *Orchestrator) allowed(cat core.Category) bool {
	if cat == core.CatExternal || o.enabled == nil {
		return true
	}
	return o.enabled[cat]
}

func (o *Orchestrator) finish(ctx context.Context, res Result, treeRoot string) Result {
	if treeRoot != "" && o.opts.Trivy != nil {
		sca, err := o.opts.Trivy.ScanDir(ctx, treeRoot)
		if err != nil {
			log.Warn().Err(err).Str("tool", "trivy").Msg("dependency scan failed")
			res.Warnings = append(res.Warnings, err)
		}
		res.Findings = append(res.Findings, sca...)
	}
	if treeRoot != "" && o.opts.Audit != nil && o.allowed(core.CatDependencies) {
		audit, err := o.opts.Audit.Audit(ctx, treeRoot)
		if err != nil {
			log.Warn().Err(err).Str("tool", "npm").Msg("npm audit failed")
			res.Warnings = append(res.Warnings, err)
		}
		res.Findings = append(res.Findings, audit...)
	}
	if o.opts.MinSeverity.Valid() {
		res.Findings = core.FilterAtOrAbove(res.Findings, o.opts.MinSeverity)
	}
	log.Info().Int("files", res.Files).Int("findings", len(res.Findings)).Msg("scan finished")
	return res
}

func supported(path string) bool {
	if _, ok := container.DetectCategory(path); ok {
		return true
	}
	if _, ok := source.ByExtension(path); ok || deps.IsManifest(path) {
		return true
	}
	base := filepath.Base(path)
	return configLike[strings.ToLower(filepath.Ext(base))] || strings.HasPrefix(base, ".env")
}
