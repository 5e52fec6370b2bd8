// Package git находит измененные файлы для pre-commit и CI режимов.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/devos-os/d-scan/internal/runner"
)

var ErrNotRepository = errors.New("not a git repository")

// DefaultBase is the CI diff base when none is given.
const DefaultBase = "origin/main"

type Repo struct {
	runner runner.Runner
	dir    string
}

// Open находит корень репозитория, в котором лежит dir.
func Open(ctx context.Context, r runner.Runner, dir string) (*Repo, error) {
	out, err := runner.Run(ctx, r, "git", "-C", dir, "rev-parse", "--show-toplevel")
	if err != nil || out.ExitCode != 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, dir)
	}
	return &Repo{runner: r, dir: strings.TrimSpace(string(out.Stdout))}, nil
}

func (g *Repo) Root() string { return g.dir }

// ChangedFiles возвращает АБСОЛЮТНЫЕ пути измененных файлов без удаленных.
// В CI сравнивает HEAD с base, локально собирает unstaged, staged и untracked.
func (g *Repo) ChangedFiles(ctx context.Context, ci bool, base string) ([]string, error) {
	var files []string

	if ci {
		if base == "" {
			base = DefaultBase
		}
		out, err := g.git(ctx, "diff", "--name-only", "--diff-filter=d", base+"...HEAD")
		if err != nil {
			return nil, err
		}
		files = parseOutput(out)
	} else {
		queries := [][]string{
			{"diff", "--name-only", "--diff-filter=d"},
			{"diff", "--name-only", "--cached", "--diff-filter=d"},
			// untracked тоже важны: новый файл с секретом еще не в индексе
			{"ls-files", "--others", "--exclude-standard"},
		}
		for _, q := range queries {
			out, err := g.git(ctx, q...)
			if err != nil {
				log.Warn().Err(err).Strs("args", q).Msg("git query failed")
				continue
			}
			files = append(files, parseOutput(out)...)
		}
	}

	seen := make(map[string]bool)
	var abs []string
	for _, f := range files {
		p := filepath.Join(g.dir, filepath.FromSlash(f))
		if !seen[p] {
			seen[p] = true
			abs = append(abs, p)
		}
	}
	return abs, nil
}

func (g *Repo) git(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-C", g.dir}, args...)
	out, err := runner.Run(ctx, g.runner, "git", full...)
	if err != nil {
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	if out.ExitCode != 0 {
		return "", fmt.Errorf("git %s: exit %d: %s", args[0], out.ExitCode, strings.TrimSpace(string(out.Stderr)))
	}
	return string(out.Stdout), nil
}

func parseOutput(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
