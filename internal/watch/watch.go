// Package watch пересканирует файлы по событиям fsnotify.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/devos-os/d-scan/internal/config"
)

const DefaultDebounce = 300 * time.Millisecond

type Options struct {
	Debounce time.Duration
	Exclude  *config.Excluder
}

// Handler receives the batch of files written since the last call, sorted.
type Handler func(ctx context.Context, paths []string)

// Watch blocks until ctx is done. Writes are collected for Debounce and then
// handed to handle in one batch; handle runs on the watch goroutine.
func Watch(ctx context.Context, root string, opts Options, handle Handler) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if info, err := os.Stat(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	} else if !info.IsDir() {
		return fmt.Errorf("watch %s: not a directory", root)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init: %w", err)
	}
	defer w.Close()

	if err := addRecursive(w, root, root, opts.Exclude); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	log.Info().Str("root", root).Msg("watching for changes")

	pending := map[string]bool{}
	timer := time.NewTimer(opts.Debounce)
	timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if excluded(root, ev.Name, opts.Exclude) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addRecursive(w, root, ev.Name, opts.Exclude); err != nil {
						log.Warn().Err(err).Str("file", ev.Name).Msg("cannot watch new dir")
					}
					continue
				}
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			pending[ev.Name] = true
			timer.Reset(opts.Debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			sort.Strings(batch)
			pending = map[string]bool{}
			log.Debug().Int("files", len(batch)).Msg("change batch")
			handle(ctx, batch)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watch error")
		}
	}
}

func excluded(root, path string, ex *config.Excluder) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return ex.Match(rel)
}

func addRecursive(w *fsnotify.Watcher, root, dir string, ex *config.Excluder) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && excluded(root, path, ex) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
