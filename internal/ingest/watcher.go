package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/strata-re/strata-go/internal/storage"
)

// IgnoreFile is the per-project watch exclusion list, one gitignore
// pattern per line.
const IgnoreFile = ".strataignore"

// WatchOptions controls WatchExport behavior.
type WatchOptions struct {
	// AutoGroup enables namespace grouping on each re-ingest.
	AutoGroup bool

	// Debounce is the settle time after the last event before the
	// export is re-ingested. Zero means 2 seconds.
	Debounce time.Duration

	// ExtraIgnore lists additional exclusion patterns in gitignore
	// syntax, merged with IgnoreFile.
	ExtraIgnore []string

	// OnReload is invoked after each successful re-ingest.
	OnReload func(*PipelineResult)

	// OnError is invoked when a re-ingest fails; watching continues.
	OnError func(error)
}

// WatchExport monitors an export document and re-ingests it whenever
// it changes. The parent directory is watched rather than the file
// itself, because disassembler export scripts typically replace the
// file wholesale. Blocks until the context is cancelled.
func WatchExport(ctx context.Context, exportPath string, backend storage.Backend, opts WatchOptions) error {
	abs, err := filepath.Abs(exportPath)
	if err != nil {
		return fmt.Errorf("resolving export path: %w", err)
	}
	dir := filepath.Dir(abs)

	matcher := loadIgnoreMatcher(dir, opts.ExtraIgnore)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !shouldReload(event, abs, dir, matcher) {
				continue
			}
			pending = true
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if opts.OnError != nil {
				opts.OnError(err)
			}

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false

			_, _, result, err := RunPipeline(ctx, abs, backend, opts.AutoGroup, nil)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if opts.OnError != nil {
					opts.OnError(err)
				}
				continue
			}
			if opts.OnReload != nil {
				opts.OnReload(result)
			}
		}
	}
}

// shouldReload decides whether a filesystem event concerns the export.
// Only writes, creates, and renames of the export file itself count,
// unless the path matches an ignore pattern.
func shouldReload(event fsnotify.Event, exportPath, dir string, matcher gitignore.Matcher) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	if filepath.Clean(event.Name) != exportPath {
		return false
	}
	if matcher != nil {
		rel, err := filepath.Rel(dir, event.Name)
		if err == nil && matcher.Match(strings.Split(rel, string(filepath.Separator)), false) {
			return false
		}
	}
	return true
}

// loadIgnoreMatcher builds a matcher from .strataignore plus any
// extra patterns. Returns nil when there is nothing to ignore.
func loadIgnoreMatcher(dir string, extra []string) gitignore.Matcher {
	var patterns []gitignore.Pattern

	data, err := os.ReadFile(filepath.Join(dir, IgnoreFile))
	if err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, gitignore.ParsePattern(line, nil))
		}
	}
	for _, p := range extra {
		p = strings.TrimSpace(p)
		if p != "" {
			patterns = append(patterns, gitignore.ParsePattern(p, nil))
		}
	}

	if len(patterns) == 0 {
		return nil
	}
	return gitignore.NewMatcher(patterns)
}
