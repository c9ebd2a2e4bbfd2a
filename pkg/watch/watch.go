// Package watch re-checks a project tree whenever files under it change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Sumatoshi-tech/linkmedic/pkg/fsys"
	"github.com/Sumatoshi-tech/linkmedic/pkg/linkcheck"
	"github.com/Sumatoshi-tech/linkmedic/pkg/reference"
)

// DefaultDebounce is the quiet period before a batch of events is applied.
const DefaultDebounce = 300 * time.Millisecond

// ReportFunc receives the results of every file in the project after each
// check, sorted by path.
type ReportFunc func(ctx context.Context, results []linkcheck.FileResult, elapsed time.Duration)

// Options configures a Runner.
type Options struct {
	Root        string
	IgnoreDirs  []string
	ConfigFiles []string
	Debounce    time.Duration
	Logger      *slog.Logger
}

// Runner watches Root and reports findings.
type Runner struct {
	checker *linkcheck.Checker
	opts    Options
	report  ReportFunc
	results map[string]linkcheck.FileResult
}

// batch collects the events of one debounce window.
type batch struct {
	full   bool
	config bool
	files  map[string]struct{}
}

func (b *batch) empty() bool {
	return !b.full && !b.config && len(b.files) == 0
}

// New creates a Runner.
func New(checker *linkcheck.Checker, opts Options, report ReportFunc) *Runner {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	if len(opts.ConfigFiles) == 0 {
		opts.ConfigFiles = fsys.DefaultConfigFiles
	}

	opts.Root = filepath.Clean(opts.Root)

	return &Runner{
		checker: checker,
		opts:    opts,
		report:  report,
		results: make(map[string]linkcheck.FileResult),
	}
}

// Run checks the whole tree once, then re-checks on changes until ctx is
// done.
func (r *Runner) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	err = r.addRecursive(watcher, r.opts.Root)
	if err != nil {
		return err
	}

	err = r.checkAll(ctx)
	if err != nil {
		return err
	}

	timer := time.NewTimer(r.opts.Debounce)
	timer.Stop()

	pending := batch{files: make(map[string]struct{})}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if r.note(watcher, event, &pending) {
				timer.Reset(r.opts.Debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			r.opts.Logger.WarnContext(ctx, "watch error", "error", err)
		case <-timer.C:
			if pending.empty() {
				continue
			}

			err := r.apply(ctx, pending)
			if err != nil {
				return err
			}

			pending = batch{files: make(map[string]struct{})}
		}
	}
}

// ignoredDir reports whether dir is outside the root or inside a hidden or
// ignored directory.
func (r *Runner) ignoredDir(dir string) bool {
	rel, err := filepath.Rel(r.opts.Root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}

	if rel == "." {
		return false
	}

	return slices.ContainsFunc(strings.Split(filepath.ToSlash(rel), "/"), func(name string) bool {
		return (len(name) > 1 && name[0] == '.') || slices.Contains(r.opts.IgnoreDirs, name)
	})
}

func (r *Runner) ignored(path string) bool {
	return r.ignoredDir(filepath.Dir(path))
}

// note folds event into b and reports whether it matters.
func (r *Runner) note(watcher *fsnotify.Watcher, event fsnotify.Event, b *batch) bool {
	if r.ignored(event.Name) {
		return false
	}

	name := filepath.Base(event.Name)

	switch {
	case slices.Contains(r.opts.ConfigFiles, name) && filepath.Dir(event.Name) == r.opts.Root:
		b.config = true
		b.full = true
	case event.Has(fsnotify.Create):
		if isDir(event.Name) {
			err := r.addRecursive(watcher, event.Name)
			if err != nil {
				r.opts.Logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
			}
		}

		b.full = true
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		b.full = true
	case event.Has(fsnotify.Write) && reference.Supported(event.Name):
		b.files[event.Name] = struct{}{}
	default:
		return false
	}

	r.opts.Logger.Debug("change noticed", "path", event.Name, "op", event.Op.String())

	return true
}

func isDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

func (r *Runner) addRecursive(watcher *fsnotify.Watcher, dir string) error {
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable subtrees are skipped.
		}

		if !entry.IsDir() {
			return nil
		}

		if r.ignoredDir(path) {
			return filepath.SkipDir
		}

		return watcher.Add(path)
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	return nil
}

func (r *Runner) apply(ctx context.Context, b batch) error {
	if b.config {
		r.checker.Invalidate(r.opts.Root)
	}

	if b.full {
		return r.checkAll(ctx)
	}

	return r.checkSome(ctx, slices.Sorted(maps.Keys(b.files)))
}

func (r *Runner) checkAll(ctx context.Context) error {
	start := time.Now()

	files, err := fsys.CollectFiles(r.opts.Root, r.opts.IgnoreDirs, reference.Supported)
	if err != nil {
		return err
	}

	results, err := r.checker.CheckFiles(ctx, files, r.opts.Root)
	if err != nil {
		return ignoreCanceled(ctx, err)
	}

	clear(r.results)

	for _, result := range results {
		r.results[result.Path] = result
	}

	r.emit(ctx, time.Since(start))

	return nil
}

func (r *Runner) checkSome(ctx context.Context, files []string) error {
	start := time.Now()

	results, err := r.checker.CheckFiles(ctx, files, r.opts.Root)
	if err != nil {
		return ignoreCanceled(ctx, err)
	}

	for _, result := range results {
		r.results[result.Path] = result
	}

	r.emit(ctx, time.Since(start))

	return nil
}

func (r *Runner) emit(ctx context.Context, elapsed time.Duration) {
	paths := slices.Sorted(maps.Keys(r.results))

	results := make([]linkcheck.FileResult, 0, len(paths))
	for _, path := range paths {
		results = append(results, r.results[path])
	}

	r.report(ctx, results, elapsed)
}

// ignoreCanceled turns a shutdown during a check into a clean exit.
func ignoreCanceled(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}

	return err
}
