package build

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/josephgoksu/ngbuild/internal/pathutil"
)

// DefaultDebounce is the quiet period before a batch of changes triggers a rebuild.
const DefaultDebounce = 300 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	// Poll switches from filesystem notifications to polling at this interval.
	Poll     time.Duration
	Debounce time.Duration
	// OnRebuild receives the result of every rebuild. Optional.
	OnRebuild func(changed []string, res *Result)
}

// Watch rebuilds the projects of an initial run whenever their source
// directories change. Only the transpile, bundle, transform and minify steps
// are re-run. Watch blocks until ctx is cancelled; rebuild failures are
// logged and watching continues.
func (o *Orchestrator) Watch(ctx context.Context, initial *Result, opts WatchOptions) error {
	targets := watchTargets(initial)
	if len(targets) == 0 {
		return fmt.Errorf("nothing to watch: no project was planned successfully")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	var rebuildMu sync.Mutex
	debouncer := newChangeDebouncer(opts.Debounce, func(changed []string) {
		rebuildMu.Lock()
		defer rebuildMu.Unlock()
		if ctx.Err() != nil {
			return
		}
		res := o.Rebuild(ctx, targets, changed)
		if opts.OnRebuild != nil {
			opts.OnRebuild(changed, res)
		}
	})
	defer debouncer.Stop()

	ig := newIgnorer(targets)
	dirs := make([]string, 0, len(targets))
	for _, t := range targets {
		dirs = append(dirs, t.Plan.SrcDir)
	}

	o.bc.Logger.Info("watching for changes",
		zap.Strings("dirs", dirs),
		zap.Duration("poll", opts.Poll))

	if opts.Poll > 0 {
		return o.pollLoop(ctx, dirs, ig, opts.Poll, debouncer)
	}
	return o.notifyLoop(ctx, dirs, ig, debouncer)
}

// Rebuild re-runs the watch steps of every target whose source directory
// contains one of the changed paths.
func (o *Orchestrator) Rebuild(ctx context.Context, targets []ProjectResult, changed []string) *Result {
	res := &Result{}
	for _, t := range targets {
		if !touches(t.Plan.SrcDir, changed) {
			continue
		}
		start := time.Now()
		pr := ProjectResult{Name: t.Name, Path: t.Path, Plan: t.Plan}
		pr.Steps, pr.Err = o.execute(ctx, t.Name, t.Plan, t.Plan.WatchSteps())
		pr.Duration = time.Since(start)
		o.record(pr)
		res.Projects = append(res.Projects, pr)
	}
	return res
}

func watchTargets(initial *Result) []ProjectResult {
	if initial == nil {
		return nil
	}
	var out []ProjectResult
	for _, p := range initial.Projects {
		if p.Plan != nil && p.Plan.SrcDir != "" {
			out = append(out, p)
		}
	}
	return out
}

func touches(srcDir string, changed []string) bool {
	for _, c := range changed {
		if pathutil.IsInFolder(srcDir, c) {
			return true
		}
	}
	return false
}

func (o *Orchestrator) notifyLoop(ctx context.Context, dirs []string, ig *ignorer, d *changeDebouncer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range dirs {
		if err := addWatchRecursive(watcher, dir, ig); err != nil {
			return fmt.Errorf("add watch paths: %w", err)
		}
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ig.ignore(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addWatchRecursive(watcher, event.Name, ig)
				}
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			d.Add(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.bc.Logger.Warn("watch error", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}

func addWatchRecursive(w *fsnotify.Watcher, dir string, ig *ignorer) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && ig.ignore(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func (o *Orchestrator) pollLoop(ctx context.Context, dirs []string, ig *ignorer, interval time.Duration, d *changeDebouncer) error {
	prev := snapshot(o.bc.Fs, dirs, ig)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			next := snapshot(o.bc.Fs, dirs, ig)
			for _, p := range diffSnapshots(prev, next) {
				d.Add(p)
			}
			prev = next
		case <-ctx.Done():
			return nil
		}
	}
}

type fileStamp struct {
	modTime time.Time
	size    int64
}

// snapshot records the modification stamp of every watched file.
func snapshot(afs afero.Fs, dirs []string, ig *ignorer) map[string]fileStamp {
	out := map[string]fileStamp{}
	for _, dir := range dirs {
		_ = afero.Walk(afs, dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if path != dir && ig.ignore(path) {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !info.IsDir() {
				out[path] = fileStamp{modTime: info.ModTime(), size: info.Size()}
			}
			return nil
		})
	}
	return out
}

// diffSnapshots returns the sorted paths created, modified or removed between two snapshots.
func diffSnapshots(prev, next map[string]fileStamp) []string {
	var changed []string
	for p, s := range next {
		if old, ok := prev[p]; !ok || !old.modTime.Equal(s.modTime) || old.size != s.size {
			changed = append(changed, p)
		}
	}
	for p := range prev {
		if _, ok := next[p]; !ok {
			changed = append(changed, p)
		}
	}
	sort.Strings(changed)
	return changed
}

// ignorer skips dependency folders, hidden entries and build outputs.
type ignorer struct {
	outDirs []string
}

var ignoredDirNames = map[string]bool{
	"node_modules": true,
	".git":         true,
}

func newIgnorer(targets []ProjectResult) *ignorer {
	ig := &ignorer{}
	for _, t := range targets {
		ig.outDirs = append(ig.outDirs, t.Plan.OutDir)
	}
	return ig
}

func (ig *ignorer) ignore(path string) bool {
	name := filepath.Base(path)
	if ignoredDirNames[name] || strings.HasPrefix(name, ".") {
		return true
	}
	if strings.HasSuffix(name, ".tmp") || strings.HasSuffix(name, "~") {
		return true
	}
	for _, out := range ig.outDirs {
		if out != "" && (filepath.Clean(path) == filepath.Clean(out) || pathutil.IsInFolder(out, path)) {
			return true
		}
	}
	return false
}

// changeDebouncer batches rapid file changes into one flush.
type changeDebouncer struct {
	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	delay   time.Duration
	onFlush func([]string)
	stopped bool
}

func newChangeDebouncer(delay time.Duration, onFlush func([]string)) *changeDebouncer {
	return &changeDebouncer{
		pending: map[string]struct{}{},
		delay:   delay,
		onFlush: onFlush,
	}
}

// Add queues a changed path and restarts the quiet period.
func (d *changeDebouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending[path] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *changeDebouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = map[string]struct{}{}
	d.mu.Unlock()

	sort.Strings(paths)
	d.onFlush(paths)
}

// Stop cancels any pending flush.
func (d *changeDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
