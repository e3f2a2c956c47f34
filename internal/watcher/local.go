package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"sentinel/internal/bundle"
	"sentinel/internal/logging"
	"sentinel/internal/registry"
)

// ProjectLister lists registered projects. *registry.Registry satisfies it.
type ProjectLister interface {
	Projects() ([]registry.ProjectRecord, error)
}

// LocalOptions tunes a LocalWatcher.
type LocalOptions struct {
	// SettleDelay is how long a new file must sit before it is handled.
	SettleDelay time.Duration
	// RegistryRefresh is how often the watch list is re-synced.
	RegistryRefresh time.Duration
}

// LocalStats tracks watcher activity.
type LocalStats struct {
	Detected      int
	Handled       int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
}

// LocalWatcher watches the top level of every registered project directory
// for new bundle files.
type LocalWatcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	dispatcher  *Dispatcher
	projects    ProjectLister
	settleMap   map[string]time.Time
	settleDelay time.Duration
	refresh     time.Duration
	watched     map[string]bool
	missing     map[string]bool
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats LocalStats
}

// NewLocalWatcher creates a LocalWatcher. Nothing is watched until Start.
func NewLocalWatcher(d *Dispatcher, projects ProjectLister, opts LocalOptions) (*LocalWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = time.Second
	}
	if opts.RegistryRefresh <= 0 {
		opts.RegistryRefresh = 10 * time.Second
	}
	return &LocalWatcher{
		watcher:     w,
		dispatcher:  d,
		projects:    projects,
		settleMap:   make(map[string]time.Time),
		settleDelay: opts.SettleDelay,
		refresh:     opts.RegistryRefresh,
		watched:     make(map[string]bool),
		missing:     make(map[string]bool),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start syncs the watch list with the registry and begins handling events
// in a background goroutine.
func (lw *LocalWatcher) Start(ctx context.Context) error {
	lw.mu.Lock()
	if lw.running {
		lw.mu.Unlock()
		return nil
	}
	lw.running = true
	lw.mu.Unlock()

	if err := lw.sync(); err != nil {
		lw.mu.Lock()
		lw.running = false
		lw.mu.Unlock()
		return err
	}

	go lw.run(ctx)
	return nil
}

// Stop stops the loop, waits for it to exit and releases the OS watcher.
func (lw *LocalWatcher) Stop() {
	lw.mu.Lock()
	if !lw.running {
		lw.mu.Unlock()
		return
	}
	lw.running = false
	lw.mu.Unlock()

	close(lw.stopCh)
	<-lw.doneCh

	if err := lw.watcher.Close(); err != nil {
		logging.WatcherError("error closing watcher: %v", err)
	}
	logging.Watcher("local watcher stopped")
}

// Done is closed when the loop exits.
func (lw *LocalWatcher) Done() <-chan struct{} { return lw.doneCh }

// Stats returns a snapshot of watcher activity.
func (lw *LocalWatcher) Stats() LocalStats {
	lw.mu.RLock()
	defer lw.mu.RUnlock()
	return lw.stats
}

// WatchedDirs returns the directories currently watched, sorted.
func (lw *LocalWatcher) WatchedDirs() []string {
	lw.mu.RLock()
	defer lw.mu.RUnlock()
	dirs := make([]string, 0, len(lw.watched))
	for d := range lw.watched {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

func (lw *LocalWatcher) run(ctx context.Context) {
	defer close(lw.doneCh)

	settleTicker := time.NewTicker(100 * time.Millisecond)
	defer settleTicker.Stop()
	refreshTicker := time.NewTicker(lw.refresh)
	defer refreshTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.WatcherDebug("context cancelled")
			return

		case <-lw.stopCh:
			return

		case event, ok := <-lw.watcher.Events:
			if !ok {
				return
			}
			lw.handleEvent(event)

		case err, ok := <-lw.watcher.Errors:
			if !ok {
				return
			}
			logging.WatcherError("watch error: %v", err)
			lw.mu.Lock()
			lw.stats.Errors++
			lw.mu.Unlock()

		case <-settleTicker.C:
			lw.processSettled(ctx)

		case <-refreshTicker.C:
			if err := lw.sync(); err != nil {
				logging.WatcherWarn("registry refresh failed: %v", err)
			}
		}
	}
}

// handleEvent records new bundle files in the settle map. A write to a file
// that is still settling restarts its delay.
func (lw *LocalWatcher) handleEvent(event fsnotify.Event) {
	if !strings.HasPrefix(filepath.Base(event.Name), lw.dispatcher.Prefix()) {
		return
	}

	lw.mu.Lock()
	defer lw.mu.Unlock()

	switch {
	case event.Op&fsnotify.Create != 0:
		logging.WatcherDebug("create event for %s", event.Name)
		lw.stats.Detected++
		lw.stats.LastEventTime = time.Now()
		lw.stats.LastEventPath = event.Name
		lw.settleMap[event.Name] = time.Now()
	case event.Op&fsnotify.Write != 0:
		if _, pending := lw.settleMap[event.Name]; pending {
			lw.settleMap[event.Name] = time.Now()
		}
	}
}

// processSettled hands every path that has been quiet for the settle delay
// to the dispatcher, oldest first.
func (lw *LocalWatcher) processSettled(ctx context.Context) {
	lw.mu.Lock()
	now := time.Now()
	type settled struct {
		path string
		at   time.Time
	}
	var ready []settled
	for path, at := range lw.settleMap {
		if now.Sub(at) >= lw.settleDelay {
			ready = append(ready, settled{path, at})
			delete(lw.settleMap, path)
		}
	}
	lw.mu.Unlock()

	sort.Slice(ready, func(i, j int) bool { return ready[i].at.Before(ready[j].at) })
	for _, s := range ready {
		if ctx.Err() != nil {
			return
		}
		lw.handlePath(ctx, s.path)
	}
}

func (lw *LocalWatcher) handlePath(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		logging.WatcherDebug("%s vanished before handling", path)
		return
	}

	res := lw.dispatcher.Handle(ctx, Candidate{
		Channel:    ChannelLocal,
		Identifier: path,
		Name:       filepath.Base(path),
		Fetch: func(_ context.Context, _ bundle.Name) (string, error) {
			return bundle.ExtractFile(path)
		},
	})

	lw.mu.Lock()
	if res.Disposition != DispositionIgnored && res.Disposition != DispositionSkipped {
		lw.stats.Handled++
	}
	lw.mu.Unlock()
}

// sync adds newly registered project directories to the watch list and
// drops those no longer registered. Missing directories are warned about
// once and retried on the next sync.
func (lw *LocalWatcher) sync() error {
	records, err := lw.projects.Projects()
	if err != nil {
		return err
	}

	want := make(map[string]bool, len(records))
	for _, rec := range records {
		want[rec.Path] = true
	}

	lw.mu.Lock()
	defer lw.mu.Unlock()

	for dir := range lw.watched {
		if want[dir] {
			continue
		}
		if err := lw.watcher.Remove(dir); err != nil {
			logging.WatcherDebug("unwatch %s: %v", dir, err)
		}
		delete(lw.watched, dir)
		logging.Watcher("stopped watching %s", dir)
	}

	for _, rec := range records {
		if lw.watched[rec.Path] {
			continue
		}
		if info, err := os.Stat(rec.Path); err != nil || !info.IsDir() {
			if !lw.missing[rec.Path] {
				logging.WatcherWarn("project %s path %s does not exist, not watching", rec.ID, rec.Path)
				lw.missing[rec.Path] = true
			}
			continue
		}
		if err := lw.watcher.Add(rec.Path); err != nil {
			logging.WatcherError("failed to watch %s: %v", rec.Path, err)
			continue
		}
		delete(lw.missing, rec.Path)
		lw.watched[rec.Path] = true
		logging.Watcher("watching %s (%s)", rec.Path, rec.ID)
	}
	return nil
}
