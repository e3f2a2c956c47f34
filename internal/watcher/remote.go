package watcher

import (
	"context"
	"fmt"
	"os"
	"time"

	"sentinel/internal/bundle"
	"sentinel/internal/logging"
	"sentinel/internal/remote"
)

// RemoteOptions tunes a RemoteWatcher.
type RemoteOptions struct {
	PollInterval time.Duration
	PageSize     int
	MimeTypes    []string
	// TempDir receives downloads while they are extracted; empty means the
	// system temp directory.
	TempDir string
}

// RemoteStats tracks poll activity.
type RemoteStats struct {
	Polls    int
	Handled  int
	Deleted  int
	Errors   int
	LastPoll time.Time
}

// RemoteWatcher polls a remote document store for bundles.
type RemoteWatcher struct {
	store      remote.Store
	dispatcher *Dispatcher
	query      remote.Query
	interval   time.Duration
	tempDir    string

	stats RemoteStats
}

// NewRemoteWatcher creates a RemoteWatcher.
func NewRemoteWatcher(st remote.Store, d *Dispatcher, opts RemoteOptions) *RemoteWatcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	return &RemoteWatcher{
		store:      st,
		dispatcher: d,
		query: remote.Query{
			Prefix:    d.Prefix(),
			MimeTypes: opts.MimeTypes,
			PageSize:  opts.PageSize,
		},
		interval: opts.PollInterval,
		tempDir:  opts.TempDir,
	}
}

// Run polls until ctx is cancelled. Poll failures are logged and retried
// after the normal interval.
func (rw *RemoteWatcher) Run(ctx context.Context) error {
	logging.Remote("polling every %s", rw.interval)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Remote("remote watcher stopped")
			return nil
		case <-timer.C:
		}

		if err := rw.Poll(ctx); err != nil && ctx.Err() == nil {
			logging.RemoteError("poll failed: %v", err)
		}
		timer.Reset(rw.interval)
	}
}

// Poll runs one iteration: list, then handle unseen documents oldest first.
func (rw *RemoteWatcher) Poll(ctx context.Context) error {
	rw.stats.Polls++
	rw.stats.LastPoll = time.Now()

	docs, err := rw.store.List(ctx, rw.query)
	if err != nil {
		rw.stats.Errors++
		return fmt.Errorf("listing bundles: %w", err)
	}

	var unseen []remote.Document
	for _, doc := range docs {
		if !rw.dispatcher.Seen(doc.ID) {
			unseen = append(unseen, doc)
		}
	}
	if len(unseen) > 0 {
		logging.Remote("%d new bundle(s) of %d listed", len(unseen), len(docs))
	}

	for i := len(unseen) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rw.handle(ctx, unseen[i])
	}
	return nil
}

// Stats returns a snapshot of poll activity. Call it from the goroutine
// running the watcher or after Run returns.
func (rw *RemoteWatcher) Stats() RemoteStats { return rw.stats }

func (rw *RemoteWatcher) handle(ctx context.Context, doc remote.Document) {
	res := rw.dispatcher.Handle(ctx, Candidate{
		Channel:    ChannelRemote,
		Identifier: doc.ID,
		Name:       doc.Name,
		Fetch: func(ctx context.Context, n bundle.Name) (string, error) {
			return rw.fetch(ctx, doc, n)
		},
	})

	switch res.Disposition {
	case DispositionIgnored, DispositionSkipped:
		return
	case DispositionConsumed:
		if err := rw.store.Delete(ctx, doc.ID); err != nil {
			rw.stats.Errors++
			logging.RemoteWarn("failed to delete %s (%s): %v", doc.Name, doc.ID, err)
		} else {
			rw.stats.Deleted++
			logging.RemoteDebug("deleted %s (%s)", doc.Name, doc.ID)
		}
	}
	rw.stats.Handled++
}

// fetch downloads a document to a temporary file, extracts it and removes
// the file.
func (rw *RemoteWatcher) fetch(ctx context.Context, doc remote.Document, n bundle.Name) (string, error) {
	f, err := os.CreateTemp(rw.tempDir, "sentinel-*."+n.Ext)
	if err != nil {
		return "", fmt.Errorf("creating download file: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.RemoteWarn("failed to remove download %s: %v", path, err)
		}
	}()

	if err := rw.store.Download(ctx, doc.ID, f); err != nil {
		f.Close()
		return "", fmt.Errorf("downloading %s: %w", doc.Name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing download: %w", err)
	}
	logging.RemoteDebug("downloaded %s to %s", doc.Name, path)
	return bundle.ExtractFile(path)
}
