// Package watcher detects incoming bundles and takes each one through
// routing, extraction, header validation and the execution gate. The local
// and remote channels share one Dispatcher so a bundle is handled the same
// way whichever way it arrived.
package watcher

import (
	"context"
	"errors"
	"sync"

	"sentinel/internal/bundle"
	"sentinel/internal/gate"
	"sentinel/internal/logging"
	"sentinel/internal/processed"
	"sentinel/internal/registry"
	"sentinel/internal/store"
)

// Channel names the delivery path a bundle arrived on.
type Channel string

const (
	ChannelLocal  Channel = "local"
	ChannelRemote Channel = "remote"
)

// Resolver maps a project id to its directory. *registry.Registry satisfies it.
type Resolver interface {
	Resolve(id string) (string, error)
}

// Runner takes a script through approval and execution. *gate.Gate satisfies it.
type Runner interface {
	Run(ctx context.Context, req gate.Request) (gate.Outcome, error)
}

// Ledger records terminal bundle states. *store.HistoryStore satisfies it.
type Ledger interface {
	Record(e store.Entry) error
}

// Disposition tells the channel what to do with the bundle's source after
// handling.
type Disposition int

const (
	// DispositionIgnored: not marked; the bundle stays eligible.
	DispositionIgnored Disposition = iota
	// DispositionSkipped: already processed.
	DispositionSkipped
	// DispositionRetained: marked processed; a remote copy is kept.
	DispositionRetained
	// DispositionConsumed: marked processed; a remote copy is deleted.
	DispositionConsumed
)

func (d Disposition) String() string {
	switch d {
	case DispositionIgnored:
		return "ignored"
	case DispositionSkipped:
		return "skipped"
	case DispositionRetained:
		return "retained"
	case DispositionConsumed:
		return "consumed"
	default:
		return "unknown"
	}
}

// Candidate is one bundle offered to the Dispatcher.
type Candidate struct {
	Channel Channel
	// Identifier is the processed-set key: an absolute path or a document id.
	Identifier string
	// Name is the bundle's base file name.
	Name string
	// Fetch returns the bundle's extracted text.
	Fetch func(ctx context.Context, n bundle.Name) (string, error)
}

// Result describes how a candidate was handled.
type Result struct {
	Disposition Disposition
	// State is the ledger state, empty when nothing was recorded.
	State   string
	Outcome gate.Outcome
	Err     error
}

// DispatcherConfig wires a Dispatcher.
type DispatcherConfig struct {
	Matcher     *bundle.Matcher
	Resolver    Resolver
	Processed   *processed.Set
	Runner      Runner
	Ledger      Ledger // optional
	HeaderToken string
}

// Dispatcher routes and handles bundles. It is not safe for concurrent
// Handle calls; each watcher drives it from a single goroutine.
type Dispatcher struct {
	matcher     *bundle.Matcher
	resolver    Resolver
	processed   *processed.Set
	runner      Runner
	ledger      Ledger
	headerToken string

	mu            sync.Mutex
	warnedUnknown map[string]bool
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Matcher == nil {
		cfg.Matcher = bundle.NewMatcher("", nil)
	}
	if cfg.HeaderToken == "" {
		cfg.HeaderToken = "<#"
	}
	return &Dispatcher{
		matcher:       cfg.Matcher,
		resolver:      cfg.Resolver,
		processed:     cfg.Processed,
		runner:        cfg.Runner,
		ledger:        cfg.Ledger,
		headerToken:   cfg.HeaderToken,
		warnedUnknown: make(map[string]bool),
	}
}

// Prefix is the bundle name prefix both channels filter on.
func (d *Dispatcher) Prefix() string { return d.matcher.Prefix() }

// Seen reports whether identifier is already in the processed set.
func (d *Dispatcher) Seen(identifier string) bool {
	return d.processed.Contains(identifier)
}

// Handle takes one candidate as far as it can go.
func (d *Dispatcher) Handle(ctx context.Context, c Candidate) Result {
	log := logging.Get(logging.CategoryWatcher).With("channel", string(c.Channel), "bundle", c.Name)

	if d.Seen(c.Identifier) {
		log.Debug("already processed: %s", c.Identifier)
		return Result{Disposition: DispositionSkipped}
	}

	name, err := d.matcher.Parse(c.Name)
	if err != nil {
		if c.Channel == ChannelLocal {
			log.Debug("ignoring %s: %v", c.Name, err)
			return Result{Disposition: DispositionIgnored, Err: err}
		}
		log.Warn("discarding %s: %v", c.Name, err)
		return d.finish(c, Result{Disposition: DispositionConsumed, State: store.StateMalformed, Err: err}, bundle.Name{}, "")
	}

	dir, err := d.resolver.Resolve(name.ProjectID)
	if err != nil {
		d.warnUnknownOnce(name.ProjectID, err)
		return Result{Disposition: DispositionIgnored, Err: err}
	}

	text, err := c.Fetch(ctx, name)
	if err != nil {
		log.Error("extraction failed for %s: %v", c.Identifier, err)
		return d.finish(c, Result{Disposition: DispositionRetained, State: store.StateExtractFailed, Err: err}, name, "")
	}

	if err := bundle.CheckHeader(text, d.headerToken); err != nil {
		log.Warn("%s rejected: %v", name.Label(), err)
		return d.finish(c, Result{Disposition: DispositionConsumed, State: store.StateMissingHeader, Err: err}, name, text)
	}

	outcome, err := d.runner.Run(ctx, gate.Request{Script: text, Label: name.Label(), Dir: dir})
	if outcome == gate.OutcomeCancelled {
		log.Info("%s left pending: %v", name.Label(), err)
		return Result{Disposition: DispositionIgnored, Outcome: outcome, Err: err}
	}
	res := Result{Disposition: DispositionConsumed, State: outcome.String(), Outcome: outcome, Err: err}
	log.Info("%s finished: %s", name.Label(), outcome)
	return d.finish(c, res, name, text)
}

// finish marks the candidate processed and records the ledger entry.
func (d *Dispatcher) finish(c Candidate, res Result, name bundle.Name, script string) Result {
	if err := d.processed.Add(c.Identifier); err != nil {
		logging.WatcherError("failed to mark %s processed: %v", c.Identifier, err)
	}
	if d.ledger == nil {
		return res
	}

	entry := store.Entry{
		Channel:    string(c.Channel),
		Identifier: c.Identifier,
		ProjectID:  name.ProjectID,
		State:      res.State,
	}
	if name.ProjectID != "" {
		entry.Label = name.Label()
	}
	if script != "" {
		entry.Digest = store.Digest(script)
	}
	if res.Err != nil {
		entry.Detail = res.Err.Error()
	}
	if err := d.ledger.Record(entry); err != nil {
		logging.WatcherWarn("failed to record history for %s: %v", c.Identifier, err)
	}
	return res
}

func (d *Dispatcher) warnUnknownOnce(projectID string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.warnedUnknown[projectID] {
		return
	}
	d.warnedUnknown[projectID] = true
	if errors.Is(err, registry.ErrUnknownProject) {
		logging.WatcherWarn("bundle for unregistered project %s skipped", projectID)
		return
	}
	logging.WatcherError("resolving project %s: %v", projectID, err)
}
