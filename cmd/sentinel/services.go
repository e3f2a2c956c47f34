package main

import (
	"sentinel/internal/bundle"
	"sentinel/internal/config"
	"sentinel/internal/gate"
	"sentinel/internal/processed"
	"sentinel/internal/registry"
	"sentinel/internal/store"
	"sentinel/internal/tactile"
	"sentinel/internal/watcher"
)

// newPrompter and newExecutor are swapped out in tests.
var (
	newPrompter = func(c *config.Config) gate.Prompter {
		return gate.NewConsolePrompter(c.Gate.Plain)
	}
	newExecutor = func() tactile.Executor {
		return tactile.NewDirectExecutor()
	}
)

// services are the long-lived components a watch run owns.
type services struct {
	registry   *registry.Registry
	processed  *processed.Set
	history    *store.HistoryStore
	dispatcher *watcher.Dispatcher
}

func openServices(c *config.Config) (*services, error) {
	history, err := store.Open(c.HistoryPath())
	if err != nil {
		return nil, err
	}

	s := &services{
		registry:  registry.New(c.RegistryPath()),
		processed: processed.Load(c.ProcessedPath()),
		history:   history,
	}

	g := gate.New(gate.Config{
		TempScriptName: c.Gate.TempScriptName,
		Interpreter:    c.Gate.Interpreter,
		Args:           c.InterpreterArgs(c.Gate.TempScriptName),
	}, newPrompter(c), newExecutor(), nil)

	s.dispatcher = watcher.NewDispatcher(watcher.DispatcherConfig{
		Matcher:     bundle.NewMatcher(c.Watcher.BundlePrefix, c.Watcher.Extensions),
		Resolver:    s.registry,
		Processed:   s.processed,
		Runner:      g,
		Ledger:      s.history,
		HeaderToken: c.Watcher.HeaderToken,
	})
	return s, nil
}

func (s *services) Close() error {
	return s.history.Close()
}
