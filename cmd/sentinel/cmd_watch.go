package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sentinel/internal/logging"
	"sentinel/internal/registry"
	remotedrive "sentinel/internal/remote/drive"
	"sentinel/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch <local|remote>",
	Short: "Watch for bundles and run them after approval",
	Long: `Watches for incoming bundles until interrupted.

  local   watch every registered project directory
  remote  poll the remote document store (alias: drive)

Each bundle's script is shown in full; only "y" or "yes" runs it.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"local", "remote", "drive"},
	RunE:      runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	mode := strings.ToLower(args[0])
	if mode == "drive" {
		mode = "remote"
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	records, err := svc.registry.Projects()
	if err != nil {
		return err
	}
	if mode == "local" && len(records) == 0 {
		return fmt.Errorf("%w: no projects registered, run 'sentinel register' first", registry.ErrConfig)
	}

	printBanner(mode, records, svc.processed.Len())
	logger.Info("watch starting", zap.String("mode", mode), zap.Int("projects", len(records)))

	if mode == "local" {
		return watchLocal(ctx, svc)
	}
	return watchRemote(ctx, svc)
}

func printBanner(mode string, records []registry.ProjectRecord, processedCount int) {
	fmt.Printf("sentinel watching (%s)\n", mode)
	fmt.Println(strings.Repeat("─", 50))
	for _, rec := range records {
		marker := " "
		if info, err := os.Stat(rec.Path); err != nil || !info.IsDir() {
			marker = "!"
			logging.BootWarn("registered path for %s no longer exists: %s", rec.ID, rec.Path)
		}
		fmt.Printf(" %s %-12s %s\n", marker, rec.ID, rec.Path)
	}
	fmt.Println(strings.Repeat("─", 50))
	fmt.Printf("Projects: %d  Processed bundles: %d\n", len(records), processedCount)
	fmt.Println("Press Ctrl+C to stop.")
}

func watchLocal(ctx context.Context, svc *services) error {
	lw, err := watcher.NewLocalWatcher(svc.dispatcher, svc.registry, watcher.LocalOptions{
		SettleDelay:     cfg.GetSettleDelay(),
		RegistryRefresh: cfg.GetRegistryRefresh(),
	})
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := lw.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-lw.Done():
	}
	lw.Stop()

	stats := lw.Stats()
	fmt.Printf("Stopped. %d bundle(s) detected, %d handled.\n", stats.Detected, stats.Handled)
	return nil
}

func watchRemote(ctx context.Context, svc *services) error {
	client, err := remotedrive.Authorize(ctx,
		cfg.Path(cfg.Remote.CredentialsFile),
		cfg.Path(cfg.Remote.TokenFile),
		os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	st, err := remotedrive.NewWithClient(ctx, client)
	if err != nil {
		return err
	}

	rw := watcher.NewRemoteWatcher(st, svc.dispatcher, watcher.RemoteOptions{
		PollInterval: cfg.GetPollInterval(),
		PageSize:     cfg.Remote.PageSize,
		MimeTypes:    cfg.Remote.MimeTypes,
	})
	if err := rw.Run(ctx); err != nil {
		return err
	}

	stats := rw.Stats()
	fmt.Printf("Stopped. %d poll(s), %d bundle(s) handled.\n", stats.Polls, stats.Handled)
	return nil
}
