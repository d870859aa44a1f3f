package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/treefix50/soundboard/internal/auth"
	"github.com/treefix50/soundboard/internal/server"
	"github.com/treefix50/soundboard/internal/storage"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the soundboard HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServe(cmdCtx context.Context, ctx *commandContext, addrOverride string) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	addr := cfg.Server.Addr
	if addrOverride != "" {
		addr = addrOverride
	}

	unlock, err := acquireLock(cfg)
	if err != nil {
		return err
	}
	defer unlock()

	store, err := ctx.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	host, closeHost, err := newWidgetHost(cfg, playerPageURL(addr), logger)
	if err != nil {
		return err
	}
	defer closeHost()

	session := newSession(cfg, host, store, logger)
	defer session.Close()

	sb := newBoard(cfg, store, session, logger)
	if err := sb.Load(signalCtx); err != nil {
		return fmt.Errorf("load board: %w", err)
	}

	var manager *auth.Manager
	if cfg.Auth.Enabled {
		manager = auth.NewManager(store, cfg.SessionDuration(), cfg.SessionCacheTTL())
		defer manager.Close()
		password, err := manager.InitializeAdmin(signalCtx)
		if err != nil {
			return fmt.Errorf("initialize admin password: %w", err)
		}
		if password != "" {
			fmt.Fprintf(os.Stderr, "Generated admin password: %s\n", password)
			fmt.Fprintln(os.Stderr, "Change it with `soundboard password set`.")
		}
	}

	srv := server.New(server.Options{
		Addr:           addr,
		Board:          sb,
		Playback:       session,
		Blobs:          store,
		Auth:           manager,
		CORS:           cfg.Server.CORS,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		LoginInterval:  loginInterval(cfg.Auth.LoginPerMinute),
		MountID:        cfg.Playback.MountID,
		Logger:         logger,
	})

	go runMaintenance(signalCtx, cfg.PurgeInterval(), store, manager, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	logger.Info("soundboard started",
		slog.String("addr", addr),
		slog.String("db", cfg.Storage.Path),
		slog.Int("clips", sb.Clips.Len()),
		slog.String("widget", cfg.Playback.Widget),
		slog.String("audio", cfg.Playback.Audio),
		slog.Bool("auth", manager != nil),
	)

	select {
	case err := <-errCh:
		return err
	case <-signalCtx.Done():
	}

	logger.Info("shutting down")
	if err := srv.Close(cfg.ShutdownTimeout()); err != nil {
		logger.Warn("http shutdown", slog.String("error", err.Error()))
	}
	return nil
}

func loginInterval(perMinute int) time.Duration {
	if perMinute <= 0 {
		return 0
	}
	return time.Minute / time.Duration(perMinute)
}

// runMaintenance drops expired records and sessions until ctx is done.
func runMaintenance(ctx context.Context, interval time.Duration, store *storage.Store, manager *auth.Manager, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		removed, err := store.PurgeExpired(ctx)
		if err != nil {
			logger.Warn("purge expired records", slog.String("error", err.Error()))
		} else if removed > 0 {
			logger.Info("purged expired records", slog.String("count", humanize.Comma(removed)))
		}
		if manager != nil {
			if err := manager.CleanupExpiredSessions(ctx); err != nil {
				logger.Warn("clean expired sessions", slog.String("error", err.Error()))
			}
		}
	}
}
