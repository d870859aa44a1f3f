package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/treefix50/soundboard/internal/board"
	"github.com/treefix50/soundboard/internal/config"
	"github.com/treefix50/soundboard/internal/logging"
	"github.com/treefix50/soundboard/internal/playback"
	"github.com/treefix50/soundboard/internal/storage"
)

var errServerRunning = errors.New("the database is in use by a running server; use the HTTP API instead")

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openStore() (*storage.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg.Storage.Path, storage.Options{
		BusyTimeout: cfg.BusyTimeout(),
		Synchronous: cfg.Storage.Synchronous,
		CacheSize:   -cfg.Storage.CacheSizeKB,
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Storage.Path, err)
	}
	return store, nil
}

// boardEnv is an offline board opened straight from the database.
type boardEnv struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *storage.Store
	board  *board.Soundboard
}

func (c *commandContext) withBoard(ctx context.Context, fn func(*boardEnv) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	// no player: offline commands never play
	session := playback.NewSession(playback.Options{Blobs: store, Logger: logger})
	sb := newBoard(cfg, store, session, logger)
	if err := sb.Load(ctx); err != nil {
		return err
	}
	return fn(&boardEnv{cfg: cfg, logger: logger, store: store, board: sb})
}

// withLockedBoard is withBoard for commands that change the board. A running
// server holds the lock and keeps its own copy of the board in memory, so
// editing underneath it would be lost.
func (c *commandContext) withLockedBoard(ctx context.Context, fn func(*boardEnv) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	unlock, err := acquireLock(cfg)
	if err != nil {
		return err
	}
	defer unlock()
	return c.withBoard(ctx, fn)
}

func acquireLock(cfg *config.Config) (func(), error) {
	if cfg.Storage.Path == ":memory:" {
		return func() {}, nil
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, errServerRunning
	}
	return func() { _ = lock.Unlock() }, nil
}

func newBoard(cfg *config.Config, store *storage.Store, player board.Player, logger *slog.Logger) *board.Soundboard {
	return board.New(
		board.NewRegistry(store, cfg.Storage.TTLDays, logger),
		board.NewBindings(store, cfg.Storage.TTLDays, logger),
		player, store, logger,
	)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
