package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/treefix50/soundboard/internal/playback"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "play <index>",
		Short: "Play one clip and wait for it to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return runPlay(cmd.Context(), ctx, index, cmd.ErrOrStderr())
		},
	}
}

func runPlay(cmdCtx context.Context, ctx *commandContext, index int, out io.Writer) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	store, err := ctx.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	host, closeHost, err := newWidgetHost(cfg, "", logger)
	if err != nil {
		return err
	}
	defer closeHost()

	session := newSession(cfg, host, store, logger)
	defer session.Close()
	watcher := newPlayWatcher(out)
	session.AddListener(watcher)

	sb := newBoard(cfg, store, session, logger)
	if err := sb.Load(signalCtx); err != nil {
		return err
	}
	c, ok := sb.Clips.Get(index)
	if !ok {
		return fmt.Errorf("no clip at #%d", index)
	}

	if err := sb.Play(signalCtx, index); err != nil {
		return err
	}
	if _, playing := session.Active(); !playing {
		return nil
	}
	fmt.Fprintf(out, "Playing %s\n", c.DisplayName(index))

	select {
	case <-watcher.done:
	case <-signalCtx.Done():
		session.Stop()
	}
	return nil
}

// playWatcher reports notices and closes done once playback that has
// started goes idle again.
type playWatcher struct {
	out  io.Writer
	done chan struct{}

	mu      sync.Mutex
	started bool
	once    sync.Once
}

func newPlayWatcher(out io.Writer) *playWatcher {
	return &playWatcher{out: out, done: make(chan struct{})}
}

func (w *playWatcher) PlaybackChanged(state playback.State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if state.Active != nil {
		w.started = true
		return
	}
	if w.started {
		w.once.Do(func() { close(w.done) })
	}
}

func (w *playWatcher) Notice(n playback.Notice) {
	fmt.Fprintf(w.out, "%s: %s\n", n.Level, n.Message)
}
