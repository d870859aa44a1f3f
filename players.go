package main

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/treefix50/soundboard/internal/audio"
	"github.com/treefix50/soundboard/internal/config"
	"github.com/treefix50/soundboard/internal/ffmpeg"
	"github.com/treefix50/soundboard/internal/playback"
	"github.com/treefix50/soundboard/internal/widget"
)

// newWidgetHost builds the configured video player host. pageURL is used by
// the browser host when no player page is configured.
func newWidgetHost(cfg *config.Config, pageURL string, logger *slog.Logger) (playback.WidgetHost, func(), error) {
	switch cfg.Playback.Widget {
	case "simulated":
		return widget.NewSimulatedHost(logger), func() {}, nil
	case "rod":
		if cfg.Playback.PlayerPageURL != "" {
			pageURL = cfg.Playback.PlayerPageURL
		}
		host := widget.NewRodHost(widget.RodOptions{
			PageURL:  pageURL,
			APIURL:   cfg.Playback.IframeAPIURL,
			Bin:      cfg.Playback.BrowserBin,
			Headless: cfg.Playback.Headless,
			Logger:   logger,
		})
		return host, func() {
			if err := host.Close(); err != nil {
				logger.Warn("close browser", slog.String("error", err.Error()))
			}
		}, nil
	case "none":
		return nil, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown widget %q", cfg.Playback.Widget)
	}
}

func newAudioOutput(cfg *config.Config, logger *slog.Logger) playback.AudioOutput {
	convert := newConverter(cfg, logger)
	switch cfg.Playback.Audio {
	case "speaker":
		return audio.NewSpeaker(cfg.Playback.SampleRate, audio.DefaultBuffer, logger).WithConverter(convert)
	case "discard":
		return audio.Discard{Convert: convert}
	default:
		return nil
	}
}

func newConverter(cfg *config.Config, logger *slog.Logger) audio.ConvertFunc {
	if !cfg.Playback.Transcode {
		return nil
	}
	bin, err := ffmpeg.Locate(cfg.Playback.FFmpegBin)
	if err != nil {
		logger.Info("audio conversion disabled", slog.String("reason", err.Error()))
		return nil
	}
	return ffmpeg.NewConverter(bin, cfg.Playback.SampleRate).Convert
}

func newSession(cfg *config.Config, host playback.WidgetHost, blobs playback.BlobSource, logger *slog.Logger) *playback.Session {
	return playback.NewSession(playback.Options{
		Host:      host,
		Audio:     newAudioOutput(cfg, logger),
		Blobs:     blobs,
		Logger:    logger,
		MountID:   cfg.Playback.MountID,
		NoticeTTL: cfg.NoticeTTL(),
	})
}

// playerPageURL is the address the browser host uses to reach this
// server's player page.
func playerPageURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/player"
}
