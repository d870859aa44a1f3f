package config

import (
	"fmt"
	"net"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validatePlayback(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return fmt.Errorf("server.addr %q: %w", c.Server.Addr, err)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Synchronous {
	case "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		return fmt.Errorf("storage.synchronous must be one of OFF, NORMAL, FULL, EXTRA (got %q)", c.Storage.Synchronous)
	}
	if c.Storage.CacheSizeKB < 0 {
		return fmt.Errorf("storage.cache_size_kb must not be negative")
	}
	return nil
}

func (c *Config) validatePlayback() error {
	switch c.Playback.Widget {
	case "simulated", "rod", "none":
	default:
		return fmt.Errorf("playback.widget must be simulated, rod or none (got %q)", c.Playback.Widget)
	}
	switch c.Playback.Audio {
	case "speaker", "discard", "none":
	default:
		return fmt.Errorf("playback.audio must be speaker, discard or none (got %q)", c.Playback.Audio)
	}
	if c.Playback.PlayerPageURL != "" {
		if _, err := url.ParseRequestURI(c.Playback.PlayerPageURL); err != nil {
			return fmt.Errorf("playback.player_page_url: %w", err)
		}
	}
	if _, err := url.ParseRequestURI(c.Playback.IframeAPIURL); err != nil {
		return fmt.Errorf("playback.iframe_api_url: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error (got %q)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json", "auto":
	default:
		return fmt.Errorf("logging.format must be text, json or auto (got %q)", c.Logging.Format)
	}
	return nil
}
