package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeServer()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	if err := c.normalizePlayback(); err != nil {
		return err
	}
	c.normalizeAuth()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = defaultMaxUploadMB
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = defaultShutdownTimeout
	}
}

func (c *Config) normalizeStorage() error {
	if value, ok := os.LookupEnv("SOUNDBOARD_DB"); ok && strings.TrimSpace(value) != "" {
		c.Storage.Path = value
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = defaultDBPath
	}
	var err error
	if c.Storage.Path, err = expandPath(strings.TrimSpace(c.Storage.Path)); err != nil {
		return fmt.Errorf("storage.path: %w", err)
	}
	if c.Storage.TTLDays <= 0 {
		c.Storage.TTLDays = defaultTTLDays
	}
	if c.Storage.BusyTimeoutMS <= 0 {
		c.Storage.BusyTimeoutMS = defaultBusyTimeoutMS
	}
	c.Storage.Synchronous = strings.ToUpper(strings.TrimSpace(c.Storage.Synchronous))
	if c.Storage.Synchronous == "" {
		c.Storage.Synchronous = defaultSynchronous
	}
	if c.Storage.PurgeIntervalMinutes <= 0 {
		c.Storage.PurgeIntervalMinutes = defaultPurgeIntervalMinutes
	}
	return nil
}

func (c *Config) normalizePlayback() error {
	c.Playback.Widget = strings.ToLower(strings.TrimSpace(c.Playback.Widget))
	if c.Playback.Widget == "" {
		c.Playback.Widget = defaultWidget
	}
	c.Playback.Audio = strings.ToLower(strings.TrimSpace(c.Playback.Audio))
	if c.Playback.Audio == "" {
		c.Playback.Audio = defaultAudio
	}
	c.Playback.MountID = strings.TrimSpace(c.Playback.MountID)
	if c.Playback.MountID == "" {
		c.Playback.MountID = defaultMountID
	}
	if c.Playback.NoticeSeconds <= 0 {
		c.Playback.NoticeSeconds = defaultNoticeSeconds
	}
	if c.Playback.SampleRate <= 0 {
		c.Playback.SampleRate = defaultSampleRate
	}
	c.Playback.IframeAPIURL = strings.TrimSpace(c.Playback.IframeAPIURL)
	if c.Playback.IframeAPIURL == "" {
		c.Playback.IframeAPIURL = defaultIframeAPIURL
	}
	c.Playback.PlayerPageURL = strings.TrimSpace(c.Playback.PlayerPageURL)
	if c.Playback.BrowserBin != "" {
		var err error
		if c.Playback.BrowserBin, err = expandPath(c.Playback.BrowserBin); err != nil {
			return fmt.Errorf("playback.browser_bin: %w", err)
		}
	}
	c.Playback.FFmpegBin = strings.TrimSpace(c.Playback.FFmpegBin)
	if c.Playback.FFmpegBin != "" && strings.ContainsAny(c.Playback.FFmpegBin, `/\~`) {
		var err error
		if c.Playback.FFmpegBin, err = expandPath(c.Playback.FFmpegBin); err != nil {
			return fmt.Errorf("playback.ffmpeg_bin: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeAuth() {
	if c.Auth.SessionHours <= 0 {
		c.Auth.SessionHours = defaultSessionHours
	}
	if c.Auth.LoginPerMinute <= 0 {
		c.Auth.LoginPerMinute = defaultLoginPerMinute
	}
	if c.Auth.CacheMinutes <= 0 {
		c.Auth.CacheMinutes = defaultCacheMinutes
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
