// Package config resolves client configuration: Fyne preferences for the
// desktop app and viper (flags, env, config file, .env) for the CLI. Both
// produce a validated Config.
package config

import (
	"strings"
	"time"

	"fyne.io/fyne/v2"
)

// Settings keys for Fyne preferences
const (
	PrefServerURL      = "server_url"
	PrefDownloadDir    = "download_directory"
	PrefMaxParallel    = "max_parallel_downloads"
	PrefPollIntervalMs = "poll_interval_ms"
	PrefLanguage       = "app_language"
	PrefAutoReveal     = "auto_reveal_on_complete"
	PrefCompress       = "compress_after_download"
)

// Settings manages application configuration stored in Fyne preferences
type Settings struct {
	app fyne.App
}

// NewSettings creates a new settings manager
func NewSettings(app fyne.App) *Settings {
	return &Settings{app: app}
}

// GetServerURL returns the base URL of the download service
func (s *Settings) GetServerURL() string {
	u := strings.TrimSpace(s.app.Preferences().String(PrefServerURL))
	if u == "" {
		return DefaultServerURL
	}
	return u
}

// SetServerURL sets the base URL of the download service
func (s *Settings) SetServerURL(u string) {
	s.app.Preferences().SetString(PrefServerURL, strings.TrimRight(strings.TrimSpace(u), "/"))
}

// GetDownloadDirectory returns the configured download directory
func (s *Settings) GetDownloadDirectory() string {
	dir := s.app.Preferences().String(PrefDownloadDir)
	if dir == "" {
		dir = defaultDownloadDir()
		s.SetDownloadDirectory(dir)
	}
	return dir
}

// SetDownloadDirectory sets the download directory
func (s *Settings) SetDownloadDirectory(dir string) {
	s.app.Preferences().SetString(PrefDownloadDir, dir)
}

// GetMaxParallelDownloads returns the maximum number of parallel retrievals
func (s *Settings) GetMaxParallelDownloads() int {
	value := s.app.Preferences().Int(PrefMaxParallel)
	if value <= 0 {
		s.SetMaxParallelDownloads(DefaultMaxParallel)
		return DefaultMaxParallel
	}
	return value
}

// SetMaxParallelDownloads sets the maximum number of parallel retrievals
func (s *Settings) SetMaxParallelDownloads(count int) {
	s.app.Preferences().SetInt(PrefMaxParallel, ClampMaxParallel(count))
}

// GetPollInterval returns the status polling period
func (s *Settings) GetPollInterval() time.Duration {
	ms := s.app.Preferences().Int(PrefPollIntervalMs)
	if ms <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(ms) * time.Millisecond
}

// SetPollInterval sets the status polling period
func (s *Settings) SetPollInterval(d time.Duration) {
	s.app.Preferences().SetInt(PrefPollIntervalMs, int(ClampPollInterval(d)/time.Millisecond))
}

// GetLanguage returns the configured language
func (s *Settings) GetLanguage() string {
	lang := s.app.Preferences().String(PrefLanguage)
	if lang == "" {
		s.SetLanguage(DefaultLanguage)
		return DefaultLanguage
	}
	return lang
}

// SetLanguage sets the application language
func (s *Settings) SetLanguage(lang string) {
	s.app.Preferences().SetString(PrefLanguage, lang)
}

// GetAutoRevealOnComplete returns whether to reveal retrieved files
func (s *Settings) GetAutoRevealOnComplete() bool {
	return s.app.Preferences().BoolWithFallback(PrefAutoReveal, DefaultAutoReveal)
}

// SetAutoRevealOnComplete sets whether to reveal retrieved files
func (s *Settings) SetAutoRevealOnComplete(autoReveal bool) {
	s.app.Preferences().SetBool(PrefAutoReveal, autoReveal)
}

// GetCompressAfterDownload returns whether retrieved videos are re-encoded
func (s *Settings) GetCompressAfterDownload() bool {
	return s.app.Preferences().BoolWithFallback(PrefCompress, DefaultCompress)
}

// SetCompressAfterDownload sets whether retrieved videos are re-encoded
func (s *Settings) SetCompressAfterDownload(compress bool) {
	s.app.Preferences().SetBool(PrefCompress, compress)
}

// GetLanguageOptions returns available language options
func (s *Settings) GetLanguageOptions() map[string]string {
	return map[string]string{
		"system": "System Default",
		"en":     "English",
		"ru":     "Русский",
		"pt":     "Português",
	}
}

// Config snapshots the preferences as a Config
func (s *Settings) Config() Config {
	cfg := Default()
	cfg.ServerURL = s.GetServerURL()
	cfg.DownloadDir = s.GetDownloadDirectory()
	cfg.MaxParallel = s.GetMaxParallelDownloads()
	cfg.PollInterval = s.GetPollInterval()
	cfg.Language = s.GetLanguage()
	cfg.AutoReveal = s.GetAutoRevealOnComplete()
	cfg.Compress = s.GetCompressAfterDownload()
	return cfg
}
