package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ytget/yt-webclient/internal/platform"
)

// Default values
const (
	DefaultServerURL    = "http://localhost:5000"
	DefaultMaxParallel  = 2
	DefaultPollInterval = 500 * time.Millisecond
	DefaultResetDelay   = 3 * time.Second
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultLogLevel     = "info"
	DefaultLanguage     = "system"
	DefaultAutoReveal   = true
	DefaultCompress     = false
)

// Limits enforced by Validate and by the settings setters
const (
	MinMaxParallel  = 1
	MaxMaxParallel  = 10
	MinPollInterval = 100 * time.Millisecond
	MaxPollInterval = 10 * time.Second
)

// Config is the resolved configuration shared by the GUI and the CLI
type Config struct {
	ServerURL    string
	DownloadDir  string
	MaxParallel  int
	PollInterval time.Duration
	ResetDelay   time.Duration
	HTTPTimeout  time.Duration // 0 disables the timeout
	LogLevel     string
	Language     string
	AutoReveal   bool
	Compress     bool
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		ServerURL:    DefaultServerURL,
		DownloadDir:  defaultDownloadDir(),
		MaxParallel:  DefaultMaxParallel,
		PollInterval: DefaultPollInterval,
		ResetDelay:   DefaultResetDelay,
		HTTPTimeout:  DefaultHTTPTimeout,
		LogLevel:     DefaultLogLevel,
		Language:     DefaultLanguage,
		AutoReveal:   DefaultAutoReveal,
		Compress:     DefaultCompress,
	}
}

// Validate reports every invalid field at once
func (c Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.ServerURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("server_url must be an absolute http(s) URL, got %q", c.ServerURL))
	}
	if strings.TrimSpace(c.DownloadDir) == "" {
		errs = append(errs, errors.New("download_dir must not be empty"))
	}
	if c.MaxParallel < MinMaxParallel || c.MaxParallel > MaxMaxParallel {
		errs = append(errs, fmt.Errorf("max_parallel must be between %d and %d, got %d", MinMaxParallel, MaxMaxParallel, c.MaxParallel))
	}
	if c.PollInterval < MinPollInterval || c.PollInterval > MaxPollInterval {
		errs = append(errs, fmt.Errorf("poll_interval must be between %s and %s, got %s", MinPollInterval, MaxPollInterval, c.PollInterval))
	}
	if c.ResetDelay < 0 {
		errs = append(errs, fmt.Errorf("reset_delay must not be negative, got %s", c.ResetDelay))
	}
	if c.HTTPTimeout < 0 {
		errs = append(errs, fmt.Errorf("http_timeout must not be negative, got %s", c.HTTPTimeout))
	}

	return errors.Join(errs...)
}

func defaultDownloadDir() string {
	dir, err := platform.GetHomeDownloadsDir()
	if err != nil {
		return "downloads"
	}
	return dir
}

// ClampMaxParallel bounds n to the accepted range
func ClampMaxParallel(n int) int {
	switch {
	case n < MinMaxParallel:
		return MinMaxParallel
	case n > MaxMaxParallel:
		return MaxMaxParallel
	default:
		return n
	}
}

// ClampPollInterval bounds d to the accepted range
func ClampPollInterval(d time.Duration) time.Duration {
	switch {
	case d < MinPollInterval:
		return MinPollInterval
	case d > MaxPollInterval:
		return MaxPollInterval
	default:
		return d
	}
}
