package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Viper keys; also the config file fields and, upper-cased with the
// prefix, the environment variable names (YTWEB_SERVER_URL, ...)
const (
	KeyServerURL    = "server_url"
	KeyDownloadDir  = "download_dir"
	KeyMaxParallel  = "max_parallel"
	KeyPollInterval = "poll_interval"
	KeyResetDelay   = "reset_delay"
	KeyHTTPTimeout  = "http_timeout"
	KeyLogLevel     = "log_level"
	KeyLanguage     = "language"
	KeyAutoReveal   = "auto_reveal"
	KeyCompress     = "compress"
)

// Config file lookup
const (
	EnvPrefix      = "YTWEB"
	ConfigName     = "config"
	AppConfigDir   = "yt-webclient"
	DotEnvFileName = ".env"
)

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{DotEnvFileName}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("error loading %s: %w", f, err)
		}
	}
	return nil
}

// SetDefaults registers the built-in values on v
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyServerURL, d.ServerURL)
	v.SetDefault(KeyDownloadDir, d.DownloadDir)
	v.SetDefault(KeyMaxParallel, d.MaxParallel)
	v.SetDefault(KeyPollInterval, d.PollInterval)
	v.SetDefault(KeyResetDelay, d.ResetDelay)
	v.SetDefault(KeyHTTPTimeout, d.HTTPTimeout)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLanguage, d.Language)
	v.SetDefault(KeyAutoReveal, d.AutoReveal)
	v.SetDefault(KeyCompress, d.Compress)
}

// Load resolves the configuration from defaults, an optional config file,
// YTWEB_* environment variables and whatever flags were bound to v, in
// increasing order of precedence. configFile, when set, must exist; otherwise
// config.{yaml,json,toml} is looked up in . and $HOME/.config/yt-webclient.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", AppConfigDir))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		ServerURL:    strings.TrimSpace(v.GetString(KeyServerURL)),
		DownloadDir:  strings.TrimSpace(v.GetString(KeyDownloadDir)),
		MaxParallel:  v.GetInt(KeyMaxParallel),
		PollInterval: v.GetDuration(KeyPollInterval),
		ResetDelay:   v.GetDuration(KeyResetDelay),
		HTTPTimeout:  v.GetDuration(KeyHTTPTimeout),
		LogLevel:     v.GetString(KeyLogLevel),
		Language:     v.GetString(KeyLanguage),
		AutoReveal:   v.GetBool(KeyAutoReveal),
		Compress:     v.GetBool(KeyCompress),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
