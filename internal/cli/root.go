// Package cli is the terminal front end: a cobra command tree whose flags
// are bound to viper, sharing config.Config and the session controller with
// the desktop application.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ytget/yt-webclient/internal/api"
	"github.com/ytget/yt-webclient/internal/config"
	"github.com/ytget/yt-webclient/internal/logger"
	"github.com/ytget/yt-webclient/internal/session"
	"github.com/ytget/yt-webclient/internal/view"
)

// Flag names; each maps to the config key of the same name with dashes
// replaced by underscores
const (
	FlagConfig       = "config"
	FlagServerURL    = "server-url"
	FlagDownloadDir  = "download-dir"
	FlagMaxParallel  = "max-parallel"
	FlagPollInterval = "poll-interval"
	FlagResetDelay   = "reset-delay"
	FlagHTTPTimeout  = "http-timeout"
	FlagLogLevel     = "log-level"
	FlagCompress     = "compress"
)

// Version is printed by --version
var Version = "dev"

// App holds what every command needs once flags are parsed
type App struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     *logrus.Logger
	out     io.Writer
	errOut  io.Writer
}

// shownError marks an error the terminal presenter already printed
type shownError struct{ err error }

func (e *shownError) Error() string { return e.err.Error() }
func (e *shownError) Unwrap() error { return e.err }

func shown(err error) error {
	if err == nil {
		return nil
	}
	return &shownError{err: err}
}

// NewRootCmd builds the command tree writing results to out and logs and
// errors to errOut
func NewRootCmd(out, errOut io.Writer) (*cobra.Command, error) {
	a := &App{v: viper.New(), out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:           "yt-webclient",
		Short:         "Client for the video download service",
		Long:          "Fetch video details and download files through a yt-web download service.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	if err := a.bindFlags(rootCmd); err != nil {
		return nil, err
	}

	rootCmd.AddCommand(newInfoCmd(a))
	rootCmd.AddCommand(newGetCmd(a))
	return rootCmd, nil
}

// Execute runs the command tree with the process streams and returns the
// exit code
func Execute(ctx context.Context, args []string) int {
	rootCmd, err := NewRootCmd(os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var se *shownError
		if !errors.As(err, &se) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (a *App) bindFlags(rootCmd *cobra.Command) error {
	d := config.Default()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&a.cfgFile, FlagConfig, "", "config file (default ./config.yaml or $HOME/.config/yt-webclient/config.yaml)")
	flags.String(FlagServerURL, d.ServerURL, "base URL of the download service")
	flags.String(FlagDownloadDir, d.DownloadDir, "directory finished files are saved to")
	flags.Int(FlagMaxParallel, d.MaxParallel, "maximum parallel file retrievals")
	flags.Duration(FlagPollInterval, d.PollInterval, "interval between status checks")
	flags.Duration(FlagResetDelay, d.ResetDelay, "delay before the format list is shown again")
	flags.Duration(FlagHTTPTimeout, d.HTTPTimeout, "per-request timeout, 0 for none")
	flags.String(FlagLogLevel, d.LogLevel, "log level (debug, info, warn, error)")
	flags.Bool(FlagCompress, d.Compress, "re-encode the downloaded video with ffmpeg")

	bindings := map[string]string{
		config.KeyServerURL:    FlagServerURL,
		config.KeyDownloadDir:  FlagDownloadDir,
		config.KeyMaxParallel:  FlagMaxParallel,
		config.KeyPollInterval: FlagPollInterval,
		config.KeyResetDelay:   FlagResetDelay,
		config.KeyHTTPTimeout:  FlagHTTPTimeout,
		config.KeyLogLevel:     FlagLogLevel,
		config.KeyCompress:     FlagCompress,
	}
	for key, flag := range bindings {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

func (a *App) init() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.NewWithOutput(cfg.LogLevel, a.errOut)
	a.log.WithField("server_url", cfg.ServerURL).Debug("Configuration loaded")
	return nil
}

func (a *App) newController(p view.Presenter, nav session.Navigator) (*session.Controller, error) {
	client, err := api.NewClient(a.cfg.ServerURL,
		api.WithTimeout(a.cfg.HTTPTimeout),
		api.WithLogger(a.log),
	)
	if err != nil {
		return nil, err
	}
	return session.New(client, p, session.Options{
		PollInterval: a.cfg.PollInterval,
		ResetDelay:   a.cfg.ResetDelay,
		Navigator:    nav,
		Logger:       a.log,
	}), nil
}
