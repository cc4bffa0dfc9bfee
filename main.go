package main

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/spf13/viper"

	"github.com/ytget/yt-webclient/internal/api"
	"github.com/ytget/yt-webclient/internal/compress"
	"github.com/ytget/yt-webclient/internal/config"
	"github.com/ytget/yt-webclient/internal/download"
	"github.com/ytget/yt-webclient/internal/logger"
	"github.com/ytget/yt-webclient/internal/platform"
	"github.com/ytget/yt-webclient/internal/session"
	"github.com/ytget/yt-webclient/internal/ui"
	"github.com/ytget/yt-webclient/internal/view"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppID   = "com.ytget.yt-webclient"
	AppName = "YT Web Client"
)

func main() {
	// Timeouts and the log level come from the environment; everything the
	// settings dialog edits lives in the Fyne preferences.
	env := config.Default()
	if err := config.LoadDotEnv(); err != nil {
		fmt.Printf("failed to load .env: %v\n", err)
	}
	if cfg, err := config.Load(viper.New(), ""); err == nil {
		env = *cfg
	} else {
		fmt.Printf("ignoring invalid configuration: %v\n", err)
	}

	log := logger.New(env.LogLevel)
	log.WithField("version", version).Infof("%s starting", AppName)

	myApp := app.NewWithID(AppID)
	myApp.Settings().SetTheme(ui.NewCompactTheme())

	myWindow := myApp.NewWindow(fmt.Sprintf("%s v%s", AppName, version))
	myWindow.Resize(fyne.NewSize(ui.WindowWidth, ui.WindowHeight))

	settings := config.NewSettings(myApp)
	downloadsDir := settings.GetDownloadDirectory()
	if err := platform.CreateDirectoryIfNotExists(downloadsDir); err != nil {
		log.WithError(err).WithField("dir", downloadsDir).Warn("Failed to ensure downloads dir")
	}

	retriever := download.NewService(downloadsDir, settings.GetMaxParallelDownloads(), download.WithLogger(log))
	compressor := compress.NewService(compress.WithLogger(log))

	newController := func(cfg config.Config, p view.Presenter) (ui.Controller, error) {
		client, err := api.NewClient(cfg.ServerURL,
			api.WithTimeout(env.HTTPTimeout),
			api.WithLogger(log),
		)
		if err != nil {
			return nil, err
		}
		return session.New(client, p, session.Options{
			PollInterval: cfg.PollInterval,
			ResetDelay:   env.ResetDelay,
			Navigator:    retriever,
			Logger:       log,
		}), nil
	}

	rootUI, err := ui.NewRootUI(myWindow, myApp, settings, ui.Services{
		Retriever:     retriever,
		Compressor:    compressor,
		NewController: newController,
		Logger:        log,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create main window")
	}

	myWindow.ShowAndRun()
	rootUI.Close()
}
