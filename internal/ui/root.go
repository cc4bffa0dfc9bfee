// Package ui is the Fyne desktop presenter. It renders session states into
// the main window and lists the files retrieved after each completed job.
// All widget mutation happens on the Fyne UI goroutine via fyne.Do.
package ui

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"github.com/ytget/yt-webclient/internal/compress"
	"github.com/ytget/yt-webclient/internal/config"
	"github.com/ytget/yt-webclient/internal/download"
	"github.com/ytget/yt-webclient/internal/logger"
	"github.com/ytget/yt-webclient/internal/model"
	"github.com/ytget/yt-webclient/internal/platform"
	"github.com/ytget/yt-webclient/internal/session"
	"github.com/ytget/yt-webclient/internal/view"
)

// SplitOffset is the share of the window given to the session panels
const SplitOffset = 0.65

// Controller is the part of the session controller the window drives
type Controller interface {
	Submit(ctx context.Context, rawURL string) error
	Download(ctx context.Context, formatID string) error
	Close()
}

// ControllerFactory builds a controller that renders into p
type ControllerFactory func(cfg config.Config, p view.Presenter) (Controller, error)

// Services are the collaborators of the window. Compressor is optional.
type Services struct {
	Retriever     download.Retriever
	Compressor    compress.Compressor
	NewController ControllerFactory
	Logger        logrus.FieldLogger
}

// RootUI is the main window. It renders session states and lists the files
// retrieved after each completed job.
type RootUI struct {
	window       fyne.Window
	app          fyne.App
	settings     *config.Settings
	localization *Localization
	device       *DeviceLayout
	log          *logrus.Entry
	svcs         Services

	ctx    context.Context
	cancel context.CancelFunc

	ctrlMu  sync.Mutex
	ctrl    Controller
	ctrlGen uint64

	urlEntry     *widget.Entry
	fetchBtn     *widget.Button
	settingsBtn  *widget.Button
	loadingLabel *widget.Label
	loading      *fyne.Container
	errorLabel   *widget.Label
	errorBanner  *fyne.Container
	video        *VideoPanel
	progress     *ProgressPanel
	filesTitle   *widget.Label
	filesList    *widget.List

	filesMu sync.Mutex
	files   []*model.DownloadTask

	// last applied state; UI goroutine only
	state view.State
}

// NewRootUI builds the window content and the first controller
func NewRootUI(window fyne.Window, app fyne.App, settings *config.Settings, svcs Services) (*RootUI, error) {
	if svcs.NewController == nil || svcs.Retriever == nil {
		return nil, errors.New("ui: retriever and controller factory are required")
	}
	if svcs.Logger == nil {
		svcs.Logger = logger.Discard()
	}

	localization := NewLocalization()
	localization.SetLanguage(settings.GetLanguage())

	ui := &RootUI{
		window:       window,
		app:          app,
		settings:     settings,
		localization: localization,
		device:       NewDeviceLayout(),
		log:          logger.Component(svcs.Logger, "ui"),
		svcs:         svcs,
	}
	ui.ctx, ui.cancel = context.WithCancel(context.Background())

	ctrl, err := svcs.NewController(settings.Config(), ui.presenterFor(0))
	if err != nil {
		ui.cancel()
		return nil, err
	}
	ui.ctrl = ctrl

	ui.setupUI()
	svcs.Retriever.SetUpdateCallback(ui.onTaskUpdate)
	if svcs.Compressor != nil {
		svcs.Compressor.SetUpdateCallback(ui.onCompressionUpdate)
	}
	return ui, nil
}

// presenterFor returns the presenter of the controller built as generation
// gen. It may be called from any goroutine.
func (ui *RootUI) presenterFor(gen uint64) view.Presenter {
	return view.PresenterFunc(func(state view.State) {
		fyne.Do(func() { ui.applyFrom(gen, state) })
	})
}

// applyFrom drops states of replaced controllers, including those already
// queued on the UI goroutine when the replacement happened.
func (ui *RootUI) applyFrom(gen uint64, state view.State) {
	ui.ctrlMu.Lock()
	current := ui.ctrlGen
	ui.ctrlMu.Unlock()
	if gen != current {
		return
	}
	ui.apply(state)
}

// Close stops the controller and any request in flight
func (ui *RootUI) Close() {
	ui.cancel()
	ui.controller().Close()
}

func (ui *RootUI) controller() Controller {
	ui.ctrlMu.Lock()
	defer ui.ctrlMu.Unlock()
	return ui.ctrl
}

func (ui *RootUI) setupUI() {
	ui.createMenu()

	ui.urlEntry = widget.NewEntry()
	ui.urlEntry.OnSubmitted = func(string) { ui.onFetch() }

	ui.fetchBtn = widget.NewButton("", ui.onFetch)
	ui.fetchBtn.Importance = widget.HighImportance

	ui.settingsBtn = widget.NewButton(IconSettings, ui.onShowSettings)
	ui.settingsBtn.Importance = widget.LowImportance

	urlRow := container.NewBorder(nil, nil, ui.settingsBtn, ui.fetchBtn, ui.urlEntry)

	ui.loadingLabel = widget.NewLabel("")
	ui.loading = container.NewStack(widget.NewProgressBarInfinite(), container.NewCenter(ui.loadingLabel))
	ui.loading.Hide()

	ui.errorLabel = widget.NewLabel("")
	ui.errorLabel.Importance = widget.DangerImportance
	ui.errorLabel.Wrapping = fyne.TextWrapWord
	ui.errorBanner = container.NewBorder(nil, nil, widget.NewIcon(theme.ErrorIcon()), nil, ui.errorLabel)
	ui.errorBanner.Hide()

	ui.video = NewVideoPanel(ui.device, ui.localization, ui.log, ui.onDownload)
	ui.video.Container().Hide()

	ui.progress = NewProgressPanel(ui.localization)
	ui.progress.Container().Hide()

	ui.filesTitle = widget.NewLabel("")
	ui.filesTitle.TextStyle = fyne.TextStyle{Bold: true}
	actions := TaskRowActions{
		OnReveal: ui.onRevealFile,
		OnOpen:   ui.onOpenFile,
		OnCopy:   ui.onCopyPath,
		OnStop:   ui.onStopTask,
		OnRemove: ui.onRemoveTask,
	}
	ui.filesList = widget.NewList(
		func() int {
			ui.filesMu.Lock()
			defer ui.filesMu.Unlock()
			return len(ui.files)
		},
		func() fyne.CanvasObject { return NewTaskRow(ui.localization, actions) },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			ui.filesMu.Lock()
			var task *model.DownloadTask
			if id < len(ui.files) {
				task = ui.files[id]
			}
			ui.filesMu.Unlock()
			if row, ok := obj.(*TaskRow); ok {
				row.UpdateTask(task)
			}
		},
	)

	header := container.NewVBox(urlRow, ui.loading, ui.errorBanner)
	panels := container.NewVScroll(container.NewVBox(ui.video.Container(), ui.progress.Container()))
	files := container.NewBorder(ui.filesTitle, nil, nil, nil, ui.filesList)
	split := container.NewVSplit(panels, files)
	split.Offset = SplitOffset

	ui.window.SetContent(container.NewBorder(header, nil, nil, nil, split))
	ui.refreshUITexts()
}

func (ui *RootUI) createMenu() {
	settingsItem := fyne.NewMenuItem(ui.localization.GetText(KeySettings), ui.onShowSettings)

	languageMenu := fyne.NewMenu(ui.localization.GetText(KeyLanguage))
	available := ui.localization.GetAvailableLanguages()
	codes := make([]string, 0, len(available))
	for code := range available {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		item := fyne.NewMenuItem(available[code], func() { ui.onLanguageChange(code) })
		item.Checked = ui.localization.GetCurrentLanguage() == code
		languageMenu.Items = append(languageMenu.Items, item)
	}

	ui.window.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu(ui.localization.GetText(KeyFile), settingsItem),
		languageMenu,
	))
}

func (ui *RootUI) onLanguageChange(code string) {
	ui.localization.SetLanguage(code)
	ui.settings.SetLanguage(code)
	ui.refreshUITexts()
	ui.createMenu()
}

func (ui *RootUI) refreshUITexts() {
	text := ui.localization.GetText
	ui.window.SetTitle(text(KeyAppTitle))
	ui.urlEntry.SetPlaceHolder(text(KeyEnterURL))
	ui.fetchBtn.SetText(text(KeyFetch))
	ui.loadingLabel.SetText(text(KeyFetchingInfo))
	ui.filesTitle.SetText(text(KeyRetrievedFiles))
	ui.video.refreshTexts()
	if ui.state.ProgressVisible {
		ui.progress.Update(ui.state.Progress)
	}
	ui.filesList.Refresh()
}

// apply shows state. Must run on the UI goroutine.
func (ui *RootUI) apply(state view.State) {
	ui.state = state

	setVisible(ui.loading, state.LoadingVisible)
	if state.LoadingVisible {
		ui.fetchBtn.Disable()
	} else {
		ui.fetchBtn.Enable()
	}

	ui.errorLabel.SetText(state.ErrorText)
	setVisible(ui.errorBanner, state.ErrorVisible)

	if state.MetadataVisible {
		ui.video.Update(state.Video)
	}
	setVisible(ui.video.Container(), state.MetadataVisible)

	if state.ProgressVisible {
		ui.progress.Update(state.Progress)
	}
	setVisible(ui.progress.Container(), state.ProgressVisible)
}

func setVisible(obj fyne.CanvasObject, visible bool) {
	if visible {
		obj.Show()
	} else {
		obj.Hide()
	}
}

func (ui *RootUI) onFetch() {
	raw := ui.urlEntry.Text
	ctrl := ui.controller()
	go func() {
		if err := ctrl.Submit(ui.ctx, raw); err != nil && !errors.Is(err, session.ErrSuperseded) {
			ui.log.WithError(err).Debug("Metadata request failed")
		}
	}()
}

func (ui *RootUI) onDownload(formatID string) {
	ctrl := ui.controller()
	go func() {
		if err := ctrl.Download(ui.ctx, formatID); err != nil {
			ui.log.WithError(err).WithField("format_id", formatID).Debug("Download request failed")
		}
	}()
}

func (ui *RootUI) onShowSettings() {
	ShowSettingsDialog(ui.window, ui.settings, ui.localization, ui.applySettings)
}

// applySettings pushes saved preferences into the running services. A new
// server URL or poll interval replaces the controller, abandoning its flow.
func (ui *RootUI) applySettings(before, after config.Config) {
	if err := platform.CreateDirectoryIfNotExists(after.DownloadDir); err != nil {
		ui.log.WithError(err).WithField("dir", after.DownloadDir).Warn("Download directory not created")
	}
	ui.svcs.Retriever.SetDownloadDirectory(after.DownloadDir)
	ui.svcs.Retriever.SetMaxParallelDownloads(after.MaxParallel)

	if before.Language != after.Language {
		ui.localization.SetLanguage(after.Language)
		ui.refreshUITexts()
		ui.createMenu()
	}

	if before.ServerURL != after.ServerURL || before.PollInterval != after.PollInterval {
		if err := ui.replaceController(after); err != nil {
			ui.showToast(ui.localization.GetText(KeyInvalidSettings) + ": " + err.Error())
			return
		}
	}
	ui.showToast(ui.localization.GetText(KeySettingsSaved))
}

func (ui *RootUI) replaceController(cfg config.Config) error {
	ui.ctrlMu.Lock()
	gen := ui.ctrlGen + 1
	ui.ctrlMu.Unlock()

	ctrl, err := ui.svcs.NewController(cfg, ui.presenterFor(gen))
	if err != nil {
		return err
	}

	ui.ctrlMu.Lock()
	old := ui.ctrl
	ui.ctrl = ctrl
	ui.ctrlGen = gen
	ui.ctrlMu.Unlock()

	ui.log.WithField("server_url", cfg.ServerURL).Info("Controller replaced")
	go old.Close()
	ui.apply(view.State{})
	return nil
}

// onTaskUpdate handles task updates from the retrieval service
func (ui *RootUI) onTaskUpdate(task *model.DownloadTask) {
	ui.filesMu.Lock()
	i := slices.IndexFunc(ui.files, func(t *model.DownloadTask) bool { return t.ID == task.ID })
	completed := task.Status == model.TaskStatusCompleted
	if i >= 0 {
		completed = completed && ui.files[i].Status != model.TaskStatusCompleted
		ui.files[i] = task
	} else {
		ui.files = append(ui.files, task)
	}
	ui.filesMu.Unlock()

	ui.log.WithFields(logrus.Fields{"task": task.ID, "status": task.Status, "percent": task.Percent}).Debug("Retrieval update")

	if completed {
		ui.onRetrieved(task)
	}
	fyne.Do(ui.filesList.Refresh)
}

// onRetrieved runs the post-retrieval actions enabled in the settings
func (ui *RootUI) onRetrieved(task *model.DownloadTask) {
	ui.app.SendNotification(fyne.NewNotification(ui.localization.GetText(KeyDownloadCompleted), task.GetDisplayTitle()))

	if ui.settings.GetAutoRevealOnComplete() {
		if err := platform.OpenFileInManager(task.OutputPath); err != nil {
			ui.log.WithError(err).WithField("path", task.OutputPath).Warn("Reveal failed")
		}
	}

	c := ui.svcs.Compressor
	if ui.settings.GetCompressAfterDownload() && c != nil && c.Available() {
		c.HandleRetrieved(task)
	}
}

func (ui *RootUI) onCompressionUpdate(task *model.CompressionTask) {
	switch task.Status {
	case model.TaskStatusCompleted:
		ui.app.SendNotification(fyne.NewNotification(ui.localization.GetText(KeyCompressionDone), filepath.Base(task.OutputPath)))
	case model.TaskStatusError:
		ui.log.WithField("path", task.InputPath).Warn("Compression failed: " + task.LastError)
	}
}

func (ui *RootUI) onRevealFile(filePath string) {
	if err := platform.OpenFileInManager(filePath); err != nil {
		ui.showToast(ui.localization.GetText(KeyErrorOpeningFile) + ": " + err.Error())
	}
}

func (ui *RootUI) onOpenFile(filePath string) {
	if err := platform.OpenFileWithDefaultApp(filePath); err != nil {
		ui.showToast(ui.localization.GetText(KeyErrorOpeningFile) + ": " + err.Error())
	}
}

func (ui *RootUI) onCopyPath(filePath string) {
	ui.app.Clipboard().SetContent(filePath)
	ui.showToast(ui.localization.GetText(KeyPathCopied))
}

func (ui *RootUI) onStopTask(taskID string) {
	if err := ui.svcs.Retriever.StopTask(taskID); err != nil {
		ui.showToast(err.Error())
	}
}

func (ui *RootUI) onRemoveTask(taskID string) {
	if err := ui.svcs.Retriever.RemoveTask(taskID); err != nil {
		ui.showToast(err.Error())
		return
	}

	ui.filesMu.Lock()
	ui.files = slices.DeleteFunc(ui.files, func(t *model.DownloadTask) bool { return t.ID == taskID })
	ui.filesMu.Unlock()
	ui.filesList.Refresh()
}

// showToast shows a transient message. Must run on the UI goroutine.
func (ui *RootUI) showToast(message string) {
	popup := widget.NewPopUp(widget.NewLabel(message), ui.window.Canvas())
	popup.Show()
	time.AfterFunc(ToastAutoHide, func() { fyne.Do(popup.Hide) })
}
