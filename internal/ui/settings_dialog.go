package ui

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/yt-webclient/internal/config"
)

// SettingsDialog edits the persisted preferences
type SettingsDialog struct {
	settings     *config.Settings
	localization *Localization
	window       fyne.Window
	onSaved      func(before, after config.Config)

	serverEntry      *widget.Entry
	downloadDirEntry *widget.Entry
	maxParallelEntry *widget.Entry
	pollEntry        *widget.Entry
	languageSelect   *widget.Select
	autoRevealCheck  *widget.Check
	compressCheck    *widget.Check

	languageCodes []string
	dialog        dialog.Dialog
}

// ShowSettingsDialog opens the dialog; onSaved receives the configuration
// before and after a successful save.
func ShowSettingsDialog(window fyne.Window, settings *config.Settings, localization *Localization, onSaved func(before, after config.Config)) *SettingsDialog {
	sd := NewSettingsDialog(window, settings, localization, onSaved)
	sd.Show()
	return sd
}

// NewSettingsDialog builds the dialog without showing it
func NewSettingsDialog(window fyne.Window, settings *config.Settings, localization *Localization, onSaved func(before, after config.Config)) *SettingsDialog {
	sd := &SettingsDialog{
		settings:     settings,
		localization: localization,
		window:       window,
		onSaved:      onSaved,
	}
	sd.createUI()
	return sd
}

// Show loads the current values and displays the dialog
func (sd *SettingsDialog) Show() {
	sd.loadCurrentSettings()
	sd.dialog.Show()
}

func (sd *SettingsDialog) createUI() {
	text := sd.localization.GetText

	sd.serverEntry = widget.NewEntry()
	sd.serverEntry.SetPlaceHolder(config.DefaultServerURL)
	sd.serverEntry.Validator = validateServerURL

	sd.downloadDirEntry = widget.NewEntry()
	browseBtn := widget.NewButton(text(KeyBrowse), sd.onBrowseDirectory)
	downloadDirRow := container.NewBorder(nil, nil, nil, browseBtn, sd.downloadDirEntry)

	sd.maxParallelEntry = widget.NewEntry()
	sd.maxParallelEntry.SetPlaceHolder(fmt.Sprintf("%d-%d", config.MinMaxParallel, config.MaxMaxParallel))
	sd.maxParallelEntry.Validator = intRangeValidator(config.MinMaxParallel, config.MaxMaxParallel)

	sd.pollEntry = widget.NewEntry()
	sd.pollEntry.SetPlaceHolder(strconv.Itoa(int(config.DefaultPollInterval / time.Millisecond)))
	sd.pollEntry.Validator = intRangeValidator(int(config.MinPollInterval/time.Millisecond), int(config.MaxPollInterval/time.Millisecond))

	options := sd.settings.GetLanguageOptions()
	sd.languageCodes = make([]string, 0, len(options))
	for code := range options {
		sd.languageCodes = append(sd.languageCodes, code)
	}
	slices.Sort(sd.languageCodes)
	labels := make([]string, len(sd.languageCodes))
	for i, code := range sd.languageCodes {
		labels[i] = options[code]
	}
	sd.languageSelect = widget.NewSelect(labels, nil)

	sd.autoRevealCheck = widget.NewCheck(text(KeyAutoReveal), nil)
	sd.compressCheck = widget.NewCheck(text(KeyCompress), nil)

	items := []*widget.FormItem{
		widget.NewFormItem(text(KeyServerURL), sd.serverEntry),
		widget.NewFormItem(text(KeyDownloadDirectory), downloadDirRow),
		widget.NewFormItem(text(KeyMaxParallel), sd.maxParallelEntry),
		widget.NewFormItem(text(KeyPollInterval), sd.pollEntry),
		widget.NewFormItem(text(KeyLanguage), sd.languageSelect),
		widget.NewFormItem("", sd.autoRevealCheck),
		widget.NewFormItem("", sd.compressCheck),
	}

	sd.dialog = dialog.NewForm(text(KeySettings), text(KeySave), text(KeyCancel), items, sd.onSave, sd.window)
	sd.dialog.Resize(fyne.NewSize(SettingsDialogWidth, SettingsDialogHeight))
}

func (sd *SettingsDialog) loadCurrentSettings() {
	sd.serverEntry.SetText(sd.settings.GetServerURL())
	sd.downloadDirEntry.SetText(sd.settings.GetDownloadDirectory())
	sd.maxParallelEntry.SetText(strconv.Itoa(sd.settings.GetMaxParallelDownloads()))
	sd.pollEntry.SetText(strconv.Itoa(int(sd.settings.GetPollInterval() / time.Millisecond)))
	if i := slices.Index(sd.languageCodes, sd.settings.GetLanguage()); i >= 0 {
		sd.languageSelect.SetSelectedIndex(i)
	}
	sd.autoRevealCheck.SetChecked(sd.settings.GetAutoRevealOnComplete())
	sd.compressCheck.SetChecked(sd.settings.GetCompressAfterDownload())
}

func (sd *SettingsDialog) onBrowseDirectory() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		sd.downloadDirEntry.SetText(uri.Path())
	}, sd.window)
}

// onSave persists the form. The form dialog only confirms when every
// validator passes.
func (sd *SettingsDialog) onSave(confirmed bool) {
	if !confirmed {
		return
	}
	before := sd.settings.Config()

	sd.settings.SetServerURL(sd.serverEntry.Text)
	if dir := strings.TrimSpace(sd.downloadDirEntry.Text); dir != "" {
		sd.settings.SetDownloadDirectory(dir)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(sd.maxParallelEntry.Text)); err == nil {
		sd.settings.SetMaxParallelDownloads(n)
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(sd.pollEntry.Text)); err == nil {
		sd.settings.SetPollInterval(time.Duration(ms) * time.Millisecond)
	}
	if i := sd.languageSelect.SelectedIndex(); i >= 0 && i < len(sd.languageCodes) {
		sd.settings.SetLanguage(sd.languageCodes[i])
	}
	sd.settings.SetAutoRevealOnComplete(sd.autoRevealCheck.Checked)
	sd.settings.SetCompressAfterDownload(sd.compressCheck.Checked)

	if sd.onSaved != nil {
		sd.onSaved(before, sd.settings.Config())
	}
}

func validateServerURL(s string) error {
	cfg := config.Default()
	cfg.ServerURL = strings.TrimSpace(s)
	return cfg.Validate()
}

func intRangeValidator(lo, hi int) fyne.StringValidator {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return errors.New("enter a whole number")
		}
		if n < lo || n > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}
