package ui

import (
	"image/color"
	"slices"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"github.com/ytget/yt-webclient/internal/view"
)

// VideoPanel shows the fetched metadata and one row per format with its own
// Download button.
type VideoPanel struct {
	device       *DeviceLayout
	localization *Localization
	log          logrus.FieldLogger
	onDownload   func(formatID string)

	thumbnail     *canvas.Image
	titleLabel    *widget.Label
	uploaderLabel *widget.Label
	durationLabel *widget.Label
	formatsTitle  *widget.Label
	formats       *fyne.Container
	content       *fyne.Container

	shown        view.VideoPanel
	thumbnailURL string
	buttons      map[string]*widget.Button
}

// NewVideoPanel creates an empty panel; onDownload receives the format ID
// of the tapped row.
func NewVideoPanel(device *DeviceLayout, localization *Localization, log logrus.FieldLogger, onDownload func(formatID string)) *VideoPanel {
	vp := &VideoPanel{
		device:       device,
		localization: localization,
		log:          log,
		onDownload:   onDownload,
		buttons:      make(map[string]*widget.Button),
	}
	vp.createUI()
	return vp
}

func (vp *VideoPanel) createUI() {
	vp.thumbnail = canvas.NewImageFromResource(nil)
	vp.thumbnail.FillMode = canvas.ImageFillContain
	vp.thumbnail.SetMinSize(fyne.NewSize(ThumbnailWidth, ThumbnailHeight))

	vp.titleLabel = widget.NewLabel("")
	vp.titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	vp.titleLabel.Wrapping = fyne.TextWrapWord
	vp.uploaderLabel = widget.NewLabel("")
	vp.durationLabel = widget.NewLabel("")

	details := container.NewVBox(vp.titleLabel, vp.uploaderLabel, vp.durationLabel)

	vp.formatsTitle = widget.NewLabel("")
	vp.formatsTitle.TextStyle = fyne.TextStyle{Bold: true}
	vp.formats = container.NewVBox()

	vp.content = container.NewVBox(
		vp.device.Header(vp.thumbnail, details),
		widget.NewSeparator(),
		vp.formatsTitle,
		vp.formats,
	)
	vp.refreshTexts()
}

// Container returns the panel's root object
func (vp *VideoPanel) Container() *fyne.Container {
	return vp.content
}

// Update renders panel. Rows are rebuilt only when the format list changed.
// Must be called on the UI goroutine.
func (vp *VideoPanel) Update(panel view.VideoPanel) {
	vp.titleLabel.SetText(panel.Title)
	vp.uploaderLabel.SetText(vp.localization.GetText(KeyUploader) + ": " + panel.Uploader)
	vp.durationLabel.SetText(vp.localization.GetText(KeyDuration) + ": " + panel.Duration)

	if panel.ThumbnailURL != vp.thumbnailURL {
		vp.thumbnailURL = panel.ThumbnailURL
		vp.loadThumbnail(panel.ThumbnailURL)
	}

	if !slices.Equal(panel.Formats, vp.shown.Formats) {
		vp.rebuildFormats(panel.Formats)
	}
	vp.shown = panel
}

func (vp *VideoPanel) refreshTexts() {
	vp.formatsTitle.SetText(vp.localization.GetText(KeyFormats))
	for _, btn := range vp.buttons {
		btn.SetText(vp.localization.GetText(KeyDownload))
	}
	if vp.shown.Title != "" {
		vp.Update(vp.shown)
	}
}

func (vp *VideoPanel) rebuildFormats(rows []view.FormatRow) {
	vp.formats.RemoveAll()
	clear(vp.buttons)

	for _, row := range rows {
		vp.formats.Add(vp.createFormatRow(row))
	}
	vp.formats.Refresh()
}

func (vp *VideoPanel) createFormatRow(row view.FormatRow) fyne.CanvasObject {
	formatID := row.FormatID

	icon := IconVideo
	if row.AudioOnly {
		icon = IconMusic
	}
	resolution := widget.NewLabel(icon + " " + row.Resolution)
	description := widget.NewLabel(row.Description)
	description.Truncation = fyne.TextTruncateEllipsis
	fps := widget.NewLabel(row.FPS)
	fps.Alignment = fyne.TextAlignTrailing
	size := widget.NewLabel(row.Size)
	size.Alignment = fyne.TextAlignTrailing

	btn, btnObj := vp.device.ActionButton(vp.localization.GetText(KeyDownload), func() {
		if vp.onDownload != nil {
			vp.onDownload(formatID)
		}
	})
	btn.Importance = widget.HighImportance
	vp.buttons[formatID] = btn

	right := container.NewHBox(
		fixedWidth(FPSColumnWidth, fps),
		fixedWidth(SizeColumnWidth, size),
		btnObj,
	)
	return container.NewBorder(nil, nil, fixedWidth(ResolutionColumnWidth, resolution), right, description)
}

// loadThumbnail fetches the image off the UI goroutine; a response for a URL
// that is no longer shown is dropped.
func (vp *VideoPanel) loadThumbnail(rawURL string) {
	vp.thumbnail.Resource = nil
	vp.thumbnail.Refresh()
	if rawURL == "" {
		return
	}

	go func() {
		res, err := fyne.LoadResourceFromURLString(rawURL)
		if err != nil {
			vp.log.WithError(err).WithField("url", rawURL).Debug("Thumbnail not loaded")
			return
		}
		fyne.Do(func() {
			if vp.thumbnailURL != rawURL {
				return
			}
			vp.thumbnail.Resource = res
			vp.thumbnail.Refresh()
		})
	}()
}

// fixedWidth pins obj to at least w using a transparent spacer underneath
func fixedWidth(w float32, obj fyne.CanvasObject) fyne.CanvasObject {
	spacer := canvas.NewRectangle(color.Transparent)
	spacer.SetMinSize(fyne.NewSize(w, obj.MinSize().Height))
	return container.NewStack(spacer, obj)
}
