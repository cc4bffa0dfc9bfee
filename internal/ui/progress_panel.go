package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/yt-webclient/internal/view"
)

// ProgressPanel shows the server-side progress of the active job
type ProgressPanel struct {
	localization *Localization

	bar         *widget.ProgressBar
	spinner     *widget.ProgressBarInfinite
	statusLabel *widget.Label
	speedLabel  *widget.Label
	etaLabel    *widget.Label
	sizeLabel   *widget.Label
	content     *fyne.Container

	shown view.ProgressPanel
}

// NewProgressPanel creates an empty progress panel
func NewProgressPanel(localization *Localization) *ProgressPanel {
	pp := &ProgressPanel{localization: localization}

	pp.bar = widget.NewProgressBar()
	pp.bar.Min, pp.bar.Max = 0, 100
	pp.spinner = widget.NewProgressBarInfinite()
	pp.spinner.Hide()

	pp.statusLabel = widget.NewLabel("")
	pp.statusLabel.Wrapping = fyne.TextWrapWord
	pp.speedLabel = widget.NewLabel("")
	pp.etaLabel = widget.NewLabel("")
	pp.sizeLabel = widget.NewLabel("")

	pp.content = container.NewVBox(
		container.NewStack(pp.bar, pp.spinner),
		pp.statusLabel,
		container.NewGridWithColumns(3, pp.speedLabel, pp.etaLabel, pp.sizeLabel),
	)
	return pp
}

// Container returns the panel's root object
func (pp *ProgressPanel) Container() *fyne.Container {
	return pp.content
}

// Update renders p. Must be called on the UI goroutine.
func (pp *ProgressPanel) Update(p view.ProgressPanel) {
	pp.shown = p

	if p.Indeterminate {
		pp.bar.Hide()
		pp.spinner.Show()
	} else {
		pp.spinner.Hide()
		pp.bar.Show()
		pp.bar.SetValue(p.Percent)
	}

	pp.statusLabel.SetText(p.StatusText)
	pp.speedLabel.SetText(pp.localization.GetText(KeySpeed) + ": " + p.Speed)
	pp.etaLabel.SetText(pp.localization.GetText(KeyETA) + ": " + p.ETA)
	pp.sizeLabel.SetText(pp.localization.GetText(KeySize) + ": " + p.Size)
}
