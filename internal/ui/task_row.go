package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/yt-webclient/internal/model"
)

// TaskRowActions are the callbacks behind a row's buttons
type TaskRowActions struct {
	OnReveal func(filePath string)
	OnOpen   func(filePath string)
	OnCopy   func(filePath string)
	OnStop   func(taskID string)
	OnRemove func(taskID string)
}

// TaskRow shows one local file retrieval
type TaskRow struct {
	widget.BaseWidget

	task         *model.DownloadTask
	localization *Localization
	actions      TaskRowActions

	titleLabel    *widget.Label
	statusLabel   *widget.Label
	progressLabel *widget.Label
	speedEtaLabel *widget.Label

	revealBtn *widget.Button
	openBtn   *widget.Button
	copyBtn   *widget.Button
	stopBtn   *widget.Button
	removeBtn *widget.Button
}

// NewTaskRow creates an unbound row, as used for list item templates
func NewTaskRow(localization *Localization, actions TaskRowActions) *TaskRow {
	tr := &TaskRow{
		task:         &model.DownloadTask{Status: model.TaskStatusPending},
		localization: localization,
		actions:      actions,
	}
	tr.ExtendBaseWidget(tr)
	tr.createUI()
	return tr
}

// UpdateTask binds the row to task and refreshes it
func (tr *TaskRow) UpdateTask(task *model.DownloadTask) {
	if task == nil {
		return
	}
	tr.task = task
	tr.updateFromTask()
	tr.Refresh()
}

func (tr *TaskRow) createUI() {
	tr.titleLabel = widget.NewLabel("")
	tr.titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	tr.titleLabel.Truncation = fyne.TextTruncateEllipsis

	tr.statusLabel = widget.NewLabel("")
	tr.statusLabel.Alignment = fyne.TextAlignTrailing
	tr.progressLabel = widget.NewLabel("")
	tr.progressLabel.Alignment = fyne.TextAlignTrailing
	tr.speedEtaLabel = widget.NewLabel("")
	tr.speedEtaLabel.TextStyle = fyne.TextStyle{Monospace: true}

	// Handlers read tr.task at tap time: list rows are recycled.
	tr.revealBtn = widget.NewButton(IconFolder, func() { tr.withPath(tr.actions.OnReveal) })
	tr.openBtn = widget.NewButton(IconPlay, func() { tr.withPath(tr.actions.OnOpen) })
	tr.copyBtn = widget.NewButton(IconCopy, func() { tr.withPath(tr.actions.OnCopy) })
	tr.stopBtn = widget.NewButton(IconStop, func() { tr.withID(tr.actions.OnStop) })
	tr.removeBtn = widget.NewButton(IconClose, func() { tr.withID(tr.actions.OnRemove) })
	for _, btn := range []*widget.Button{tr.revealBtn, tr.openBtn, tr.copyBtn, tr.stopBtn, tr.removeBtn} {
		btn.Importance = widget.LowImportance
	}

	tr.updateFromTask()
}

func (tr *TaskRow) withPath(fn func(string)) {
	if fn == nil {
		return
	}
	if tr.task.OutputPath == "" || tr.task.Status != model.TaskStatusCompleted {
		tr.showHint(tr.localization.GetText(KeyFileNotReady))
		return
	}
	fn(tr.task.OutputPath)
}

func (tr *TaskRow) withID(fn func(string)) {
	if fn != nil && tr.task.ID != "" {
		fn(tr.task.ID)
	}
}

func (tr *TaskRow) showHint(text string) {
	c := fyne.CurrentApp().Driver().CanvasForObject(tr)
	if c == nil {
		return
	}
	widget.ShowPopUp(widget.NewLabel(text), c)
}

// updateFromTask updates UI components based on task state
func (tr *TaskRow) updateFromTask() {
	task := tr.task
	tr.titleLabel.SetText(task.GetDisplayTitle())

	switch task.Status {
	case model.TaskStatusError:
		tr.statusLabel.Importance = widget.DangerImportance
		tr.statusLabel.SetText(IconError + " " + task.Status.String())
	case model.TaskStatusCompleted:
		tr.statusLabel.Importance = widget.SuccessImportance
		tr.statusLabel.SetText(IconDone + " " + task.Status.String())
	case model.TaskStatusDownloading, model.TaskStatusStarting:
		tr.statusLabel.Importance = widget.HighImportance
		tr.statusLabel.SetText(task.Status.String())
	default:
		tr.statusLabel.Importance = widget.MediumImportance
		tr.statusLabel.SetText(task.Status.String())
	}

	percent := task.Percent
	if task.Status == model.TaskStatusCompleted {
		percent = 100
	}
	tr.progressLabel.SetText(fmt.Sprintf(ProgressLabelFormat, max(0, min(percent, 100))))

	switch task.Status {
	case model.TaskStatusDownloading:
		speed := task.Speed
		if speed == "" {
			speed = model.DashPlaceholder
		}
		tr.speedEtaLabel.SetText(speed + MiddleDotSeparator + task.GetETAString())
	case model.TaskStatusError:
		tr.speedEtaLabel.SetText(task.LastError)
	case model.TaskStatusCompleted:
		tr.speedEtaLabel.SetText(model.FormatFileSize(task.FileSize))
	default:
		tr.speedEtaLabel.SetText("")
	}

	tr.updateButtons()
}

func (tr *TaskRow) updateButtons() {
	done := tr.task.Status == model.TaskStatusCompleted && tr.task.OutputPath != ""
	for _, btn := range []*widget.Button{tr.revealBtn, tr.openBtn, tr.copyBtn} {
		if done {
			btn.Enable()
		} else {
			btn.Disable()
		}
	}

	if tr.task.Status.IsActive() || tr.task.Status == model.TaskStatusPending {
		tr.stopBtn.Enable()
		tr.removeBtn.Disable()
	} else {
		tr.stopBtn.Disable()
		tr.removeBtn.Enable()
	}
}

// CreateRenderer lays the row out: title on the left, figures and buttons
// pinned to the right edge.
func (tr *TaskRow) CreateRenderer() fyne.WidgetRenderer {
	info := container.NewVBox(
		fixedWidth(StatusLabelWidth, tr.statusLabel),
		container.NewHBox(
			fixedWidth(SpeedLabelWidth, tr.speedEtaLabel),
			fixedWidth(PercentLabelWidth, tr.progressLabel),
		),
	)
	actions := container.NewHBox(tr.revealBtn, tr.openBtn, tr.copyBtn, tr.stopBtn, tr.removeBtn)
	right := container.NewBorder(nil, nil, nil, actions, info)

	return widget.NewSimpleRenderer(container.NewVBox(
		container.NewBorder(nil, nil, nil, right, tr.titleLabel),
		widget.NewSeparator(),
	))
}
