package ui

import "time"

// Icons (emojis/symbols)
const (
	IconSettings = "⚙"
	IconFolder   = "📁"
	IconPlay     = "▶"
	IconCopy     = "📋"
	IconStop     = "⏹"
	IconClose    = "×"
	IconError    = "❌"
	IconDone     = "✔"
	IconMusic    = "🎵"
	IconVideo    = "🎬"
)

// Text fragments
const (
	MiddleDotSeparator  = " · "
	ProgressLabelFormat = "%d%%"
)

// Layout sizing
const (
	ThumbnailWidth  float32 = 160
	ThumbnailHeight float32 = 90

	ResolutionColumnWidth float32 = 96
	FPSColumnWidth        float32 = 48
	SizeColumnWidth       float32 = 88

	StatusLabelWidth  float32 = 84
	SpeedLabelWidth   float32 = 120
	PercentLabelWidth float32 = 48

	RowMinWidth  float32 = 400
	RowMinHeight float32 = 64

	FilesListMinHeight float32 = 160

	SettingsDialogWidth  float32 = 520
	SettingsDialogHeight float32 = 420

	// Touch target minimum size (iOS/Android guidelines)
	MinTouchTargetSize float32 = 44
)

// Window defaults
const (
	WindowWidth  float32 = 820
	WindowHeight float32 = 640
)

// Toast notification behavior
const (
	ToastAutoHide = 5 * time.Second
)
