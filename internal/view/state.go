// Package view holds the declarative screen state of a download session and
// the helpers that build it from service data. Presenters render a State;
// they never decide what is visible.
package view

import (
	"fmt"
	"strings"

	"github.com/ytget/yt-webclient/internal/model"
)

// Fallbacks for missing metadata
const (
	UnknownResolution = "Unknown"
	UnknownTitle      = "Unknown Title"
	UnknownAuthor     = "Unknown Author"
	UnknownQuality    = "Unknown quality"
	UnknownCodec      = "Unknown codec"
)

// Presenter renders a snapshot of the session state
type Presenter interface {
	Render(State)
}

// PresenterFunc adapts a function to Presenter
type PresenterFunc func(State)

// Render calls f(s)
func (f PresenterFunc) Render(s State) { f(s) }

// State is everything a presenter needs. The four visibility flags are
// independent of each other.
type State struct {
	LoadingVisible bool

	ErrorVisible bool
	ErrorText    string

	MetadataVisible bool
	Video           VideoPanel

	ProgressVisible bool
	Progress        ProgressPanel
}

// VideoPanel is the metadata section with one row per format
type VideoPanel struct {
	ThumbnailURL string
	Title        string
	Uploader     string
	Duration     string
	Formats      []FormatRow
}

// FormatRow is one selectable format, bound to its format ID
type FormatRow struct {
	FormatID    string
	Resolution  string
	Description string
	FPS         string
	Size        string
	AudioOnly   bool
}

// ProgressPanel is the download progress section
type ProgressPanel struct {
	Percent       float64 // 0..100
	Indeterminate bool
	StatusText    string
	Speed         string
	ETA           string
	Size          string
}

// Clone returns a copy that shares no slices with s
func (s State) Clone() State {
	c := s
	if s.Video.Formats != nil {
		c.Video.Formats = append([]FormatRow(nil), s.Video.Formats...)
	}
	return c
}

// NewVideoPanel builds the metadata section from a service response
func NewVideoPanel(meta model.VideoMetadata) VideoPanel {
	panel := VideoPanel{
		ThumbnailURL: meta.ThumbnailURL,
		Title:        fallback(meta.Title, UnknownTitle),
		Uploader:     fallback(meta.Uploader, UnknownAuthor),
		Duration:     model.FormatDuration(meta.Duration),
		Formats:      make([]FormatRow, 0, len(meta.Formats)),
	}
	for _, f := range meta.Formats {
		panel.Formats = append(panel.Formats, NewFormatRow(f))
	}
	return panel
}

// NewFormatRow builds one format row
func NewFormatRow(f model.FormatOption) FormatRow {
	return FormatRow{
		FormatID:    f.FormatID,
		Resolution:  fallback(f.Resolution, UnknownResolution),
		Description: DescribeFormat(f),
		FPS:         fallback(f.FPS, model.NotApplicable),
		Size:        model.FormatSizeMB(f.FinalSizeMB),
		AudioOnly:   f.IsAudioOnly(),
	}
}

// DescribeFormat renders "ext (quality)" for audio and "ext - codec" for video
func DescribeFormat(f model.FormatOption) string {
	if f.IsAudioOnly() {
		return fmt.Sprintf("%s (%s)", f.Extension, fallback(f.AudioQuality, UnknownQuality))
	}
	codec := fallback(f.CodecDescription, fallback(f.VCodec, UnknownCodec))
	return fmt.Sprintf("%s - %s", f.Extension, codec)
}

// DownloadingPanel renders a downloading tick. Missing figures show the
// "Calculating…" placeholder; a missing percent keeps prev.
func DownloadingPanel(st model.DownloadStatus, prev float64) ProgressPanel {
	percent := prev
	if st.Percent != nil {
		percent = clampPercent(*st.Percent)
	}
	return ProgressPanel{
		Percent:    percent,
		StatusText: fmt.Sprintf("Downloading... %.1f%%", percent),
		Speed:      model.FormatSpeed(st.Speed),
		ETA:        model.FormatETA(st.ETA),
		Size:       model.FormatTransferred(st.DownloadedBytes, st.TotalBytes),
	}
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
