// Package term renders session states as plain text lines for the CLI.
// Each state change is printed once; identical progress ticks are dropped.
package term

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/ytget/yt-webclient/internal/view"
)

// Messages printed outside of the session's own texts
const (
	MsgFetching   = "Fetching video information..."
	ProgressWidth = 20
)

// Presenter writes state transitions to an io.Writer
type Presenter struct {
	mu           sync.Mutex
	w            io.Writer
	last         view.State
	lastProgress string
}

// New creates a presenter writing to w
func New(w io.Writer) *Presenter {
	return &Presenter{w: w}
}

// Render implements view.Presenter
func (p *Presenter) Render(s view.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.last
	p.last = s

	if s.LoadingVisible && !prev.LoadingVisible {
		fmt.Fprintln(p.w, MsgFetching)
	}

	if s.ErrorVisible && (!prev.ErrorVisible || s.ErrorText != prev.ErrorText) {
		fmt.Fprintf(p.w, "Error: %s\n", s.ErrorText)
	}

	// The panel comes back after every reset; print it only when it changed.
	if s.MetadataVisible && !prev.MetadataVisible && !sameVideo(s.Video, prev.Video) {
		WriteVideo(p.w, s.Video)
	}

	if !s.ProgressVisible {
		p.lastProgress = ""
		return
	}
	if line := ProgressLine(s.Progress); line != p.lastProgress {
		p.lastProgress = line
		fmt.Fprintln(p.w, line)
	}
}

func sameVideo(a, b view.VideoPanel) bool {
	return a.Title == b.Title && a.Uploader == b.Uploader && a.Duration == b.Duration &&
		a.ThumbnailURL == b.ThumbnailURL && slices.Equal(a.Formats, b.Formats)
}

// WriteVideo prints the video details followed by the format table
func WriteVideo(w io.Writer, v view.VideoPanel) {
	fmt.Fprintf(w, "Title:    %s\n", v.Title)
	fmt.Fprintf(w, "Uploader: %s\n", v.Uploader)
	fmt.Fprintf(w, "Duration: %s\n\n", v.Duration)
	WriteFormats(w, v.Formats)
}

// WriteFormats prints one aligned row per format
func WriteFormats(w io.Writer, rows []view.FormatRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRESOLUTION\tFORMAT\tFPS\tSIZE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.FormatID, r.Resolution, r.Description, r.FPS, r.Size)
	}
	tw.Flush()
}

// ProgressLine renders a progress panel as one line:
// "[#####---------------] Downloading... 25.0% | 1.00 MB/s | ETA 0m 5s | 5.00 MB / 20.00 MB"
func ProgressLine(pp view.ProgressPanel) string {
	var b strings.Builder
	b.WriteString(progressBar(pp))
	b.WriteByte(' ')
	b.WriteString(pp.StatusText)
	if pp.Speed != "" {
		b.WriteString(" | " + pp.Speed)
	}
	if pp.ETA != "" {
		b.WriteString(" | ETA " + pp.ETA)
	}
	if pp.Size != "" {
		b.WriteString(" | " + pp.Size)
	}
	return b.String()
}

func progressBar(pp view.ProgressPanel) string {
	if pp.Indeterminate {
		return "[" + strings.Repeat("~", ProgressWidth) + "]"
	}
	filled := int(pp.Percent / 100 * ProgressWidth)
	filled = max(0, min(filled, ProgressWidth))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", ProgressWidth-filled) + "]"
}
