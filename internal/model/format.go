package model

import (
	"fmt"
	"math"
)

// Placeholders shown instead of stale data
const (
	Calculating     = "Calculating…"
	UnknownSize     = "Unknown size"
	NotApplicable   = "N/A"
	DashPlaceholder = "—"
)

// Unit conversion constants
const (
	BytesPerMB       = 1024 * 1024
	SecondsPerHour   = 3600
	SecondsPerMinute = 60
)

// FormatDuration renders seconds as mm:ss, or hh:mm:ss when the hour part is non-zero
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}

	hours := seconds / SecondsPerHour
	minutes := (seconds % SecondsPerHour) / SecondsPerMinute
	secs := seconds % SecondsPerMinute

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

// FormatSpeed converts bytes/sec into "X.XX MB/s"
func FormatSpeed(bytesPerSec *float64) string {
	if bytesPerSec == nil || *bytesPerSec < 0 || math.IsNaN(*bytesPerSec) {
		return Calculating
	}
	return fmt.Sprintf("%.2f MB/s", *bytesPerSec/BytesPerMB)
}

// FormatETA converts seconds into "Xm Ys"
func FormatETA(seconds *float64) string {
	if seconds == nil || *seconds < 0 || math.IsNaN(*seconds) {
		return Calculating
	}
	total := int(math.Round(*seconds))
	return fmt.Sprintf("%dm %ds", total/SecondsPerMinute, total%SecondsPerMinute)
}

// FormatTransferred renders "D.DD MB / T.TT MB"; both counts are required
func FormatTransferred(downloaded, total *float64) string {
	if downloaded == nil || total == nil {
		return Calculating
	}
	return fmt.Sprintf("%.2f MB / %.2f MB", *downloaded/BytesPerMB, *total/BytesPerMB)
}

// FormatSizeMB renders a format's size column: "N MB", raw text, or "Unknown size"
func FormatSizeMB(size Measure) string {
	switch {
	case size.Value != nil:
		return size.String() + " MB"
	case size.Text != "":
		return size.Text
	default:
		return UnknownSize
	}
}

// FormatFileSize renders a byte count in binary units ("1.5 MB"); 0 is unknown
func FormatFileSize(bytes int64) string {
	const unit = 1024
	if bytes <= 0 {
		return DashPlaceholder
	}
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
