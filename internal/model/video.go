package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// AudioOnlyResolution is the resolution label the service uses for formats
// without a video stream.
const AudioOnlyResolution = "Audio only"

// Measure is a numeric field that the service may also send as free text
// (for example "Unknown" when a size cannot be estimated).
type Measure struct {
	Value *float64
	Text  string
}

// UnmarshalJSON accepts a number, a numeric string, free text or null
func (m *Measure) UnmarshalJSON(data []byte) error {
	*m = Measure{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			m.Value = &f
			return nil
		}
		m.Text = s
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	m.Value = &f
	return nil
}

// IsSet reports whether the service sent anything for this field
func (m Measure) IsSet() bool {
	return m.Value != nil || m.Text != ""
}

// String renders the value without trailing zeros, or the raw text
func (m Measure) String() string {
	if m.Value != nil {
		return strconv.FormatFloat(*m.Value, 'f', -1, 64)
	}
	return m.Text
}

// FormatOption is one downloadable quality/codec variant of a video
type FormatOption struct {
	FormatID         string
	Resolution       string
	Extension        string
	FPS              string
	FinalSizeMB      Measure
	AudioQuality     string
	CodecDescription string
	VCodec           string
	HasAudio         bool
}

// IsAudioOnly reports whether the option carries no video stream
func (f FormatOption) IsAudioOnly() bool {
	return f.Resolution == AudioOnlyResolution
}

// formatWire covers both the current schema (format_id, final_size_mb) and
// the older stream schema (itag, mime_type, size_mb).
type formatWire struct {
	FormatID         json.RawMessage `json:"format_id"`
	Itag             json.RawMessage `json:"itag"`
	Resolution       string          `json:"resolution"`
	Extension        string          `json:"extension"`
	MimeType         string          `json:"mime_type"`
	FPS              json.RawMessage `json:"fps"`
	FinalSizeMB      Measure         `json:"final_size_mb"`
	SizeMB           Measure         `json:"size_mb"`
	AudioQuality     string          `json:"audio_quality"`
	CodecDescription string          `json:"codec_description"`
	VCodec           string          `json:"vcodec"`
	HasAudio         *bool           `json:"has_audio"`
}

// UnmarshalJSON decodes a format entry from either schema revision
func (f *FormatOption) UnmarshalJSON(data []byte) error {
	var w formatWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*f = FormatOption{
		FormatID:         rawScalar(w.FormatID),
		Resolution:       w.Resolution,
		Extension:        w.Extension,
		FPS:              rawScalar(w.FPS),
		FinalSizeMB:      w.FinalSizeMB,
		AudioQuality:     w.AudioQuality,
		CodecDescription: w.CodecDescription,
		VCodec:           w.VCodec,
	}

	if f.FormatID == "" {
		f.FormatID = rawScalar(w.Itag)
	}
	if f.Extension == "" && w.MimeType != "" {
		if idx := strings.LastIndex(w.MimeType, "/"); idx >= 0 {
			f.Extension = w.MimeType[idx+1:]
		} else {
			f.Extension = w.MimeType
		}
	}
	if !f.FinalSizeMB.IsSet() {
		f.FinalSizeMB = w.SizeMB
	}
	if w.HasAudio != nil {
		f.HasAudio = *w.HasAudio
	} else {
		f.HasAudio = f.IsAudioOnly()
	}
	return nil
}

// VideoMetadata is the response of the metadata endpoint
type VideoMetadata struct {
	Title        string
	Uploader     string
	Duration     int // seconds
	ThumbnailURL string
	Formats      []FormatOption

	// Error is the payload-level error field; non-empty means failure even on HTTP 200
	Error string
}

type videoWire struct {
	Title        string         `json:"title"`
	Uploader     string         `json:"uploader"`
	Author       string         `json:"author"`
	Duration     *float64       `json:"duration"`
	Length       *float64       `json:"length"`
	Thumbnail    string         `json:"thumbnail"`
	ThumbnailURL string         `json:"thumbnail_url"`
	Formats      []FormatOption `json:"formats"`
	Streams      []FormatOption `json:"streams"`
	Error        string         `json:"error"`
}

// UnmarshalJSON decodes metadata, folding the duration/length and
// formats/streams naming drift into one shape.
func (v *VideoMetadata) UnmarshalJSON(data []byte) error {
	var w videoWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*v = VideoMetadata{
		Title:        w.Title,
		Uploader:     firstNonEmpty(w.Uploader, w.Author),
		ThumbnailURL: firstNonEmpty(w.Thumbnail, w.ThumbnailURL),
		Formats:      w.Formats,
		Error:        w.Error,
	}
	if len(v.Formats) == 0 {
		v.Formats = w.Streams
	}

	switch {
	case w.Duration != nil:
		v.Duration = int(*w.Duration)
	case w.Length != nil:
		v.Duration = int(*w.Length)
	}
	return nil
}

// DownloadJob identifies an in-progress server-side job
type DownloadJob struct {
	VideoID  string `json:"video_id"`
	Filename string `json:"filename"`
}

// DownloadStatus is one poll result. Pointer fields are optional on the wire;
// byte/second quantities follow yt-dlp's progress hook naming.
type DownloadStatus struct {
	Status          JobStatus `json:"status"`
	Percent         *float64  `json:"percent,omitempty"`
	Speed           *float64  `json:"speed,omitempty"` // bytes per second
	ETA             *float64  `json:"eta,omitempty"`   // seconds
	DownloadedBytes *float64  `json:"downloaded_bytes,omitempty"`
	TotalBytes      *float64  `json:"total_bytes,omitempty"`
	FileSizeMB      *float64  `json:"file_size_mb,omitempty"`
	DownloadPath    string    `json:"download_path,omitempty"`
	Error           string    `json:"error,omitempty"`
}

type statusWire struct {
	Status          JobStatus       `json:"status"`
	Percent         json.RawMessage `json:"percent"`
	Speed           json.RawMessage `json:"speed"`
	ETA             json.RawMessage `json:"eta"`
	DownloadedBytes json.RawMessage `json:"downloaded_bytes"`
	TotalBytes      json.RawMessage `json:"total_bytes"`
	FileSizeMB      json.RawMessage `json:"file_size_mb"`
	DownloadPath    json.RawMessage `json:"download_path"`
	Error           json.RawMessage `json:"error"`
}

// UnmarshalJSON decodes a poll result. Optional figures of the wrong shape
// ("45.2%", "N/A", objects) are dropped one by one so the status itself is
// never lost.
func (st *DownloadStatus) UnmarshalJSON(data []byte) error {
	var w statusWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*st = DownloadStatus{
		Status:          w.Status,
		Percent:         lenientFloat(w.Percent),
		Speed:           lenientFloat(w.Speed),
		ETA:             lenientFloat(w.ETA),
		DownloadedBytes: lenientFloat(w.DownloadedBytes),
		TotalBytes:      lenientFloat(w.TotalBytes),
		FileSizeMB:      lenientFloat(w.FileSizeMB),
		DownloadPath:    rawScalar(w.DownloadPath),
		Error:           rawScalar(w.Error),
	}
	return nil
}

// lenientFloat parses a number or numeric string, allowing a trailing "%"
func lenientFloat(raw json.RawMessage) *float64 {
	s := strings.TrimSpace(rawScalar(raw))
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// rawScalar turns a JSON string or number into its textual form
func rawScalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return ""
	}
	return string(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
