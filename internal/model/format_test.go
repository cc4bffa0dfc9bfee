package model

import "testing"

func floatPtr(v float64) *float64 { return &v }

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds  int
		expected string
	}{
		{0, "00:00"},
		{-5, "00:00"},
		{5, "00:05"},
		{65, "01:05"},
		{600, "10:00"},
		{3600, "01:00:00"},
		{3661, "01:01:01"},
		{7323, "02:02:03"},
	}

	for _, test := range tests {
		result := FormatDuration(test.seconds)
		if result != test.expected {
			t.Errorf("FormatDuration(%d) = %s, expected %s", test.seconds, result, test.expected)
		}
	}
}

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		speed    *float64
		expected string
	}{
		{nil, Calculating},
		{floatPtr(-1), Calculating},
		{floatPtr(0), "0.00 MB/s"},
		{floatPtr(1048576), "1.00 MB/s"},
		{floatPtr(2621440), "2.50 MB/s"},
		{floatPtr(123456), "0.12 MB/s"},
	}

	for _, test := range tests {
		result := FormatSpeed(test.speed)
		if result != test.expected {
			t.Errorf("FormatSpeed(%v) = %s, expected %s", test.speed, result, test.expected)
		}
	}
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		eta      *float64
		expected string
	}{
		{nil, Calculating},
		{floatPtr(0), "0m 0s"},
		{floatPtr(42), "0m 42s"},
		{floatPtr(75), "1m 15s"},
		{floatPtr(3725), "62m 5s"},
		{floatPtr(9.6), "0m 10s"},
	}

	for _, test := range tests {
		result := FormatETA(test.eta)
		if result != test.expected {
			t.Errorf("FormatETA(%v) = %s, expected %s", test.eta, result, test.expected)
		}
	}
}

func TestFormatTransferred(t *testing.T) {
	if got := FormatTransferred(nil, floatPtr(1)); got != Calculating {
		t.Errorf("missing downloaded: got %s", got)
	}
	if got := FormatTransferred(floatPtr(1), nil); got != Calculating {
		t.Errorf("missing total: got %s", got)
	}

	got := FormatTransferred(floatPtr(5242880), floatPtr(20971520))
	if got != "5.00 MB / 20.00 MB" {
		t.Errorf("FormatTransferred = %s", got)
	}
}

func TestFormatSizeMB(t *testing.T) {
	tests := []struct {
		size     Measure
		expected string
	}{
		{Measure{}, UnknownSize},
		{Measure{Text: "Unknown"}, "Unknown"},
		{Measure{Value: floatPtr(12.5)}, "12.5 MB"},
		{Measure{Value: floatPtr(40)}, "40 MB"},
	}

	for _, test := range tests {
		result := FormatSizeMB(test.size)
		if result != test.expected {
			t.Errorf("FormatSizeMB(%+v) = %s, expected %s", test.size, result, test.expected)
		}
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, DashPlaceholder},
		{512, "512 B"},
		{1536, "1.5 KB"},
		{52428800, "50.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, test := range tests {
		if result := FormatFileSize(test.bytes); result != test.expected {
			t.Errorf("FormatFileSize(%d) = %s, expected %s", test.bytes, result, test.expected)
		}
	}
}
