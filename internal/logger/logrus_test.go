package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWithOutput_Level(t *testing.T) {
	tests := []struct {
		level    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"ERROR", logrus.ErrorLevel},
		{"", DefaultLevel},
		{"chatty", DefaultLevel},
	}

	for _, test := range tests {
		log := NewWithOutput(test.level, &bytes.Buffer{})
		if log.GetLevel() != test.expected {
			t.Errorf("level %q: got %s, expected %s", test.level, log.GetLevel(), test.expected)
		}
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("info", &buf)

	Component(log, "session").Info("hello")

	out := buf.String()
	if !strings.Contains(out, "component=session") || !strings.Contains(out, "hello") {
		t.Errorf("unexpected log output: %s", out)
	}
}
