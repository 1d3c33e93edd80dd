package helpers

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func lastJSON(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var out map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &out); err != nil {
		t.Fatalf("decode %q: %v", lines[len(lines)-1], err)
	}
	return out
}

func TestLogErrorStampsService(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "fixture-users-mail-worker", "production")

	fields := logrus.Fields{"to": "avo@avohq.io"}
	LogError(logger, "send failed", errors.New("mailgun down"), fields)

	got := lastJSON(t, &buf)
	want := map[string]any{
		"msg":   "send failed",
		"level": "error",
		"error": "mailgun down",
		"to":    "avo@avohq.io",
		"app":   "fixture-users-mail-worker",
		"env":   "production",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
	if _, ok := fields["error"]; ok {
		t.Fatal("LogError modified the caller's fields")
	}
}

func TestCallerFieldsWinOverService(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "fixture-users", "staging")

	LogInfo(logger, "listening", logrus.Fields{"app": "override"})
	if got := lastJSON(t, &buf); got["app"] != "override" || got["env"] != "staging" {
		t.Fatalf("entry = %v", got)
	}
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		env   string
		level logrus.Level
		text  bool
	}{
		{env: "development", level: logrus.DebugLevel, text: true},
		{env: "production", level: logrus.InfoLevel},
		{env: "", level: logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, "fixture-users", tt.env)
			if logger.GetLevel() != tt.level {
				t.Fatalf("level = %v, want %v", logger.GetLevel(), tt.level)
			}
			_, isText := logger.Formatter.(*logrus.TextFormatter)
			if isText != tt.text {
				t.Fatalf("text formatter = %v", isText)
			}
		})
	}
}

func TestLogHelpersAcceptNilFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "fixture-users", "production")
	LogInfo(logger, "ready", nil)
	LogError(logger, "no cause", nil, nil)

	got := lastJSON(t, &buf)
	if got["msg"] != "no cause" {
		t.Fatalf("entry = %v", got)
	}
	if _, ok := got["error"]; ok {
		t.Fatal("nil error logged")
	}
}
