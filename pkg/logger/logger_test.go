package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestAppLogger_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info")

	l.Info("quota decision", "user_id", "user-1", "allowed", true)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "quota decision" {
		t.Fatalf("unexpected message: %v", entry["message"])
	}
	if entry["user_id"] != "user-1" {
		t.Fatalf("expected user_id field, got %v", entry["user_id"])
	}
	if entry["allowed"] != true {
		t.Fatalf("expected allowed field, got %v", entry["allowed"])
	}
}

func TestAppLogger_ErrorIncludesCause(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info")

	l.Error("store failed", errors.New("connection refused"), "attempt", 2)

	if !strings.Contains(buf.String(), "connection refused") {
		t.Fatalf("expected error text in output, got %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error level, got %s", buf.String())
	}
}

func TestAppLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")

	l.Debug("hidden")
	l.Info("hidden too")
	if buf.Len() != 0 {
		t.Fatalf("expected debug and info to be filtered, got %s", buf.String())
	}

	l.Warn("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("expected warn output, got %s", buf.String())
	}
}

func TestAppLogger_OddFieldCount(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug")

	l.Debug("odd", "key")
	if strings.Contains(buf.String(), `"key"`) {
		t.Fatalf("expected dangling key to be dropped, got %s", buf.String())
	}
}
