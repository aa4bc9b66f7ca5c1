package telemetry

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoggerWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, false)
	l.Info("stage.enter", map[string]any{"stage": "welcome", "session": "abc"})
	l.Debug("dialogue.queue", map[string]any{"depth": 2})
	l.Error("history.write", map[string]any{"error": "disk full"})

	sc := bufio.NewScanner(&buf)
	var lines []map[string]any
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q is not JSON: %v", sc.Text(), err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 2 {
		t.Fatalf("expected debug to be filtered, got %d lines", len(lines))
	}
	if lines[0]["msg"] != "stage.enter" || lines[0]["stage"] != "welcome" {
		t.Fatalf("unexpected first line %v", lines[0])
	}
	if lines[1]["level"] != "error" {
		t.Fatalf("expected error level, got %v", lines[1]["level"])
	}
}

func TestLoggerFileAndDiscard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "triwizard.jsonl")
	l, err := NewJSONLogger(path, true)
	if err != nil {
		t.Fatal(err)
	}
	l.Debug("debug.on", nil)
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(b, []byte("debug.on")) {
		t.Fatalf("expected debug line in %q", b)
	}

	discard, err := NewJSONLogger("", false)
	if err != nil {
		t.Fatal(err)
	}
	discard.Info("nowhere", nil)
	if err := discard.Close(); err != nil {
		t.Fatal(err)
	}

	var nilLogger *JSONLogger
	nilLogger.Info("ignored", nil)
}
