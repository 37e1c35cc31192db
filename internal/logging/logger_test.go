package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestNewLogger_WritesToFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Info("engagement started", "agents", 3)

	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "engagement.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}

	if entry["msg"] != "engagement started" {
		t.Errorf("expected msg 'engagement started', got %v", entry["msg"])
	}
	if entry["agents"] != float64(3) {
		t.Errorf("expected agents=3, got %v", entry["agents"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelWarn)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	logger.Warn("warning message")
	logger.Error("error message")

	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "engagement.log"))
	if err != nil {
		t.Fatalf("failed to open log file: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
	}
	if lines != 2 {
		t.Errorf("expected 2 log lines at WARN level, got %d", lines)
	}
}

func TestLogger_AttributePropagation(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	child := logger.WithEngagement("eng-1").WithAgent("agent-7").WithPhase("execution")
	child.Info("step completed", "step", 2)

	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "engagement.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}

	if entry["engagement_id"] != "eng-1" {
		t.Errorf("expected engagement_id 'eng-1', got %v", entry["engagement_id"])
	}
	if entry["agent_id"] != "agent-7" {
		t.Errorf("expected agent_id 'agent-7', got %v", entry["agent_id"])
	}
	if entry["phase"] != "execution" {
		t.Errorf("expected phase 'execution', got %v", entry["phase"])
	}
}

func TestLogger_ChildDoesNotMutateParent(t *testing.T) {
	logger := NopLogger()

	child := logger.WithAgent("agent-1")
	if len(logger.attrs) != 0 {
		t.Errorf("parent logger gained %d attributes", len(logger.attrs))
	}
	if len(child.attrs) != 1 {
		t.Errorf("child logger should have 1 attribute, got %d", len(child.attrs))
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"Warn", LevelWarn},
		{"ERROR", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNopLogger_DoesNotPanic(t *testing.T) {
	logger := NopLogger()
	logger.Debug("a")
	logger.Info("b", "k", "v")
	logger.Warn("c")
	logger.Error("d")

	if err := logger.Close(); err != nil {
		t.Errorf("Close on NopLogger returned error: %v", err)
	}
}
