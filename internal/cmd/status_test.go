package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStatusCmd_NotRunningNoLog(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var buf bytes.Buffer
	cmd := NewStatusCmd()
	cmd.SetOut(&buf)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "not running") {
		t.Errorf("expected not-running notice, got: %q", output)
	}
	if !strings.Contains(output, "0 persisted today") {
		t.Errorf("expected zero sessions, got: %q", output)
	}
}

func TestStatusCmd_ReportsTodayActivity(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	logDir := filepath.Join(home, ".sonata", "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	logPath := filepath.Join(logDir, "sonata-"+today+".log")
	lines := strings.Join([]string{
		"2026-02-07T09:30:00Z INFO  [pipeline] session persisted fingerprint=abc123 file=morning.wav keystrokes=420",
		"2026-02-07T09:35:00Z INFO  [pipeline] duplicate recording discarded fingerprint=abc123 path=/inbox/copy.wav",
		"2026-02-07T09:40:00Z ERROR [pipeline] transcription failed error=exit status 1 path=/inbox/bad.wav",
		"2026-02-07T10:10:00Z INFO  [pipeline] session persisted fingerprint=def456 file=evening.wav keystrokes=210",
	}, "\n") + "\n"
	if err := os.WriteFile(logPath, []byte(lines), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	var buf bytes.Buffer
	cmd := NewStatusCmd()
	cmd.SetOut(&buf)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "2 persisted today") {
		t.Errorf("expected 2 sessions, got: %q", output)
	}
	if !strings.Contains(output, "1 discarded") {
		t.Errorf("expected 1 duplicate, got: %q", output)
	}
	if !strings.Contains(output, "Errors:     1") {
		t.Errorf("expected 1 error, got: %q", output)
	}
	if !strings.Contains(output, "evening.wav") {
		t.Errorf("expected last session file, got: %q", output)
	}
}
