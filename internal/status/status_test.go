package status

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseLogFile_Empty(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "sonata-test.log")

	os.WriteFile(logPath, []byte(""), 0644)

	stats, err := ParseLogFile(logPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.SessionsPersisted != 0 {
		t.Errorf("expected 0 sessions, got %d", stats.SessionsPersisted)
	}
	if stats.Errors != 0 {
		t.Errorf("expected 0 errors, got %d", stats.Errors)
	}
	if stats.LastSession != nil {
		t.Error("expected LastSession to be nil")
	}
}

func TestParseLogFile_NonExistent(t *testing.T) {
	stats, err := ParseLogFile("/nonexistent/path/sonata.log")
	if err != nil {
		t.Fatalf("unexpected error for nonexistent file: %v", err)
	}
	if stats.SessionsPersisted != 0 {
		t.Errorf("expected 0 sessions, got %d", stats.SessionsPersisted)
	}
}

func TestParseLogFile_CountsPipelineActivity(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "sonata-test.log")

	logContent := `2026-02-07T10:00:00Z INFO  [service] starting ingestion service inbox=/srv/sonata/inbox
2026-02-07T10:00:05Z INFO  [pipeline] processing recording path=/srv/sonata/inbox/260207_0009.wav size=4096000
2026-02-07T10:00:09Z INFO  [pipeline] session persisted fingerprint=abc123 file=260207_0009.wav keystrokes=340
2026-02-07T10:05:00Z INFO  [pipeline] duplicate recording discarded path=/srv/sonata/inbox/copy.wav fingerprint=abc123
2026-02-07T10:10:00Z ERROR [pipeline] transcription failed path=/srv/sonata/inbox/noisy.wav error="model exited 1"
2026-02-07T11:00:00Z INFO  [pipeline] session persisted fingerprint=def456 file=another.wav keystrokes=88
`
	if err := os.WriteFile(logPath, []byte(logContent), 0644); err != nil {
		t.Fatalf("failed to write log: %v", err)
	}

	stats, err := ParseLogFile(logPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.SessionsPersisted != 2 {
		t.Errorf("expected 2 sessions persisted, got %d", stats.SessionsPersisted)
	}
	if stats.Duplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", stats.Duplicates)
	}
	if stats.Errors != 1 {
		t.Errorf("expected 1 error, got %d", stats.Errors)
	}

	if stats.LastSession == nil {
		t.Fatal("expected LastSession to be set")
	}
	if stats.LastSession.Fingerprint != "def456" {
		t.Errorf("expected last fingerprint def456, got %s", stats.LastSession.Fingerprint)
	}
	if stats.LastSession.File != "another.wav" {
		t.Errorf("expected last file another.wav, got %s", stats.LastSession.File)
	}

	wantTime := time.Date(2026, 2, 7, 11, 0, 0, 0, time.UTC)
	if !stats.LastSession.Timestamp.Equal(wantTime) {
		t.Errorf("expected timestamp %v, got %v", wantTime, stats.LastSession.Timestamp)
	}
}

func TestTodayLogPath(t *testing.T) {
	path, err := TodayLogPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	want := "sonata-" + today + ".log"
	if filepath.Base(path) != want {
		t.Errorf("expected filename %s, got %s", want, filepath.Base(path))
	}
}

func TestBaseName(t *testing.T) {
	if got := BaseName("/srv/sonata/inbox/take.wav"); got != "take.wav" {
		t.Errorf("expected take.wav, got %s", got)
	}
}
