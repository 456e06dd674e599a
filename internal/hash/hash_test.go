package hash

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileFingerprint_DeterministicForSameContent(t *testing.T) {
	tmpDir := t.TempDir()

	fileA := filepath.Join(tmpDir, "take-one.wav")
	fileB := filepath.Join(tmpDir, "renamed-copy.wav")
	content := []byte("identical recording bytes")

	if err := os.WriteFile(fileA, content, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := os.WriteFile(fileB, content, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	hashA, err := FileFingerprint(fileA)
	if err != nil {
		t.Fatalf("fingerprint failed: %v", err)
	}
	hashB, err := FileFingerprint(fileB)
	if err != nil {
		t.Fatalf("fingerprint failed: %v", err)
	}

	if hashA != hashB {
		t.Errorf("fingerprints differ for identical content: %s vs %s", hashA, hashB)
	}
	if len(hashA) != 64 {
		t.Errorf("expected 64 hex chars for SHA-256, got %d", len(hashA))
	}
}

func TestFileFingerprint_DiffersForDifferentContent(t *testing.T) {
	tmpDir := t.TempDir()

	fileA := filepath.Join(tmpDir, "a.wav")
	fileB := filepath.Join(tmpDir, "b.wav")

	if err := os.WriteFile(fileA, []byte("first session"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := os.WriteFile(fileB, []byte("second session"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	hashA, _ := FileFingerprint(fileA)
	hashB, _ := FileFingerprint(fileB)

	if hashA == hashB {
		t.Error("fingerprints collide for different content")
	}
}

func TestFileFingerprint_MissingFile(t *testing.T) {
	if _, err := FileFingerprint(filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFileFingerprint_KnownValue(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "empty.wav")

	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	got, err := FileFingerprint(file)
	if err != nil {
		t.Fatalf("fingerprint failed: %v", err)
	}

	// SHA-256 of the empty string.
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
