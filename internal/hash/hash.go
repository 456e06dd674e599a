// Package hash provides content fingerprinting for recording files.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// chunkSize is the read size used when streaming a file into the digest.
const chunkSize = 64 * 1024

// FileFingerprint computes the SHA-256 digest of the file contents and
// returns it hex-encoded. The fingerprint depends only on the bytes of the
// file, never on its name or timestamps, so two copies of the same recording
// always produce the same fingerprint.
//
// An I/O error mid-stream (for example the file being moved away while it is
// read) is returned to the caller; the pipeline treats that as "file not yet
// ready" rather than a fatal condition.
func FileFingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
