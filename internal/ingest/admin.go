package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/edvall/sonata/internal/hash"
	"github.com/edvall/sonata/internal/logging"
	"github.com/edvall/sonata/internal/metrics"
	"github.com/edvall/sonata/internal/midi"
	"github.com/edvall/sonata/internal/store"
)

// Administrative errors, surfaced to the operator with no state mutation.
var (
	ErrNoArtifact       = errors.New("session has no transcription artifact")
	ErrNoArchivedSource = errors.New("archived source recording not found")
)

// Recompute re-derives a session's metrics from its retained transcription
// artifact, overwriting active duration, efficiency, keystrokes and
// intervals. Fingerprint, total duration and source filename are untouched.
// Used after the velocity threshold or merge policy changes.
func (p *Pipeline) Recompute(fingerprint string) (*store.Session, error) {
	sess, err := p.store.Get(fingerprint)
	if err != nil {
		return nil, err
	}
	if sess.Artifact == "" {
		return nil, ErrNoArtifact
	}

	artifactPath := filepath.Join(p.cfg.ArtifactDir, sess.Artifact)
	if _, err := os.Stat(artifactPath); os.IsNotExist(err) {
		return nil, ErrNoArtifact
	}
	events, err := midi.ReadNoteEvents(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	result := metrics.Compute(events, sess.TotalDuration)
	if err := p.store.UpdateMetrics(fingerprint, result); err != nil {
		return nil, err
	}

	p.logger.Info("session recomputed",
		logging.String("fingerprint", fingerprint),
		logging.Int("keystrokes", result.Keystrokes),
	)

	return p.store.Get(fingerprint)
}

// Reprocess deletes a session and its artifact, then copies the archived
// source recording back into the inbox so the ordinary pipeline re-discovers
// and re-analyzes it as if new. The fingerprint will not collide because the
// old record is removed first.
func (p *Pipeline) Reprocess(fingerprint string) error {
	sess, err := p.store.Get(fingerprint)
	if err != nil {
		return err
	}

	// Locate the archived copy before mutating anything.
	archivedPath, err := p.findArchived(sess)
	if err != nil {
		return err
	}

	if err := p.store.Delete(fingerprint); err != nil {
		return err
	}
	p.removeArtifact(sess)

	if err := os.MkdirAll(p.cfg.InboxDir, 0755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}
	inboxPath := filepath.Join(p.cfg.InboxDir, sess.SourceFilename)
	if err := copyFile(archivedPath, inboxPath); err != nil {
		return fmt.Errorf("requeue recording: %w", err)
	}

	p.logger.Info("session queued for reprocessing",
		logging.String("fingerprint", fingerprint),
		logging.String("file", sess.SourceFilename),
	)
	return nil
}

// DeleteSession removes a session record and its transcription artifact.
func (p *Pipeline) DeleteSession(fingerprint string) error {
	sess, err := p.store.Get(fingerprint)
	if err != nil {
		return err
	}
	if err := p.store.Delete(fingerprint); err != nil {
		return err
	}
	p.removeArtifact(sess)

	p.logger.Info("session deleted", logging.String("fingerprint", fingerprint))
	return nil
}

// findArchived locates the archived source file for a session, checking the
// plain filename and the fingerprint-disambiguated variant. The plain name
// can belong to a different recording after an archive collision, so each
// candidate's content is verified against the session fingerprint.
func (p *Pipeline) findArchived(sess *store.Session) (string, error) {
	ext := filepath.Ext(sess.SourceFilename)
	stem := strings.TrimSuffix(sess.SourceFilename, ext)

	candidates := []string{
		filepath.Join(p.cfg.ArchiveDir, sess.SourceFilename),
		filepath.Join(p.cfg.ArchiveDir,
			fmt.Sprintf("%s_%s%s", stem, sess.Fingerprint[:fingerprintPrefixLen], ext)),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		fp, err := hash.FileFingerprint(path)
		if err != nil {
			continue
		}
		if fp == sess.Fingerprint {
			return path, nil
		}
	}

	return "", ErrNoArchivedSource
}

func (p *Pipeline) removeArtifact(sess *store.Session) {
	if sess.Artifact == "" {
		return
	}
	path := filepath.Join(p.cfg.ArtifactDir, sess.Artifact)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.logger.Error("remove artifact", err, logging.String("path", path))
	}
}

// copyFile copies src to dst preserving the source's modification time, so a
// reprocessed recording derives the same start time as the original run.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
