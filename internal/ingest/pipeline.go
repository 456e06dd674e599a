// Package ingest implements the recording ingestion pipeline: discovery,
// stability checking, deduplication, analysis and archival.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/edvall/sonata/internal/audio"
	"github.com/edvall/sonata/internal/config"
	"github.com/edvall/sonata/internal/hash"
	"github.com/edvall/sonata/internal/logging"
	"github.com/edvall/sonata/internal/metrics"
	"github.com/edvall/sonata/internal/midi"
	"github.com/edvall/sonata/internal/store"
)

// fingerprintPrefixLen is the number of fingerprint characters appended to an
// archive filename on collision.
const fingerprintPrefixLen = 6

// Pipeline processes recordings from the inbox into persisted sessions.
// Each poll cycle re-derives its state entirely from the filesystem plus the
// persisted fingerprint set, so a crash mid-file simply means the file is
// re-discovered on the next scan.
type Pipeline struct {
	cfg         *config.Config
	store       *store.Store
	logger      *logging.FileLogger
	transcriber *midi.Transcriber
}

// New creates a Pipeline over the given store and configuration.
func New(cfg *config.Config, st *store.Store, logger *logging.FileLogger) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		store:       st,
		logger:      logger.WithComponent("pipeline"),
		transcriber: midi.NewTranscriber(cfg.TranscriberCommand),
	}
}

// Run polls the inbox until the context is cancelled. A failure in one cycle
// or one file is logged and never stops the loop: a long-running unattended
// service must survive arbitrary single-file failures.
func (p *Pipeline) Run(ctx context.Context) {
	interval := time.Duration(p.cfg.PollIntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("ingestion loop started",
		logging.String("inbox", p.cfg.InboxDir),
		logging.Duration("interval", interval),
	)

	for {
		p.ScanOnce(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info("ingestion loop stopped")
			return
		case <-ticker.C:
		}
	}
}

// ScanOnce runs a single inbox scan, processing each discovered recording in
// directory-listing order.
func (p *Pipeline) ScanOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("scan cycle panicked", fmt.Errorf("%v", r))
		}
	}()

	entries, err := os.ReadDir(p.cfg.InboxDir)
	if err != nil {
		p.logger.Error("read inbox", err, logging.String("inbox", p.cfg.InboxDir))
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() || !p.matchesPatterns(entry.Name()) {
			continue
		}

		path := filepath.Join(p.cfg.InboxDir, entry.Name())
		if err := p.processFile(ctx, path); err != nil {
			// Transient or unexpected: the file stays in the inbox and is
			// retried on the next full scan.
			p.logger.Error("processing failed, will retry next cycle", err,
				logging.String("path", path),
			)
		}
	}
}

func (p *Pipeline) matchesPatterns(name string) bool {
	for _, pattern := range p.cfg.WatchPatterns {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

// processFile walks one recording through the pipeline states:
// stability check, hashing, dedupe, analysis, persistence, archival.
// Returning nil without persisting means "not ready yet, defer".
func (p *Pipeline) processFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		// Raced with another actor; re-discovered next cycle if still there.
		return nil
	}

	stable, err := p.isStable(ctx, path, info.Size())
	if err != nil {
		return err
	}
	if !stable {
		p.logger.Debug("file not yet stable, deferring",
			logging.String("path", path),
		)
		return nil
	}

	p.logger.Info("processing recording",
		logging.String("path", path),
		logging.Int64("size", info.Size()),
	)

	fingerprint, err := hash.FileFingerprint(path)
	if err != nil {
		// File moved or truncated mid-read: treat as not yet ready.
		return nil
	}

	exists, err := p.store.Exists(fingerprint)
	if err != nil {
		return fmt.Errorf("dedupe lookup: %w", err)
	}
	if exists {
		return p.discardDuplicate(path, fingerprint)
	}

	sess, err := p.analyze(ctx, path, fingerprint)
	if err != nil {
		return err
	}

	if err := p.store.Insert(sess); err != nil {
		if err == store.ErrDuplicate {
			// The sync loop or a concurrent scan beat us to it; the
			// uniqueness constraint is the arbiter.
			return p.discardDuplicate(path, fingerprint)
		}
		return fmt.Errorf("persist session: %w", err)
	}

	p.logger.Info("session persisted",
		logging.String("fingerprint", fingerprint),
		logging.String("file", filepath.Base(path)),
		logging.Int("keystrokes", sess.Keystrokes),
	)

	// Archival failure is non-fatal: the record is already persisted and a
	// later duplicate arrival of the same bytes is discarded by fingerprint.
	if err := p.archive(path, fingerprint); err != nil {
		p.logger.Error("archive failed", err, logging.String("path", path))
	}

	return nil
}

// isStable samples the file size twice across a short delay. Unequal or zero
// sizes mean the write is still in progress or the file is degenerate.
func (p *Pipeline) isStable(ctx context.Context, path string, firstSize int64) (bool, error) {
	if firstSize == 0 {
		return false, nil
	}

	wait := time.Duration(p.cfg.StabilityWaitMs) * time.Millisecond
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(wait):
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, nil
	}
	return info.Size() == firstSize, nil
}

// analyze derives the full session record for a recording. Transcription
// failure and silent recordings both degrade to zero metrics: a degraded
// session is better than a lost recording.
func (p *Pipeline) analyze(ctx context.Context, path, fingerprint string) (*store.Session, error) {
	clip, err := audio.DecodeWAV(path)
	if err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}

	summary := audio.Summarize(clip)

	var result metrics.Result
	result.Intervals = []metrics.Interval{}
	var artifact string

	if summary.Silent() {
		p.logger.Info("silent recording, skipping transcription",
			logging.String("path", path),
			logging.Float64("duration", summary.TotalDuration),
		)
	} else {
		tr := p.transcriber.Transcribe(ctx, path, p.cfg.ArtifactDir)
		if tr.Failed {
			p.logger.Error("transcription failed", fmt.Errorf("%s", tr.Reason),
				logging.String("path", path),
			)
		} else {
			result = metrics.Compute(tr.Events, summary.TotalDuration)
			artifact = tr.ArtifactName
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat recording: %w", err)
	}

	return &store.Session{
		Fingerprint:    fingerprint,
		StartTime:      DeriveStartTime(info.ModTime(), summary.TotalDuration, filepath.Base(path)),
		SourceFilename: filepath.Base(path),
		TotalDuration:  summary.TotalDuration,
		ActiveDuration: result.ActiveDuration,
		Efficiency:     result.Efficiency,
		Keystrokes:     result.Keystrokes,
		Waveform:       summary.Envelope,
		Intervals:      result.Intervals,
		Artifact:       artifact,
	}, nil
}

// discardDuplicate removes a true duplicate arrival from the inbox without
// archiving it.
func (p *Pipeline) discardDuplicate(path, fingerprint string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove duplicate: %w", err)
	}
	p.logger.Info("duplicate recording discarded",
		logging.String("path", path),
		logging.String("fingerprint", fingerprint),
	)
	return nil
}

// archive moves a processed recording into the archive directory. A name
// collision is disambiguated by appending a fingerprint prefix.
func (p *Pipeline) archive(sourcePath, fingerprint string) error {
	if err := os.MkdirAll(p.cfg.ArchiveDir, 0755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	baseName := filepath.Base(sourcePath)
	destPath := filepath.Join(p.cfg.ArchiveDir, baseName)

	if _, err := os.Stat(destPath); err == nil {
		ext := filepath.Ext(baseName)
		stem := strings.TrimSuffix(baseName, ext)
		destPath = filepath.Join(p.cfg.ArchiveDir,
			fmt.Sprintf("%s_%s%s", stem, fingerprint[:fingerprintPrefixLen], ext))
	}

	if err := os.Rename(sourcePath, destPath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyAndDelete(sourcePath, destPath); err != nil {
			return fmt.Errorf("archive recording: %w", err)
		}
	}

	p.logger.Info("recording archived",
		logging.String("source", sourcePath),
		logging.String("dest", destPath),
	)
	return nil
}

// copyAndDelete copies a file and then deletes the original. Used when
// os.Rename fails due to a cross-device link.
func copyAndDelete(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy data: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("flush destination: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}

	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source: %w", err)
	}
	return nil
}
