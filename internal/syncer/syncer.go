// Package syncer copies new recordings from removable volumes into the
// ingestion inbox. A JSON ledger remembers the size and mtime last seen per
// volume path so unchanged files are not copied again. The ledger is not
// correctness-critical: losing it only causes redundant copies, which the
// pipeline's fingerprint deduplication absorbs.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/edvall/sonata/internal/config"
	"github.com/edvall/sonata/internal/logging"
)

// ledgerEntry records the last observed state of one volume file.
type ledgerEntry struct {
	Size  int64 `json:"size"`
	MTime int64 `json:"mtime"`
}

// Syncer scans configured volume globs and feeds new recordings to the inbox.
type Syncer struct {
	cfg    *config.Config
	logger *logging.FileLogger
	ledger map[string]ledgerEntry
}

// New creates a Syncer, loading the ledger from cfg.LedgerPath if present.
func New(cfg *config.Config, logger *logging.FileLogger) *Syncer {
	s := &Syncer{
		cfg:    cfg,
		logger: logger.WithComponent("syncer"),
		ledger: make(map[string]ledgerEntry),
	}
	if err := s.loadLedger(); err != nil {
		s.logger.Error("ledger unreadable, starting fresh", err,
			logging.String("path", cfg.LedgerPath),
		)
	}
	return s
}

// Run polls the configured volumes until the context is cancelled. Errors in
// one cycle are logged and never stop the loop.
func (s *Syncer) Run(ctx context.Context) {
	if len(s.cfg.SyncVolumes) == 0 {
		s.logger.Info("no sync volumes configured, sync loop disabled")
		return
	}

	interval := time.Duration(s.cfg.SyncIntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("volume sync loop started",
		logging.Int("volumes", len(s.cfg.SyncVolumes)),
		logging.Duration("interval", interval),
	)

	for {
		s.SyncOnce()
		select {
		case <-ctx.Done():
			s.logger.Info("volume sync loop stopped")
			return
		case <-ticker.C:
		}
	}
}

// SyncOnce scans every configured volume glob once and returns the number of
// recordings copied into the inbox.
func (s *Syncer) SyncOnce() int {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sync cycle panicked", fmt.Errorf("%v", r))
		}
	}()

	copied := 0
	for _, pattern := range s.cfg.SyncVolumes {
		dirs, err := filepath.Glob(pattern)
		if err != nil {
			s.logger.Error("bad volume glob", err, logging.String("pattern", pattern))
			continue
		}
		for _, dir := range dirs {
			copied += s.syncDir(dir)
		}
	}

	if copied > 0 {
		if err := s.saveLedger(); err != nil {
			s.logger.Error("ledger write failed", err,
				logging.String("path", s.cfg.LedgerPath),
			)
		}
	}
	return copied
}

func (s *Syncer) syncDir(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Error("volume unreadable", err, logging.String("dir", dir))
		return 0
	}

	copied := 0
	for _, entry := range entries {
		if entry.IsDir() || !s.matchesPatterns(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}

		state := ledgerEntry{Size: info.Size(), MTime: info.ModTime().Unix()}
		if seen, ok := s.ledger[path]; ok && seen == state {
			continue
		}

		// A recording already archived under the same name was ingested
		// before the ledger knew about it (fresh ledger, renamed mount).
		if s.archivedUnderName(entry.Name()) {
			s.ledger[path] = state
			continue
		}

		if err := s.copyToInbox(path, entry.Name(), info.ModTime()); err != nil {
			s.logger.Error("copy to inbox failed", err, logging.String("path", path))
			continue
		}
		s.ledger[path] = state
		copied++
		s.logger.Info("recording synced from volume",
			logging.String("path", path),
			logging.Int64("size", info.Size()),
		)
	}
	return copied
}

func (s *Syncer) matchesPatterns(name string) bool {
	for _, pattern := range s.cfg.WatchPatterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (s *Syncer) archivedUnderName(name string) bool {
	_, err := os.Stat(filepath.Join(s.cfg.ArchiveDir, name))
	return err == nil
}

// copyToInbox stages the file under a temporary name and renames it into
// place so the pipeline never sees a half-written recording, then restores
// the volume mtime so start-time derivation matches the original.
func (s *Syncer) copyToInbox(src, name string, mtime time.Time) error {
	if err := os.MkdirAll(s.cfg.InboxDir, 0755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := filepath.Join(s.cfg.InboxDir, "."+name+".part")
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chtimes(tmp, mtime, mtime); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, filepath.Join(s.cfg.InboxDir, name))
}

func (s *Syncer) loadLedger() error {
	data, err := os.ReadFile(s.cfg.LedgerPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.ledger)
}

func (s *Syncer) saveLedger() error {
	if err := os.MkdirAll(filepath.Dir(s.cfg.LedgerPath), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.ledger, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.cfg.LedgerPath, data, 0644)
}
