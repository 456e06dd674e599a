// Package store persists practice sessions in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/edvall/sonata/internal/metrics"
)

// Sentinel errors for callers that branch on store outcomes.
var (
	ErrNotFound  = errors.New("session not found")
	ErrDuplicate = errors.New("session already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	fingerprint     TEXT PRIMARY KEY,
	start_time      REAL NOT NULL,
	source_filename TEXT NOT NULL,
	total_duration  REAL NOT NULL,
	active_duration REAL NOT NULL,
	efficiency      REAL NOT NULL,
	keystrokes      INTEGER NOT NULL,
	waveform_json   TEXT NOT NULL,
	intervals_json  TEXT NOT NULL,
	artifact        TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions(start_time);
`

// Store provides access to the session database. The fingerprint primary key
// is the only concurrency-safety mechanism the pipeline relies on: if two
// loops race on the same content, the second insert fails as a duplicate.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the session database at path with WAL
// journaling and ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert persists a new session. Returns ErrDuplicate if a session with the
// same fingerprint already exists.
func (s *Store) Insert(sess *Session) error {
	waveform, err := json.Marshal(sess.Waveform)
	if err != nil {
		return fmt.Errorf("encode waveform: %w", err)
	}
	intervals, err := json.Marshal(sess.Intervals)
	if err != nil {
		return fmt.Errorf("encode intervals: %w", err)
	}

	var artifact sql.NullString
	if sess.Artifact != "" {
		artifact = sql.NullString{String: sess.Artifact, Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (
			fingerprint, start_time, source_filename, total_duration,
			active_duration, efficiency, keystrokes, waveform_json,
			intervals_json, artifact
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sess.Fingerprint, timeToUnix(sess.StartTime), sess.SourceFilename,
		sess.TotalDuration, sess.ActiveDuration, sess.Efficiency,
		sess.Keystrokes, string(waveform), string(intervals), artifact)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicate
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Exists reports whether a session with the given fingerprint is persisted.
func (s *Store) Exists(fingerprint string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM sessions WHERE fingerprint = ?`, fingerprint).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query session: %w", err)
	}
	return true, nil
}

// Get returns the session with the given fingerprint, or ErrNotFound.
func (s *Store) Get(fingerprint string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT fingerprint, start_time, source_filename, total_duration,
		       active_duration, efficiency, keystrokes, waveform_json,
		       intervals_json, artifact
		FROM sessions
		WHERE fingerprint = ?
	`, fingerprint)

	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return sess, nil
}

// Delete removes the session with the given fingerprint, or ErrNotFound.
func (s *Store) Delete(fingerprint string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE fingerprint = ?`, fingerprint)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateMetrics overwrites the recomputable metric fields of a session. The
// fingerprint, total duration and source filename are immutable and never
// touched by this path.
func (s *Store) UpdateMetrics(fingerprint string, res metrics.Result) error {
	intervals, err := json.Marshal(res.Intervals)
	if err != nil {
		return fmt.Errorf("encode intervals: %w", err)
	}

	out, err := s.db.Exec(`
		UPDATE sessions
		SET active_duration = ?, efficiency = ?, keystrokes = ?, intervals_json = ?
		WHERE fingerprint = ?
	`, res.ActiveDuration, res.Efficiency, res.Keystrokes, string(intervals), fingerprint)
	if err != nil {
		return fmt.Errorf("update metrics: %w", err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return fmt.Errorf("update metrics: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRange returns sessions with start_time in [from, to) and at least
// minKeystrokes, sorted ascending by start time. Sessions below the
// keystroke floor are considered noise and excluded from every consumer
// view.
func (s *Store) ListRange(from, to time.Time, minKeystrokes int) ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT fingerprint, start_time, source_filename, total_duration,
		       active_duration, efficiency, keystrokes, waveform_json,
		       intervals_json, artifact
		FROM sessions
		WHERE start_time >= ? AND start_time < ? AND keystrokes >= ?
		ORDER BY start_time ASC
	`, timeToUnix(from), timeToUnix(to), minKeystrokes)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var sess Session
	var startTime float64
	var waveform, intervals string
	var artifact sql.NullString

	if err := row.Scan(&sess.Fingerprint, &startTime, &sess.SourceFilename,
		&sess.TotalDuration, &sess.ActiveDuration, &sess.Efficiency,
		&sess.Keystrokes, &waveform, &intervals, &artifact); err != nil {
		return nil, err
	}

	sess.StartTime = timeFromUnix(startTime)
	if artifact.Valid {
		sess.Artifact = artifact.String
	}
	if err := json.Unmarshal([]byte(waveform), &sess.Waveform); err != nil {
		return nil, fmt.Errorf("decode waveform: %w", err)
	}
	if err := json.Unmarshal([]byte(intervals), &sess.Intervals); err != nil {
		return nil, fmt.Errorf("decode intervals: %w", err)
	}
	if sess.Waveform == nil {
		sess.Waveform = []float64{}
	}
	if sess.Intervals == nil {
		sess.Intervals = []metrics.Interval{}
	}
	return &sess, nil
}

func timeToUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
