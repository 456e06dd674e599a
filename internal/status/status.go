// Package status provides log parsing for the ingestion service status display.
package status

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Stats holds parsed statistics from the service log file.
type Stats struct {
	SessionsPersisted int
	Duplicates        int
	Errors            int
	LastSession       *PersistedSession
}

// PersistedSession holds information about the most recently persisted session.
type PersistedSession struct {
	Timestamp   time.Time
	File        string
	Fingerprint string
}

// logDir returns the default log directory path.
func logDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".sonata", "logs"), nil
}

// TodayLogPath returns the path to today's service log file.
func TodayLogPath() (string, error) {
	dir, err := logDir()
	if err != nil {
		return "", err
	}
	today := time.Now().UTC().Format("2006-01-02")
	return filepath.Join(dir, "sonata-"+today+".log"), nil
}

// ParseTodayStats parses today's log file and returns statistics.
// Returns empty stats if the log file doesn't exist.
func ParseTodayStats() (*Stats, error) {
	logPath, err := TodayLogPath()
	if err != nil {
		return nil, err
	}
	return ParseLogFile(logPath)
}

// Log line patterns emitted by the ingestion pipeline.
// Format: 2026-02-07T09:30:00Z INFO  [pipeline] session persisted fingerprint=abc file=take.wav keystrokes=120
var (
	persistedPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z)\s+INFO\s+\[pipeline\]\s+session persisted\s+fingerprint=(\S+)\s+file=(\S+)`)
	duplicatePattern = regexp.MustCompile(`\s+INFO\s+\[pipeline\]\s+duplicate recording discarded\s+`)
	errorPattern     = regexp.MustCompile(`\s+ERROR\s+`)
)

// ParseLogFile parses a service log file and returns statistics.
// Returns empty stats if the file doesn't exist.
func ParseLogFile(path string) (*Stats, error) {
	stats := &Stats{}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()

		if matches := persistedPattern.FindStringSubmatch(line); matches != nil {
			stats.SessionsPersisted++
			timestamp, err := time.Parse(time.RFC3339, matches[1])
			if err == nil {
				stats.LastSession = &PersistedSession{
					Timestamp:   timestamp,
					Fingerprint: unquoteIfNeeded(matches[2]),
					File:        unquoteIfNeeded(matches[3]),
				}
			}
		}

		if duplicatePattern.MatchString(line) {
			stats.Duplicates++
		}

		if errorPattern.MatchString(line) {
			stats.Errors++
		}
	}

	return stats, scanner.Err()
}

// unquoteIfNeeded removes surrounding quotes from a string if present.
func unquoteIfNeeded(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// FormatTimestamp formats a timestamp for display.
func FormatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02T15:04:05")
}

// BaseName returns just the filename from a path.
func BaseName(path string) string {
	return filepath.Base(strings.TrimSuffix(path, "/"))
}
