package ingest

import (
	"time"
)

// DeriveStartTime computes a session's nominal start time. The file's
// modification time is taken as the end of the recording, so the start is
// mtime minus the total duration.
//
// Recording devices drift: when the filename carries a 6-digit YYMMDD date
// prefix and that calendar date differs from the derived one, the filename's
// date wins for the day component while the derived time-of-day is kept.
func DeriveStartTime(mtime time.Time, totalDuration float64, filename string) time.Time {
	start := mtime.Add(-time.Duration(totalDuration * float64(time.Second)))

	named, ok := filenameDate(filename, start.Location())
	if !ok {
		return start
	}

	sy, sm, sd := start.Date()
	ny, nm, nd := named.Date()
	if sy == ny && sm == nm && sd == nd {
		return start
	}

	return time.Date(ny, nm, nd,
		start.Hour(), start.Minute(), start.Second(), start.Nanosecond(),
		start.Location())
}

// filenameDate parses a leading 6-digit YYMMDD date prefix from a recording
// filename (e.g. 260207_0009.wav).
func filenameDate(filename string, loc *time.Location) (time.Time, bool) {
	if len(filename) < 6 {
		return time.Time{}, false
	}
	prefix := filename[:6]
	for _, r := range prefix {
		if r < '0' || r > '9' {
			return time.Time{}, false
		}
	}

	t, err := time.ParseInLocation("060102", prefix, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
