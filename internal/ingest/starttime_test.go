package ingest

import (
	"testing"
	"time"
)

func TestDeriveStartTime_SubtractsDuration(t *testing.T) {
	mtime := time.Date(2026, 2, 7, 10, 30, 0, 0, time.Local)

	start := DeriveStartTime(mtime, 600, "practice.wav")

	want := time.Date(2026, 2, 7, 10, 20, 0, 0, time.Local)
	if !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
}

func TestDeriveStartTime_FilenameDateOverridesDay(t *testing.T) {
	// Recording named 260207_0009.wav but the derived start lands on the
	// 6th (device clock drift). The filename's date wins, the derived
	// time-of-day is kept.
	mtime := time.Date(2026, 2, 6, 23, 50, 0, 0, time.Local)

	start := DeriveStartTime(mtime, 300, "260207_0009.wav")

	want := time.Date(2026, 2, 7, 23, 45, 0, 0, time.Local)
	if !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
}

func TestDeriveStartTime_MatchingDateUnchanged(t *testing.T) {
	mtime := time.Date(2026, 2, 7, 12, 0, 0, 0, time.Local)

	start := DeriveStartTime(mtime, 120, "260207_0001.wav")

	want := time.Date(2026, 2, 7, 11, 58, 0, 0, time.Local)
	if !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
}

func TestDeriveStartTime_NonDatePrefixIgnored(t *testing.T) {
	mtime := time.Date(2026, 2, 6, 23, 50, 0, 0, time.Local)

	start := DeriveStartTime(mtime, 300, "recital_take2.wav")

	want := time.Date(2026, 2, 6, 23, 45, 0, 0, time.Local)
	if !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
}

func TestDeriveStartTime_InvalidCalendarPrefixIgnored(t *testing.T) {
	mtime := time.Date(2026, 2, 6, 10, 0, 0, 0, time.Local)

	// 991399 is six digits but not a real calendar date.
	start := DeriveStartTime(mtime, 60, "991399_0001.wav")

	want := time.Date(2026, 2, 6, 9, 59, 0, 0, time.Local)
	if !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
}

func TestDeriveStartTime_ShortFilenameIgnored(t *testing.T) {
	mtime := time.Date(2026, 2, 6, 10, 0, 0, 0, time.Local)

	start := DeriveStartTime(mtime, 60, "a.wav")

	want := time.Date(2026, 2, 6, 9, 59, 0, 0, time.Local)
	if !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
}
