package midi

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// writeTestSMF produces a single-track MIDI file at 120 BPM with 480 ticks
// per quarter note, so one second equals 960 ticks.
func writeTestSMF(t *testing.T, path string) {
	t.Helper()

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	tr.Add(0, gomidi.NoteOn(0, 60, 80))      // attack @0.0s
	tr.Add(960, gomidi.NoteOff(0, 60))       // release @1.0s
	tr.Add(480, gomidi.NoteOn(0, 64, 100))   // attack @1.5s
	tr.Add(480, gomidi.NoteOn(0, 64, 0))     // vel-0 release @2.0s
	tr.Close(0)

	if err := s.Add(tr); err != nil {
		t.Fatalf("failed to add track: %v", err)
	}
	if err := s.WriteFile(path); err != nil {
		t.Fatalf("failed to write SMF: %v", err)
	}
}

func TestReadNoteEvents(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "take_basic_pitch.mid")
	writeTestSMF(t, path)

	events, err := ReadNoteEvents(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d: %v", len(events), events)
	}

	type want struct {
		time     float64
		note     uint8
		velocity uint8
		attack   bool
	}
	wants := []want{
		{0.0, 60, 80, true},
		{1.0, 60, 0, false},
		{1.5, 64, 100, true},
		{2.0, 64, 0, false}, // velocity-zero note-on decodes as release
	}

	for i, w := range wants {
		ev := events[i]
		if math.Abs(ev.Time-w.time) > 1e-3 {
			t.Errorf("event %d: expected time %f, got %f", i, w.time, ev.Time)
		}
		if ev.Note != w.note {
			t.Errorf("event %d: expected note %d, got %d", i, w.note, ev.Note)
		}
		if ev.Attack != w.attack {
			t.Errorf("event %d: expected attack=%v, got %v", i, w.attack, ev.Attack)
		}
		if w.attack && ev.Velocity != w.velocity {
			t.Errorf("event %d: expected velocity %d, got %d", i, w.velocity, ev.Velocity)
		}
	}
}

func TestReadNoteEvents_MissingFile(t *testing.T) {
	if _, err := ReadNoteEvents(filepath.Join(t.TempDir(), "missing.mid")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadNoteEvents_NotMIDI(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "garbage.mid")
	if err := os.WriteFile(path, []byte("not a midi file"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := ReadNoteEvents(path); err == nil {
		t.Error("expected error for non-MIDI content")
	}
}

func TestArtifactName(t *testing.T) {
	got := ArtifactName("/inbox/260207_0009.wav")
	want := "260207_0009_basic_pitch.mid"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
