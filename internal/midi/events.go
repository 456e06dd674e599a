// Package midi invokes the external audio-to-MIDI transcription model and
// decodes its artifacts into note events for the metrics engine.
package midi

import (
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/edvall/sonata/internal/metrics"
)

// ReadNoteEvents decodes a standard MIDI file into a time-ordered stream of
// note attacks and releases, with timestamps in seconds from the start of
// the recording. A note-on with velocity zero is decoded as a release, per
// MIDI convention.
func ReadNoteEvents(path string) ([]metrics.NoteEvent, error) {
	var events []metrics.NoteEvent

	rd := smf.ReadTracks(path).Do(func(te smf.TrackEvent) {
		seconds := float64(te.AbsMicroSeconds) / 1e6

		var channel, key, velocity uint8
		switch {
		case te.Message.GetNoteStart(&channel, &key, &velocity):
			events = append(events, metrics.NoteEvent{
				Time:     seconds,
				Note:     key,
				Velocity: velocity,
				Attack:   true,
			})
		case te.Message.GetNoteEnd(&channel, &key):
			events = append(events, metrics.NoteEvent{
				Time:   seconds,
				Note:   key,
				Attack: false,
			})
		}
	})
	if err := rd.Error(); err != nil {
		return nil, fmt.Errorf("read MIDI file: %w", err)
	}

	// Multi-track artifacts interleave; the engine requires non-decreasing
	// time order.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})

	return events, nil
}
