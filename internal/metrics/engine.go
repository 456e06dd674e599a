// Package metrics derives practice-quality metrics from a symbolic
// note-event stream. The same computation backs live ingestion and the
// administrative recompute path, so it is kept as a pure function over
// its inputs.
package metrics

import "sort"

// Tuning constants for the interval engine.
const (
	// MinKeystrokeVelocity is the minimum attack velocity (0-127) for an
	// attack to count as a deliberate keystroke. Softer attacks are treated
	// as transcription noise.
	MinKeystrokeVelocity = 70

	// MergeGapSeconds is the largest silence between two note intervals that
	// still reads as one continuous active span. Short pauses between
	// phrases should not split a practice passage.
	MergeGapSeconds = 2.0

	// IntervalPadSeconds is added to both ends of each merged interval to
	// capture attack and decay not present in symbolic note timing.
	IntervalPadSeconds = 0.5
)

// NoteEvent is a single timestamped event from the transcription artifact.
// Attack carries the note-on velocity; a note-on with velocity zero is the
// conventional release encoding and is treated as a release.
type NoteEvent struct {
	Time     float64 // seconds from the start of the recording
	Note     uint8
	Velocity uint8
	Attack   bool
}

// Interval is a [start, end] span in seconds.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the interval length in seconds.
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

// Result holds the derived practice metrics for one recording.
type Result struct {
	ActiveDuration float64
	Efficiency     float64
	Keystrokes     int
	Intervals      []Interval
}

// Compute derives practice metrics from a time-ordered note-event stream and
// the total recording duration in seconds.
//
// An attack counts as a keystroke when its velocity is at or above
// MinKeystrokeVelocity, whether or not a release is ever observed. Note
// intervals are opened by qualifying attacks and closed by the matching
// release; a repeated attack on a note that is already sounding is ignored
// for interval purposes so a stray re-trigger cannot truncate a sustained
// note's start. Notes still open at the end of the stream are closed at the
// last observed event time. The raw intervals are then sorted, merged across
// gaps of at most MergeGapSeconds, padded by IntervalPadSeconds and clamped
// to [0, totalDuration].
func Compute(events []NoteEvent, totalDuration float64) Result {
	var res Result
	if len(events) == 0 {
		res.Intervals = []Interval{}
		return res
	}

	pending := make(map[uint8]float64)
	var raw []Interval
	lastTime := 0.0

	for _, ev := range events {
		if ev.Time > lastTime {
			lastTime = ev.Time
		}

		if ev.Attack && ev.Velocity > 0 {
			if ev.Velocity < MinKeystrokeVelocity {
				continue
			}
			res.Keystrokes++
			// Earliest unmatched attack wins.
			if _, open := pending[ev.Note]; !open {
				pending[ev.Note] = ev.Time
			}
			continue
		}

		// Release: explicit note-off or an attack carrying zero velocity.
		if start, open := pending[ev.Note]; open {
			delete(pending, ev.Note)
			if ev.Time > start {
				raw = append(raw, Interval{Start: start, End: ev.Time})
			}
		}
	}

	// Close anything still sounding at the end of the stream.
	for _, start := range pending {
		if lastTime > start {
			raw = append(raw, Interval{Start: start, End: lastTime})
		}
	}

	res.Intervals = mergeIntervals(raw, totalDuration)

	for _, iv := range res.Intervals {
		res.ActiveDuration += iv.Duration()
	}
	if totalDuration > 0 {
		res.Efficiency = res.ActiveDuration / totalDuration
	}

	return res
}

// mergeIntervals sorts raw note intervals, merges neighbours separated by at
// most MergeGapSeconds, then pads and clamps each sealed interval.
func mergeIntervals(raw []Interval, totalDuration float64) []Interval {
	if len(raw) == 0 {
		return []Interval{}
	}

	sort.Slice(raw, func(i, j int) bool {
		if raw[i].Start != raw[j].Start {
			return raw[i].Start < raw[j].Start
		}
		return raw[i].End < raw[j].End
	})

	merged := make([]Interval, 0, len(raw))
	current := raw[0]
	for _, iv := range raw[1:] {
		if iv.Start-current.End <= MergeGapSeconds {
			if iv.End > current.End {
				current.End = iv.End
			}
			continue
		}
		merged = append(merged, padClamp(current, totalDuration))
		current = iv
	}
	merged = append(merged, padClamp(current, totalDuration))

	return merged
}

func padClamp(iv Interval, totalDuration float64) Interval {
	iv.Start -= IntervalPadSeconds
	iv.End += IntervalPadSeconds
	if iv.Start < 0 {
		iv.Start = 0
	}
	if totalDuration >= 0 && iv.End > totalDuration {
		iv.End = totalDuration
	}
	if iv.End < iv.Start {
		iv.End = iv.Start
	}
	return iv
}
