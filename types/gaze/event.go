package gaze

import "github.com/paulmach/orb"

// EventCode numbers the psychophysical events an experiment can wait on.
// The numbering is the conventional experiment-toolkit surface and is
// shared with external scripts; do not renumber.
type EventCode int

const (
	StartBlink   EventCode = 3
	EndBlink     EventCode = 4
	StartSaccade EventCode = 5
	EndSaccade   EventCode = 6
	StartFix     EventCode = 7
	EndFix       EventCode = 8
)

func (c EventCode) String() string {
	switch c {
	case StartBlink:
		return "blink-start"
	case EndBlink:
		return "blink-end"
	case StartSaccade:
		return "saccade-start"
	case EndSaccade:
		return "saccade-end"
	case StartFix:
		return "fixation-start"
	case EndFix:
		return "fixation-end"
	}
	return "unknown"
}

// Event is a detected gaze event. Events are produced by a detector call
// and consumed immediately by the caller; they are never persisted here.
type Event interface {
	Code() EventCode
}

// FixationStart marks gaze settling. Time is milliseconds of wall clock
// for the dispersion algorithm, or the middle window sample's device
// timestamp for the windowed filter, which also fills Pos3.
type FixationStart struct {
	Time int64
	Pos  orb.Point
	Pos3 Vec3
}

func (FixationStart) Code() EventCode { return StartFix }

// FixationEnd marks gaze leaving a fixation.
// The dispersion algorithm fills Time with the wall clock at detection
// (not the deviating sample's timestamp) and Pos with the fixation anchor.
// The windowed filter fills Duration with the elapsed fixation time instead.
type FixationEnd struct {
	Time     int64
	Duration int64
	Pos      orb.Point
	Pos3     Vec3
}

func (FixationEnd) Code() EventCode { return EndFix }

// SaccadeStart marks rapid movement onset. Pos is the pre-movement
// gaze position.
type SaccadeStart struct {
	Time int64
	Pos  orb.Point
}

func (SaccadeStart) Code() EventCode { return StartSaccade }

type SaccadeEnd struct {
	Time     int64
	StartPos orb.Point
	EndPos   orb.Point
}

func (SaccadeEnd) Code() EventCode { return EndSaccade }
