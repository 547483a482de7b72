// Package gaze holds the sample and event types streamed by the glasses.
//
// Every sample carries a device timestamp and a gidx, the device-assigned
// identifier grouping samples that belong to one gaze event. Coordinates of
// all -1 are the device's sentinel for "no data"; a sentinel sample is never
// evidence for event detection.
package gaze

import (
	"log/slog"
	"math"

	"github.com/paulmach/orb"
)

type Kind string

const (
	KindGazePoint   Kind = "gp"
	KindGazePoint3D Kind = "gp3"
	KindEyePosition Kind = "pc"
)

// Eye selects which eye's data is read.
type Eye int

const (
	EyeLeft Eye = iota
	EyeRight
	EyeBinocular
)

// Vec3 is a position in the glasses' 3D coordinate system, millimeters.
type Vec3 [3]float64

func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Sample is implemented by every streamed sample variant.
type Sample interface {
	SampleKind() Kind
	Timestamp() int64
	EventIndex() int64
}

// GazePoint is a 2D gaze position on the scene camera plane,
// normalized to display pixels.
type GazePoint struct {
	GP   orb.Point `json:"gp"`
	TS   int64     `json:"ts"`
	Gidx int64     `json:"gidx"`
}

func (s GazePoint) SampleKind() Kind  { return KindGazePoint }
func (s GazePoint) Timestamp() int64  { return s.TS }
func (s GazePoint) EventIndex() int64 { return s.Gidx }

// GazePoint3D is the 3D gaze point, where the gaze vectors of the
// two eyes converge.
type GazePoint3D struct {
	GP3  Vec3  `json:"gp3"`
	TS   int64 `json:"ts"`
	Gidx int64 `json:"gidx"`
}

func (s GazePoint3D) SampleKind() Kind  { return KindGazePoint3D }
func (s GazePoint3D) Timestamp() int64  { return s.TS }
func (s GazePoint3D) EventIndex() int64 { return s.Gidx }

// EyePosition3D is the 3D pupil center of one (or the averaged) eye,
// with the pupil diameter.
type EyePosition3D struct {
	PC   Vec3    `json:"pc"`
	PD   float64 `json:"pd"`
	TS   int64   `json:"ts"`
	Gidx int64   `json:"gidx"`
}

func (s EyePosition3D) SampleKind() Kind  { return KindEyePosition }
func (s EyePosition3D) Timestamp() int64  { return s.TS }
func (s EyePosition3D) EventIndex() int64 { return s.Gidx }

// Sentinel constructors. The device reports -1 across the board
// when it has nothing.

func SentinelGazePoint() GazePoint {
	return GazePoint{GP: orb.Point{-1, -1}, TS: -1, Gidx: -1}
}

func SentinelGazePoint3D() GazePoint3D {
	return GazePoint3D{GP3: Vec3{-1, -1, -1}, TS: -1, Gidx: -1}
}

func SentinelEyePosition3D() EyePosition3D {
	return EyePosition3D{PC: Vec3{-1, -1, -1}, PD: -1, TS: -1, Gidx: -1}
}

// IsValid reports whether a sample is usable, i.e. not the kind-specific
// sentinel. An unknown sample kind is reported invalid: the upstream
// implementation defaulted unknown kinds to valid after logging, which let
// garbage drive the detectors.
func IsValid(s Sample) bool {
	switch v := s.(type) {
	case GazePoint:
		return v.GP != orb.Point{-1, -1}
	case *GazePoint:
		return v.GP != orb.Point{-1, -1}
	case GazePoint3D:
		return v.GP3 != Vec3{-1, -1, -1}
	case *GazePoint3D:
		return v.GP3 != Vec3{-1, -1, -1}
	case EyePosition3D:
		return v.PC != Vec3{-1, -1, -1}
	case *EyePosition3D:
		return v.PC != Vec3{-1, -1, -1}
	}
	slog.Error("Unsupported sample kind", "sample", s)
	return false
}
