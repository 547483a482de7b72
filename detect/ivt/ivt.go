// Package ivt implements the pieces of a velocity-threshold (I-VT style)
// gaze filter: the correlated sample window, the same-event check, and the
// law-of-cosines angular velocity estimate.
package ivt

import (
	"errors"

	"math"

	"github.com/montanaflynn/stats"
	"github.com/openglasses/gazed/stream"
	"github.com/openglasses/gazed/types/gaze"
	"github.com/paulmach/orb"
)

// ErrDegenerateWindow is returned when angular velocity is undefined:
// a zero-length gaze vector or a window spanning zero time.
var ErrDegenerateWindow = errors.New("ivt: degenerate sample window")

// SameEvent reports whether samples drawn from the three channels belong to
// the same underlying gaze events, position by position. The device assigns
// each event a gidx; a burst of invalid samples can make one channel skip
// ahead, and mixing gidx across channels would blend two different
// saccades/fixations. Sequences are zipped; empty input is vacuously true.
func SameEvent(gps []gaze.GazePoint, gp3s []gaze.GazePoint3D, eyes []gaze.EyePosition3D) bool {
	n := min(len(gps), min(len(gp3s), len(eyes)))
	for i := 0; i < n; i++ {
		if gps[i].Gidx != gp3s[i].Gidx || gp3s[i].Gidx != eyes[i].Gidx {
			return false
		}
	}
	return true
}

// AngularVelocity estimates the eye's angular velocity, in degrees/second,
// between the first and last samples of the paired gp3/eye sequences.
//
// The calculation follows the vendor's I-VT filter: the angle between the
// two gaze rays (eye position -> 3D gaze point) is recovered with the law
// of cosines and divided by the elapsed device time.
func AngularVelocity(gp3s []gaze.GazePoint3D, eyes []gaze.EyePosition3D) (float64, error) {
	if len(gp3s) < 2 || len(eyes) < 2 {
		return 0, ErrDegenerateWindow
	}
	first3, last3 := gp3s[0], gp3s[len(gp3s)-1]
	firstEye, lastEye := eyes[0], eyes[len(eyes)-1]

	a := first3.GP3.Sub(firstEye.PC).Norm()
	b := last3.GP3.Sub(lastEye.PC).Norm()
	c := last3.GP3.Sub(first3.GP3).Norm()

	if a*b == 0 {
		return 0, ErrDegenerateWindow
	}
	timeDiff := last3.TS - first3.TS // ms
	if timeDiff == 0 {
		return 0, ErrDegenerateWindow
	}

	cos := (a*a + b*b - c*c) / (2 * a * b)
	// Clamp against floating point drift; acos is only defined on [-1,1].
	cos = math.Max(-1, math.Min(1, cos))
	angle := math.Acos(cos) * 180 / math.Pi

	return math.Abs(angle / (float64(timeDiff) / 1000.0)), nil
}

// Window is an ordered, fixed-capacity sequence of the most recent
// correlated samples across the three channels. Once full, it advances by
// eviction-then-append.
type Window struct {
	Gaze *stream.RingBuffer[gaze.GazePoint]
	GP3  *stream.RingBuffer[gaze.GazePoint3D]
	Eye  *stream.RingBuffer[gaze.EyePosition3D]
}

func NewWindow(size int) *Window {
	return &Window{
		Gaze: stream.NewRingBuffer[gaze.GazePoint](size),
		GP3:  stream.NewRingBuffer[gaze.GazePoint3D](size),
		Eye:  stream.NewRingBuffer[gaze.EyePosition3D](size),
	}
}

// Push appends one correlated sample triple, evicting the oldest when full.
func (w *Window) Push(gp gaze.GazePoint, gp3 gaze.GazePoint3D, eye gaze.EyePosition3D) {
	w.Gaze.Add(gp)
	w.GP3.Add(gp3)
	w.Eye.Add(eye)
}

func (w *Window) Full() bool {
	return w.Gaze.Full()
}

func (w *Window) Reset() {
	w.Gaze.Reset()
	w.GP3.Reset()
	w.Eye.Reset()
}

func (w *Window) SameEvent() bool {
	return SameEvent(w.Gaze.Get(), w.GP3.Get(), w.Eye.Get())
}

func (w *Window) AngularVelocity() (float64, error) {
	return AngularVelocity(w.GP3.Get(), w.Eye.Get())
}

// Middle returns the middle 2D gaze sample, the one recorded as the
// fixation point.
func (w *Window) Middle() gaze.GazePoint {
	g := w.Gaze.Get()
	return g[len(g)/2]
}

func mustMedian(data []float64) float64 {
	m, err := stats.Median(stats.Float64Data(data))
	if err != nil {
		return 0
	}
	return m
}

// MedianGaze returns the per-axis median of the window's 2D gaze samples,
// smoothing out position noise.
func (w *Window) MedianGaze() orb.Point {
	g := w.Gaze.Get()
	xs := make([]float64, 0, len(g))
	ys := make([]float64, 0, len(g))
	for _, s := range g {
		xs = append(xs, s.GP.X())
		ys = append(ys, s.GP.Y())
	}
	return orb.Point{mustMedian(xs), mustMedian(ys)}
}

// MedianGaze3 returns the per-axis median of the window's 3D gaze samples.
func (w *Window) MedianGaze3() gaze.Vec3 {
	g := w.GP3.Get()
	xs := make([]float64, 0, len(g))
	ys := make([]float64, 0, len(g))
	zs := make([]float64, 0, len(g))
	for _, s := range g {
		xs = append(xs, s.GP3[0])
		ys = append(ys, s.GP3[1])
		zs = append(zs, s.GP3[2])
	}
	return gaze.Vec3{mustMedian(xs), mustMedian(ys), mustMedian(zs)}
}
