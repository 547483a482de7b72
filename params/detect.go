package params

import (
	"math"
	"time"
)

// DetectionMode selects the event detection algorithms.
// The glasses have no native fixation/saccade API, so ModeNative
// always downgrades to ModePyGaze with a warning.
type DetectionMode string

const (
	ModePyGaze DetectionMode = "pygaze"
	ModeNative DetectionMode = "native"
)

type DetectionConfig struct {
	// FixThreshDeg is the maximal distance from a fixation start, in degrees
	// of visual angle. Gaze wandering beyond it ends the fixation.
	FixThreshDeg float64

	// FixTimeThresh is how long gaze has to linger within FixThreshDeg
	// to be marked as a fixation.
	FixTimeThresh time.Duration

	// SaccadeSpeedThreshDeg is the saccade velocity threshold, degrees/second.
	SaccadeSpeedThreshDeg float64

	// SaccadeAccelThreshDeg is the saccade acceleration threshold, degrees/second^2.
	SaccadeAccelThreshDeg float64

	// WeightDist discriminates genuine movement from measurement error.
	// 1 is permissive; higher values admit only larger saccades.
	WeightDist float64

	// VelocityThresh is the angular velocity threshold for the windowed
	// fixation filter, degrees/second. 70 retains good accuracy for both
	// saccades and fixations.
	VelocityThresh float64

	// WindowSize is the number of correlated samples held by the windowed
	// fixation filter. Can be increased for a bigger window.
	WindowSize int

	// AdjacentThreshDeg groups adjacent fixations: angular differences below
	// it classify two fixations as the same one.
	AdjacentThreshDeg float64

	// PollInterval bounds the sample polling loops so they do not peg a core.
	// The latest-sample (not queued) semantics are unaffected.
	PollInterval time.Duration

	Mode DetectionMode

	Screen ScreenConfig
}

// ScreenConfig describes the presentation surface, used to convert
// visual-angle thresholds to pixel thresholds.
type ScreenConfig struct {
	DispSizePx   [2]float64 // display size in pixels
	ScreenSizeCM [2]float64 // display size in cm
	ScreenDistCM float64    // distance between participant and screen in cm
}

func (s ScreenConfig) PixPerCM() float64 {
	return (s.DispSizePx[0]/s.ScreenSizeCM[0] + s.DispSizePx[1]/s.ScreenSizeCM[1]) / 2.0
}

// Deg2Px converts a visual angle to an on-screen pixel distance.
func (s ScreenConfig) Deg2Px(deg float64) float64 {
	return math.Tan(deg*math.Pi/180) * s.ScreenDistCM * s.PixPerCM()
}

// PxFixThresh is the dispersion threshold in pixels.
func (c *DetectionConfig) PxFixThresh() float64 {
	return c.Screen.Deg2Px(c.FixThreshDeg)
}

// PxDstThresh is the per-axis precision-error threshold in pixels,
// used by the weighted-distance gate of the saccade detector.
func (c *DetectionConfig) PxDstThresh() [2]float64 {
	px := c.Screen.Deg2Px(c.AdjacentThreshDeg)
	return [2]float64{px, px}
}

// PxSpeedThresh is the saccade velocity threshold in pixels/ms.
func (c *DetectionConfig) PxSpeedThresh() float64 {
	return c.Screen.Deg2Px(c.SaccadeSpeedThreshDeg) / 1000.0
}

// PxAccelThresh is the saccade acceleration threshold in pixels/ms^2.
// The tangent projection is only meaningful inside a right angle, and a
// per-second-squared threshold spans thousands of degrees, so this one
// scales by the per-degree pixel pitch and converts s^-2 to ms^-2.
func (c *DetectionConfig) PxAccelThresh() float64 {
	return c.Screen.Deg2Px(1) * c.SaccadeAccelThreshDeg / (1000.0 * 1000.0)
}

var DefaultDetectionConfig = &DetectionConfig{
	FixThreshDeg:          1.5,
	FixTimeThresh:         100 * time.Millisecond,
	SaccadeSpeedThreshDeg: 35,
	SaccadeAccelThreshDeg: 9500,
	WeightDist:            10,
	VelocityThresh:        70,
	WindowSize:            3,
	AdjacentThreshDeg:     0.5,
	PollInterval:          2 * time.Millisecond,
	Mode:                  ModePyGaze,
	Screen: ScreenConfig{
		DispSizePx:   [2]float64{1920, 1080},
		ScreenSizeCM: [2]float64{60.0, 33.8},
		ScreenDistCM: 65.0,
	},
}
