// Package api is the driver facade an experiment talks to: sample readers,
// session and recording management, CSV logging, and the gaze-event
// dispatcher, all against an opaque tracker link.
package api

import (
	"log/slog"
	"sync"

	"github.com/openglasses/gazed/csvlog"
	"github.com/openglasses/gazed/detect/fixation"
	"github.com/openglasses/gazed/detect/saccade"
	"github.com/openglasses/gazed/link"
	"github.com/openglasses/gazed/params"
	"github.com/openglasses/gazed/state"
	"github.com/openglasses/gazed/types/gaze"
)

// Tracker is a connected pair of glasses.
type Tracker struct {
	Config *params.DetectionConfig

	// EyeUsed selects which eye feeds EyePosition: left, right, or the
	// binocular average.
	EyeUsed gaze.Eye

	link   link.Link
	logger *slog.Logger
	csv    *csvlog.Logger

	fix *fixation.Detector
	sac *saccade.Detector

	mu   sync.Mutex
	sess state.Session

	// store, when set, persists the session across restarts.
	store *state.Store

	mode       params.DetectionMode
	warnNative sync.Once
}

func NewTracker(config *params.DetectionConfig, lnk link.Link) *Tracker {
	if config == nil {
		config = params.DefaultDetectionConfig
	}
	t := &Tracker{
		Config:  config,
		EyeUsed: gaze.EyeLeft,
		link:    lnk,
		logger:  slog.With("d", "tracker"),
	}
	t.csv = csvlog.New(lnk)
	t.fix = fixation.New(config, t)
	t.sac = saccade.New(config, t)
	t.SetDetectionMode(config.Mode)
	return t
}

// WithStore attaches a session store; the current session (if any) is
// restored from it.
func (t *Tracker) WithStore(s *state.Store) *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.store = s
	sess, err := s.ReadSession()
	if err != nil {
		t.logger.Warn("Failed to read stored session", "error", err)
		return t
	}
	t.sess = sess
	if sess.Recording() {
		t.logger.Warn("Restored session has a dangling recording", "recording", sess.RecordingID)
	}
	return t
}

// Session returns a copy of the current session state.
func (t *Tracker) Session() state.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sess
}

func (t *Tracker) persistSession() {
	if t.store == nil {
		return
	}
	if err := t.store.StoreSession(t.sess); err != nil {
		t.logger.Error("Failed to persist session", "error", err)
	}
}

// SetDetectionMode selects the event detection algorithms. The device has
// no native fixation/saccade/blink detection, so ModeNative downgrades to
// ModePyGaze with a warning; the effective mode is returned.
func (t *Tracker) SetDetectionMode(mode params.DetectionMode) params.DetectionMode {
	if mode == params.ModeNative {
		t.warnNative.Do(func() {
			t.logger.Warn("'native' event detection has been selected, " +
				"but the device provides no detection algorithms; " +
				"the pygaze algorithms will be used instead")
		})
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = params.ModePyGaze
	return t.mode
}

// Sample returns the newest gaze position. Outside capturing mode, or on
// sample dropout, the sentinel is returned; dropout is expected in live
// operation and is not an error.
func (t *Tracker) Sample() gaze.GazePoint {
	if !t.link.IsStreaming() {
		t.logger.Error("The eye-tracker is not in capturing mode.")
		return gaze.SentinelGazePoint()
	}
	s := t.link.LatestGazePoint()
	if !gaze.IsValid(s) {
		t.logger.Debug("No gaze position data available.")
	}
	return s
}

// Sample3D returns the newest 3D gaze position.
func (t *Tracker) Sample3D() gaze.GazePoint3D {
	if !t.link.IsStreaming() {
		t.logger.Error("The eye-tracker is not in capturing mode.")
		return gaze.SentinelGazePoint3D()
	}
	s := t.link.LatestGazePoint3D()
	if !gaze.IsValid(s) {
		t.logger.Debug("No gaze 3d position data available.")
	}
	return s
}

// EyePosition returns the newest 3D eye position for the eye selected by
// EyeUsed. With EyeBinocular the link averages the two eyes, provided both
// report the same gaze event.
func (t *Tracker) EyePosition() gaze.EyePosition3D {
	if !t.link.IsStreaming() {
		t.logger.Error("The eye-tracker is not in capturing mode.")
		return gaze.SentinelEyePosition3D()
	}
	s := t.link.LatestEyePosition(t.EyeUsed)
	if !gaze.IsValid(s) {
		t.logger.Debug("No eye position data available.")
	}
	return s
}

// PupilSize returns the newest pupil diameters for both eyes, provided
// they belong to the same gaze event.
func (t *Tracker) PupilSize() gaze.PupilSizes {
	if !t.link.IsStreaming() {
		t.logger.Error("The eye-tracker is not in capturing mode.")
		return gaze.SentinelPupilSizes()
	}
	lpd, lts, lgidx := t.link.LatestPupil(gaze.EyeLeft)
	rpd, rts, rgidx := t.link.LatestPupil(gaze.EyeRight)
	if lgidx < 0 || lgidx != rgidx {
		t.logger.Debug("No pupil size data available.")
		return gaze.SentinelPupilSizes()
	}
	return gaze.PupilSizes{
		Left:  lpd,
		Right: rpd,
		TS:    (lts + rts) / 2,
		Gidx:  lgidx,
	}
}

// MEMS returns the newest inertial snapshot.
func (t *Tracker) MEMS() gaze.MEMS {
	return t.link.LatestMEMS()
}
