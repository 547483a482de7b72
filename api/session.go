package api

import (
	"context"
	"fmt"

	"github.com/openglasses/gazed/params"
)

// StartCapturing puts the link into streaming mode and reports whether it
// is streaming. Starting twice logs an error and changes nothing.
func (t *Tracker) StartCapturing(ctx context.Context) bool {
	if !t.link.IsStreaming() {
		if err := t.link.StartStreaming(ctx); err != nil {
			t.logger.Error("Failed to start streaming", "error", err)
		}
	} else {
		t.logger.Error("The eye-tracker is already in capturing mode.")
	}
	return t.link.IsStreaming()
}

// StopCapturing leaves streaming mode; true means no longer streaming.
func (t *Tracker) StopCapturing() bool {
	if t.link.IsStreaming() {
		if err := t.link.StopStreaming(); err != nil {
			t.logger.Error("Failed to stop streaming", "error", err)
		}
	} else {
		t.logger.Error("The eye-tracker is not in capturing mode.")
	}
	return !t.link.IsStreaming()
}

// Connected blocks until the device reports an OK status.
func (t *Tracker) Connected(ctx context.Context) bool {
	ok, err := t.link.WaitUntilStatusOK(ctx)
	if err != nil {
		t.logger.Error("Status wait failed", "error", err)
		return false
	}
	return ok
}

// SetProject creates a project on the device and makes it current.
func (t *Tracker) SetProject(ctx context.Context, name string) error {
	id, err := t.link.CreateProject(ctx, name)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.sess.ProjectID = id
	t.persistSession()
	t.mu.Unlock()
	return nil
}

// SetParticipant creates a participant under the current project. A
// project must exist first.
func (t *Tracker) SetParticipant(ctx context.Context, name string) error {
	t.mu.Lock()
	project := t.sess.ProjectID
	t.mu.Unlock()
	if project == "" {
		t.logger.Error("There is no project to assign a participant.")
		return fmt.Errorf("no current project")
	}
	id, err := t.link.CreateParticipant(ctx, project, name)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.sess.ParticipantID = id
	t.persistSession()
	t.mu.Unlock()
	return nil
}

// Calibrate runs a device calibration session: project and participant are
// lazily created if absent, a calibration is created and started, and the
// call blocks until the device reports the outcome.
func (t *Tracker) Calibrate(ctx context.Context) (bool, error) {
	t.mu.Lock()
	project := t.sess.ProjectID
	participant := t.sess.ParticipantID
	t.mu.Unlock()

	if project == "" {
		if err := t.SetProject(ctx, ""); err != nil {
			return false, err
		}
	}
	if participant == "" {
		if err := t.SetParticipant(ctx, ""); err != nil {
			return false, err
		}
	}

	t.mu.Lock()
	project, participant = t.sess.ProjectID, t.sess.ParticipantID
	t.mu.Unlock()

	calibration, err := t.link.CreateCalibration(ctx, project, participant)
	if err != nil {
		return false, err
	}
	t.mu.Lock()
	t.sess.CalibrationID = calibration
	t.persistSession()
	t.mu.Unlock()

	if err := t.link.StartCalibration(ctx, calibration); err != nil {
		return false, err
	}
	ok, err := t.link.WaitUntilCalibrated(ctx, calibration)
	if err != nil {
		return false, err
	}
	t.logger.Info("Calibration finished", "calibration", calibration, "ok", ok)
	return ok, nil
}

// StartRecording creates and starts a recording for the current
// participant. Starting while a recording is active is a logged no-op; a
// device refusal to start is loud.
func (t *Tracker) StartRecording(ctx context.Context) error {
	t.mu.Lock()
	if t.sess.Recording() {
		t.mu.Unlock()
		t.logger.Error("The glasses are already recording!")
		return ErrAlreadyRecording
	}
	participant := t.sess.ParticipantID
	t.mu.Unlock()

	recording, err := t.link.CreateRecording(ctx, participant)
	if err != nil {
		return err
	}
	if err := t.link.StartRecording(ctx, recording); err != nil {
		return fmt.Errorf("%w: %w", ErrRecordingStartFailed, err)
	}

	t.mu.Lock()
	t.sess.RecordingID = recording
	t.persistSession()
	t.mu.Unlock()

	t.logger.Debug("Recording started", "recording", recording)
	return nil
}

// StopRecording stops the active recording and waits for the device to
// finish writing it. Stopping with no active recording is a logged no-op
// that leaves session state unchanged.
func (t *Tracker) StopRecording(ctx context.Context) error {
	t.mu.Lock()
	recording := t.sess.RecordingID
	t.mu.Unlock()

	if recording == "" {
		t.logger.Error("There is no recording started!")
		return ErrNotRecording
	}

	if err := t.link.StopRecording(ctx, recording); err != nil {
		return err
	}
	if err := t.link.WaitUntilRecordingDone(ctx, recording); err != nil {
		return err
	}

	t.mu.Lock()
	t.sess.RecordingID = ""
	t.persistSession()
	t.mu.Unlock()
	return nil
}

// StartLogging begins CSV logging of the selected channels.
func (t *Tracker) StartLogging(logfile string, frequency float64, keys []string, triggers []string, timeOffset float64) error {
	if keys == nil {
		keys = params.DefaultLogKeys
	}
	return t.csv.Start(logfile, frequency, keys, triggers, timeOffset)
}

// StopLogging ends CSV logging and joins the writer.
func (t *Tracker) StopLogging() error {
	return t.csv.Stop()
}

// Trigger records a trigger value for the CSV log.
func (t *Tracker) Trigger(key, value string) {
	t.csv.Trigger(key, value)
}

// Close neatly shuts the tracker down: logging first, then streaming.
// Safe to call multiple times.
func (t *Tracker) Close() error {
	if t.csv.Running() {
		if err := t.csv.Stop(); err != nil {
			t.logger.Error("Failed to stop logging", "error", err)
		}
	}
	if t.link.IsStreaming() {
		if err := t.link.StopStreaming(); err != nil {
			return err
		}
	}
	return nil
}
