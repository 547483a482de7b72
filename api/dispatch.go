package api

import (
	"context"
	"fmt"

	"github.com/openglasses/gazed/events"
	"github.com/openglasses/gazed/types/gaze"
)

// WaitForEvent blocks until the event named by code occurs and returns it.
// Codes follow the experiment-toolkit convention: 3/4 blink start/end,
// 5/6 saccade start/end, 7/8 fixation start/end.
//
// Blink detection is not available on this device; blink codes return
// ErrUnsupportedOperation immediately instead of blocking forever. An
// unknown code is a programmer error and returns ErrUnsupportedEventCode.
func (t *Tracker) WaitForEvent(ctx context.Context, code gaze.EventCode) (gaze.Event, error) {
	var ev gaze.Event
	var err error

	switch code {
	case gaze.StartBlink, gaze.EndBlink:
		t.logger.Error("Blink detection is not supported for this device.", "code", code)
		return nil, ErrUnsupportedOperation
	case gaze.StartSaccade:
		ev, err = t.sac.WaitForStart(ctx)
	case gaze.EndSaccade:
		ev, err = t.sac.WaitForEnd(ctx)
	case gaze.StartFix:
		ev, err = t.fix.WaitForStart(ctx)
	case gaze.EndFix:
		ev, err = t.fix.WaitForEnd(ctx)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedEventCode, code)
	}

	if err != nil {
		return nil, err
	}
	events.DetectedEventFeed.Send(ev)
	return ev, nil
}

// publish forwards a detected event to the process-wide feed.
func publish[E gaze.Event](ev E, err error) (E, error) {
	if err == nil {
		events.DetectedEventFeed.Send(ev)
	}
	return ev, err
}

// WaitForFixationStart waits on the default dispersion algorithm, or on
// the windowed velocity filter when experimental is set.
func (t *Tracker) WaitForFixationStart(ctx context.Context, experimental bool) (gaze.FixationStart, error) {
	if experimental {
		return publish(t.fix.WaitForStartIVT(ctx))
	}
	return publish(t.fix.WaitForStart(ctx))
}

// WaitForFixationEnd waits on the default dispersion algorithm, or on the
// windowed velocity filter when experimental is set.
func (t *Tracker) WaitForFixationEnd(ctx context.Context, experimental bool) (gaze.FixationEnd, error) {
	if experimental {
		return publish(t.fix.WaitForEndIVT(ctx))
	}
	return publish(t.fix.WaitForEnd(ctx))
}

// WaitForSaccadeStart waits for a saccade onset.
func (t *Tracker) WaitForSaccadeStart(ctx context.Context) (gaze.SaccadeStart, error) {
	return publish(t.sac.WaitForStart(ctx))
}

// WaitForSaccadeEnd waits for a saccade to start and then end.
func (t *Tracker) WaitForSaccadeEnd(ctx context.Context) (gaze.SaccadeEnd, error) {
	return publish(t.sac.WaitForEnd(ctx))
}

// DriftCorrection is not supported for these glasses (yet).
func (t *Tracker) DriftCorrection() error {
	t.logger.Error("Drift correction is not supported for this device.")
	return ErrUnsupportedOperation
}

// SendCommand is not supported for these glasses (yet).
func (t *Tracker) SendCommand(cmd string) error {
	t.logger.Error("Commands are not supported for this device.", "cmd", cmd)
	return ErrUnsupportedOperation
}
