// Package detect defines the live sample source the event detectors poll.
//
// Detection runs against partial information: the source always reports the
// most recent sample it knows of (a single-slot mailbox, overwrite not
// queue), and reports a sentinel when the device has nothing. Detector loops
// poll at a bounded interval rather than spinning, and cancel via context.
package detect

import (
	"context"
	"time"

	"github.com/openglasses/gazed/types/gaze"
)

// Source is the latest-sample view of a streaming tracker.
// Implementations must return atomically-replaced snapshots; a partially
// updated sample must never be observed. Sentinels mean no data.
type Source interface {
	Sample() gaze.GazePoint
	Sample3D() gaze.GazePoint3D
	EyePosition() gaze.EyePosition3D
}

// Clock returns the current wall-clock time. Detectors take one so tests
// can script kinematics deterministically.
type Clock func() time.Time

// Tick blocks for one poll interval or until the context is done,
// in which case it returns the context's error.
func Tick(ctx context.Context, interval time.Duration) error {
	t := time.NewTimer(interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NextValidSample polls the source until it yields a non-sentinel 2D gaze
// position.
func NextValidSample(ctx context.Context, src Source, interval time.Duration) (gaze.GazePoint, error) {
	for {
		s := src.Sample()
		if gaze.IsValid(s) {
			return s, nil
		}
		if err := Tick(ctx, interval); err != nil {
			return gaze.SentinelGazePoint(), err
		}
	}
}
