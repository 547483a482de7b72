// Package saccade detects saccade starts and ends on a live gaze stream,
// after the online algorithm of Dalmaijer et al. (2013).
//
// A saccade starts when the inter-sample velocity or acceleration crosses
// its threshold, but only for displacements large enough to beat
// measurement noise: the per-axis displacement is weighted against the
// pixel precision thresholds, (sx/dx)^2 + (sy/dy)^2 > WeightDist, an
// ellipse rather than a circle because horizontal and vertical precision
// differ. A saccade ends when velocity has fallen under threshold while
// decelerating.
package saccade

import (
	"context"
	"math"
	"time"

	"github.com/openglasses/gazed/detect"
	"github.com/openglasses/gazed/params"
	"github.com/openglasses/gazed/types/gaze"
)

type Detector struct {
	Config *params.DetectionConfig
	Source detect.Source
	Clock  detect.Clock
}

func New(config *params.DetectionConfig, source detect.Source) *Detector {
	if config == nil {
		config = params.DefaultDetectionConfig
	}
	return &Detector{
		Config: config,
		Source: source,
		Clock:  time.Now,
	}
}

func clockMS(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Millisecond)
}

// WaitForStart blocks until a saccade starts, returning the start time and
// the pre-movement gaze position. Unchanged samples are rejected as
// non-events: the mailbox can serve the same sample twice, and a zero
// displacement would fake a zero-velocity reading.
func (d *Detector) WaitForStart(ctx context.Context) (gaze.SaccadeStart, error) {
	newpos, err := detect.NextValidSample(ctx, d.Source, d.Config.PollInterval)
	if err != nil {
		return gaze.SaccadeStart{}, err
	}
	t0 := clockMS(d.Clock())
	prevpos := newpos
	v0 := 0.0

	dst := d.Config.PxDstThresh()
	for {
		newpos = d.Source.Sample()
		t1 := clockMS(d.Clock())
		if gaze.IsValid(newpos) && newpos.GP != prevpos.GP {
			sx := newpos.GP.X() - prevpos.GP.X()
			sy := newpos.GP.Y() - prevpos.GP.Y()
			// Weighted distance: (sx/dx)^2 + (sy/dy)^2 > weightdist means
			// the movement is larger than the RMS noise of the signal.
			if (sx/dst[0])*(sx/dst[0])+(sy/dst[1])*(sy/dst[1]) > d.Config.WeightDist {
				s := math.Sqrt(sx*sx + sy*sy)
				v1 := s / (t1 - t0) // px/ms
				a := (v1 - v0) / (t1 - t0)
				if v1 > d.Config.PxSpeedThresh() || a > d.Config.PxAccelThresh() {
					return gaze.SaccadeStart{
						Time: d.Clock().UnixMilli(),
						Pos:  prevpos.GP,
					}, nil
				}
				t0 = t1
				v0 = v1
			}
			prevpos = newpos
		}
		if err := detect.Tick(ctx, d.Config.PollInterval); err != nil {
			return gaze.SaccadeStart{}, err
		}
	}
}

// WaitForEnd blocks until a saccade has started and then ended, returning
// the end time with the start and end gaze positions. The saccade is over
// once velocity is under the speed threshold while acceleration is negative
// but not beyond the (negated) acceleration threshold: still decelerating,
// no longer ballistic.
func (d *Detector) WaitForEnd(ctx context.Context) (gaze.SaccadeEnd, error) {
	start, err := d.WaitForStart(ctx)
	if err != nil {
		return gaze.SaccadeEnd{}, err
	}
	t0 := float64(start.Time)

	prevpos, err := detect.NextValidSample(ctx, d.Source, d.Config.PollInterval)
	if err != nil {
		return gaze.SaccadeEnd{}, err
	}
	t1 := clockMS(d.Clock())
	s := math.Hypot(prevpos.GP.X()-start.Pos.X(), prevpos.GP.Y()-start.Pos.Y())
	v0 := s / (t1 - t0)
	t0 = t1

	for {
		newpos := d.Source.Sample()
		t1 = clockMS(d.Clock())
		if gaze.IsValid(newpos) && newpos.GP != prevpos.GP {
			s = math.Hypot(newpos.GP.X()-prevpos.GP.X(), newpos.GP.Y()-prevpos.GP.Y())
			v1 := s / (t1 - t0)
			a := (v1 - v0) / (t1 - t0)
			if v1 < d.Config.PxSpeedThresh() && a > -1*d.Config.PxAccelThresh() && a < 0 {
				return gaze.SaccadeEnd{
					Time:     d.Clock().UnixMilli(),
					StartPos: start.Pos,
					EndPos:   newpos.GP,
				}, nil
			}
			t0 = t1
			v0 = v1
			prevpos = newpos
		}
		if err := detect.Tick(ctx, d.Config.PollInterval); err != nil {
			return gaze.SaccadeEnd{}, err
		}
	}
}
