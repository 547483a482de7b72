// Package fixation detects fixation starts and ends on a live gaze stream.
//
// Two interchangeable strategies are provided. The dispersion strategy
// anchors on a gaze position and waits for it to hold within a pixel
// threshold for a minimum duration. The windowed strategy (WaitForStartIVT,
// WaitForEndIVT) keeps a short window of correlated samples across the 2D
// gaze, 3D gaze, and eye position channels and thresholds the angular
// velocity across the window span.
package fixation

import (
	"context"
	"time"

	"github.com/openglasses/gazed/detect"
	"github.com/openglasses/gazed/detect/ivt"
	"github.com/openglasses/gazed/params"
	"github.com/openglasses/gazed/types/gaze"
)

type Detector struct {
	Config *params.DetectionConfig
	Source detect.Source
	Clock  detect.Clock

	// win persists across calls so that an end detection continues from
	// the window state its start detection left behind.
	win *ivt.Window
}

func New(config *params.DetectionConfig, source detect.Source) *Detector {
	if config == nil {
		config = params.DefaultDetectionConfig
	}
	return &Detector{
		Config: config,
		Source: source,
		Clock:  time.Now,
		win:    ivt.NewWindow(config.WindowSize),
	}
}

// WaitForStart blocks until a fixation has started and returns its starting
// time and position. A fixation is assumed started once the gaze position
// has remained within the pixel dispersion threshold for
// Config.FixTimeThresh: any sample deviating farther resets both the anchor
// and the timer.
func (d *Detector) WaitForStart(ctx context.Context) (gaze.FixationStart, error) {
	spos, err := detect.NextValidSample(ctx, d.Source, d.Config.PollInterval)
	if err != nil {
		return gaze.FixationStart{}, err
	}
	t0 := d.Clock()

	thresh2 := d.Config.PxFixThresh() * d.Config.PxFixThresh()
	for {
		npos := d.Source.Sample()
		if gaze.IsValid(npos) {
			dx := npos.GP.X() - spos.GP.X()
			dy := npos.GP.Y() - spos.GP.Y()
			if dx*dx+dy*dy > thresh2 {
				// Gaze wandered; start over from here.
				spos = npos
				t0 = d.Clock()
			} else if d.Clock().Sub(t0) >= d.Config.FixTimeThresh {
				return gaze.FixationStart{Time: t0.UnixMilli(), Pos: spos.GP}, nil
			}
		}
		if err := detect.Tick(ctx, d.Config.PollInterval); err != nil {
			return gaze.FixationStart{}, err
		}
	}
}

// WaitForEnd blocks until a started fixation ends, i.e. until a valid
// sample deviates beyond the dispersion threshold from the fixation anchor.
// The returned event carries the anchor position and the wall-clock time of
// detection, not the deviating sample's device timestamp. That is the
// established toolkit behavior and downstream analysis depends on it.
func (d *Detector) WaitForEnd(ctx context.Context) (gaze.FixationEnd, error) {
	start, err := d.WaitForStart(ctx)
	if err != nil {
		return gaze.FixationEnd{}, err
	}

	thresh2 := d.Config.PxFixThresh() * d.Config.PxFixThresh()
	for {
		npos := d.Source.Sample()
		if gaze.IsValid(npos) {
			dx := npos.GP.X() - start.Pos.X()
			dy := npos.GP.Y() - start.Pos.Y()
			if dx*dx+dy*dy > thresh2 {
				now := d.Clock().UnixMilli()
				return gaze.FixationEnd{
					Time:     now,
					Duration: now - start.Time,
					Pos:      start.Pos,
				}, nil
			}
		}
		if err := detect.Tick(ctx, d.Config.PollInterval); err != nil {
			return gaze.FixationEnd{}, err
		}
	}
}

// WaitForStartIVT is the windowed variant of WaitForStart. It fills a
// window of mutually-valid, same-event samples across the three channels,
// then slides it one sample at a time. When the angular velocity across the
// window drops under Config.VelocityThresh, the middle sample is classified
// as a fixation start; the reported position is the per-axis median of the
// window, which smooths out measurement jitter.
func (d *Detector) WaitForStartIVT(ctx context.Context) (gaze.FixationStart, error) {
	for {
		if err := d.advanceWindow(ctx); err != nil {
			return gaze.FixationStart{}, err
		}
		if !d.win.Full() || !d.win.SameEvent() {
			continue
		}
		// TODO: Use the MEMS gyroscope to correct for head movement
		// before estimating angular velocity.
		v, err := d.win.AngularVelocity()
		if err != nil {
			continue
		}
		if v < d.Config.VelocityThresh {
			return gaze.FixationStart{
				Time: d.win.Middle().TS,
				Pos:  d.win.MedianGaze(),
				Pos3: d.win.MedianGaze3(),
			}, nil
		}
	}
}

// WaitForEndIVT is the windowed variant of WaitForEnd. Starting from a
// windowed fixation start, it keeps sliding the window and ends the
// fixation once the angular velocity exceeds the threshold and the elapsed
// fixation time exceeds Config.FixTimeThresh.
func (d *Detector) WaitForEndIVT(ctx context.Context) (gaze.FixationEnd, error) {
	start, err := d.WaitForStartIVT(ctx)
	if err != nil {
		return gaze.FixationEnd{}, err
	}

	for {
		if err := d.advanceWindow(ctx); err != nil {
			return gaze.FixationEnd{}, err
		}
		if !d.win.Full() || !d.win.SameEvent() {
			continue
		}
		v, err := d.win.AngularVelocity()
		if err != nil {
			continue
		}
		elapsed := d.win.Middle().TS - start.Time
		if v > d.Config.VelocityThresh && elapsed > d.Config.FixTimeThresh.Milliseconds() {
			return gaze.FixationEnd{
				Duration: elapsed,
				Pos:      d.win.Middle().GP,
				Pos3:     start.Pos3,
			}, nil
		}
	}
}

// advanceWindow pushes one mutually-valid sample triple, evicting the
// oldest when the window is already full. All three channels must report
// valid data at once; a triple with any sentinel in it is retried. One poll
// interval elapses before each fetch so sliding the window tracks the
// device's sample cadence instead of re-reading the same mailbox slot.
func (d *Detector) advanceWindow(ctx context.Context) error {
	for {
		if err := detect.Tick(ctx, d.Config.PollInterval); err != nil {
			return err
		}
		gp := d.Source.Sample()
		gp3 := d.Source.Sample3D()
		eye := d.Source.EyePosition()
		if gaze.IsValid(gp) && gaze.IsValid(gp3) && gaze.IsValid(eye) {
			d.win.Push(gp, gp3, eye)
			return nil
		}
	}
}

// ResetWindow discards window state, e.g. between recordings.
func (d *Detector) ResetWindow() {
	d.win.Reset()
}
