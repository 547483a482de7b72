package saccade

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/openglasses/gazed/params"
	"github.com/openglasses/gazed/types/gaze"
	"github.com/paulmach/orb"
)

type scriptedSource struct {
	mu  sync.Mutex
	i   int
	gps []gaze.GazePoint
}

func (s *scriptedSource) Sample() gaze.GazePoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.i < len(s.gps)-1 {
		s.i++
	}
	return s.gps[s.i]
}

func (s *scriptedSource) Sample3D() gaze.GazePoint3D      { return gaze.SentinelGazePoint3D() }
func (s *scriptedSource) EyePosition() gaze.EyePosition3D { return gaze.SentinelEyePosition3D() }

type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func testConfig() *params.DetectionConfig {
	config := *params.DefaultDetectionConfig
	config.PollInterval = 50 * time.Microsecond
	return &config
}

func point(x, y float64) gaze.GazePoint {
	return gaze.GazePoint{GP: orb.Point{x, y}}
}

func newDetector(gps []gaze.GazePoint) *Detector {
	d := New(testConfig(), &scriptedSource{gps: gps})
	clock := &fakeClock{now: time.UnixMilli(1_000_000), step: 10 * time.Millisecond}
	d.Clock = clock.Now
	return d
}

func TestWaitForStart_Jump(t *testing.T) {
	// A 500px jump within one sample period is ballistic by any measure.
	gps := []gaze.GazePoint{
		point(100, 100), point(100, 100),
		point(600, 600), point(600, 600),
	}
	d := newDetector(gps)

	start, err := d.WaitForStart(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// The start position is the pre-movement sample.
	if start.Pos != (orb.Point{100, 100}) {
		t.Errorf("start pos: got %v, want (100, 100)", start.Pos)
	}
}

// Sub-threshold jitter never weighs in: each step stays inside the
// precision ellipse, so no kinematics are even computed.
func TestWaitForStart_JitterNoEvent(t *testing.T) {
	gps := []gaze.GazePoint{point(100, 100)}
	for i := 1; i < 40; i++ {
		gps = append(gps, point(100+float64(i%3), 100+float64((i+1)%3)))
	}
	d := newDetector(gps)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := d.WaitForStart(ctx); err == nil {
		t.Fatal("classified jitter as a saccade")
	}
}

// Unchanged samples are mailbox re-reads, not zero-velocity evidence.
func TestWaitForStart_UnchangedSamplesRejected(t *testing.T) {
	gps := repeatPoint(point(300, 300), 40)
	d := newDetector(gps)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := d.WaitForStart(ctx); err == nil {
		t.Fatal("classified a frozen gaze as a saccade")
	}
}

func TestWaitForEnd(t *testing.T) {
	// Jump, then glide to a stop: small decreasing steps keep velocity
	// under threshold and deceleration shallow.
	gps := []gaze.GazePoint{
		point(100, 100), point(100, 100),
		point(600, 600),
	}
	x := 600.0
	for i := 0; i < 30; i++ {
		x += 10 - float64(min(i, 9))
		gps = append(gps, point(x, 600))
	}
	d := newDetector(gps)

	end, err := d.WaitForEnd(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if end.StartPos != (orb.Point{100, 100}) {
		t.Errorf("start pos: got %v, want (100, 100)", end.StartPos)
	}
	if end.EndPos.Y() != 600 {
		t.Errorf("end pos: got %v", end.EndPos)
	}
	if end.Time <= 1_000_000 {
		t.Errorf("end time before clock epoch: %d", end.Time)
	}
}

func TestWaitForStart_Canceled(t *testing.T) {
	d := newDetector([]gaze.GazePoint{gaze.SentinelGazePoint()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.WaitForStart(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func repeatPoint(p gaze.GazePoint, n int) []gaze.GazePoint {
	out := make([]gaze.GazePoint, n)
	for i := range out {
		out[i] = p
	}
	return out
}
