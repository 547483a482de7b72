package link

import (
	"testing"
	"time"

	"github.com/openglasses/gazed/events"
	"github.com/openglasses/gazed/params"
	"github.com/openglasses/gazed/types/gaze"
	"github.com/paulmach/orb"
)

func newTestGlasses() *Glasses {
	config := *params.DefaultLinkConfig
	config.SampleTTL = time.Hour // no expiry during the test
	return NewGlasses(&config)
}

func TestMailbox_ConsumeGazePoint(t *testing.T) {
	g := newTestGlasses()
	g.box.consume([]byte(`{"ts": 100, "s": 0, "gidx": 7, "l": 82, "gp": [0.5, 0.6]}`))

	gp := g.LatestGazePoint()
	if gp.GP != (orb.Point{0.5, 0.6}) || gp.TS != 100 || gp.Gidx != 7 {
		t.Errorf("got %+v", gp)
	}
}

func TestMailbox_PublishesAcceptedSamples(t *testing.T) {
	ch := make(chan gaze.GazePoint, 2)
	sub := events.GazeSampleFeed.Subscribe(ch)
	defer sub.Unsubscribe()

	g := newTestGlasses()
	g.box.consume([]byte(`{"ts": 100, "s": 1, "gidx": 7, "gp": [0.5, 0.6]}`)) // flagged
	g.box.consume([]byte(`{"ts": 110, "s": 0, "gidx": 8, "gp": [0.5, 0.6]}`))

	select {
	case gp := <-ch:
		if gp.TS != 110 || gp.Gidx != 8 {
			t.Errorf("published sample: %+v", gp)
		}
	case <-time.After(time.Second):
		t.Fatal("accepted sample never reached the feed")
	}
	select {
	case gp := <-ch:
		t.Errorf("flagged sample published: %+v", gp)
	default:
	}
}

// A non-zero "s" flags a sample the device itself distrusts.
func TestMailbox_SkipsFlaggedAndGarbage(t *testing.T) {
	g := newTestGlasses()
	g.box.consume([]byte(`{"ts": 100, "s": 1, "gidx": 7, "gp": [0.5, 0.6]}`))
	g.box.consume([]byte(`not json at all`))
	g.box.consume([]byte(`{"ts": 100, "s": 0, "gidx": 7, "gp": [0.5]}`)) // truncated

	if gaze.IsValid(g.LatestGazePoint()) {
		t.Error("flagged or garbage datagram filed as a sample")
	}
}

func TestMailbox_EyeChannels(t *testing.T) {
	g := newTestGlasses()
	g.box.consume([]byte(`{"ts": 100, "s": 0, "gidx": 7, "eye": "left", "pc": [-32, 5, -30]}`))
	g.box.consume([]byte(`{"ts": 101, "s": 0, "gidx": 7, "eye": "left", "pd": 3.5}`))
	g.box.consume([]byte(`{"ts": 102, "s": 0, "gidx": 7, "eye": "right", "pc": [33, 5, -30]}`))
	g.box.consume([]byte(`{"ts": 103, "s": 0, "gidx": 7, "eye": "right", "pd": 2.5}`))

	left := g.LatestEyePosition(gaze.EyeLeft)
	if left.PC != (gaze.Vec3{-32, 5, -30}) {
		t.Errorf("left pc: %+v", left)
	}
	// Same gidx: the pupil diameter rides along.
	if left.PD != 3.5 {
		t.Errorf("left pd: got %v, want 3.5", left.PD)
	}

	// Binocular is the average of the eyes on the same event.
	both := g.LatestEyePosition(gaze.EyeBinocular)
	if both.PC != (gaze.Vec3{0.5, 5, -30}) {
		t.Errorf("binocular pc: %+v", both.PC)
	}
	if both.PD != 3 {
		t.Errorf("binocular pd: got %v, want 3", both.PD)
	}
}

// Eyes reporting different gaze events must not be blended.
func TestMailbox_BinocularGidxMismatch(t *testing.T) {
	g := newTestGlasses()
	g.box.consume([]byte(`{"ts": 100, "s": 0, "gidx": 7, "eye": "left", "pc": [-32, 5, -30]}`))
	g.box.consume([]byte(`{"ts": 120, "s": 0, "gidx": 8, "eye": "right", "pc": [33, 5, -30]}`))

	if gaze.IsValid(g.LatestEyePosition(gaze.EyeBinocular)) {
		t.Error("blended eye positions from different events")
	}
}

// The device re-broadcasts packets on subscription renewal; an identical
// datagram must not overwrite a newer one.
func TestMailbox_Dedupe(t *testing.T) {
	g := newTestGlasses()
	first := []byte(`{"ts": 100, "s": 0, "gidx": 7, "gp": [0.5, 0.6]}`)
	g.box.consume(first)
	g.box.consume([]byte(`{"ts": 120, "s": 0, "gidx": 8, "gp": [0.7, 0.8]}`))
	g.box.consume(first) // replayed

	if gp := g.LatestGazePoint(); gp.TS != 120 {
		t.Errorf("replayed datagram overwrote a newer sample: %+v", gp)
	}
}

func TestMailbox_TTLExpiry(t *testing.T) {
	config := *params.DefaultLinkConfig
	config.SampleTTL = 10 * time.Millisecond
	g := NewGlasses(&config)

	g.box.consume([]byte(`{"ts": 100, "s": 0, "gidx": 7, "gp": [0.5, 0.6]}`))
	if !gaze.IsValid(g.LatestGazePoint()) {
		t.Fatal("fresh sample reported invalid")
	}
	time.Sleep(30 * time.Millisecond)
	if gaze.IsValid(g.LatestGazePoint()) {
		t.Error("expired sample still served")
	}
}

func TestMailbox_MEMS(t *testing.T) {
	g := newTestGlasses()
	g.box.consume([]byte(`{"ts": 100, "s": 0, "ac": [0.1, 0.2, -9.8]}`))
	g.box.consume([]byte(`{"ts": 101, "s": 0, "gy": [1, 2, 3]}`))

	m := g.LatestMEMS()
	if m.AC != [3]float64{0.1, 0.2, -9.8} {
		t.Errorf("ac: %+v", m.AC)
	}
	if m.GY != [3]float64{1, 2, 3} {
		t.Errorf("gy: %+v", m.GY)
	}
}

func TestSnapshot(t *testing.T) {
	g := newTestGlasses()
	g.box.consume([]byte(`{"ts": 100, "s": 0, "gidx": 7, "gp": [0.5, 0.6]}`))
	g.box.consume([]byte(`{"ts": 100, "s": 0, "gidx": 7, "gp3": [10, 20, 1500]}`))
	g.box.consume([]byte(`{"ts": 100, "s": 0, "gidx": 7, "eye": "left", "gd": [0, 0, 1]}`))

	snap := g.Snapshot()
	if snap.GP == nil || *snap.GP != (orb.Point{0.5, 0.6}) {
		t.Errorf("gp: %+v", snap.GP)
	}
	if snap.GP3 == nil || *snap.GP3 != (gaze.Vec3{10, 20, 1500}) {
		t.Errorf("gp3: %+v", snap.GP3)
	}
	if snap.Left.GD == nil || *snap.Left.GD != (gaze.Vec3{0, 0, 1}) {
		t.Errorf("left gd: %+v", snap.Left.GD)
	}
	// Channels never seen stay nil.
	if snap.AC != nil || snap.Right.PC != nil {
		t.Error("unseen channels not nil")
	}
}
