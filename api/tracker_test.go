package api

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/openglasses/gazed/common"
	"github.com/openglasses/gazed/events"
	"github.com/openglasses/gazed/link"
	"github.com/openglasses/gazed/params"
	"github.com/openglasses/gazed/state"
	"github.com/openglasses/gazed/types/gaze"
	"github.com/paulmach/orb"
)

func newMockTracker() (*Tracker, *link.Mock) {
	m := link.NewMock()
	return NewTracker(nil, m), m
}

func TestSampleOutsideCapturing(t *testing.T) {
	defer common.SlogResetLevel(slog.Level(slog.LevelError + 1))()
	tr, _ := newMockTracker()

	if gaze.IsValid(tr.Sample()) {
		t.Error("sample outside capturing mode not sentinel")
	}
	if gaze.IsValid(tr.Sample3D()) {
		t.Error("3d sample outside capturing mode not sentinel")
	}
	if gaze.IsValid(tr.EyePosition()) {
		t.Error("eye position outside capturing mode not sentinel")
	}
}

func TestSampleReaders(t *testing.T) {
	tr, m := newMockTracker()
	tr.StartCapturing(context.Background())

	m.SetGazePoint(gaze.GazePoint{GP: orb.Point{0.4, 0.6}, TS: 50, Gidx: 3})
	if s := tr.Sample(); s.GP != (orb.Point{0.4, 0.6}) {
		t.Errorf("sample: %+v", s)
	}

	// EyeUsed selects the channel.
	m.SetEyePosition(gaze.EyeRight, gaze.EyePosition3D{PC: gaze.Vec3{33, 5, -30}, TS: 50, Gidx: 3})
	tr.EyeUsed = gaze.EyeRight
	if s := tr.EyePosition(); s.PC != (gaze.Vec3{33, 5, -30}) {
		t.Errorf("eye position: %+v", s)
	}
}

func TestPupilSize_RequiresMatchingEvents(t *testing.T) {
	defer common.SlogResetLevel(slog.Level(slog.LevelError + 1))()
	tr, m := newMockTracker()
	tr.StartCapturing(context.Background())

	m.SetEyePosition(gaze.EyeLeft, gaze.EyePosition3D{PC: gaze.Vec3{-32, 5, -30}, PD: 3.5, TS: 50, Gidx: 3})
	m.SetEyePosition(gaze.EyeRight, gaze.EyePosition3D{PC: gaze.Vec3{33, 5, -30}, PD: 2.5, TS: 52, Gidx: 3})

	ps := tr.PupilSize()
	if ps.Left != 3.5 || ps.Right != 2.5 || ps.Gidx != 3 {
		t.Errorf("pupil sizes: %+v", ps)
	}

	// Different gidx: the eyes are on different events, report nothing.
	m.SetEyePosition(gaze.EyeRight, gaze.EyePosition3D{PC: gaze.Vec3{33, 5, -30}, PD: 2.5, TS: 70, Gidx: 4})
	if ps := tr.PupilSize(); ps.Gidx != -1 {
		t.Errorf("mismatched events blended: %+v", ps)
	}
}

func TestWaitForEvent_UnsupportedCodes(t *testing.T) {
	defer common.SlogResetLevel(slog.Level(slog.LevelError + 1))()
	tr, _ := newMockTracker()
	ctx := context.Background()

	// Blink detection does not exist on this hardware: immediate error,
	// no blocking.
	if _, err := tr.WaitForEvent(ctx, gaze.StartBlink); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("blink start: got %v, want ErrUnsupportedOperation", err)
	}
	if _, err := tr.WaitForEvent(ctx, gaze.EndBlink); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("blink end: got %v, want ErrUnsupportedOperation", err)
	}

	if _, err := tr.WaitForEvent(ctx, gaze.EventCode(99)); !errors.Is(err, ErrUnsupportedEventCode) {
		t.Errorf("unknown code: got %v, want ErrUnsupportedEventCode", err)
	}

	if err := tr.DriftCorrection(); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("drift correction: got %v", err)
	}
	if err := tr.SendCommand("beep"); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("send command: got %v", err)
	}
}

func TestWaitForEvent_FixationStart(t *testing.T) {
	tr, m := newMockTracker()
	tr.StartCapturing(context.Background())
	m.SetGazePoint(gaze.GazePoint{GP: orb.Point{200, 200}, TS: 10, Gidx: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := tr.WaitForEvent(ctx, gaze.StartFix)
	if err != nil {
		t.Fatal(err)
	}
	start, ok := ev.(gaze.FixationStart)
	if !ok {
		t.Fatalf("event type: %T", ev)
	}
	if start.Pos != (orb.Point{200, 200}) {
		t.Errorf("fixation pos: %v", start.Pos)
	}
}

func TestWaitForFixationStart_PublishesToFeed(t *testing.T) {
	tr, m := newMockTracker()
	tr.StartCapturing(context.Background())
	m.SetGazePoint(gaze.GazePoint{GP: orb.Point{320, 240}, TS: 10, Gidx: 1})

	ch := make(chan gaze.Event, 1)
	sub := events.DetectedEventFeed.Subscribe(ch)
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := tr.WaitForFixationStart(ctx, false)
	if err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-ch:
		start, ok := got.(gaze.FixationStart)
		if !ok {
			t.Fatalf("feed event type: %T", got)
		}
		if start.Pos != ev.Pos {
			t.Errorf("feed event pos: got %v, want %v", start.Pos, ev.Pos)
		}
	case <-time.After(time.Second):
		t.Fatal("detected event never reached the feed")
	}
}

func TestSetDetectionMode_NativeDowngrades(t *testing.T) {
	tr, _ := newMockTracker()
	if mode := tr.SetDetectionMode(params.ModeNative); mode != params.ModePyGaze {
		t.Errorf("mode: got %v, want pygaze", mode)
	}
}

func TestRecordingLifecycle(t *testing.T) {
	defer common.SlogResetLevel(slog.Level(slog.LevelError + 1))()
	tr, m := newMockTracker()
	ctx := context.Background()

	if err := tr.StopRecording(ctx); !errors.Is(err, ErrNotRecording) {
		t.Errorf("stop before start: got %v, want ErrNotRecording", err)
	}

	if err := tr.StartRecording(ctx); err != nil {
		t.Fatal(err)
	}
	if !tr.Session().Recording() {
		t.Fatal("session has no recording after start")
	}
	if err := tr.StartRecording(ctx); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("double start: got %v, want ErrAlreadyRecording", err)
	}

	if err := tr.StopRecording(ctx); err != nil {
		t.Fatal(err)
	}
	if tr.Session().Recording() {
		t.Error("session still recording after stop")
	}
	if len(m.Stopped) != 1 {
		t.Errorf("device stop calls: %v", m.Stopped)
	}
}

func TestStartRecording_DeviceRefusal(t *testing.T) {
	defer common.SlogResetLevel(slog.Level(slog.LevelError + 1))()
	tr, m := newMockTracker()
	m.FailRecordingStart = true

	err := tr.StartRecording(context.Background())
	if !errors.Is(err, ErrRecordingStartFailed) {
		t.Fatalf("got %v, want ErrRecordingStartFailed", err)
	}
	if tr.Session().Recording() {
		t.Error("refused recording left in session state")
	}
}

func TestCalibrate_LazySession(t *testing.T) {
	tr, _ := newMockTracker()

	ok, err := tr.Calibrate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("calibration reported failure")
	}
	sess := tr.Session()
	if sess.ProjectID == "" || sess.ParticipantID == "" || sess.CalibrationID == "" {
		t.Errorf("session ids not lazily created: %+v", sess)
	}
}

func TestSetParticipant_RequiresProject(t *testing.T) {
	defer common.SlogResetLevel(slog.Level(slog.LevelError + 1))()
	tr, _ := newMockTracker()
	if err := tr.SetParticipant(context.Background(), "subject-1"); err == nil {
		t.Fatal("participant created without a project")
	}
}

func TestSessionPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := state.Open(path)
	if err != nil {
		t.Fatal(err)
	}

	tr, _ := newMockTracker()
	tr = tr.WithStore(store)
	if err := tr.SetProject(context.Background(), "exp"); err != nil {
		t.Fatal(err)
	}
	project := tr.Session().ProjectID
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	// A new tracker on the same store restores the session.
	store, err = state.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	tr2, _ := newMockTracker()
	tr2 = tr2.WithStore(store)
	if tr2.Session().ProjectID != project {
		t.Errorf("restored project: got %q, want %q", tr2.Session().ProjectID, project)
	}
}

func TestCloseIdempotent(t *testing.T) {
	tr, m := newMockTracker()
	tr.StartCapturing(context.Background())
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if m.IsStreaming() {
		t.Error("still streaming after close")
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
}
