package link

import (
	"context"
	"fmt"
	"sync"

	"github.com/openglasses/gazed/types/gaze"
)

// Mock is an in-memory Link for tests and dry runs. Samples are set by the
// test; session calls hand out sequential ids and track minimal state.
type Mock struct {
	mu        sync.Mutex
	streaming bool

	gp   gaze.GazePoint
	gp3  gaze.GazePoint3D
	eyes map[gaze.Eye]gaze.EyePosition3D
	mems gaze.MEMS
	snap Snapshot

	nextID int

	// FailRecordingStart makes StartRecording reject, exercising the
	// loud-failure path.
	FailRecordingStart bool

	// CalibrationOutcome is what WaitUntilCalibrated reports.
	CalibrationOutcome bool

	Started []string // ids of started recordings/calibrations, in order
	Stopped []string
}

func NewMock() *Mock {
	return &Mock{
		gp:                 gaze.SentinelGazePoint(),
		gp3:                gaze.SentinelGazePoint3D(),
		eyes:               map[gaze.Eye]gaze.EyePosition3D{},
		mems:               gaze.SentinelMEMS(),
		CalibrationOutcome: true,
	}
}

func (m *Mock) IsStreaming() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streaming
}

func (m *Mock) StartStreaming(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streaming = true
	return nil
}

func (m *Mock) StopStreaming() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streaming = false
	return nil
}

func (m *Mock) SetGazePoint(s gaze.GazePoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gp = s
}

func (m *Mock) SetGazePoint3D(s gaze.GazePoint3D) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gp3 = s
}

func (m *Mock) SetEyePosition(eye gaze.Eye, s gaze.EyePosition3D) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eyes[eye] = s
}

func (m *Mock) SetMEMS(s gaze.MEMS) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mems = s
}

func (m *Mock) SetSnapshot(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = s
}

func (m *Mock) LatestGazePoint() gaze.GazePoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gp
}

func (m *Mock) LatestGazePoint3D() gaze.GazePoint3D {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gp3
}

func (m *Mock) LatestEyePosition(eye gaze.Eye) gaze.EyePosition3D {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.eyes[eye]; ok {
		return s
	}
	return gaze.SentinelEyePosition3D()
}

func (m *Mock) LatestPupil(eye gaze.Eye) (float64, int64, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.eyes[eye]; ok {
		return s.PD, s.TS, s.Gidx
	}
	return -1, -1, -1
}

func (m *Mock) LatestMEMS() gaze.MEMS {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mems
}

func (m *Mock) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *Mock) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *Mock) CreateProject(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id("pr"), nil
}

func (m *Mock) CreateParticipant(ctx context.Context, projectID, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id("pa"), nil
}

func (m *Mock) CreateCalibration(ctx context.Context, projectID, participantID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id("ca"), nil
}

func (m *Mock) StartCalibration(ctx context.Context, calibrationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Started = append(m.Started, calibrationID)
	return nil
}

func (m *Mock) WaitUntilCalibrated(ctx context.Context, calibrationID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CalibrationOutcome, nil
}

func (m *Mock) CreateRecording(ctx context.Context, participantID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id("rec"), nil
}

func (m *Mock) StartRecording(ctx context.Context, recordingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRecordingStart {
		return ErrRequestRejected
	}
	m.Started = append(m.Started, recordingID)
	return nil
}

func (m *Mock) StopRecording(ctx context.Context, recordingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stopped = append(m.Stopped, recordingID)
	return nil
}

func (m *Mock) WaitUntilRecordingDone(ctx context.Context, recordingID string) error {
	return nil
}

func (m *Mock) WaitUntilStatusOK(ctx context.Context) (bool, error) {
	return true, nil
}
