// Package link speaks to the glasses: a REST session API for projects,
// participants, calibrations and recordings, and a UDP live-data stream of
// gaze/eye/motion samples. The rest of the repository treats the link as an
// opaque latest-sample source plus session RPCs.
package link

import (
	"context"
	"errors"

	"github.com/openglasses/gazed/types/gaze"
	"github.com/paulmach/orb"
)

var (
	// ErrNotStreaming is returned when sample data is requested outside
	// capturing mode.
	ErrNotStreaming = errors.New("link: not in capturing mode")

	// ErrRequestRejected is returned when the device's REST API refuses a
	// session operation.
	ErrRequestRejected = errors.New("link: request rejected by device")
)

// Link is the device surface consumed by the driver.
type Link interface {
	IsStreaming() bool
	StartStreaming(ctx context.Context) error
	StopStreaming() error

	SampleSnapshot

	CreateProject(ctx context.Context, name string) (string, error)
	CreateParticipant(ctx context.Context, projectID, name string) (string, error)
	CreateCalibration(ctx context.Context, projectID, participantID string) (string, error)
	StartCalibration(ctx context.Context, calibrationID string) error
	WaitUntilCalibrated(ctx context.Context, calibrationID string) (bool, error)
	CreateRecording(ctx context.Context, participantID string) (string, error)
	StartRecording(ctx context.Context, recordingID string) error
	StopRecording(ctx context.Context, recordingID string) error
	WaitUntilRecordingDone(ctx context.Context, recordingID string) error
	WaitUntilStatusOK(ctx context.Context) (bool, error)
}

// SampleSnapshot reads the freshest known samples. Implementations return
// sentinels, never stale or partially-written data: samples are replaced
// atomically and expire after params.LinkConfig.SampleTTL.
type SampleSnapshot interface {
	LatestGazePoint() gaze.GazePoint
	LatestGazePoint3D() gaze.GazePoint3D
	LatestEyePosition(eye gaze.Eye) gaze.EyePosition3D
	LatestPupil(eye gaze.Eye) (pd float64, ts int64, gidx int64)
	LatestMEMS() gaze.MEMS
	Snapshot() Snapshot
}

// EyeSnapshot is one eye's latest readings for the data logger.
// Nil pointers mean no (fresh) data.
type EyeSnapshot struct {
	PC *gaze.Vec3
	PD *float64
	GD *gaze.Vec3
}

// Snapshot is a point-in-time copy of everything the device has streamed
// lately, consumed by the CSV data logger.
type Snapshot struct {
	AC    *[3]float64
	GY    *[3]float64
	GP    *orb.Point
	GP3   *gaze.Vec3
	Left  EyeSnapshot
	Right EyeSnapshot
}
