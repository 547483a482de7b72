package api

import "errors"

var (
	// ErrUnsupportedEventCode flags a programmer error: the dispatcher was
	// handed an event code outside 3..8. It fails loudly.
	ErrUnsupportedEventCode = errors.New("api: unsupported event code")

	// ErrUnsupportedOperation marks features the device simply does not
	// have, e.g. blink detection. Calls return it immediately rather than
	// blocking forever.
	ErrUnsupportedOperation = errors.New("api: operation not supported for this device")

	// ErrAlreadyRecording and ErrNotRecording guard duplicate recording
	// transitions. They are logged no-ops: session state is left unchanged.
	ErrAlreadyRecording = errors.New("api: a recording is already in progress")
	ErrNotRecording     = errors.New("api: no recording was started")

	// ErrRecordingStartFailed is loud: the device accepted the recording
	// but refused to start it.
	ErrRecordingStartFailed = errors.New("api: failed to start recording")
)
