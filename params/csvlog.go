package params

// Data channels loggable to CSV.
const (
	KeyMEMS     = "mems"
	KeyGazePos  = "gp"
	KeyGazePos3 = "gp3"
	KeyLeftEye  = "left_eye"
	KeyRightEye = "right_eye"
)

// DefaultLogKeys selects every channel the glasses stream.
var DefaultLogKeys = []string{KeyMEMS, KeyGazePos, KeyGazePos3, KeyLeftEye, KeyRightEye}

// DefaultLogFrequency is the data logger sampling frequency, Hz.
// The glasses deliver gaze at 50 or 100 Hz depending on model.
var DefaultLogFrequency = 50.0
