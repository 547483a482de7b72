package gaze

// MEMS is an inertial snapshot from the head unit:
// accelerometer in m/s^2, gyroscope in degrees/s.
type MEMS struct {
	AC [3]float64 `json:"ac"`
	GY [3]float64 `json:"gy"`
	TS int64      `json:"ts"`
}

func SentinelMEMS() MEMS {
	return MEMS{
		AC: [3]float64{-1, -1, -1},
		GY: [3]float64{-1, -1, -1},
		TS: -1,
	}
}

// PupilSizes is the per-eye pupil diameter reading, millimeters.
type PupilSizes struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
	TS    int64   `json:"ts"`
	Gidx  int64   `json:"gidx"`
}

func SentinelPupilSizes() PupilSizes {
	return PupilSizes{Left: -1, Right: -1, TS: -1, Gidx: -1}
}
