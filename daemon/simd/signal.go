package simd

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// signal generates a plausible scanpath: the synthetic eye holds a
// fixation for a few hundred milliseconds, then saccades to a new target.
// Gaze positions are in the scene camera's normalized coordinates, with
// jitter during fixations so downstream filters have something to smooth.
type signal struct {
	rng *rand.Rand

	ts   int64 // ms since stream start
	gidx int64

	pos      [2]float64
	target   [2]float64
	phase    string // "fixating", "saccading"
	phaseEnd int64  // ts at which the current phase ends
}

func newSignal() *signal {
	s := &signal{
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		pos:   [2]float64{0.5, 0.5},
		phase: "fixating",
	}
	s.target = s.pos
	s.phaseEnd = s.fixationLength()
	return s
}

func (s *signal) fixationLength() int64 {
	return s.ts + 200 + s.rng.Int63n(300)
}

// next advances the scanpath by one sample interval and returns the
// datagrams for every live-data channel at the new position.
func (s *signal) next(interval time.Duration) [][]byte {
	s.ts += interval.Milliseconds()
	s.gidx++

	if s.ts >= s.phaseEnd {
		switch s.phase {
		case "fixating":
			s.target = [2]float64{0.2 + 0.6*s.rng.Float64(), 0.2 + 0.6*s.rng.Float64()}
			s.phase = "saccading"
			s.phaseEnd = s.ts + 40 + s.rng.Int63n(40)
		case "saccading":
			s.pos = s.target
			s.phase = "fixating"
			s.phaseEnd = s.fixationLength()
		}
	}

	gp := s.pos
	if s.phase == "saccading" {
		// Linear slide toward the target; fast enough to trip any
		// reasonable velocity threshold.
		frac := 0.5
		gp[0] = s.pos[0] + (s.target[0]-s.pos[0])*frac
		gp[1] = s.pos[1] + (s.target[1]-s.pos[1])*frac
		s.pos = gp
	} else {
		gp[0] += s.jitter(0.003)
		gp[1] += s.jitter(0.003)
	}

	// Project the normalized gaze point onto a plane 1.5 m ahead,
	// 40 cm wide. Units are mm, as on the device.
	gp3 := [3]float64{(gp[0] - 0.5) * 400, (gp[1] - 0.5) * 300, 1500}

	batch := [][]byte{
		s.datagram(`{"ts": %d, "s": 0, "gidx": %d, "l": 82, "gp": [%.4f, %.4f]}`, gp[0], gp[1]),
		s.datagram(`{"ts": %d, "s": 0, "gidx": %d, "l": 82, "gp3": [%.2f, %.2f, %.2f]}`, gp3[0], gp3[1], gp3[2]),
	}
	batch = append(batch, s.eyeDatagrams(gp3)...)
	batch = append(batch,
		s.datagram(`{"ts": %d, "s": 0, "gidx": %d, "ac": [%.4f, %.4f, %.4f]}`, s.jitter(0.05), s.jitter(0.05), -9.81+s.jitter(0.05)),
		s.datagram(`{"ts": %d, "s": 0, "gidx": %d, "gy": [%.4f, %.4f, %.4f]}`, s.jitter(0.5), s.jitter(0.5), s.jitter(0.5)),
	)
	return batch
}

// eyeDatagrams emits pc, pd, and gd for both eyes. The pupil centers sit
// a fixed interocular half-distance either side of the scene camera.
func (s *signal) eyeDatagrams(gp3 [3]float64) [][]byte {
	out := make([][]byte, 0, 6)
	for _, eye := range []struct {
		name string
		x    float64
	}{{"left", -32.5}, {"right", 32.5}} {
		pc := [3]float64{eye.x + s.jitter(0.1), 5 + s.jitter(0.1), -30}
		gd := unit([3]float64{gp3[0] - pc[0], gp3[1] - pc[1], gp3[2] - pc[2]})
		pd := 3.2 + s.jitter(0.05)
		out = append(out,
			s.datagram(`{"ts": %d, "s": 0, "gidx": %d, "eye": %q, "pc": [%.2f, %.2f, %.2f]}`, eye.name, pc[0], pc[1], pc[2]),
			s.datagram(`{"ts": %d, "s": 0, "gidx": %d, "eye": %q, "pd": %.3f}`, eye.name, pd),
			s.datagram(`{"ts": %d, "s": 0, "gidx": %d, "eye": %q, "gd": [%.4f, %.4f, %.4f]}`, eye.name, gd[0], gd[1], gd[2]),
		)
	}
	return out
}

// datagram formats one JSON packet, prepending the shared ts and gidx.
func (s *signal) datagram(format string, args ...any) []byte {
	all := append([]any{s.ts, s.gidx}, args...)
	return []byte(fmt.Sprintf(format, all...))
}

func (s *signal) jitter(scale float64) float64 {
	return s.rng.NormFloat64() * scale
}

func unit(v [3]float64) [3]float64 {
	n := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if n == 0 {
		return v
	}
	return [3]float64{v[0] / n, v[1] / n, v[2] / n}
}
