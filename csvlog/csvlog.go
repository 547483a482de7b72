// Package csvlog appends the tracker's live data to a semicolon-delimited
// CSV file on a fixed frequency, one row per sample period. Columns appear
// only for the requested channel keys; a header row naming each column
// (with units) is written once per session.
package csvlog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/montanaflynn/stats"
	"github.com/openglasses/gazed/link"
	"github.com/openglasses/gazed/params"
)

var (
	ErrAlreadyLogging = errors.New("csvlog: already in logging mode")
	ErrNotLogging     = errors.New("csvlog: not in logging mode")
)

// Snapshotter provides the latest live-data snapshot. The link implements it.
type Snapshotter interface {
	Snapshot() link.Snapshot
}

// Logger samples a Snapshotter at a fixed frequency on a background
// goroutine. Stop signals through a channel consumed at each iteration
// boundary, so at most one extra row lands after stop is requested.
type Logger struct {
	Source Snapshotter

	mu       sync.Mutex
	running  bool
	stop     chan struct{}
	waiting  sync.WaitGroup
	triggers []string
	values   map[string]string
	pds      []float64

	rows metrics.Meter
}

func New(source Snapshotter) *Logger {
	metrics.Enabled = true
	return &Logger{
		Source: source,
		values: map[string]string{},
		rows:   metrics.NewMeter(),
	}
}

// Trigger records a value to be written in the trigger's column of every
// subsequent row. Unknown trigger keys are ignored.
func (l *Logger) Trigger(key, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.values[key]; !ok {
		return
	}
	l.values[key] = value
	slog.Debug("Trigger received", "key", key, "value", value)
}

// Running reports whether the logger is in logging mode.
func (l *Logger) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Start begins logging the given channel keys to logfile at frequency Hz.
// timeOffset seeds the timestamp column, milliseconds.
func (l *Logger) Start(logfile string, frequency float64, keys []string, triggers []string, timeOffset float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		slog.Error("The eye-tracker is already in logging mode.")
		return ErrAlreadyLogging
	}

	f, err := os.OpenFile(logfile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	l.triggers = append([]string{}, triggers...)
	l.pds = l.pds[:0]
	l.values = map[string]string{}
	for _, t := range triggers {
		l.values[t] = ""
	}

	l.stop = make(chan struct{})
	l.running = true
	l.waiting.Add(1)
	go l.run(f, frequency, keys, timeOffset)

	slog.Debug("Start logging selected data", "logfile", logfile, "frequency", frequency, "keys", keys)
	return nil
}

// Stop ends logging and joins the background writer. Concurrent or
// repeated calls are safe: the stop channel closes exactly once, losers
// get ErrNotLogging.
func (l *Logger) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		slog.Error("The eye-tracker is not in logging mode.")
		return ErrNotLogging
	}
	l.running = false
	close(l.stop)
	l.mu.Unlock()

	l.waiting.Wait()

	slog.Debug("Stop logging",
		"rows", humanize.Comma(l.rows.Snapshot().Count()),
		"rate", fmt.Sprintf("%.1f/s", l.rows.Snapshot().Rate1()))
	l.logPupilSummary()
	return nil
}

// logPupilSummary reports pupil diameter stats for the session just logged.
func (l *Logger) logPupilSummary() {
	l.mu.Lock()
	pds := append([]float64{}, l.pds...)
	l.mu.Unlock()
	if len(pds) == 0 {
		return
	}
	mean, _ := stats.Mean(pds)
	median, _ := stats.Median(pds)
	min, _ := stats.Min(pds)
	max, _ := stats.Max(pds)
	slog.Info("Pupil diameter [mm]", "n", len(pds),
		"mean", fmt.Sprintf("%.2f", mean),
		"median", fmt.Sprintf("%.2f", median),
		"min", fmt.Sprintf("%.2f", min),
		"max", fmt.Sprintf("%.2f", max))
}

func (l *Logger) run(f *os.File, frequency float64, keys []string, timeOffset float64) {
	defer l.waiting.Done()
	defer f.Close()

	fmt.Fprintln(f, header(keys, l.triggers))

	period := time.Duration(float64(time.Second) / frequency)
	periodMS := 1000.0 / frequency
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		snap := l.Source.Snapshot()
		fmt.Fprintf(f, "%s; %s\n", formatFloat(timeOffset), l.row(keys, snap))
		l.rows.Mark(1)
		l.recordPupils(snap)
		timeOffset += periodMS

		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func header(keys, triggers []string) string {
	h := "ts; "
	for _, key := range keys {
		switch key {
		case params.KeyMEMS:
			h += "ac_x [m/s^2]; ac_y [m/s^2]; ac_z [m/s^2]; gy_x [deg/s]; gy_y [deg/s]; gy_z [deg/s]; "
		case params.KeyGazePos:
			h += "gp_x; gp_y; "
		case params.KeyGazePos3:
			h += "gp3_x [mm]; gp3_y [mm]; gp3_z [mm]; "
		case params.KeyLeftEye:
			h += "left_pc_x [mm]; left_pc_y [mm]; left_pc_z [mm]; left_pd [mm]; left_gd_x; left_gd_y; left_gd_z; "
		case params.KeyRightEye:
			h += "right_pc_x [mm]; right_pc_y [mm]; right_pc_z [mm]; right_pd [mm]; right_gd_x; right_gd_y; right_gd_z; "
		}
	}
	for _, t := range triggers {
		h += t + "; "
	}
	return strings.TrimSuffix(h, "; ")
}

func push(fields []string, vals ...*float64) []string {
	for _, v := range vals {
		if v == nil {
			fields = append(fields, "")
			continue
		}
		fields = append(fields, formatFloat(*v))
	}
	return fields
}

func push3(fields []string, v *[3]float64) []string {
	if v == nil {
		return append(fields, "", "", "")
	}
	return push(fields, &v[0], &v[1], &v[2])
}

func (l *Logger) row(keys []string, snap link.Snapshot) string {
	fields := []string{}
	for _, key := range keys {
		switch key {
		case params.KeyMEMS:
			fields = push3(fields, snap.AC)
			fields = push3(fields, snap.GY)
		case params.KeyGazePos:
			if snap.GP != nil {
				x, y := snap.GP.X(), snap.GP.Y()
				fields = push(fields, &x, &y)
			} else {
				fields = append(fields, "", "")
			}
		case params.KeyGazePos3:
			fields = push3(fields, (*[3]float64)(snap.GP3))
		case params.KeyLeftEye:
			fields = pushEye(fields, snap.Left)
		case params.KeyRightEye:
			fields = pushEye(fields, snap.Right)
		}
	}

	l.mu.Lock()
	for _, t := range l.triggers {
		fields = append(fields, l.values[t])
	}
	l.mu.Unlock()

	return strings.Join(fields, "; ")
}

func (l *Logger) recordPupils(snap link.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if snap.Left.PD != nil {
		l.pds = append(l.pds, *snap.Left.PD)
	}
	if snap.Right.PD != nil {
		l.pds = append(l.pds, *snap.Right.PD)
	}
}

func pushEye(fields []string, eye link.EyeSnapshot) []string {
	fields = push3(fields, (*[3]float64)(eye.PC))
	fields = push(fields, eye.PD)
	fields = push3(fields, (*[3]float64)(eye.GD))
	return fields
}
