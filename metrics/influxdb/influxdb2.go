package influxdb

import (
	"context"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/openglasses/gazed/params"
	"github.com/openglasses/gazed/stream"
	"github.com/openglasses/gazed/types/gaze"
)

// collectErrors drains a Write API's async error channel into a single
// last-error slot. Must be wired before performing any writes for errors
// to be collected; the chan is unbuffered and must be drained or the
// writer will block.
func collectErrors(writeAPI api.WriteAPI, wait *sync.WaitGroup, err *error) {
	errorsCh := writeAPI.Errors()
	wait.Add(1)
	go func() {
		defer wait.Done()
		for e := range errorsCh {
			if e != nil {
				*err = e
			}
		}
	}()
}

// ExportGazePoints posts raw gaze samples to an InfluxDB Write API.
// Because it accepts a slice, use batches. The Write API will buffer and flush.
// The last error encountered is returned.
//
// Device timestamps are stream-relative, not epoch; points are stamped
// relative to base so the series stays plottable.
func ExportGazePoints(base time.Time, points []gaze.GazePoint) error {
	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(time.Millisecond)
	client := influxdb2.NewClientWithOptions(params.INFLUXDB_URL, params.INFLUXDB_TOKEN, opts)
	writeAPI := client.WriteAPI(params.INFLUXDB_ORG, params.INFLUXDB_BUCKET)

	var err error
	wait := sync.WaitGroup{}
	collectErrors(writeAPI, &wait, &err)

	var t0 int64
	if len(points) > 0 {
		t0 = points[0].TS
	}
	// Drop the sentinels; a plot of -1,-1 spikes is worse than a gap.
	ctx := context.Background()
	valid := stream.Filter(ctx, func(pt gaze.GazePoint) bool {
		return gaze.IsValid(pt)
	}, stream.Slice(ctx, points))
	pts := stream.Transform(ctx, func(pt gaze.GazePoint) *write.Point {
		return influxdb2.NewPointWithMeasurement("gaze").
			SetTime(base.Add(time.Duration(pt.TS-t0) * time.Millisecond)).
			AddField("x", pt.GP.X()).
			AddField("y", pt.GP.Y()).
			AddField("gidx", pt.Gidx)
	}, valid)
	for p := range pts {
		writeAPI.WritePoint(p)
	}
	writeAPI.Flush()
	client.Close()
	wait.Wait()
	return err
}

// ExportEvents posts detected oculomotor events, each tagged with its
// event kind and carrying the event's position fields.
func ExportEvents(evs []gaze.Event) error {
	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(time.Millisecond)
	client := influxdb2.NewClientWithOptions(params.INFLUXDB_URL, params.INFLUXDB_TOKEN, opts)
	writeAPI := client.WriteAPI(params.INFLUXDB_ORG, params.INFLUXDB_BUCKET)

	var err error
	wait := sync.WaitGroup{}
	collectErrors(writeAPI, &wait, &err)

	for _, ev := range evs {
		p := influxdb2.NewPointWithMeasurement("gazeevent").
			AddTag("kind", ev.Code().String())

		switch e := ev.(type) {
		case gaze.FixationStart:
			p.SetTime(time.UnixMilli(e.Time)).
				AddField("x", e.Pos.X()).
				AddField("y", e.Pos.Y())
		case gaze.FixationEnd:
			p.SetTime(time.UnixMilli(e.Time)).
				AddField("x", e.Pos.X()).
				AddField("y", e.Pos.Y()).
				AddField("duration_ms", e.Duration)
		case gaze.SaccadeStart:
			p.SetTime(time.UnixMilli(e.Time)).
				AddField("x", e.Pos.X()).
				AddField("y", e.Pos.Y())
		case gaze.SaccadeEnd:
			p.SetTime(time.UnixMilli(e.Time)).
				AddField("x", e.EndPos.X()).
				AddField("y", e.EndPos.Y()).
				AddField("start_x", e.StartPos.X()).
				AddField("start_y", e.StartPos.Y())
		default:
			continue
		}
		writeAPI.WritePoint(p)
	}
	writeAPI.Flush()
	client.Close()
	wait.Wait()
	return err
}
