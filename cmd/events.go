/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/openglasses/gazed/api"
	"github.com/openglasses/gazed/common"
	"github.com/openglasses/gazed/events"
	"github.com/openglasses/gazed/link"
	"github.com/openglasses/gazed/metrics/influxdb"
	"github.com/openglasses/gazed/params"
	"github.com/openglasses/gazed/stream"
	"github.com/openglasses/gazed/types/gaze"
	"github.com/spf13/cobra"
)

var optExperimental bool
var optSaccades bool
var optExportInflux bool

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stream detected gaze events to stdout",
	Long: `Starts live data capture and runs the online classifier, printing one
JSON line per detected event. By default fixations are classified with
the dispersion algorithm; --experimental switches to the windowed
velocity filter, --saccades classifies saccades instead.

Interrupt to stop. With --influxdb, the collected events are posted to
the InfluxDB bucket named by the INFLUXDB_* environment variables on
shutdown.`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			<-common.Interrupted()
			cancel()
		}()

		tracker := api.NewTracker(params.DefaultDetectionConfig, link.NewGlasses(linkConfig()))
		defer tracker.Close()

		// Detections and accepted samples land on the process feeds as a
		// side effect of the wait calls. The export path drains them off
		// the feeds rather than bookkeeping in the loop.
		var evCh chan gaze.Event
		var gpCh chan gaze.GazePoint
		var evSub, gpSub event.Subscription
		evDone := make(chan []gaze.Event, 1)
		gpDone := make(chan []gaze.GazePoint, 1)
		started := time.Now()
		if optExportInflux {
			evCh = make(chan gaze.Event, 64)
			evSub = events.DetectedEventFeed.Subscribe(evCh)
			gpCh = make(chan gaze.GazePoint, 256)
			gpSub = events.GazeSampleFeed.Subscribe(gpCh)
			go func() { evDone <- stream.Collect(context.Background(), evCh) }()
			go func() { gpDone <- stream.Collect(context.Background(), gpCh) }()
		}

		if !tracker.StartCapturing(ctx) {
			log.Fatalln("Failed to start live data capture")
		}

		enc := json.NewEncoder(os.Stdout)
		emit := func(ev gaze.Event, err error) bool {
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.Error("Detection failed", "error", err)
				}
				return false
			}
			_ = enc.Encode(map[string]any{"event": ev.Code().String(), "detail": ev})
			return true
		}

		for {
			if optSaccades {
				ev, err := tracker.WaitForSaccadeStart(ctx)
				if !emit(ev, err) {
					break
				}
				end, err := tracker.WaitForSaccadeEnd(ctx)
				if !emit(end, err) {
					break
				}
				continue
			}
			ev, err := tracker.WaitForFixationStart(ctx, optExperimental)
			if !emit(ev, err) {
				break
			}
			end, err := tracker.WaitForFixationEnd(ctx, optExperimental)
			if !emit(end, err) {
				break
			}
		}

		if optExportInflux {
			evSub.Unsubscribe()
			gpSub.Unsubscribe()
			close(evCh)
			close(gpCh)
			evs, pts := <-evDone, <-gpDone
			if len(evs) > 0 {
				slog.Info("Exporting events", "count", len(evs))
				if err := influxdb.ExportEvents(evs); err != nil {
					slog.Error("Export failed", "error", err)
				}
			}
			if len(pts) > 0 {
				slog.Info("Exporting gaze trace", "count", len(pts))
				if err := influxdb.ExportGazePoints(started, pts); err != nil {
					slog.Error("Export failed", "error", err)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	pFlags := eventsCmd.PersistentFlags()
	pFlags.BoolVar(&optExperimental, "experimental", false, "Use the windowed velocity fixation filter")
	pFlags.BoolVar(&optSaccades, "saccades", false, "Classify saccades instead of fixations")
	pFlags.BoolVar(&optExportInflux, "influxdb", false, "Export collected events to InfluxDB on shutdown")
}
