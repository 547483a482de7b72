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
	"log"
	"log/slog"

	"github.com/openglasses/gazed/api"
	"github.com/openglasses/gazed/common"
	"github.com/openglasses/gazed/link"
	"github.com/openglasses/gazed/params"
	"github.com/openglasses/gazed/state"
	"github.com/spf13/cobra"
)

var optProject string
var optParticipant string
var optSkipCalibration bool
var optLogfile string
var optLogFrequency float64
var optLogKeys []string

// recordCmd represents the record command
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Run a full capture session on the device",
	Long: `Connects to the glasses, calibrates, starts an SD-card recording and a
local CSV log, then waits for an interrupt. On shutdown the recording is
stopped and closed out on the device before the process exits; pulling
the plug early leaves a dangling recording on the SD card.

Session ids (project, participant, recording) persist across runs in the
local state db, so a crashed session can be noticed and cleaned up.`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		ctx := context.Background()

		store, err := state.Open(params.DefaultStateDBPath())
		if err != nil {
			log.Fatalln(err)
		}
		defer store.Close()

		tracker := api.NewTracker(params.DefaultDetectionConfig, link.NewGlasses(linkConfig())).
			WithStore(store)
		defer tracker.Close()

		if !tracker.Connected(ctx) {
			log.Fatalln("Device is not reachable or not healthy")
		}
		if err := tracker.SetProject(ctx, optProject); err != nil {
			log.Fatalln(err)
		}
		if err := tracker.SetParticipant(ctx, optParticipant); err != nil {
			log.Fatalln(err)
		}

		if !optSkipCalibration {
			ok, err := tracker.Calibrate(ctx)
			if err != nil {
				log.Fatalln(err)
			}
			if !ok {
				log.Fatalln("Calibration failed")
			}
		}

		if !tracker.StartCapturing(ctx) {
			log.Fatalln("Failed to start live data capture")
		}
		if err := tracker.StartRecording(ctx); err != nil {
			log.Fatalln(err)
		}
		if optLogfile != "" {
			if err := tracker.StartLogging(optLogfile, optLogFrequency, optLogKeys, nil, 0); err != nil {
				log.Fatalln(err)
			}
		}

		slog.Info("Recording", "session", tracker.Session())
		<-common.Interrupted()
		slog.Info("Shutting down")

		if err := tracker.StopRecording(ctx); err != nil {
			slog.Error("Failed to stop recording", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(recordCmd)

	pFlags := recordCmd.PersistentFlags()
	pFlags.StringVar(&optProject, "project", "", "Project name on the device")
	pFlags.StringVar(&optParticipant, "participant", "", "Participant name on the device")
	pFlags.BoolVar(&optSkipCalibration, "skip-calibration", false, "Skip the calibration step")
	pFlags.StringVar(&optLogfile, "logfile", params.DefaultLogfilePath(), "CSV logfile path, empty to disable")
	pFlags.Float64Var(&optLogFrequency, "frequency", params.DefaultLogFrequency, "CSV logging frequency, Hz")
	pFlags.StringSliceVar(&optLogKeys, "keys", params.DefaultLogKeys, "Data channels to log")
}
