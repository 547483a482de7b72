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
	"github.com/openglasses/gazed/link"
	"github.com/openglasses/gazed/params"
	"github.com/openglasses/gazed/state"
	"github.com/spf13/cobra"
)

// calibrateCmd represents the calibrate command
var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Calibrate the glasses for a participant",
	Long: `Creates the project and participant if the stored session has none, then
runs the device's calibration procedure. The wearer should look at the
calibration card. Exits zero on a successful calibration.`,
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

		ok, err := tracker.Calibrate(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		if !ok {
			log.Fatalln("Calibration failed, reposition the card and retry")
		}
		slog.Info("Calibrated", "session", tracker.Session())
	},
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
}
