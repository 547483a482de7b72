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
	"log/slog"
	"os"

	"github.com/openglasses/gazed/params"
	"github.com/spf13/cobra"
)

var optVerbose bool
var optQuiet bool

var optGlassesAddr string
var optUDPPort int
var optAPIPort int

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gazed",
	Short: "Wearable eye-tracker driver and gaze-event detector",
	Long: `gazed talks to Tobii Pro Glasses 2 over WLAN: session management on the
REST API, live gaze data on UDP. On top of the live stream it runs online
fixation and saccade classification and fixed-frequency CSV data logging.

A device simulator (gazed simd) serves the same wire surface on localhost
for development without hardware.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	defaults := params.DefaultLinkConfig

	pFlags := rootCmd.PersistentFlags()
	pFlags.BoolVarP(&optVerbose, "verbose", "v", false, "Enable debug logging")
	pFlags.BoolVarP(&optQuiet, "quiet", "q", false, "Warnings and errors only")
	pFlags.StringVar(&optGlassesAddr, "address", defaults.Address, "Glasses address on the WLAN")
	pFlags.IntVar(&optUDPPort, "udp-port", defaults.UDPPort, "Live-data UDP port")
	pFlags.IntVar(&optAPIPort, "api-port", defaults.APIPort, "REST API port")
}

func setDefaultSlog(cmd *cobra.Command, args []string) {
	level := slog.LevelInfo
	if optVerbose {
		level = slog.LevelDebug
	}
	if optQuiet {
		level = slog.LevelWarn
	}
	slog.SetLogLoggerLevel(level)
}

func linkConfig() *params.LinkConfig {
	config := *params.DefaultLinkConfig
	config.Address = optGlassesAddr
	config.UDPPort = optUDPPort
	config.APIPort = optAPIPort
	return &config
}
