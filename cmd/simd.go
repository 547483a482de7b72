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
	"log"
	"log/slog"
	"time"

	"github.com/openglasses/gazed/daemon/simd"
	"github.com/openglasses/gazed/params"
	"github.com/spf13/cobra"
)

var optSimListen string
var optSimUDPPort int
var optSimRate float64

// simdCmd represents the simulator daemon command
var simdCmd = &cobra.Command{
	Use:   "simd",
	Short: "Start the glasses simulator daemon",
	Long: `Serves a fake pair of glasses on localhost: the session REST API over
HTTP, the live-data datagram stream over UDP, and a websocket mirror of
the stream on /watch. The synthetic gaze alternates fixations and
saccades, so the detectors have something real to chew on.

Point the client at it:

  gazed simd --listen :8080 &
  gazed events --address 127.0.0.1 --api-port 8080
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		slog.Info("simd.Run")

		config := params.DefaultSimDaemonConfig()
		config.ListenAddr = optSimListen
		config.UDPPort = optSimUDPPort
		if optSimRate > 0 {
			config.SampleInterval = time.Duration(float64(time.Second) / optSimRate)
		}

		server := simd.NewSimDaemon(config)
		if err := server.Run(); err != nil {
			log.Fatalln(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(simdCmd)

	defaults := params.DefaultSimDaemonConfig()

	pFlags := simdCmd.PersistentFlags()
	pFlags.StringVar(&optSimListen, "listen", defaults.ListenAddr, "HTTP address to listen on")
	pFlags.IntVar(&optSimUDPPort, "sim-udp-port", defaults.UDPPort, "UDP port for live-data subscriptions")
	pFlags.Float64Var(&optSimRate, "rate", 50, "Synthetic sample rate, Hz")
}
