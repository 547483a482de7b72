package params

import "time"

// SimDaemonConfig configures the glasses simulator daemon,
// which mirrors the device's REST session API and UDP live-data stream.
type SimDaemonConfig struct {
	ListenAddr string

	// UDPPort is where live-data subscriptions are accepted.
	UDPPort int

	// SampleInterval paces the synthetic gaze stream.
	SampleInterval time.Duration
}

func DefaultSimDaemonConfig() *SimDaemonConfig {
	return &SimDaemonConfig{
		ListenAddr:     ":8080",
		UDPPort:        49152,
		SampleInterval: 20 * time.Millisecond, // 50 Hz
	}
}
