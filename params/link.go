package params

import "time"

type LinkConfig struct {
	// Address is the glasses' IPv4/IPv6 address.
	// For IPv6 use square brackets, e.g. [fe80::xxxx:xxxx:xxxx:xxxx].
	Address string

	// UDPPort is the live-data streaming port.
	UDPPort int

	// APIPort serves the REST session API.
	APIPort int

	// KeepAliveInterval is how often the live-data subscription is renewed.
	KeepAliveInterval time.Duration

	// SampleTTL bounds the age of a "latest" sample. Anything older is
	// reported as no-data rather than stale evidence.
	SampleTTL time.Duration

	// StatusPollInterval paces WaitUntilCalibrated/WaitUntilRecordingDone/
	// WaitUntilStatusOK polling against the REST API.
	StatusPollInterval time.Duration

	// DedupeCacheSize bounds the datagram de-duplication LRU.
	DedupeCacheSize int
}

var DefaultLinkConfig = &LinkConfig{
	Address:            "192.168.71.50",
	UDPPort:            49152,
	APIPort:            80,
	KeepAliveInterval:  time.Second,
	SampleTTL:          500 * time.Millisecond,
	StatusPollInterval: 250 * time.Millisecond,
	DedupeCacheSize:    10_000,
}
