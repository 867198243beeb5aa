// ABOUTME: Supervisor configuration, matching the Configuration block of §6
package supervisor

import "time"

// Config configures a Supervisor. Fields match §6's Configuration exactly;
// defaults are applied by DefaultConfig, not by the zero value, since a
// zero BufferMs would produce a one-chunk scheduler target.
type Config struct {
	ServerAddr         string // optional "host:port"; empty means discover
	PlayerName         string
	BufferMs           int
	InitialVolume      int
	InitialMuted       bool
	DiscoveryTimeoutMs int
	AdvertisePort      int
	PersistentClientID string // 128-bit opaque, formatted as a UUID string
}

// DefaultConfig returns a Config with §6's stated defaults.
func DefaultConfig() Config {
	return Config{
		BufferMs:           11_000,
		InitialVolume:      100,
		InitialMuted:       false,
		DiscoveryTimeoutMs: 10_000,
		AdvertisePort:      8927,
	}
}

func (c Config) discoveryTimeout() time.Duration {
	return time.Duration(c.DiscoveryTimeoutMs) * time.Millisecond
}
