package client

import (
	"time"

	"github.com/damianoneill/ncclient/netconf/common"
	"github.com/damianoneill/ncclient/netconf/filter"
)

// Defines structs describing netconf configuration.

// Config defines properties that configure netconf session behaviour.
type Config struct {
	// Defines the time in seconds that the client will wait to receive a hello message from the server.
	SetupTimeoutSecs int
	// RequestTimeout bounds the wait for the reply to a request.
	RequestTimeout time.Duration
	// CloseTimeout bounds the wait for the close-session reply and for in-flight requests to settle.
	CloseTimeout time.Duration
	// FrameTimeout bounds the time a partially received message may remain incomplete.
	FrameTimeout time.Duration
	// MaxMessageSize bounds the size of a received message, in bytes.
	MaxMessageSize int
	// DisableChunkedCodec prevents the client advertising chunked framing in its hello.
	DisableChunkedCodec bool
	// Capabilities are advertised in addition to the base protocol capabilities.
	Capabilities []string
	// Filters resolves named filters. If nil, each session uses its own default registry.
	Filters *filter.Registry
}

// DefaultConfig defines the values applied to unspecified Config properties.
var DefaultConfig = &Config{
	SetupTimeoutSecs: 5,
	RequestTimeout:   30 * time.Second,
	CloseTimeout:     5 * time.Second,
	FrameTimeout:     30 * time.Second,
	MaxMessageSize:   64 * 1024 * 1024,
}

func (c *Config) setupTimeout() time.Duration {
	return time.Duration(c.SetupTimeoutSecs) * time.Second
}

func (c *Config) localCapabilities() []string {
	base := common.DefaultCapabilities
	if c.DisableChunkedCodec {
		base = common.NoChunkedCodecCapabilities
	}
	caps := append([]string{}, base...)
	for _, capability := range c.Capabilities {
		if !contains(caps, capability) {
			caps = append(caps, capability)
		}
	}
	return caps
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
