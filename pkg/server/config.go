package server

import (
	"log/slog"
	"time"

	"github.com/labnation/sss-go/pkg/discovery"
	"github.com/labnation/sss-go/pkg/hardware"
	"github.com/labnation/sss-go/pkg/log"
	"github.com/labnation/sss-go/pkg/netcfg"
	"github.com/labnation/sss-go/pkg/wire"
)

// Default timing.
const (
	// DefaultPollInterval is how often Run compares requested and actual state.
	DefaultPollInterval = 50 * time.Millisecond

	// DefaultControlTimeout bounds accept and read calls on the control socket.
	DefaultControlTimeout = 4 * time.Second

	// DefaultDataTimeout bounds accept calls and idle waits on the data socket.
	DefaultDataTimeout = 4 * time.Second

	// DefaultWriteTimeout bounds every write to a peer.
	DefaultWriteTimeout = 4 * time.Second

	// DefaultPublishTimeout bounds one advertisement attempt.
	DefaultPublishTimeout = 5 * time.Second
)

// Buffer sizes.
const (
	// controlBufferSize is the control read scratch buffer.
	controlBufferSize = 128 * 1024

	// dataFrameSize is one DATA frame: header plus the largest acquisition packet.
	dataFrameSize = wire.HeaderSize + hardware.AcquisitionPacketSize
)

// Pauses between acquisition fetches that produced no packet.
const (
	// dataPollDelay follows a fetch reporting no packet ready yet.
	dataPollDelay = 5 * time.Millisecond

	// dataRetryDelay follows a failed fetch.
	dataRetryDelay = 100 * time.Millisecond
)

// Config configures an InterfaceServer.
type Config struct {
	// Hardware is the scope being served. Required.
	Hardware hardware.Controller

	// Advertiser publishes the discovery record while Started.
	// Nil disables advertising.
	Advertiser discovery.Advertiser

	// Router enables the LEDE_* commands when set.
	Router netcfg.Configurator

	// ControlAddress and DataAddress are the listen addresses.
	// Port 0 selects an ephemeral port. Default: ":0".
	ControlAddress string
	DataAddress    string

	// InstanceName is the advertised service name.
	// Default: discovery.DefaultInstanceName.
	InstanceName string

	// PollInterval is the state machine polling interval.
	PollInterval time.Duration

	// ControlTimeout bounds control accepts and idle reads.
	ControlTimeout time.Duration

	// DataTimeout bounds data accepts and idle waits.
	DataTimeout time.Duration

	// WriteTimeout bounds writes to peers.
	WriteTimeout time.Duration

	// Debug marks the flavor string as a debug build.
	Debug bool

	// OnStateChange is called after every actual-state change, from the
	// goroutine running Run.
	OnStateChange func(s *InterfaceServer)

	// ProtocolLogger receives frame, command and state events (optional).
	ProtocolLogger log.Logger

	// Logger receives operational diagnostics (optional).
	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.Advertiser == nil {
		c.Advertiser = discovery.NoopAdvertiser{}
	}
	if c.ControlAddress == "" {
		c.ControlAddress = ":0"
	}
	if c.DataAddress == "" {
		c.DataAddress = ":0"
	}
	if c.InstanceName == "" {
		c.InstanceName = discovery.DefaultInstanceName
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ControlTimeout <= 0 {
		c.ControlTimeout = DefaultControlTimeout
	}
	if c.DataTimeout <= 0 {
		c.DataTimeout = DefaultDataTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}
