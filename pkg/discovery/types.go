package discovery

import (
	"errors"
	"log/slog"
	"net"
	"strconv"
	"time"
)

// Service record constants.
const (
	// ServiceType is the DNS-SD service type of scope servers.
	ServiceType = "_sss._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// TXTKeyDataPort carries the data socket port as a decimal string.
	TXTKeyDataPort = "DATA_PORT"

	// DefaultInstanceName is used when no instance name is configured.
	DefaultInstanceName = "SmartScope"

	// DefaultTTL is the record TTL.
	DefaultTTL = 120 * time.Second

	// BrowseTimeout is the default timeout for one-shot lookups.
	BrowseTimeout = 5 * time.Second
)

// MaxInstanceNameLen is the DNS label limit.
const MaxInstanceNameLen = 63

// Backend names accepted by NewAdvertiser.
const (
	BackendZeroconf = "zeroconf"
	BackendAvahi    = "avahi"
	BackendNone     = "none"
)

// Errors.
var (
	ErrNotFound            = errors.New("service not found")
	ErrClosed              = errors.New("advertiser closed")
	ErrUnknownBackend      = errors.New("unknown discovery backend")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 bytes")
	ErrEmptyInstanceName   = errors.New("empty instance name")
	ErrMissingDataPort     = errors.New("missing DATA_PORT TXT record")
	ErrInvalidDataPort     = errors.New("invalid DATA_PORT TXT record")
)

// ServiceInfo is the record a server publishes while it is Started.
type ServiceInfo struct {
	// InstanceName is the user-visible service name.
	InstanceName string

	// Port is the control socket port (SRV record).
	Port uint16

	// DataPort is the data socket port (TXT record).
	DataPort uint16
}

// Validate checks the record before publishing.
func (i *ServiceInfo) Validate() error {
	if err := ValidateInstanceName(i.InstanceName); err != nil {
		return err
	}
	if i.Port == 0 {
		return errors.New("control port not set")
	}
	if i.DataPort == 0 {
		return ErrInvalidDataPort
	}
	return nil
}

// Service is a server found by a Browser.
type Service struct {
	InstanceName string
	Host         string
	Port         uint16
	DataPort     uint16
	Addresses    []string
}

// ControlAddr returns host:port of the control socket on the first address.
func (s *Service) ControlAddr() string {
	return net.JoinHostPort(s.dialHost(), strconv.Itoa(int(s.Port)))
}

// DataAddr returns host:port of the data socket on the first address.
func (s *Service) DataAddr() string {
	return net.JoinHostPort(s.dialHost(), strconv.Itoa(int(s.DataPort)))
}

func (s *Service) dialHost() string {
	if len(s.Addresses) > 0 {
		return s.Addresses[0]
	}
	return s.Host
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration

	// Logger receives backend diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		TTL: DefaultTTL,
	}
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

func lookupInterfaces(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}
