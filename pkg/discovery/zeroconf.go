package discovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// ZeroconfAdvertiser answers mDNS queries in-process using zeroconf.
type ZeroconfAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
	closed bool
}

// NewZeroconfAdvertiser creates a new mDNS advertiser.
func NewZeroconfAdvertiser(config AdvertiserConfig) *ZeroconfAdvertiser {
	return &ZeroconfAdvertiser{config: config}
}

// Publish starts advertising the service.
func (a *ZeroconfAdvertiser) Publish(ctx context.Context, info *ServiceInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}

	// Stop existing if any
	a.shutdownLocked()

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		info.InstanceName,
		ServiceType,
		Domain,
		int(info.Port),
		TXTRecordsToStrings(EncodeTXT(info)),
		lookupInterfaces(a.config.Interface),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	a.server = server
	a.debugLog("zeroconf: published", "instance", info.InstanceName, "port", info.Port, "dataPort", info.DataPort)
	return nil
}

// Unpublish stops advertising.
func (a *ZeroconfAdvertiser) Unpublish() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.debugLog("zeroconf: unpublished")
	}
	a.shutdownLocked()
	return nil
}

// Close stops advertising and rejects further Publish calls.
func (a *ZeroconfAdvertiser) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.shutdownLocked()
	a.closed = true
	return nil
}

func (a *ZeroconfAdvertiser) shutdownLocked() {
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

func (a *ZeroconfAdvertiser) debugLog(msg string, args ...any) {
	if a.config.Logger != nil {
		a.config.Logger.Debug(msg, args...)
	}
}

// Ensure ZeroconfAdvertiser implements Advertiser interface.
var _ Advertiser = (*ZeroconfAdvertiser)(nil)
