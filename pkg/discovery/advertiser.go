package discovery

import (
	"context"
	"fmt"
)

// Advertiser publishes the server's discovery record.
//
// Publish replaces any record published earlier. Unpublish retracts the
// record and is a no-op when nothing is published. Close releases backend
// resources; the advertiser cannot be used afterwards.
type Advertiser interface {
	Publish(ctx context.Context, info *ServiceInfo) error
	Unpublish() error
	Close() error
}

// NewAdvertiser creates the advertiser for the named backend.
func NewAdvertiser(backend string, config AdvertiserConfig) (Advertiser, error) {
	switch backend {
	case BackendZeroconf, "":
		return NewZeroconfAdvertiser(config), nil
	case BackendAvahi:
		return NewAvahiAdvertiser(config), nil
	case BackendNone:
		return NoopAdvertiser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// NoopAdvertiser publishes nothing. Clients must connect by address.
type NoopAdvertiser struct{}

func (NoopAdvertiser) Publish(context.Context, *ServiceInfo) error { return nil }
func (NoopAdvertiser) Unpublish() error                            { return nil }
func (NoopAdvertiser) Close() error                                { return nil }

// Ensure NoopAdvertiser implements Advertiser interface.
var _ Advertiser = NoopAdvertiser{}
