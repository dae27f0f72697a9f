package discovery

import (
	"context"
	"slices"

	"github.com/enbility/zeroconf/v3"
)

// Browser finds scope servers using zeroconf.
type Browser struct {
	config BrowserConfig
}

// NewBrowser creates a new mDNS browser.
func NewBrowser(config BrowserConfig) *Browser {
	return &Browser{config: config}
}

// Browse streams servers as they are found until ctx is cancelled.
// Services are aggregated by instance name: addresses seen on several
// interfaces are combined into one entry and each instance is emitted once.
// Entries without a valid DATA_PORT record are skipped.
func (b *Browser) Browse(ctx context.Context) (<-chan *Service, error) {
	out := make(chan *Service)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)
		table := make(instanceTable)
		for {
			var svc *Service
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc = table.add(entry)
			case entry, ok := <-removed:
				if ok {
					table.remove(entry)
				}
			case <-ctx.Done():
				return
			}
			if svc == nil {
				continue
			}
			select {
			case out <- svc:
			case <-ctx.Done():
				return
			}
		}
	}()

	var opts []zeroconf.ClientOption
	if ifaces := lookupInterfaces(b.config.Interface); ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}
	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// Lookup returns the named instance, or the first server found when
// instance is empty.
func (b *Browser) Lookup(ctx context.Context, instance string) (*Service, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	for {
		select {
		case svc, ok := <-results:
			if !ok {
				return nil, ErrNotFound
			}
			if instance == "" || svc.InstanceName == instance {
				return svc, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// instanceTable tracks live services by instance name.
type instanceTable map[string]*Service

// add records entry and returns the new Service on first sight of the
// instance. Later entries only contribute addresses.
func (t instanceTable) add(entry *zeroconf.ServiceEntry) *Service {
	dataPort, err := DecodeDataPort(StringsToTXTRecords(entry.Text))
	if err != nil {
		return nil
	}
	addrs := entryAddresses(entry)

	if svc, ok := t[entry.Instance]; ok {
		for _, a := range addrs {
			if !slices.Contains(svc.Addresses, a) {
				svc.Addresses = append(svc.Addresses, a)
			}
		}
		return nil
	}

	svc := &Service{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		DataPort:     dataPort,
		Addresses:    addrs,
	}
	t[entry.Instance] = svc
	return svc
}

// remove drops the entry's addresses and forgets the instance once none
// remain, so a returning server is emitted again.
func (t instanceTable) remove(entry *zeroconf.ServiceEntry) {
	svc, ok := t[entry.Instance]
	if !ok {
		return
	}
	gone := entryAddresses(entry)
	svc.Addresses = slices.DeleteFunc(svc.Addresses, func(a string) bool {
		return slices.Contains(gone, a)
	})
	if len(svc.Addresses) == 0 {
		delete(t, entry.Instance)
	}
}

func entryAddresses(entry *zeroconf.ServiceEntry) []string {
	ips := slices.Concat(entry.AddrIPv4, entry.AddrIPv6)
	addrs := make([]string, len(ips))
	for i, ip := range ips {
		addrs[i] = ip.String()
	}
	return addrs
}
