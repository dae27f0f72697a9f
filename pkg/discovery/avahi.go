package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/holoplot/go-avahi"
)

// Entry group states reported by the avahi daemon.
const (
	avahiGroupUncommitted int32 = 0
	avahiGroupRegistering int32 = 1
	avahiGroupEstablished int32 = 2
	avahiGroupCollision   int32 = 3
	avahiGroupFailure     int32 = 4
)

// avahiStatePollInterval is how often the watcher polls the entry group.
const avahiStatePollInterval = 250 * time.Millisecond

// ErrAvahiFailure is reported when the daemon gives up on the entry group.
var ErrAvahiFailure = errors.New("avahi entry group failed")

// avahiServer is the subset of the avahi daemon API the advertiser needs.
type avahiServer interface {
	EntryGroupNew() (avahiEntryGroup, error)
	EntryGroupFree(group avahiEntryGroup)
	GetAlternativeServiceName(name string) (string, error)
	Close()
}

// avahiEntryGroup is one set of records committed together.
type avahiEntryGroup interface {
	AddService(iface, protocol int32, flags uint32, name, serviceType, domain, host string, port uint16, txt [][]byte) error
	Commit() error
	Reset() error
	GetState() (int32, error)
}

// AvahiAdvertiser publishes through the avahi daemon over the system D-Bus.
// The daemon connection is opened on first Publish. While a record is
// published a watcher goroutine follows the entry group state and renames
// the service on collision.
type AvahiAdvertiser struct {
	config AdvertiserConfig
	dial   func() (avahiServer, error)

	// opMu serializes Publish, Unpublish and Close.
	opMu sync.Mutex

	mu          sync.Mutex
	server      avahiServer
	group       avahiEntryGroup
	info        *ServiceInfo
	name        string
	established bool
	lastErr     error
	closed      bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewAvahiAdvertiser creates an advertiser using the avahi daemon.
func NewAvahiAdvertiser(config AdvertiserConfig) *AvahiAdvertiser {
	return &AvahiAdvertiser{
		config: config,
		dial:   dialAvahi,
	}
}

// Publish commits the record to the daemon and starts the watcher.
func (a *AvahiAdvertiser) Publish(ctx context.Context, info *ServiceInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.stopWatch()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if err := a.connectLocked(); err != nil {
		return err
	}
	if err := a.group.Reset(); err != nil {
		return fmt.Errorf("avahi: reset entry group: %w", err)
	}

	published := *info
	if err := a.commitLocked(published.InstanceName, &published); err != nil {
		return err
	}
	a.info = &published
	a.name = published.InstanceName
	a.established = false
	a.lastErr = nil

	watchCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.watch(watchCtx, a.done)

	a.debugLog("avahi: published", "instance", a.name, "port", info.Port, "dataPort", info.DataPort)
	return nil
}

// Unpublish retracts the record and stops the watcher.
func (a *AvahiAdvertiser) Unpublish() error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.stopWatch()

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.retractLocked()
}

// Close retracts the record and releases the daemon connection.
func (a *AvahiAdvertiser) Close() error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.stopWatch()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	err := a.retractLocked()
	if a.server != nil {
		if a.group != nil {
			a.server.EntryGroupFree(a.group)
			a.group = nil
		}
		a.server.Close()
		a.server = nil
	}
	return err
}

// Name returns the instance name currently held, which differs from the
// requested one after a collision.
func (a *AvahiAdvertiser) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name
}

// Established reports whether the daemon confirmed the record.
func (a *AvahiAdvertiser) Established() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.established
}

// Err returns the last error seen by the watcher.
func (a *AvahiAdvertiser) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

func (a *AvahiAdvertiser) connectLocked() error {
	if a.server == nil {
		server, err := a.dial()
		if err != nil {
			return fmt.Errorf("avahi: connect to daemon: %w", err)
		}
		a.server = server
	}
	if a.group == nil {
		group, err := a.server.EntryGroupNew()
		if err != nil {
			return fmt.Errorf("avahi: create entry group: %w", err)
		}
		a.group = group
	}
	return nil
}

func (a *AvahiAdvertiser) commitLocked(name string, info *ServiceInfo) error {
	err := a.group.AddService(
		a.interfaceIndex(),
		avahi.ProtoUnspec,
		0,
		name,
		ServiceType,
		strings.TrimSuffix(Domain, "."),
		"",
		info.Port,
		TXTRecordsToBytes(EncodeTXT(info)),
	)
	if err != nil {
		return fmt.Errorf("avahi: add service: %w", err)
	}
	if err := a.group.Commit(); err != nil {
		return fmt.Errorf("avahi: commit: %w", err)
	}
	return nil
}

func (a *AvahiAdvertiser) retractLocked() error {
	if a.info == nil || a.group == nil {
		a.info = nil
		return nil
	}
	a.info = nil
	a.established = false
	if err := a.group.Reset(); err != nil {
		return fmt.Errorf("avahi: reset entry group: %w", err)
	}
	a.debugLog("avahi: unpublished", "instance", a.name)
	return nil
}

func (a *AvahiAdvertiser) interfaceIndex() int32 {
	if a.config.Interface != "" {
		if iface, err := net.InterfaceByName(a.config.Interface); err == nil {
			return int32(iface.Index)
		}
	}
	return avahi.InterfaceUnspec
}

// stopWatch cancels the watcher and waits for it. Caller holds opMu.
func (a *AvahiAdvertiser) stopWatch() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (a *AvahiAdvertiser) watch(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(avahiStatePollInterval)
	defer ticker.Stop()

	for {
		a.checkState(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *AvahiAdvertiser) checkState(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ctx.Err() != nil || a.group == nil || a.info == nil {
		return
	}

	state, err := a.group.GetState()
	if err != nil {
		a.lastErr = fmt.Errorf("avahi: get state: %w", err)
		a.debugLog("avahi: state query failed", "error", err)
		return
	}

	switch state {
	case avahiGroupEstablished:
		if !a.established {
			a.established = true
			a.debugLog("avahi: established", "instance", a.name)
		}

	case avahiGroupCollision:
		alt, err := a.server.GetAlternativeServiceName(a.name)
		if err != nil {
			a.lastErr = fmt.Errorf("avahi: alternative name: %w", err)
			return
		}
		a.debugLog("avahi: name collision", "instance", a.name, "renamed", alt)
		a.established = false
		if err := a.group.Reset(); err != nil {
			a.lastErr = fmt.Errorf("avahi: reset entry group: %w", err)
			return
		}
		if err := a.commitLocked(alt, a.info); err != nil {
			a.lastErr = err
			return
		}
		a.name = alt

	case avahiGroupFailure:
		if a.lastErr == nil {
			a.debugLog("avahi: entry group failure", "instance", a.name)
		}
		a.established = false
		a.lastErr = ErrAvahiFailure

	case avahiGroupUncommitted, avahiGroupRegistering:
	}
}

func (a *AvahiAdvertiser) debugLog(msg string, args ...any) {
	if a.config.Logger != nil {
		a.config.Logger.Debug(msg, args...)
	}
}

// dbusAvahiServer adapts go-avahi to avahiServer.
type dbusAvahiServer struct {
	server *avahi.Server
}

func dialAvahi() (avahiServer, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}
	server, err := avahi.ServerNew(conn)
	if err != nil {
		return nil, err
	}
	return &dbusAvahiServer{server: server}, nil
}

func (s *dbusAvahiServer) EntryGroupNew() (avahiEntryGroup, error) {
	group, err := s.server.EntryGroupNew()
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (s *dbusAvahiServer) EntryGroupFree(group avahiEntryGroup) {
	if g, ok := group.(*avahi.EntryGroup); ok {
		s.server.EntryGroupFree(g)
	}
}

func (s *dbusAvahiServer) GetAlternativeServiceName(name string) (string, error) {
	return s.server.GetAlternativeServiceName(name)
}

func (s *dbusAvahiServer) Close() {
	s.server.Close()
}

// Ensure AvahiAdvertiser implements Advertiser interface.
var _ Advertiser = (*AvahiAdvertiser)(nil)
