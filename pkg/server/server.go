package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labnation/sss-go/pkg/discovery"
	"github.com/labnation/sss-go/pkg/hardware"
	"github.com/labnation/sss-go/pkg/log"
	"github.com/labnation/sss-go/pkg/transport"
	"github.com/labnation/sss-go/pkg/version"
	"github.com/labnation/sss-go/pkg/wire"
)

// InterfaceServer bridges one scope to the network.
type InterfaceServer struct {
	config   Config
	hw       hardware.Controller
	flavor   string
	handlers map[wire.Command]commandHandler
	commands wire.CommandSet

	requested atomic.Int32
	actual    atomic.Int32
	running   atomic.Bool

	mu           sync.Mutex
	control      *transport.PeerListener
	data         *transport.PeerListener
	serveCancel  context.CancelFunc
	lastErr      error
	advertiseErr error
	changed      chan struct{}

	// hwSession is set while a hardware session is open.
	hwSession atomic.Bool

	// dataKick wakes an idle data session after acquisition changes.
	dataKick chan struct{}

	// dataBuf holds the two pipelined DATA frames. Owned by the data session.
	dataBuf []byte
}

// New creates an InterfaceServer in state Uninitialized.
func New(config Config) (*InterfaceServer, error) {
	if config.Hardware == nil {
		return nil, ErrNoHardware
	}
	config.applyDefaults()

	s := &InterfaceServer{
		config:   config,
		hw:       config.Hardware,
		flavor:   flavorFor(config),
		changed:  make(chan struct{}),
		dataKick: make(chan struct{}, 1),
	}
	s.handlers = s.buildHandlers()
	s.commands = make(wire.CommandSet, len(s.handlers))
	for cmd := range s.handlers {
		s.commands[cmd] = struct{}{}
	}
	return s, nil
}

func flavorFor(config Config) string {
	base := version.FlavorVanilla
	switch {
	case config.Router != nil:
		base = version.FlavorRouter
	default:
		if _, ok := config.Advertiser.(*discovery.ZeroconfAdvertiser); ok {
			base = version.FlavorDNSSD
		}
	}
	return version.Flavor(base, config.Debug)
}

// Flavor returns the build flavor reported by SERVER_INFO.
func (s *InterfaceServer) Flavor() string {
	return s.flavor
}

// State returns the actual state.
func (s *InterfaceServer) State() State {
	return State(s.actual.Load())
}

// RequestedState returns the target state.
func (s *InterfaceServer) RequestedState() State {
	return State(s.requested.Load())
}

// RequestState sets the target state. Transitional states are treated as
// their destination. Once the server is Destroyed, or a destroy has been
// requested, further requests are ignored.
func (s *InterfaceServer) RequestState(state State) {
	state = state.target()
	if state == StateUninitialized {
		return
	}
	for {
		if s.State() == StateDestroyed {
			return
		}
		cur := State(s.requested.Load())
		if cur == StateDestroyed || cur == state {
			return
		}
		if s.requested.CompareAndSwap(int32(cur), int32(state)) {
			return
		}
	}
}

// Start requests the Started state.
func (s *InterfaceServer) Start() { s.RequestState(StateStarted) }

// Stop requests the Stopped state.
func (s *InterfaceServer) Stop() { s.RequestState(StateStopped) }

// Destroy requests the Destroyed state.
func (s *InterfaceServer) Destroy() { s.RequestState(StateDestroyed) }

// LastErr returns the error of the last failed transition.
func (s *InterfaceServer) LastErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// AdvertiseErr returns the error of the last advertisement attempt.
func (s *InterfaceServer) AdvertiseErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advertiseErr
}

// ControlPort returns the bound control port, or 0 when not listening.
func (s *InterfaceServer) ControlPort() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.control == nil {
		return 0
	}
	return s.control.Port()
}

// DataPort returns the bound data port, or 0 when not listening.
func (s *InterfaceServer) DataPort() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return 0
	}
	return s.data.Port()
}

// WaitState blocks until the actual state equals state or ctx is done.
func (s *InterfaceServer) WaitState(ctx context.Context, state State) error {
	for {
		s.mu.Lock()
		changed := s.changed
		s.mu.Unlock()

		current := s.State()
		if current == state {
			return nil
		}
		if current == StateDestroyed {
			return ErrDestroyed
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s (now %s): %w", state, s.State(), ctx.Err())
		}
	}
}

// Run reconciles requested and actual state until the server is Destroyed
// or ctx is cancelled. Cancelling ctx destroys the server before Run
// returns.
func (s *InterfaceServer) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	if s.State() == StateDestroyed {
		return nil
	}

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		s.reconcile()
		if s.State() == StateDestroyed {
			return nil
		}

		select {
		case <-ctx.Done():
			s.requested.Store(int32(StateDestroyed))
			s.reconcile()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// reconcile performs at most one requested transition.
func (s *InterfaceServer) reconcile() {
	requested := s.RequestedState()
	actual := s.State()
	if requested == actual {
		return
	}

	switch requested {
	case StateStarted:
		if actual == StateStopped || actual == StateUninitialized {
			s.start()
		}
	case StateStopped:
		switch actual {
		case StateStarted:
			s.stop()
		case StateUninitialized:
			// Nothing is running yet.
			s.requested.CompareAndSwap(int32(StateStopped), int32(StateUninitialized))
		}
	case StateDestroyed:
		s.destroy()
	}
}

func (s *InterfaceServer) start() {
	s.setState(StateStarting, "")

	control, data, err := s.bind()
	if err != nil {
		err = classify(ClassLifecycle, "start", err)
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.logError(log.LayerServer, err)
		s.requested.CompareAndSwap(int32(StateStarted), int32(StateStopped))
		s.setState(StateStopped, err.Error())
		return
	}

	serveCtx, cancel := context.WithCancel(context.Background())
	if s.dataBuf == nil {
		s.dataBuf = make([]byte, 2*dataFrameSize)
	}

	s.mu.Lock()
	s.control, s.data = control, data
	s.serveCancel = cancel
	s.lastErr = nil
	s.mu.Unlock()

	// Serve returns once each accept loop is running.
	_ = control.Serve(serveCtx)
	_ = data.Serve(serveCtx)

	s.publish(control.Port(), data.Port())
	s.setState(StateStarted, "")
}

func (s *InterfaceServer) bind() (*transport.PeerListener, *transport.PeerListener, error) {
	control, err := transport.Listen(transport.ListenerConfig{
		Address:        s.config.ControlAddress,
		Channel:        log.ChannelControl,
		AcceptTimeout:  s.config.ControlTimeout,
		ReadTimeout:    s.config.ControlTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		Handler:        s.serveControl,
		ProtocolLogger: s.config.ProtocolLogger,
		Logger:         s.config.Logger,
	})
	if err != nil {
		return nil, nil, classify(ClassTransport, "bind control", err)
	}

	data, err := transport.Listen(transport.ListenerConfig{
		Address:        s.config.DataAddress,
		Channel:        log.ChannelData,
		AcceptTimeout:  s.config.DataTimeout,
		ReadTimeout:    s.config.DataTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		Handler:        s.serveData,
		ProtocolLogger: s.config.ProtocolLogger,
		Logger:         s.config.Logger,
	})
	if err != nil {
		control.Close()
		return nil, nil, classify(ClassTransport, "bind data", err)
	}
	return control, data, nil
}

func (s *InterfaceServer) publish(controlPort, dataPort uint16) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultPublishTimeout)
	defer cancel()

	err := s.config.Advertiser.Publish(ctx, &discovery.ServiceInfo{
		InstanceName: s.config.InstanceName,
		Port:         controlPort,
		DataPort:     dataPort,
	})
	err = classify(ClassDiscovery, "publish", err)

	s.mu.Lock()
	s.advertiseErr = err
	s.mu.Unlock()

	if err != nil {
		s.logError(log.LayerServer, err)
		s.logAdvertisement("", "FAILED", err.Error())
		if s.config.Logger != nil {
			s.config.Logger.Warn("advertisement failed, serving by address only", "error", err)
		}
		return
	}
	s.logAdvertisement("", "PUBLISHED", "")
	s.debugLog("advertised", "instance", s.config.InstanceName, "control_port", controlPort, "data_port", dataPort)
}

// stop runs Started -> Stopping -> Stopped.
func (s *InterfaceServer) stop() {
	s.setState(StateStopping, "")

	s.mu.Lock()
	control, data, cancel := s.control, s.data, s.serveCancel
	published := s.advertiseErr == nil
	s.serveCancel = nil
	s.mu.Unlock()

	// Listeners are closed without holding mu: sessions read ports under it.
	if cancel != nil {
		cancel()
	}
	if control != nil {
		control.Close()
	}
	if data != nil {
		data.Close()
	}

	if err := s.config.Advertiser.Unpublish(); err != nil {
		s.logError(log.LayerServer, classify(ClassDiscovery, "unpublish", err))
	} else if published {
		s.logAdvertisement("PUBLISHED", "UNPUBLISHED", "")
	}
	s.endHardwareSession()

	s.mu.Lock()
	s.control, s.data = nil, nil
	s.advertiseErr = nil
	s.mu.Unlock()

	s.setState(StateStopped, "")
}

// destroy runs the stop sequence if needed, then Destroying -> Destroyed.
func (s *InterfaceServer) destroy() {
	if s.State() == StateStarted {
		s.stop()
	}

	s.setState(StateDestroying, "")

	if err := s.config.Advertiser.Close(); err != nil {
		s.logError(log.LayerServer, classify(ClassDiscovery, "close advertiser", err))
	}
	s.dataBuf = nil

	s.setState(StateDestroyed, "")
}

func (s *InterfaceServer) endHardwareSession() {
	if !s.hwSession.Swap(false) {
		return
	}
	if err := s.hw.EndSession(); err != nil {
		s.logError(log.LayerServer, classify(ClassHardware, "end session", err))
	}
}

// setState changes the actual state and notifies observers.
func (s *InterfaceServer) setState(state State, reason string) {
	old := State(s.actual.Swap(int32(state)))
	if !ValidTransition(old, state) && s.config.Logger != nil {
		s.config.Logger.Warn("unexpected state transition", "from", old, "to", state)
	}

	s.mu.Lock()
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()

	if s.config.ProtocolLogger != nil {
		s.config.ProtocolLogger.Log(log.Event{
			Timestamp: time.Now(),
			Layer:     log.LayerServer,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityServer,
				OldState: old.String(),
				NewState: state.String(),
				Reason:   reason,
			},
		})
	}
	s.debugLog("state changed", "from", old, "to", state)

	if s.config.OnStateChange != nil {
		s.config.OnStateChange(s)
	}
}

func (s *InterfaceServer) logAdvertisement(oldState, newState, reason string) {
	if s.config.ProtocolLogger == nil {
		return
	}
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerServer,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityAdvertisement,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (s *InterfaceServer) logError(layer log.Layer, err error) {
	if s.config.ProtocolLogger != nil {
		s.config.ProtocolLogger.Log(errorEvent(layer, err))
	}
	s.debugLog("error", "error", err)
}

func errorEvent(layer log.Layer, err error) log.Event {
	data := &log.ErrorEventData{Layer: layer, Message: err.Error()}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		data.Class = ce.Class.String()
		data.Context = ce.Op
	}
	return log.Event{
		Timestamp: time.Now(),
		Layer:     layer,
		Category:  log.CategoryError,
		Error:     data,
	}
}

func (s *InterfaceServer) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}
