package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/labnation/sss-go/pkg/log"
	"github.com/labnation/sss-go/pkg/netcfg"
	"github.com/labnation/sss-go/pkg/transport"
	"github.com/labnation/sss-go/pkg/version"
	"github.com/labnation/sss-go/pkg/wire"
)

// commandHandler answers one request. A nil reply sends nothing.
// Hardware-class errors are answered with an ERROR frame; any other error
// closes the connection.
type commandHandler func(ctx context.Context, req *wire.Message, ev *log.CommandEvent) (*wire.Message, error)

// routerTimeout bounds one LEDE_* call.
const routerTimeout = 30 * time.Second

func (s *InterfaceServer) buildHandlers() map[wire.Command]commandHandler {
	h := map[wire.Command]commandHandler{
		wire.CmdSerial:        s.handleSerial,
		wire.CmdPicFwVersion:  s.handleFirmwareVersion,
		wire.CmdFlashFPGA:     s.handleFlashFPGA,
		wire.CmdGet:           s.handleGet,
		wire.CmdSet:           s.handleSet,
		wire.CmdData:          s.handleAcquisition,
		wire.CmdAcquisition:   s.handleAcquisition,
		wire.CmdDataPort:      s.handleDataPort,
		wire.CmdFlush:         s.handleFlush,
		wire.CmdDisconnect:    s.handleDisconnect,
		wire.CmdServerVersion: s.handleServerVersion,
		wire.CmdServerInfo:    s.handleServerInfo,
	}
	if s.config.Router != nil {
		h[wire.CmdLedeListAPs] = s.handleListAPs
		h[wire.CmdLedeConnectAP] = s.handleConnectAP
		h[wire.CmdLedeModeAP] = s.routerAction((netcfg.Configurator).ModeAccessPoint)
		h[wire.CmdLedeReset] = s.routerAction((netcfg.Configurator).Reset)
		h[wire.CmdLedeReboot] = s.routerAction((netcfg.Configurator).Reboot)
	}
	return h
}

// Commands returns the command set accepted on the control socket.
func (s *InterfaceServer) Commands() wire.CommandSet {
	return s.commands
}

// serveControl runs one control connection. Frames are dispatched in the
// order they complete; a partial frame is kept across read timeouts.
func (s *InterfaceServer) serveControl(ctx context.Context, conn *transport.Conn) {
	decoder := wire.NewDecoder(s.commands)
	buf := make([]byte, controlBufferSize)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			decoder.Feed(buf[:n])
			if !s.dispatchFrames(ctx, conn, decoder) {
				return
			}
		}
		if err != nil {
			if transport.IsTimeout(err) && ctx.Err() == nil {
				continue
			}
			return
		}
	}
}

// dispatchFrames handles every complete frame in decoder. It returns false
// when the connection must be closed.
func (s *InterfaceServer) dispatchFrames(ctx context.Context, conn *transport.Conn, decoder *wire.Decoder) bool {
	for {
		msg, err := decoder.Next()
		if errors.Is(err, wire.ErrIncomplete) {
			return true
		}
		if err != nil {
			err = classify(ClassProtocol, "decode", err)
			conn.Log(errorEvent(log.LayerWire, err))
			s.debugLog("closing control connection", "conn_id", conn.ConnID(), "error", err)
			return false
		}

		conn.LogFrame(log.DirectionIn, msg)
		if err := s.dispatch(ctx, conn, msg); err != nil {
			conn.Log(errorEvent(log.LayerWire, err))
			s.debugLog("closing control connection", "conn_id", conn.ConnID(), "error", err)
			return false
		}
	}
}

// dispatch runs the handler for msg and writes its reply.
func (s *InterfaceServer) dispatch(ctx context.Context, conn *transport.Conn, msg *wire.Message) error {
	start := time.Now()
	ev := &log.CommandEvent{Command: msg.Command}

	handler, ok := s.handlers[msg.Command]
	if !ok {
		return classify(ClassProtocol, msg.Command.String(), wire.ErrUnknownCommand)
	}

	reply, err := handler(ctx, msg, ev)
	if err != nil {
		if !IsClass(err, ClassHardware) {
			return err
		}
		ev.Error = err.Error()
		reply = &wire.Message{Command: wire.CmdError, Payload: wire.EncodeError(msg.Command, err.Error())}
	}

	if reply != nil {
		if werr := conn.WriteMessage(reply); werr != nil {
			return classify(ClassTransport, "write "+reply.Command.String(), werr)
		}
		ev.Replied = true
	}

	elapsed := time.Since(start)
	ev.ProcessingTime = &elapsed
	conn.Log(log.Event{
		Layer:    log.LayerWire,
		Category: log.CategoryMessage,
		Command:  ev,
	})
	return nil
}

// ensureSession opens the hardware session on first use.
func (s *InterfaceServer) ensureSession() error {
	if s.hwSession.Load() {
		return nil
	}
	if err := s.hw.BeginSession(); err != nil {
		return classify(ClassHardware, "begin session", err)
	}
	s.hwSession.Store(true)
	return nil
}

func (s *InterfaceServer) handleSerial(_ context.Context, req *wire.Message, _ *log.CommandEvent) (*wire.Message, error) {
	if err := s.ensureSession(); err != nil {
		return nil, err
	}
	serial, err := s.hw.Serial()
	if err != nil {
		return nil, classify(ClassHardware, "serial", err)
	}
	return &wire.Message{Command: req.Command, Payload: []byte(serial)}, nil
}

func (s *InterfaceServer) handleFirmwareVersion(_ context.Context, req *wire.Message, _ *log.CommandEvent) (*wire.Message, error) {
	if err := s.ensureSession(); err != nil {
		return nil, err
	}
	fw, err := s.hw.FirmwareVersion()
	if err != nil {
		return nil, classify(ClassHardware, "firmware version", err)
	}
	return &wire.Message{Command: req.Command, Payload: fw}, nil
}

func (s *InterfaceServer) handleFlashFPGA(_ context.Context, req *wire.Message, _ *log.CommandEvent) (*wire.Message, error) {
	if err := s.ensureSession(); err != nil {
		return nil, err
	}
	if err := s.hw.FlashFPGA(req.Payload); err != nil {
		return nil, classify(ClassHardware, "flash fpga", err)
	}
	return &wire.Message{Command: req.Command}, nil
}

func decodeAddressed(req *wire.Message, ev *log.CommandEvent) (*wire.ControllerMessage, error) {
	cm, err := wire.DecodeControllerMessage(req.Payload)
	if err != nil {
		return nil, classify(ClassProtocol, req.Command.String(), err)
	}
	ctrl, addr, length := uint8(cm.Controller), cm.Address, cm.Length
	ev.Controller, ev.Address, ev.Length = &ctrl, &addr, &length
	return cm, nil
}

func (s *InterfaceServer) handleGet(_ context.Context, req *wire.Message, ev *log.CommandEvent) (*wire.Message, error) {
	cm, err := decodeAddressed(req, ev)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSession(); err != nil {
		return nil, err
	}

	data, err := s.hw.Get(cm.Controller, cm.Address, cm.Length)
	if err != nil {
		return nil, classify(ClassHardware, "get", err)
	}

	reply := wire.ControllerMessage{
		Controller: cm.Controller,
		Address:    cm.Address,
		Length:     uint16(len(data)),
		Data:       data,
	}
	return &wire.Message{Command: wire.CmdGet, Payload: reply.Encode()}, nil
}

func (s *InterfaceServer) handleSet(_ context.Context, req *wire.Message, ev *log.CommandEvent) (*wire.Message, error) {
	cm, err := decodeAddressed(req, ev)
	if err != nil {
		return nil, err
	}
	if int(cm.Length) != len(cm.Data) {
		return nil, classify(ClassProtocol, "set", fmt.Errorf("%w: length %d with %d data bytes", ErrBadPayload, cm.Length, len(cm.Data)))
	}
	if err := s.ensureSession(); err != nil {
		return nil, err
	}

	if err := s.hw.Set(cm.Controller, cm.Address, cm.Data); err != nil {
		return nil, classify(ClassHardware, "set", err)
	}
	return nil, nil
}

// handleAcquisition serves DATA and ACQUISITION: an optional flag byte sets
// the acquisition state, an empty payload toggles it.
func (s *InterfaceServer) handleAcquisition(_ context.Context, req *wire.Message, _ *log.CommandEvent) (*wire.Message, error) {
	if err := s.ensureSession(); err != nil {
		return nil, err
	}
	on := wire.DecodeFlag(req.Payload, s.hw.Acquiring())
	if err := s.hw.SetAcquisition(on); err != nil {
		return nil, classify(ClassHardware, "set acquisition", err)
	}
	s.kickData()
	return &wire.Message{Command: req.Command, Payload: wire.EncodeFlag(s.hw.Acquiring())}, nil
}

func (s *InterfaceServer) handleDataPort(_ context.Context, req *wire.Message, _ *log.CommandEvent) (*wire.Message, error) {
	return &wire.Message{Command: req.Command, Payload: wire.EncodePort(s.DataPort())}, nil
}

func (s *InterfaceServer) handleFlush(_ context.Context, _ *wire.Message, _ *log.CommandEvent) (*wire.Message, error) {
	if err := s.hw.Flush(); err != nil {
		return nil, classify(ClassHardware, "flush", err)
	}
	return nil, nil
}

// handleDisconnect ends the hardware session and drops the data peer. The
// control connection stays open.
func (s *InterfaceServer) handleDisconnect(_ context.Context, req *wire.Message, _ *log.CommandEvent) (*wire.Message, error) {
	if s.hw.Acquiring() {
		if err := s.hw.SetAcquisition(false); err != nil {
			return nil, classify(ClassHardware, "disconnect", err)
		}
	}

	s.mu.Lock()
	data := s.data
	s.mu.Unlock()
	if data != nil {
		data.DropPeer()
	}

	if s.hwSession.Swap(false) {
		if err := s.hw.EndSession(); err != nil {
			return nil, classify(ClassHardware, "end session", err)
		}
	}
	return &wire.Message{Command: req.Command}, nil
}

func (s *InterfaceServer) handleServerVersion(_ context.Context, req *wire.Message, _ *log.CommandEvent) (*wire.Message, error) {
	return &wire.Message{Command: req.Command, Payload: wire.EncodeVersion(version.Major, version.Minor)}, nil
}

func (s *InterfaceServer) handleServerInfo(_ context.Context, req *wire.Message, _ *log.CommandEvent) (*wire.Message, error) {
	info := wire.ServerInfo{
		Major:  version.Major,
		Minor:  version.Minor,
		Flavor: s.flavor,
		Build:  version.Build,
	}
	return &wire.Message{Command: req.Command, Payload: info.Encode()}, nil
}

func (s *InterfaceServer) handleListAPs(ctx context.Context, req *wire.Message, _ *log.CommandEvent) (*wire.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, routerTimeout)
	defer cancel()

	aps, err := s.config.Router.ListAccessPoints(ctx)
	if err != nil {
		return nil, classify(ClassHardware, "list access points", err)
	}
	if aps == nil {
		aps = []netcfg.AccessPoint{}
	}
	payload, err := json.Marshal(aps)
	if err != nil {
		return nil, classify(ClassHardware, "list access points", err)
	}
	return &wire.Message{Command: req.Command, Payload: payload}, nil
}

func (s *InterfaceServer) handleConnectAP(ctx context.Context, req *wire.Message, _ *log.CommandEvent) (*wire.Message, error) {
	ssid, password, err := netcfg.ParseCredentials(req.Payload)
	if err != nil {
		return nil, classify(ClassProtocol, "connect access point", err)
	}

	ctx, cancel := context.WithTimeout(ctx, routerTimeout)
	defer cancel()

	if err := s.config.Router.ConnectAccessPoint(ctx, ssid, password); err != nil {
		return nil, classify(ClassHardware, "connect access point", err)
	}
	return &wire.Message{Command: req.Command, Payload: []byte{0}}, nil
}

// routerAction adapts a parameterless Configurator method to a handler
// replying with a zero status byte.
func (s *InterfaceServer) routerAction(action func(netcfg.Configurator, context.Context) error) commandHandler {
	return func(ctx context.Context, req *wire.Message, _ *log.CommandEvent) (*wire.Message, error) {
		ctx, cancel := context.WithTimeout(ctx, routerTimeout)
		defer cancel()

		if err := action(s.config.Router, ctx); err != nil {
			return nil, classify(ClassHardware, req.Command.String(), err)
		}
		return &wire.Message{Command: req.Command, Payload: []byte{0}}, nil
	}
}
