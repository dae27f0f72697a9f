// Package client talks to an InterfaceServer over its control and data
// sockets.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/labnation/sss-go/pkg/log"
	"github.com/labnation/sss-go/pkg/netcfg"
	"github.com/labnation/sss-go/pkg/transport"
	"github.com/labnation/sss-go/pkg/version"
	"github.com/labnation/sss-go/pkg/wire"
)

// DefaultTimeout bounds dialing and each request without a context deadline.
const DefaultTimeout = 5 * time.Second

// ErrUnexpectedReply indicates a reply with the wrong command tag.
var ErrUnexpectedReply = errors.New("unexpected reply")

// ServerError is an ERROR reply from the server.
type ServerError struct {
	Command wire.Command
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error on %s: %s", e.Command, e.Message)
}

// Config configures client connections.
type Config struct {
	// Timeout bounds dialing and requests. Default: 5 seconds.
	Timeout time.Duration

	// ProtocolLogger receives frame events (optional).
	ProtocolLogger log.Logger
}

func (c *Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

type framedConn struct {
	conn    net.Conn
	reader  *transport.FrameReader
	writer  *transport.FrameWriter
	timeout time.Duration
}

func dial(ctx context.Context, address string, config Config, channel log.Channel) (*framedConn, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.timeout())
		defer cancel()
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	fc := &framedConn{
		conn:    conn,
		reader:  transport.NewFrameReader(conn),
		writer:  transport.NewFrameWriter(conn),
		timeout: config.timeout(),
	}
	if config.ProtocolLogger != nil {
		id := "client-" + conn.LocalAddr().String()
		fc.reader.SetLogger(config.ProtocolLogger, id, channel)
		fc.writer.SetLogger(config.ProtocolLogger, id, channel)
	}
	return fc, nil
}

func (fc *framedConn) deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(fc.timeout)
}

// Control is a control socket connection. Requests are serialized.
type Control struct {
	fc *framedConn
	mu sync.Mutex
}

// Dial connects to a control socket.
func Dial(ctx context.Context, address string, config Config) (*Control, error) {
	fc, err := dial(ctx, address, config, log.ChannelControl)
	if err != nil {
		return nil, err
	}
	return &Control{fc: fc}, nil
}

// Close closes the connection.
func (c *Control) Close() error {
	return c.fc.conn.Close()
}

// Send writes a request that has no reply.
func (c *Control) Send(ctx context.Context, req *wire.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.fc.conn.SetWriteDeadline(c.fc.deadline(ctx)); err != nil {
		return err
	}
	return c.fc.writer.WriteMessage(req)
}

// Do writes a request and reads its reply. An ERROR reply is returned as
// a *ServerError.
func (c *Control) Do(ctx context.Context, req *wire.Message) (*wire.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := c.fc.deadline(ctx)
	if err := c.fc.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	if err := c.fc.writer.WriteMessage(req); err != nil {
		return nil, err
	}

	reply, err := c.fc.reader.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading %s reply: %w", req.Command, err)
	}
	if reply.Command == wire.CmdError {
		cmd, msg, err := wire.DecodeError(reply.Payload)
		if err != nil {
			return nil, err
		}
		return nil, &ServerError{Command: cmd, Message: msg}
	}
	if reply.Command != req.Command {
		return nil, fmt.Errorf("%w: sent %s, got %s", ErrUnexpectedReply, req.Command, reply.Command)
	}
	return reply, nil
}

// ServerVersion asks for the protocol version.
func (c *Control) ServerVersion(ctx context.Context) (version.ProtocolVersion, error) {
	reply, err := c.Do(ctx, &wire.Message{Command: wire.CmdServerVersion})
	if err != nil {
		return version.ProtocolVersion{}, err
	}
	major, minor, err := wire.DecodeVersion(reply.Payload)
	if err != nil {
		return version.ProtocolVersion{}, err
	}
	return version.ProtocolVersion{Major: major, Minor: minor}, nil
}

// ServerInfo asks for version, flavor and build.
func (c *Control) ServerInfo(ctx context.Context) (*wire.ServerInfo, error) {
	reply, err := c.Do(ctx, &wire.Message{Command: wire.CmdServerInfo})
	if err != nil {
		return nil, err
	}
	return wire.DecodeServerInfo(reply.Payload)
}

// Serial asks for the scope serial number.
func (c *Control) Serial(ctx context.Context) (string, error) {
	reply, err := c.Do(ctx, &wire.Message{Command: wire.CmdSerial})
	if err != nil {
		return "", err
	}
	return string(reply.Payload), nil
}

// FirmwareVersion asks for the PIC firmware version bytes.
func (c *Control) FirmwareVersion(ctx context.Context) ([]byte, error) {
	reply, err := c.Do(ctx, &wire.Message{Command: wire.CmdPicFwVersion})
	if err != nil {
		return nil, err
	}
	return reply.Payload, nil
}

// Get reads length bytes at addr of controller ctrl.
func (c *Control) Get(ctx context.Context, ctrl wire.ControllerID, addr, length uint16) ([]byte, error) {
	req := wire.ControllerMessage{Controller: ctrl, Address: addr, Length: length}
	reply, err := c.Do(ctx, &wire.Message{Command: wire.CmdGet, Payload: req.Encode()})
	if err != nil {
		return nil, err
	}
	cm, err := wire.DecodeControllerMessage(reply.Payload)
	if err != nil {
		return nil, err
	}
	if cm.Controller != ctrl || cm.Address != addr {
		return nil, fmt.Errorf("%w: GET reply for ctrl %d addr %#x", ErrUnexpectedReply, cm.Controller, cm.Address)
	}
	return cm.Data, nil
}

// Set writes data at addr of controller ctrl. SET has no reply; a failure
// surfaces as an ERROR reply to the next request.
func (c *Control) Set(ctx context.Context, ctrl wire.ControllerID, addr uint16, data []byte) error {
	req := wire.ControllerMessage{Controller: ctrl, Address: addr, Length: uint16(len(data)), Data: data}
	return c.Send(ctx, &wire.Message{Command: wire.CmdSet, Payload: req.Encode()})
}

// SetAcquisition turns acquisition on or off and returns the new state.
func (c *Control) SetAcquisition(ctx context.Context, on bool) (bool, error) {
	reply, err := c.Do(ctx, &wire.Message{Command: wire.CmdAcquisition, Payload: wire.EncodeFlag(on)})
	if err != nil {
		return false, err
	}
	return wire.DecodeFlag(reply.Payload, false), nil
}

// DataPort asks for the data socket port.
func (c *Control) DataPort(ctx context.Context) (uint16, error) {
	reply, err := c.Do(ctx, &wire.Message{Command: wire.CmdDataPort})
	if err != nil {
		return 0, err
	}
	return wire.DecodePort(reply.Payload)
}

// FlashFPGA uploads an FPGA image.
func (c *Control) FlashFPGA(ctx context.Context, image []byte) error {
	_, err := c.Do(ctx, &wire.Message{Command: wire.CmdFlashFPGA, Payload: image})
	return err
}

// Flush discards device-side buffers. FLUSH has no reply.
func (c *Control) Flush(ctx context.Context) error {
	return c.Send(ctx, &wire.Message{Command: wire.CmdFlush})
}

// Disconnect ends the hardware session.
func (c *Control) Disconnect(ctx context.Context) error {
	_, err := c.Do(ctx, &wire.Message{Command: wire.CmdDisconnect})
	return err
}

// ListAccessPoints asks a router-mode server for visible networks.
func (c *Control) ListAccessPoints(ctx context.Context) ([]netcfg.AccessPoint, error) {
	reply, err := c.Do(ctx, &wire.Message{Command: wire.CmdLedeListAPs})
	if err != nil {
		return nil, err
	}
	var aps []netcfg.AccessPoint
	if err := json.Unmarshal(reply.Payload, &aps); err != nil {
		return nil, fmt.Errorf("decoding access points: %w", err)
	}
	return aps, nil
}

// ConnectAccessPoint asks a router-mode server to join a network.
func (c *Control) ConnectAccessPoint(ctx context.Context, ssid, password string) error {
	_, err := c.Do(ctx, &wire.Message{Command: wire.CmdLedeConnectAP, Payload: netcfg.EncodeCredentials(ssid, password)})
	return err
}

// Data is a data socket connection.
type Data struct {
	fc *framedConn
}

// DialData connects to a data socket.
func DialData(ctx context.Context, address string, config Config) (*Data, error) {
	fc, err := dial(ctx, address, config, log.ChannelData)
	if err != nil {
		return nil, err
	}
	return &Data{fc: fc}, nil
}

// ReadFrame reads the next DATA frame.
func (d *Data) ReadFrame(ctx context.Context) (*wire.Message, error) {
	if err := d.fc.conn.SetReadDeadline(d.fc.deadline(ctx)); err != nil {
		return nil, err
	}
	msg, err := d.fc.reader.ReadMessage()
	if err != nil {
		return nil, err
	}
	if msg.Command != wire.CmdData {
		return nil, fmt.Errorf("%w: %s on data socket", ErrUnexpectedReply, msg.Command)
	}
	return msg, nil
}

// Close closes the connection.
func (d *Data) Close() error {
	return d.fc.conn.Close()
}
