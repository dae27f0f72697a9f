package transport

import (
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labnation/sss-go/pkg/log"
	"github.com/labnation/sss-go/pkg/wire"
)

// Conn is an accepted peer. Reads and writes carry deadlines.
type Conn struct {
	nc      net.Conn
	connID  string
	channel log.Channel
	logger  log.Logger

	readTimeout  time.Duration
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeCh   chan struct{}
}

func newConn(nc net.Conn, channel log.Channel, logger log.Logger, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		nc:           nc,
		connID:       uuid.New().String(),
		channel:      channel,
		logger:       logger,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		closeCh:      make(chan struct{}),
	}
}

// ConnID returns the unique connection identifier.
func (c *Conn) ConnID() string {
	return c.connID
}

// RemoteAddr returns the remote address of the peer.
func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

// Read reads into p, waiting at most the read timeout. A timeout is
// reported as an error satisfying IsTimeout.
func (c *Conn) Read(p []byte) (int, error) {
	if c.readTimeout > 0 {
		if err := c.nc.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}
	}
	return c.nc.Read(p)
}

// WriteMessage encodes and writes one frame.
func (c *Conn) WriteMessage(m *wire.Message) error {
	frame, err := wire.EncodeMessage(m)
	if err != nil {
		return err
	}
	if err := c.write(frame); err != nil {
		return err
	}
	c.LogFrame(log.DirectionOut, m)
	return nil
}

// WriteFrame writes an already encoded frame. Frames are logged with their
// header and a truncated payload.
func (c *Conn) WriteFrame(frame []byte) error {
	if err := c.write(frame); err != nil {
		return err
	}
	if c.logger != nil && len(frame) >= wire.HeaderSize {
		c.LogFrame(log.DirectionOut, &wire.Message{
			Command: wire.Command(frame[wire.LengthPrefixSize]),
			Payload: frame[wire.HeaderSize:],
		})
	}
	return nil
}

func (c *Conn) write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := c.nc.Write(frame)
	return err
}

// LogFrame records a frame event for this connection.
func (c *Conn) LogFrame(direction log.Direction, m *wire.Message) {
	if c.logger == nil {
		return
	}
	event := log.NewFrameEvent(c.connID, c.channel, direction, m)
	event.RemoteAddr = c.nc.RemoteAddr().String()
	c.logger.Log(event)
}

// Log records an event, filling in the connection fields.
func (c *Conn) Log(event log.Event) {
	if c.logger == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.ConnectionID = c.connID
	event.Channel = c.channel
	event.RemoteAddr = c.nc.RemoteAddr().String()
	c.logger.Log(event)
}

// Close closes the connection. It is safe to call Close multiple times.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.nc.Close()
	})
	return err
}

// Done is closed once Close has been called.
func (c *Conn) Done() <-chan struct{} {
	return c.closeCh
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
