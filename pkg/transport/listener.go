package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labnation/sss-go/pkg/log"
)

// DefaultAcceptTimeout bounds each Accept call.
const DefaultAcceptTimeout = 4 * time.Second

// SessionHandler serves one peer. It returns when the peer should be
// dropped; the listener closes the connection afterwards. ctx is cancelled
// when the listener closes.
type SessionHandler func(ctx context.Context, conn *Conn)

// ListenerConfig configures a PeerListener.
type ListenerConfig struct {
	// Address to listen on (e.g., ":0" or "127.0.0.1:5025").
	Address string

	// Channel tags protocol events from this listener.
	Channel log.Channel

	// AcceptTimeout bounds each Accept call. Default: 4 seconds.
	AcceptTimeout time.Duration

	// ReadTimeout and WriteTimeout are applied to every peer read and write.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Handler serves each accepted peer.
	Handler SessionHandler

	// ProtocolLogger receives connection and frame events (optional).
	ProtocolLogger log.Logger

	// Logger receives operational diagnostics (optional).
	Logger *slog.Logger
}

// PeerListener accepts connections on one TCP socket and serves at most one
// peer at a time.
type PeerListener struct {
	config   ListenerConfig
	listener *net.TCPListener

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.Mutex
	peer     *Conn
	peerDone chan struct{}
	accepted atomic.Uint64
}

// Listen binds the socket. Serve starts accepting.
func Listen(config ListenerConfig) (*PeerListener, error) {
	if config.Handler == nil {
		return nil, fmt.Errorf("listener handler is required")
	}
	if config.AcceptTimeout <= 0 {
		config.AcceptTimeout = DefaultAcceptTimeout
	}

	addr, err := net.ResolveTCPAddr("tcp", config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", config.Address, err)
	}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	return &PeerListener{
		config:   config,
		listener: ln,
	}, nil
}

// Serve starts the accept loop and returns once it is running.
func (l *PeerListener) Serve(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return fmt.Errorf("listener already serving")
	}
	l.ctx, l.cancel = context.WithCancel(ctx)

	started := make(chan struct{})
	l.wg.Add(1)
	go l.acceptLoop(started)
	<-started
	return nil
}

// Addr returns the listen address.
func (l *PeerListener) Addr() net.Addr {
	return l.listener.Addr()
}

// Port returns the bound TCP port.
func (l *PeerListener) Port() uint16 {
	return uint16(l.listener.Addr().(*net.TCPAddr).Port)
}

// Running reports whether the accept loop is active.
func (l *PeerListener) Running() bool {
	return l.running.Load()
}

// Peer returns the active peer, or nil.
func (l *PeerListener) Peer() *Conn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peer
}

// Accepted returns the number of connections accepted so far.
func (l *PeerListener) Accepted() uint64 {
	return l.accepted.Load()
}

// DropPeer closes the active peer, if any, and waits for its session.
func (l *PeerListener) DropPeer() {
	l.mu.Lock()
	peer, done := l.peer, l.peerDone
	l.mu.Unlock()

	if peer != nil {
		peer.Close()
		<-done
	}
}

// Close stops accepting, closes the peer and joins all goroutines.
// It is safe to call Close multiple times.
func (l *PeerListener) Close() error {
	wasRunning := l.running.Swap(false)
	if l.cancel != nil {
		l.cancel()
	}
	err := l.listener.Close()
	if wasRunning {
		l.wg.Wait()
	}
	l.DropPeer()

	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (l *PeerListener) acceptLoop(started chan<- struct{}) {
	defer l.wg.Done()
	close(started)

	for l.running.Load() {
		if err := l.listener.SetDeadline(time.Now().Add(l.config.AcceptTimeout)); err != nil {
			if !l.running.Load() {
				return
			}
			l.debugLog("set accept deadline failed", "error", err)
		}

		nc, err := l.listener.Accept()
		if err != nil {
			if !l.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			if IsTimeout(err) {
				continue
			}
			l.debugLog("accept failed", "channel", l.config.Channel.String(), "error", err)
			continue
		}

		l.accepted.Add(1)
		conn := newConn(nc, l.config.Channel, l.config.ProtocolLogger, l.config.ReadTimeout, l.config.WriteTimeout)
		l.replacePeer(conn)
	}
}

// replacePeer closes the current peer, waits for its session, then starts
// a session for conn.
func (l *PeerListener) replacePeer(conn *Conn) {
	l.mu.Lock()
	old := l.peer
	l.mu.Unlock()
	if old != nil {
		l.debugLog("replacing peer", "channel", l.config.Channel.String(), "old", old.RemoteAddr().String(), "new", conn.RemoteAddr().String())
		l.DropPeer()
	}

	if !l.running.Load() {
		conn.Close()
		return
	}

	done := make(chan struct{})
	l.mu.Lock()
	l.peer, l.peerDone = conn, done
	l.mu.Unlock()

	conn.Log(log.Event{
		Layer:    log.LayerTransport,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			NewState: "CONNECTED",
		},
	})
	l.debugLog("peer connected", "channel", l.config.Channel.String(), "remote", conn.RemoteAddr().String(), "conn_id", conn.ConnID())

	go func() {
		defer close(done)

		l.config.Handler(l.ctx, conn)
		conn.Close()

		l.mu.Lock()
		if l.peer == conn {
			l.peer, l.peerDone = nil, nil
		}
		l.mu.Unlock()

		conn.Log(log.Event{
			Layer:    log.LayerTransport,
			Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityConnection,
				OldState: "CONNECTED",
				NewState: "DISCONNECTED",
			},
		})
		l.debugLog("peer disconnected", "channel", l.config.Channel.String(), "conn_id", conn.ConnID())
	}()
}

func (l *PeerListener) debugLog(msg string, args ...any) {
	if l.config.Logger != nil {
		l.config.Logger.Debug(msg, args...)
	}
}
