package server_test

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/labnation/sss-go/pkg/client"
	"github.com/labnation/sss-go/pkg/discovery"
	discoverymocks "github.com/labnation/sss-go/pkg/discovery/mocks"
	"github.com/labnation/sss-go/pkg/hardware"
	"github.com/labnation/sss-go/pkg/hardware/sim"
	"github.com/labnation/sss-go/pkg/log"
	"github.com/labnation/sss-go/pkg/server"
	"github.com/labnation/sss-go/pkg/transport"
	"github.com/labnation/sss-go/pkg/version"
	"github.com/labnation/sss-go/pkg/wire"
)

// stateRecorder collects the states reported to OnStateChange.
type stateRecorder struct {
	mu     sync.Mutex
	states []server.State
}

func (r *stateRecorder) record(s *server.InterfaceServer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s.State())
}

func (r *stateRecorder) snapshot() []server.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]server.State(nil), r.states...)
}

type testServer struct {
	srv   *server.InterfaceServer
	scope *sim.Scope
	rec   *stateRecorder
	done  chan error
}

func newTestServer(t *testing.T, mutate func(*server.Config)) *testServer {
	t.Helper()

	simCfg := sim.DefaultConfig()
	simCfg.PacketInterval = 5 * time.Millisecond
	simCfg.SamplesPerPacket = 256
	scope := sim.New(simCfg)

	rec := &stateRecorder{}
	cfg := server.Config{
		Hardware:       scope,
		ControlAddress: "127.0.0.1:0",
		DataAddress:    "127.0.0.1:0",
		PollInterval:   5 * time.Millisecond,
		ControlTimeout: 50 * time.Millisecond,
		DataTimeout:    50 * time.Millisecond,
		WriteTimeout:   time.Second,
		OnStateChange:  rec.record,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	srv, err := server.New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ts := &testServer{srv: srv, scope: scope, rec: rec, done: make(chan error, 1)}
	go func() { ts.done <- srv.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-ts.done:
		case <-time.After(5 * time.Second):
			t.Error("Run did not return")
		}
	})
	return ts
}

func startTestServer(t *testing.T, mutate func(*server.Config)) *testServer {
	t.Helper()
	ts := newTestServer(t, mutate)
	ts.srv.Start()
	ts.wait(t, server.StateStarted)
	return ts
}

func (ts *testServer) wait(t *testing.T, state server.State) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, ts.srv.WaitState(ctx, state))
}

func (ts *testServer) controlAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", ts.srv.ControlPort())
}

func (ts *testServer) dataAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", ts.srv.DataPort())
}

func (ts *testServer) dial(t *testing.T) *client.Control {
	t.Helper()
	c, err := client.Dial(context.Background(), ts.controlAddr(), client.Config{Timeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func (ts *testServer) dialRaw(t *testing.T) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", ts.controlAddr(), 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func encode(t *testing.T, msg *wire.Message) []byte {
	t.Helper()
	b, err := wire.EncodeMessage(msg)
	require.NoError(t, err)
	return b
}

// expectClosed asserts that the server closes conn.
func expectClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 64)
	for {
		_, err := conn.Read(buf)
		if err == nil {
			continue
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			t.Fatal("connection was not closed")
		}
		return
	}
}

func TestNewRequiresHardware(t *testing.T) {
	_, err := server.New(server.Config{})
	assert.ErrorIs(t, err, server.ErrNoHardware)
}

func TestServerVersionRawFrame(t *testing.T) {
	ts := startTestServer(t, nil)
	conn := ts.dialRaw(t)

	_, err := conn.Write([]byte{0x00, 0x00, 0x00, 0x00, 0x50})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	reply := make([]byte, 9)
	_, err = io.ReadFull(conn, reply)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x00, 0x00, 0x00, 0x50, 0x06, 0x01, 0x00, 0x00}, reply)
}

func TestServerVersionAndInfo(t *testing.T) {
	ts := startTestServer(t, func(c *server.Config) { c.Debug = true })
	c := ts.dial(t)
	ctx := context.Background()

	v, err := c.ServerVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, version.Current(), v)

	info, err := c.ServerInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, version.Major, info.Major)
	assert.Equal(t, version.Minor, info.Minor)
	assert.Equal(t, "vanilla-debug", info.Flavor)
	assert.Equal(t, version.Build, info.Build)
}

func TestGetReturnsRegisters(t *testing.T) {
	ts := startTestServer(t, nil)
	require.NoError(t, ts.scope.Set(hardware.ControllerFPGA, 0x10, []byte{0, 1, 2, 3}))

	conn := ts.dialRaw(t)
	req := wire.ControllerMessage{Controller: hardware.ControllerFPGA, Address: 0x10, Length: 4}
	_, err := conn.Write(encode(t, &wire.Message{Command: wire.CmdGet, Payload: req.Encode()}))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	reply, err := transport.NewFrameReader(conn).ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, wire.CmdGet, reply.Command)

	cm, err := wire.DecodeControllerMessage(reply.Payload)
	require.NoError(t, err)
	assert.Equal(t, hardware.ControllerFPGA, cm.Controller)
	assert.Equal(t, uint16(0x10), cm.Address)
	assert.Equal(t, uint16(4), cm.Length)
	assert.Equal(t, []byte{0, 1, 2, 3}, cm.Data)
	assert.True(t, ts.scope.SessionOpen())
}

func TestSetThenGet(t *testing.T) {
	ts := startTestServer(t, nil)
	c := ts.dial(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, hardware.ControllerAWG, 0x200, []byte{9, 8, 7}))
	data, err := c.Get(ctx, hardware.ControllerAWG, 0x200, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7}, data)
}

func TestHardwareErrorRepliesAndKeepsConnection(t *testing.T) {
	ts := startTestServer(t, nil)
	c := ts.dial(t)
	ctx := context.Background()

	ts.scope.SetFault(hardware.ErrDeviceGone)
	_, err := c.Get(ctx, hardware.ControllerFPGA, 0, 4)
	var serr *client.ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, wire.CmdGet, serr.Command)
	assert.Contains(t, serr.Message, hardware.ErrDeviceGone.Error())

	ts.scope.SetFault(nil)
	_, err = c.Get(ctx, hardware.ControllerFPGA, 0, 4)
	assert.NoError(t, err)
}

func TestOutOfRangeGetIsHardwareError(t *testing.T) {
	ts := startTestServer(t, nil)
	c := ts.dial(t)

	_, err := c.Get(context.Background(), hardware.ControllerFPGA, 0xfffe, 16)
	var serr *client.ServerError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Message, "out of bounds")
}

func TestUnknownCommandClosesConnection(t *testing.T) {
	ts := startTestServer(t, nil)
	conn := ts.dialRaw(t)

	// Router commands are unknown without a router.
	_, err := conn.Write(encode(t, &wire.Message{Command: wire.CmdLedeListAPs}))
	require.NoError(t, err)
	expectClosed(t, conn)

	// The server keeps accepting.
	c := ts.dial(t)
	_, err = c.ServerVersion(context.Background())
	assert.NoError(t, err)
}

func TestOversizedFrameClosesConnection(t *testing.T) {
	ts := startTestServer(t, nil)
	conn := ts.dialRaw(t)

	hdr := make([]byte, wire.HeaderSize)
	wire.PutHeader(hdr, wire.CmdSet, wire.MaxMessageSize+1)
	_, err := conn.Write(hdr)
	require.NoError(t, err)
	expectClosed(t, conn)
}

func TestSetLengthMismatchClosesConnection(t *testing.T) {
	ts := startTestServer(t, nil)
	conn := ts.dialRaw(t)

	bad := wire.ControllerMessage{Controller: hardware.ControllerFPGA, Address: 0, Length: 8, Data: []byte{1, 2}}
	_, err := conn.Write(encode(t, &wire.Message{Command: wire.CmdSet, Payload: bad.Encode()}))
	require.NoError(t, err)
	expectClosed(t, conn)
}

func TestPartialFrameSurvivesReadTimeouts(t *testing.T) {
	ts := startTestServer(t, nil)
	conn := ts.dialRaw(t)

	frame := encode(t, &wire.Message{Command: wire.CmdServerVersion})
	_, err := conn.Write(frame[:3])
	require.NoError(t, err)

	// Several control timeouts pass before the rest arrives.
	time.Sleep(200 * time.Millisecond)
	_, err = conn.Write(frame[3:])
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	reply, err := transport.NewFrameReader(conn).ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, wire.CmdServerVersion, reply.Command)
}

func TestPipelinedRequestsAnsweredInOrder(t *testing.T) {
	ts := startTestServer(t, nil)
	conn := ts.dialRaw(t)

	var batch []byte
	batch = wire.AppendMessage(batch, &wire.Message{Command: wire.CmdServerVersion})
	batch = wire.AppendMessage(batch, &wire.Message{Command: wire.CmdFlush})
	batch = wire.AppendMessage(batch, &wire.Message{Command: wire.CmdSerial})
	_, err := conn.Write(batch)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	reader := transport.NewFrameReader(conn)
	first, err := reader.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, wire.CmdServerVersion, first.Command)

	// FLUSH has no reply.
	second, err := reader.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, wire.CmdSerial, second.Command)
	assert.Equal(t, sim.DefaultConfig().Serial, string(second.Payload))
	assert.Equal(t, 1, ts.scope.Flushes())
}

func TestSingleControlPeer(t *testing.T) {
	ts := startTestServer(t, nil)
	first := ts.dialRaw(t)

	// Make sure the first peer is being served before replacing it.
	_, err := first.Write(encode(t, &wire.Message{Command: wire.CmdServerVersion}))
	require.NoError(t, err)
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = transport.NewFrameReader(first).ReadMessage()
	require.NoError(t, err)

	second := ts.dial(t)
	expectClosed(t, first)

	_, err = second.ServerVersion(context.Background())
	assert.NoError(t, err)
}

func TestDataPortReply(t *testing.T) {
	ts := startTestServer(t, nil)
	c := ts.dial(t)

	port, err := c.DataPort(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ts.srv.DataPort(), port)
	assert.NotZero(t, port)
}

func TestFirmwareAndFlash(t *testing.T) {
	ts := startTestServer(t, nil)
	c := ts.dial(t)
	ctx := context.Background()

	fw, err := c.FirmwareVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, sim.DefaultConfig().Firmware, fw)

	image := []byte{0xde, 0xad, 0xbe, 0xef}
	require.NoError(t, c.FlashFPGA(ctx, image))
	assert.Equal(t, image, ts.scope.FPGAImage())

	var serr *client.ServerError
	assert.ErrorAs(t, c.FlashFPGA(ctx, nil), &serr)
}

func TestAcquisitionStreamsData(t *testing.T) {
	ts := startTestServer(t, nil)
	c := ts.dial(t)
	ctx := context.Background()

	data, err := client.DialData(ctx, ts.dataAddr(), client.Config{Timeout: 2 * time.Second})
	require.NoError(t, err)
	defer data.Close()

	// DATA with an empty payload toggles acquisition on.
	reply, err := c.Do(ctx, &wire.Message{Command: wire.CmdData})
	require.NoError(t, err)
	assert.Equal(t, wire.EncodeFlag(true), reply.Payload)
	assert.True(t, ts.scope.Acquiring())

	var last uint32
	for i := 0; i < 5; i++ {
		frame, err := data.ReadFrame(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(frame.Payload), hardware.HeaderSize)
		assert.Equal(t, "LN", string(frame.Payload[:2]))
		seq := binary.LittleEndian.Uint32(frame.Payload[4:8])
		assert.Greater(t, seq, last)
		last = seq
	}

	on, err := c.SetAcquisition(ctx, false)
	require.NoError(t, err)
	assert.False(t, on)

	// At most the two in-flight frames arrive after acquisition stops.
	short, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	extra := 0
	for {
		if _, err := data.ReadFrame(short); err != nil {
			break
		}
		extra++
	}
	assert.LessOrEqual(t, extra, 2)
}

// emptyFetch reports that no packet is ready on every fetch.
type emptyFetch struct {
	*sim.Scope
	calls atomic.Int64
}

func (e *emptyFetch) FetchAcquisition([]byte) (int, error) {
	e.calls.Add(1)
	return 0, hardware.ErrNoData
}

func TestNoDataFetchIsPaced(t *testing.T) {
	var hw *emptyFetch
	ts := startTestServer(t, func(c *server.Config) {
		hw = &emptyFetch{Scope: c.Hardware.(*sim.Scope)}
		c.Hardware = hw
	})
	c := ts.dial(t)

	rawData, err := net.DialTimeout("tcp", ts.dataAddr(), 2*time.Second)
	require.NoError(t, err)
	defer rawData.Close()

	_, err = c.SetAcquisition(context.Background(), true)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	start := hw.calls.Load()
	time.Sleep(200 * time.Millisecond)
	fetched := hw.calls.Load() - start

	assert.Positive(t, fetched, "session keeps polling")
	assert.Less(t, fetched, int64(100), "fetch loop spins without pausing")
}

func TestDataPeerReplaced(t *testing.T) {
	ts := startTestServer(t, nil)
	c := ts.dial(t)
	ctx := context.Background()

	first, err := client.DialData(ctx, ts.dataAddr(), client.Config{Timeout: 2 * time.Second})
	require.NoError(t, err)
	defer first.Close()

	_, err = c.SetAcquisition(ctx, true)
	require.NoError(t, err)
	_, err = first.ReadFrame(ctx)
	require.NoError(t, err, "first peer is streaming")

	second, err := client.DialData(ctx, ts.dataAddr(), client.Config{Timeout: 2 * time.Second})
	require.NoError(t, err)
	defer second.Close()

	// The replaced peer drains what was in flight, then sees the close.
	short, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	for {
		if _, err := first.ReadFrame(short); err != nil {
			assert.False(t, transport.IsTimeout(err), "replaced peer still open: %v", err)
			break
		}
	}

	frame, err := second.ReadFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, "LN", string(frame.Payload[:2]))
}

func TestAcquisitionCommandSetsExplicitState(t *testing.T) {
	ts := startTestServer(t, nil)
	c := ts.dial(t)
	ctx := context.Background()

	on, err := c.SetAcquisition(ctx, true)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = c.SetAcquisition(ctx, true)
	require.NoError(t, err)
	assert.True(t, on, "explicit flag does not toggle")

	on, err = c.SetAcquisition(ctx, false)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestDisconnectEndsSession(t *testing.T) {
	ts := startTestServer(t, nil)
	c := ts.dial(t)
	ctx := context.Background()

	rawData, err := net.DialTimeout("tcp", ts.dataAddr(), 2*time.Second)
	require.NoError(t, err)
	defer rawData.Close()

	_, err = c.SetAcquisition(ctx, true)
	require.NoError(t, err)
	require.True(t, ts.scope.SessionOpen())

	require.NoError(t, c.Disconnect(ctx))
	assert.False(t, ts.scope.Acquiring())
	assert.False(t, ts.scope.SessionOpen())
	expectClosed(t, rawData)

	// The control connection survives.
	_, err = c.ServerVersion(ctx)
	assert.NoError(t, err)
}

func TestPublishFailureStillServes(t *testing.T) {
	adv := discoverymocks.NewMockAdvertiser(t)
	adv.EXPECT().Publish(mock.Anything, mock.Anything).Return(errors.New("no multicast")).Once()
	adv.EXPECT().Unpublish().Return(nil).Maybe()
	adv.EXPECT().Close().Return(nil).Maybe()

	ts := startTestServer(t, func(c *server.Config) { c.Advertiser = adv })

	assert.True(t, server.IsClass(ts.srv.AdvertiseErr(), server.ClassDiscovery))
	assert.NoError(t, ts.srv.LastErr())

	c := ts.dial(t)
	v, err := c.ServerVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, version.Current(), v)
}

func TestFailedPublishLogsNoUnpublish(t *testing.T) {
	adv := discoverymocks.NewMockAdvertiser(t)
	adv.EXPECT().Publish(mock.Anything, mock.Anything).Return(errors.New("no multicast")).Once()
	adv.EXPECT().Unpublish().Return(nil).Once()
	adv.EXPECT().Close().Return(nil).Maybe()

	mem := &memLogger{}
	ts := startTestServer(t, func(c *server.Config) {
		c.Advertiser = adv
		c.ProtocolLogger = mem
	})
	ts.srv.Stop()
	ts.wait(t, server.StateStopped)

	var transitions []string
	for _, ev := range mem.events() {
		if sc := ev.StateChange; sc != nil && sc.Entity == log.StateEntityAdvertisement {
			transitions = append(transitions, sc.OldState+">"+sc.NewState)
		}
	}
	assert.Equal(t, []string{">FAILED"}, transitions)
}

func TestPublishCarriesBoundPorts(t *testing.T) {
	adv := discoverymocks.NewMockAdvertiser(t)
	published := make(chan [2]uint16, 1)
	adv.EXPECT().Publish(mock.Anything, mock.Anything).RunAndReturn(func(_ context.Context, info *discovery.ServiceInfo) error {
		published <- [2]uint16{info.Port, info.DataPort}
		return nil
	}).Once()
	adv.EXPECT().Unpublish().Return(nil).Once()
	adv.EXPECT().Close().Return(nil).Once()

	ts := startTestServer(t, func(c *server.Config) {
		c.Advertiser = adv
		c.InstanceName = "Bench scope"
	})

	ports := <-published
	assert.Equal(t, ts.srv.ControlPort(), ports[0])
	assert.Equal(t, ts.srv.DataPort(), ports[1])
	assert.NoError(t, ts.srv.AdvertiseErr())

	ts.srv.Destroy()
	ts.wait(t, server.StateDestroyed)
}

func TestDestroyFromStarted(t *testing.T) {
	ts := startTestServer(t, nil)
	controlAddr, dataAddr := ts.controlAddr(), ts.dataAddr()
	conn := ts.dialRaw(t)

	ts.srv.Destroy()
	ts.wait(t, server.StateDestroyed)

	assert.Equal(t, []server.State{
		server.StateStarting,
		server.StateStarted,
		server.StateStopping,
		server.StateStopped,
		server.StateDestroying,
		server.StateDestroyed,
	}, ts.rec.snapshot())

	expectClosed(t, conn)
	for _, addr := range []string{controlAddr, dataAddr} {
		_, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		assert.Error(t, err, addr)
	}
	assert.Zero(t, ts.srv.ControlPort())

	select {
	case err := <-ts.done:
		assert.NoError(t, err)
		ts.done <- err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Destroyed")
	}
}

func TestDestroyIsTerminal(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.srv.Destroy()
	ts.wait(t, server.StateDestroyed)

	ts.srv.Start()
	assert.Equal(t, server.StateDestroyed, ts.srv.RequestedState())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, server.StateDestroyed, ts.srv.State())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.ErrorIs(t, ts.srv.WaitState(ctx, server.StateStarted), server.ErrDestroyed)

	// Uninitialized goes straight to Destroying.
	assert.Equal(t, []server.State{server.StateDestroying, server.StateDestroyed}, ts.rec.snapshot())
}

func TestDestroyRequestIsSticky(t *testing.T) {
	ts := startTestServer(t, nil)
	ts.srv.Destroy()
	ts.srv.Start()
	ts.srv.Stop()
	assert.Equal(t, server.StateDestroyed, ts.srv.RequestedState())
	ts.wait(t, server.StateDestroyed)
}

func TestStopWhileUninitializedIsNoop(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.srv.Stop()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, server.StateUninitialized, ts.srv.State())
	assert.Empty(t, ts.rec.snapshot())
}

func TestStopAndRestart(t *testing.T) {
	ts := startTestServer(t, nil)
	c := ts.dial(t)
	_, err := c.SetAcquisition(context.Background(), true)
	require.NoError(t, err)

	ts.srv.Stop()
	ts.wait(t, server.StateStopped)
	assert.Zero(t, ts.srv.ControlPort())
	assert.False(t, ts.scope.SessionOpen())

	ts.srv.Start()
	ts.wait(t, server.StateStarted)

	c2 := ts.dial(t)
	_, err = c2.ServerVersion(context.Background())
	assert.NoError(t, err)

	states := ts.rec.snapshot()
	for i := 1; i < len(states); i++ {
		assert.True(t, server.ValidTransition(states[i-1], states[i]), "%s -> %s", states[i-1], states[i])
	}
}

func TestBindFailureStopsWithoutRetry(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	ts := newTestServer(t, func(c *server.Config) { c.ControlAddress = busy.Addr().String() })
	ts.srv.Start()
	ts.wait(t, server.StateStopped)

	assert.True(t, server.IsClass(ts.srv.LastErr(), server.ClassLifecycle))
	assert.Equal(t, server.StateStopped, ts.srv.RequestedState())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []server.State{server.StateStarting, server.StateStopped}, ts.rec.snapshot())

	// A new request retries once the address is free.
	busy.Close()
	ts.srv.Start()
	ts.wait(t, server.StateStarted)
	assert.NoError(t, ts.srv.LastErr())
}

func TestRunTwice(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.srv.Start()
	ts.wait(t, server.StateStarted)
	assert.ErrorIs(t, ts.srv.Run(context.Background()), server.ErrAlreadyRunning)
}

func TestRunCancelDestroys(t *testing.T) {
	scope := sim.New(sim.DefaultConfig())
	srv, err := server.New(server.Config{
		Hardware:       scope,
		ControlAddress: "127.0.0.1:0",
		DataAddress:    "127.0.0.1:0",
		PollInterval:   5 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	srv.Start()
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer waitCancel()
	require.NoError(t, srv.WaitState(waitCtx, server.StateStarted))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, server.StateDestroyed, srv.State())
}

func TestProtocolLoggerSeesTraffic(t *testing.T) {
	mem := &memLogger{}
	ts := startTestServer(t, func(c *server.Config) { c.ProtocolLogger = mem })
	c := ts.dial(t)
	_, err := c.ServerVersion(context.Background())
	require.NoError(t, err)

	ts.srv.Destroy()
	ts.wait(t, server.StateDestroyed)

	var frames, commands, states int
	for _, ev := range mem.events() {
		switch {
		case ev.Frame != nil:
			frames++
		case ev.Command != nil:
			commands++
			assert.Equal(t, wire.CmdServerVersion, ev.Command.Command)
			assert.True(t, ev.Command.Replied)
		case ev.StateChange != nil:
			states++
		}
	}
	assert.GreaterOrEqual(t, frames, 2)
	assert.Equal(t, 1, commands)
	assert.GreaterOrEqual(t, states, 6)
}

type memLogger struct {
	mu  sync.Mutex
	evs []log.Event
}

func (m *memLogger) Log(ev log.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evs = append(m.evs, ev)
}

func (m *memLogger) events() []log.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]log.Event(nil), m.evs...)
}
