package server

import (
	"context"
	"errors"
	"time"

	"github.com/labnation/sss-go/pkg/hardware"
	"github.com/labnation/sss-go/pkg/log"
	"github.com/labnation/sss-go/pkg/transport"
	"github.com/labnation/sss-go/pkg/wire"
)

// kickData wakes an idle data session.
func (s *InterfaceServer) kickData() {
	select {
	case s.dataKick <- struct{}{}:
	default:
	}
}

// serveData streams acquisition packets to one data peer.
//
// The session fetches into one half of dataBuf while a writer goroutine
// sends the other. With both halves in flight the fetch loop blocks until
// the writer returns one, so a slow peer slows acquisition down instead of
// queueing frames.
func (s *InterfaceServer) serveData(ctx context.Context, conn *transport.Conn) {
	free := make(chan []byte, 2)
	free <- s.dataBuf[:dataFrameSize:dataFrameSize]
	free <- s.dataBuf[dataFrameSize:]
	filled := make(chan []byte, 1)

	writeFailed := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		failed := false
		for frame := range filled {
			if !failed {
				if err := conn.WriteFrame(frame); err != nil {
					failed = true
					conn.Log(errorEvent(log.LayerTransport, classify(ClassTransport, "write DATA", err)))
					close(writeFailed)
					conn.Close()
				}
			}
			free <- frame[:cap(frame)]
		}
	}()

	peerDone := make(chan struct{})
	go s.discardPeerInput(conn, peerDone)

	defer func() {
		close(filled)
		<-writerDone
		conn.Close()
		<-peerDone
	}()

	idle := time.NewTimer(s.config.DataTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			return
		case <-writeFailed:
			return
		default:
		}

		if !s.hw.Acquiring() {
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(s.config.DataTimeout)
			select {
			case <-s.dataKick:
			case <-idle.C:
			case <-conn.Done():
				return
			case <-ctx.Done():
				return
			}
			continue
		}

		var buf []byte
		select {
		case buf = <-free:
		case <-conn.Done():
			return
		case <-writeFailed:
			return
		case <-ctx.Done():
			return
		}

		n, err := s.hw.FetchAcquisition(buf[wire.HeaderSize:])
		if err != nil {
			free <- buf
			delay := dataPollDelay
			if !errors.Is(err, hardware.ErrNotAcquiring) && !errors.Is(err, hardware.ErrNoData) {
				conn.Log(errorEvent(log.LayerServer, classify(ClassHardware, "fetch acquisition", err)))
				delay = dataRetryDelay
			}
			select {
			case <-time.After(delay):
			case <-conn.Done():
				return
			case <-ctx.Done():
				return
			}
			continue
		}

		wire.PutHeader(buf, wire.CmdData, n)
		filled <- buf[:wire.HeaderSize+n]
	}
}

// discardPeerInput reads and drops anything the data peer sends so that a
// peer hang-up is noticed while acquisition is idle.
func (s *InterfaceServer) discardPeerInput(conn *transport.Conn, done chan<- struct{}) {
	defer close(done)
	buf := make([]byte, 512)
	for {
		if _, err := conn.Read(buf); err != nil {
			if transport.IsTimeout(err) {
				select {
				case <-conn.Done():
					return
				default:
					continue
				}
			}
			conn.Close()
			return
		}
	}
}
