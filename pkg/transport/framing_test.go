package transport_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/labnation/sss-go/pkg/log"
	"github.com/labnation/sss-go/pkg/transport"
	"github.com/labnation/sss-go/pkg/wire"
)

type recordingLogger struct {
	events []log.Event
}

func (r *recordingLogger) Log(event log.Event) {
	r.events = append(r.events, event)
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := transport.NewFrameWriter(&buf)

	msgs := []*wire.Message{
		{Command: wire.CmdServerVersion},
		{Command: wire.CmdGet, Payload: (&wire.ControllerMessage{Controller: 3, Address: 0x10, Length: 4}).Encode()},
		{Command: wire.CmdData, Payload: bytes.Repeat([]byte{0xaa}, 70000)},
	}
	for _, m := range msgs {
		if err := w.WriteMessage(m); err != nil {
			t.Fatalf("WriteMessage(%s) failed: %v", m.Command, err)
		}
	}

	r := transport.NewFrameReader(&buf)
	for _, want := range msgs {
		got, err := r.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage failed: %v", err)
		}
		if got.Command != want.Command || !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("got %s (%d bytes), want %s (%d bytes)", got.Command, len(got.Payload), want.Command, len(want.Payload))
		}
	}

	if _, err := r.ReadMessage(); err != io.EOF {
		t.Errorf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestFrameReaderTruncated(t *testing.T) {
	frame, _ := wire.EncodeMessage(&wire.Message{Command: wire.CmdSerial, Payload: []byte("SN123")})

	for _, cut := range []int{1, wire.HeaderSize, len(frame) - 1} {
		r := transport.NewFrameReader(bytes.NewReader(frame[:cut]))
		if _, err := r.ReadMessage(); !errors.Is(err, transport.ErrFrameTruncated) {
			t.Errorf("cut at %d: err = %v, want ErrFrameTruncated", cut, err)
		}
	}
}

func TestFrameReaderTooLarge(t *testing.T) {
	hdr := make([]byte, wire.HeaderSize)
	binary.LittleEndian.PutUint32(hdr, 1024)
	hdr[4] = byte(wire.CmdData)

	r := transport.NewFrameReader(bytes.NewReader(hdr))
	r.SetMaxMessageSize(512)
	if _, err := r.ReadMessage(); !errors.Is(err, wire.ErrMessageTooLarge) {
		t.Errorf("err = %v, want ErrMessageTooLarge", err)
	}
}

func TestFramingLogsEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := &recordingLogger{}

	w := transport.NewFrameWriter(&buf)
	w.SetLogger(logger, "client-1", log.ChannelControl)
	if err := w.WriteMessage(&wire.Message{Command: wire.CmdServerInfo}); err != nil {
		t.Fatal(err)
	}

	r := transport.NewFrameReader(&buf)
	r.SetLogger(logger, "client-1", log.ChannelControl)
	if _, err := r.ReadMessage(); err != nil {
		t.Fatal(err)
	}

	if len(logger.events) != 2 {
		t.Fatalf("got %d events, want 2", len(logger.events))
	}
	if logger.events[0].Direction != log.DirectionOut || logger.events[1].Direction != log.DirectionIn {
		t.Errorf("directions = %v, %v", logger.events[0].Direction, logger.events[1].Direction)
	}
	for _, e := range logger.events {
		if e.Frame == nil || e.Frame.Command != wire.CmdServerInfo || e.Frame.Size != wire.HeaderSize {
			t.Errorf("frame event = %+v", e.Frame)
		}
		if e.ConnectionID != "client-1" || e.Channel != log.ChannelControl {
			t.Errorf("event envelope = %+v", e)
		}
	}
}
