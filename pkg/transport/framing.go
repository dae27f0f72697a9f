package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/labnation/sss-go/pkg/log"
	"github.com/labnation/sss-go/pkg/wire"
)

// ErrFrameTruncated indicates the stream ended inside a frame.
var ErrFrameTruncated = errors.New("frame truncated")

// FrameWriter writes frames to an underlying writer.
type FrameWriter struct {
	w  io.Writer
	mu sync.Mutex

	// Logging support (optional)
	logger  log.Logger
	connID  string
	channel log.Channel
}

// NewFrameWriter creates a new frame writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// SetLogger configures logging for this writer.
// Pass nil to disable logging.
func (fw *FrameWriter) SetLogger(logger log.Logger, connID string, channel log.Channel) {
	fw.logger = logger
	fw.connID = connID
	fw.channel = channel
}

// WriteMessage writes one frame.
// Thread-safe: can be called from multiple goroutines.
func (fw *FrameWriter) WriteMessage(m *wire.Message) error {
	frame, err := wire.EncodeMessage(m)
	if err != nil {
		return err
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, err := fw.w.Write(frame); err != nil {
		return fmt.Errorf("failed to write %s frame: %w", m.Command, err)
	}

	if fw.logger != nil {
		fw.logger.Log(log.NewFrameEvent(fw.connID, fw.channel, log.DirectionOut, m))
	}
	return nil
}

// FrameReader reads frames from an underlying reader.
type FrameReader struct {
	r              io.Reader
	maxMessageSize uint32
	header         [wire.HeaderSize]byte

	// Logging support (optional)
	logger  log.Logger
	connID  string
	channel log.Channel
}

// NewFrameReader creates a new frame reader.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{
		r:              r,
		maxMessageSize: wire.MaxMessageSize,
	}
}

// SetLogger configures logging for this reader.
// Pass nil to disable logging.
func (fr *FrameReader) SetLogger(logger log.Logger, connID string, channel log.Channel) {
	fr.logger = logger
	fr.connID = connID
	fr.channel = channel
}

// SetMaxMessageSize updates the maximum message size.
func (fr *FrameReader) SetMaxMessageSize(size uint32) {
	fr.maxMessageSize = size
}

// ReadMessage reads one frame. It returns io.EOF only at a frame boundary.
func (fr *FrameReader) ReadMessage() (*wire.Message, error) {
	if _, err := io.ReadFull(fr.r, fr.header[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	length := binary.LittleEndian.Uint32(fr.header[:wire.LengthPrefixSize])
	if length > fr.maxMessageSize {
		return nil, fmt.Errorf("%w: %d > %d", wire.ErrMessageTooLarge, length, fr.maxMessageSize)
	}

	msg := &wire.Message{
		Command: wire.Command(fr.header[wire.LengthPrefixSize]),
		Payload: make([]byte, length),
	}
	if _, err := io.ReadFull(fr.r, msg.Payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	if fr.logger != nil {
		fr.logger.Log(log.NewFrameEvent(fr.connID, fr.channel, log.DirectionIn, msg))
	}
	return msg, nil
}
