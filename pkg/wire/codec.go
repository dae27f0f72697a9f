package wire

import (
	"encoding/binary"
	"fmt"
)

// Decoder accumulates received bytes and yields complete frames.
// A Decoder is owned by a single connection loop and is not safe for
// concurrent use.
type Decoder struct {
	buf      []byte
	accepted CommandSet
	maxSize  uint32
}

// NewDecoder creates a decoder accepting the given commands.
// A nil set accepts AllCommands.
func NewDecoder(accepted CommandSet) *Decoder {
	if accepted == nil {
		accepted = AllCommands()
	}
	return &Decoder{
		accepted: accepted,
		maxSize:  MaxMessageSize,
	}
}

// SetMaxMessageSize lowers or raises the payload limit.
func (d *Decoder) SetMaxMessageSize(size uint32) {
	d.maxSize = size
}

// Feed appends received bytes to the decoder buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes not yet consumed.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Reset discards all buffered bytes.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}

// Next returns the next complete frame.
//
// It returns ErrIncomplete when the buffer holds less than one frame; the
// partial bytes are retained. ErrUnknownCommand and ErrMessageTooLarge are
// malformed-stream errors: the header is checked as soon as it is
// available, so a malformed frame is reported without waiting for its
// payload. The returned payload is a copy and stays valid after further
// Feed calls.
func (d *Decoder) Next() (*Message, error) {
	if len(d.buf) < HeaderSize {
		return nil, ErrIncomplete
	}

	length := binary.LittleEndian.Uint32(d.buf[:LengthPrefixSize])
	cmd := Command(d.buf[LengthPrefixSize])

	if !d.accepted.Contains(cmd) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
	if length > d.maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, d.maxSize)
	}

	total := HeaderSize + int(length)
	if len(d.buf) < total {
		return nil, ErrIncomplete
	}

	payload := make([]byte, length)
	copy(payload, d.buf[HeaderSize:total])

	// Shift the remainder down so the buffer does not grow without bound
	// across long-lived connections.
	n := copy(d.buf, d.buf[total:])
	d.buf = d.buf[:n]

	return &Message{Command: cmd, Payload: payload}, nil
}

// DecodeMessage decodes exactly one frame from data. Trailing bytes are an error.
func DecodeMessage(data []byte) (*Message, error) {
	d := NewDecoder(nil)
	d.Feed(data)
	msg, err := d.Next()
	if err != nil {
		return nil, err
	}
	if d.Buffered() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after frame", d.Buffered())
	}
	return msg, nil
}
