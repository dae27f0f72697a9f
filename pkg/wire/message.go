package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the length field.
	LengthPrefixSize = 4

	// HeaderSize is the size of the length field plus the command byte.
	HeaderSize = LengthPrefixSize + 1

	// MaxMessageSize is the largest payload a frame may declare (MSG_BUF_SIZE).
	MaxMessageSize = 1024 * 1024

	// ControllerHeaderSize is the fixed part of a ControllerMessage.
	ControllerHeaderSize = 5
)

// Codec errors.
var (
	// ErrIncomplete indicates more bytes are needed before a frame is available.
	ErrIncomplete = errors.New("incomplete frame")

	// ErrUnknownCommand indicates a command byte outside the accepted set.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrMessageTooLarge indicates a declared length above MaxMessageSize.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrShortPayload indicates a payload too short for the structure it carries.
	ErrShortPayload = errors.New("payload too short")
)

// Message is one frame of the protocol.
type Message struct {
	Command Command
	Payload []byte
}

// Len returns the payload length as carried in the length field.
func (m *Message) Len() uint32 {
	return uint32(len(m.Payload))
}

// FrameSize returns the encoded size of the message.
func (m *Message) FrameSize() int {
	return HeaderSize + len(m.Payload)
}

// PutHeader writes a frame header for cmd and a payload of n bytes into dst.
// dst must be at least HeaderSize bytes.
func PutHeader(dst []byte, cmd Command, n int) {
	binary.LittleEndian.PutUint32(dst[:LengthPrefixSize], uint32(n))
	dst[LengthPrefixSize] = byte(cmd)
}

// AppendMessage appends the encoded frame to dst.
func AppendMessage(dst []byte, m *Message) []byte {
	var hdr [HeaderSize]byte
	PutHeader(hdr[:], m.Command, len(m.Payload))
	dst = append(dst, hdr[:]...)
	return append(dst, m.Payload...)
}

// EncodeMessage encodes a frame.
func EncodeMessage(m *Message) ([]byte, error) {
	if len(m.Payload) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(m.Payload), MaxMessageSize)
	}
	return AppendMessage(make([]byte, 0, m.FrameSize()), m), nil
}

// ControllerID selects a subsystem of the scope.
type ControllerID uint8

// ControllerMessage addresses a register range of one controller.
type ControllerMessage struct {
	Controller ControllerID
	Address    uint16
	Length     uint16
	Data       []byte
}

// Encode encodes the controller message as a GET/SET payload.
// Length is written as given; for SET requests it must equal len(Data).
func (c *ControllerMessage) Encode() []byte {
	buf := make([]byte, ControllerHeaderSize+len(c.Data))
	buf[0] = byte(c.Controller)
	binary.LittleEndian.PutUint16(buf[1:3], c.Address)
	binary.LittleEndian.PutUint16(buf[3:5], c.Length)
	copy(buf[ControllerHeaderSize:], c.Data)
	return buf
}

// DecodeControllerMessage parses a GET/SET payload. Data aliases payload.
// Trailing data beyond the header is returned as-is; callers that need
// Length == len(Data) check it themselves.
func DecodeControllerMessage(payload []byte) (*ControllerMessage, error) {
	if len(payload) < ControllerHeaderSize {
		return nil, fmt.Errorf("%w: controller header needs %d bytes, got %d",
			ErrShortPayload, ControllerHeaderSize, len(payload))
	}
	return &ControllerMessage{
		Controller: ControllerID(payload[0]),
		Address:    binary.LittleEndian.Uint16(payload[1:3]),
		Length:     binary.LittleEndian.Uint16(payload[3:5]),
		Data:       payload[ControllerHeaderSize:],
	}, nil
}
