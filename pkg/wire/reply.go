package wire

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// PackVersion packs a protocol version the way SERVER_VERSION carries it.
func PackVersion(major, minor uint8) uint32 {
	return uint32(major)<<8 | uint32(minor)
}

// UnpackVersion splits a packed version.
func UnpackVersion(v uint32) (major, minor uint8) {
	return uint8(v >> 8), uint8(v)
}

// EncodeVersion encodes a SERVER_VERSION reply payload.
func EncodeVersion(major, minor uint8) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, PackVersion(major, minor))
	return buf
}

// DecodeVersion decodes a SERVER_VERSION reply payload.
func DecodeVersion(payload []byte) (major, minor uint8, err error) {
	if len(payload) < 4 {
		return 0, 0, fmt.Errorf("%w: version needs 4 bytes, got %d", ErrShortPayload, len(payload))
	}
	major, minor = UnpackVersion(binary.LittleEndian.Uint32(payload))
	return major, minor, nil
}

// ServerInfo is the content of a SERVER_INFO reply.
type ServerInfo struct {
	Major  uint8
	Minor  uint8
	Flavor string
	Build  string
}

// Encode encodes the SERVER_INFO reply payload: packed version, then
// "<flavor>;<build>".
func (i *ServerInfo) Encode() []byte {
	buf := EncodeVersion(i.Major, i.Minor)
	return append(buf, i.Flavor+";"+i.Build...)
}

// DecodeServerInfo decodes a SERVER_INFO reply payload.
func DecodeServerInfo(payload []byte) (*ServerInfo, error) {
	major, minor, err := DecodeVersion(payload)
	if err != nil {
		return nil, err
	}
	info := &ServerInfo{Major: major, Minor: minor}
	flavor, build, _ := strings.Cut(string(payload[4:]), ";")
	info.Flavor = flavor
	info.Build = build
	return info, nil
}

// EncodePort encodes a DATA_PORT reply payload.
func EncodePort(port uint16) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, port)
	return buf
}

// DecodePort decodes a DATA_PORT reply payload.
func DecodePort(payload []byte) (uint16, error) {
	if len(payload) < 2 {
		return 0, fmt.Errorf("%w: port needs 2 bytes, got %d", ErrShortPayload, len(payload))
	}
	return binary.LittleEndian.Uint16(payload), nil
}

// EncodeFlag encodes a one-byte boolean.
func EncodeFlag(on bool) []byte {
	if on {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeFlag decodes a DATA/ACQUISITION request flag. An empty payload means
// "toggle" and yields !current.
func DecodeFlag(payload []byte, current bool) bool {
	if len(payload) == 0 {
		return !current
	}
	return payload[0] != 0
}

// EncodeError encodes an ERROR reply payload for a failed request.
func EncodeError(req Command, msg string) []byte {
	buf := make([]byte, 0, 1+len(msg))
	buf = append(buf, byte(req))
	return append(buf, msg...)
}

// DecodeError decodes an ERROR reply payload.
func DecodeError(payload []byte) (Command, string, error) {
	if len(payload) < 1 {
		return 0, "", fmt.Errorf("%w: error reply is empty", ErrShortPayload)
	}
	return Command(payload[0]), string(payload[1:]), nil
}
