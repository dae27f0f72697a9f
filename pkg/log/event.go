package log

import (
	"fmt"
	"strings"
	"time"

	"github.com/labnation/sss-go/pkg/wire"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	// Empty for server-level events.
	ConnectionID string `cbor:"2,keyasint,omitempty"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Channel is the socket the event belongs to.
	Channel Channel `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Command     *CommandEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn is a frame received from the client.
	DirectionIn Direction = 0
	// DirectionOut is a frame sent to the client.
	DirectionOut Direction = 1
)

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the decoded command layer.
	LayerWire Layer = 1
	// LayerServer is the lifecycle/connection management layer.
	LayerServer Layer = 2
)

// Category classifies the event type.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryState   Category = 1
	CategoryError   Category = 2
)

// Channel identifies the socket an event belongs to.
type Channel uint8

const (
	ChannelNone    Channel = 0
	ChannelControl Channel = 1
	ChannelData    Channel = 2
)

var (
	directionNames = []string{DirectionIn: "IN", DirectionOut: "OUT"}
	layerNames     = []string{LayerTransport: "TRANSPORT", LayerWire: "WIRE", LayerServer: "SERVER"}
	categoryNames  = []string{CategoryMessage: "MESSAGE", CategoryState: "STATE", CategoryError: "ERROR"}
	channelNames   = []string{ChannelNone: "-", ChannelControl: "CONTROL", ChannelData: "DATA"}
)

func (d Direction) String() string { return enumName(directionNames, d) }
func (l Layer) String() string     { return enumName(layerNames, l) }
func (c Category) String() string  { return enumName(categoryNames, c) }
func (c Channel) String() string   { return enumName(channelNames, c) }

// ParseDirection parses "in" or "out", case-insensitively.
func ParseDirection(s string) (Direction, error) {
	return parseEnum[Direction]("direction", directionNames, s)
}

// ParseLayer parses a layer name such as "wire".
func ParseLayer(s string) (Layer, error) { return parseEnum[Layer]("layer", layerNames, s) }

// ParseCategory parses a category name such as "error".
func ParseCategory(s string) (Category, error) {
	return parseEnum[Category]("category", categoryNames, s)
}

// ParseChannel parses "control" or "data".
func ParseChannel(s string) (Channel, error) {
	if s == channelNames[ChannelNone] {
		return 0, fmt.Errorf("invalid channel %q", s)
	}
	return parseEnum[Channel]("channel", channelNames, s)
}

func enumName[E ~uint8](names []string, v E) string {
	if int(v) < len(names) {
		return names[v]
	}
	return "UNKNOWN"
}

func parseEnum[E ~uint8](kind string, names []string, s string) (E, error) {
	for i, name := range names {
		if strings.EqualFold(name, s) {
			return E(i), nil
		}
	}
	return 0, fmt.Errorf("invalid %s %q", kind, s)
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including the 5-byte header).
	Size int `cbor:"1,keyasint"`

	// Command is the frame's command tag.
	Command wire.Command `cbor:"2,keyasint"`

	// Data is the raw payload (may be truncated for large frames).
	Data []byte `cbor:"3,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"4,keyasint,omitempty"`
}

// CommandEvent captures a decoded command and its outcome.
type CommandEvent struct {
	// Command is the request's command tag.
	Command wire.Command `cbor:"1,keyasint"`

	// Controller addressing, set for GET/SET.
	Controller *uint8  `cbor:"2,keyasint,omitempty"`
	Address    *uint16 `cbor:"3,keyasint,omitempty"`
	Length     *uint16 `cbor:"4,keyasint,omitempty"`

	// Replied is true when a reply frame was sent.
	Replied bool `cbor:"5,keyasint,omitempty"`

	// Error is the failure reported to the client, if any.
	Error string `cbor:"6,keyasint,omitempty"`

	// ProcessingTime is the time from decode to reply. Stored as nanoseconds.
	ProcessingTime *time.Duration `cbor:"7,keyasint,omitempty"`
}

// StateChangeEvent captures lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	StateEntityServer        StateEntity = 0
	StateEntityConnection    StateEntity = 1
	StateEntityAdvertisement StateEntity = 2
)

var stateEntityNames = []string{
	StateEntityServer:        "SERVER",
	StateEntityConnection:    "CONNECTION",
	StateEntityAdvertisement: "ADVERTISEMENT",
}

func (s StateEntity) String() string { return enumName(stateEntityNames, s) }

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Class is the error class (transport, protocol, hardware, ...).
	Class string `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
