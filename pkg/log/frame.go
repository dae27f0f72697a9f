package log

import (
	"time"

	"github.com/labnation/sss-go/pkg/wire"
)

// MaxFrameDataSize is the largest payload prefix copied into a FrameEvent.
// Acquisition frames are far larger and would dominate capture files.
const MaxFrameDataSize = 4096

// NewFrameEvent builds a transport-layer event for one frame.
func NewFrameEvent(connID string, channel Channel, direction Direction, msg *wire.Message) Event {
	data := msg.Payload
	truncated := false
	if len(data) > MaxFrameDataSize {
		data = data[:MaxFrameDataSize]
		truncated = true
	}

	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    direction,
		Layer:        LayerTransport,
		Category:     CategoryMessage,
		Channel:      channel,
		Frame: &FrameEvent{
			Size:      msg.FrameSize(),
			Command:   msg.Command,
			Data:      append([]byte(nil), data...),
			Truncated: truncated,
		},
	}
}
