package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/labnation/sss-go/pkg/wire"
)

// ErrTruncatedCapture is returned when a capture ends inside an event,
// typically because the server was killed while writing it.
var ErrTruncatedCapture = errors.New("capture ends mid-event")

// Filter selects events from a capture file.
// Empty/nil fields match every event.
type Filter struct {
	ConnectionID string
	Direction    *Direction
	Layer        *Layer
	Category     *Category
	Channel      *Channel

	// Command matches frame and command events carrying this tag.
	Command *wire.Command

	// TimeStart matches events at or after this time.
	TimeStart *time.Time

	// TimeEnd matches events before this time.
	TimeEnd *time.Time
}

func want[T comparable](sel *T, got T) bool { return sel == nil || *sel == got }

func (f *Filter) matches(e Event) bool {
	switch {
	case f.ConnectionID != "" && f.ConnectionID != e.ConnectionID:
	case !want(f.Direction, e.Direction), !want(f.Layer, e.Layer):
	case !want(f.Category, e.Category), !want(f.Channel, e.Channel):
	case f.Command != nil && !eventHasCommand(e, *f.Command):
	case f.TimeStart != nil && e.Timestamp.Before(*f.TimeStart):
	case f.TimeEnd != nil && !e.Timestamp.Before(*f.TimeEnd):
	default:
		return true
	}
	return false
}

func eventHasCommand(e Event, cmd wire.Command) bool {
	if e.Frame != nil {
		return e.Frame.Command == cmd
	}
	return e.Command != nil && e.Command.Command == cmd
}

// Reader streams events from a capture file.
type Reader struct {
	src    *os.File
	dec    *cbor.Decoder
	filter Filter
	seen   int
}

// NewReader creates a Reader over every event in the file at path.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader creates a Reader returning only events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{src: f, dec: NewDecoder(f), filter: filter}, nil
}

// Next returns the next matching event, or io.EOF at the end of the file.
// A partial trailing record yields ErrTruncatedCapture.
func (r *Reader) Next() (Event, error) {
	for {
		var e Event
		err := r.dec.Decode(&e)
		switch {
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Event{}, fmt.Errorf("%w after %d events", ErrTruncatedCapture, r.seen)
		case errors.Is(err, io.EOF):
			return Event{}, io.EOF
		case err != nil:
			return Event{}, fmt.Errorf("event %d: %w", r.seen+1, err)
		}
		r.seen++
		if r.filter.matches(e) {
			return e, nil
		}
	}
}

// Close closes the capture file.
func (r *Reader) Close() error {
	return r.src.Close()
}
