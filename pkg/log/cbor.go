package log

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// captureMagic is the CBOR self-describe tag (55799) written once at the
// start of every capture file. Decoders treat it as a no-op tag, so files
// remain plain CBOR sequences.
var captureMagic = []byte{0xd9, 0xd9, 0xf7}

type captureCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// codec returns the shared capture modes. Encoding is canonical with
// RFC 3339 nanosecond timestamps; decoding ignores duplicate keys and
// unknown fields so captures from newer servers stay readable.
var codec = sync.OnceValue(func() captureCodec {
	enc, err := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("capture encoder: %v", err))
	}
	dec, err := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("capture decoder: %v", err))
	}
	return captureCodec{enc: enc, dec: dec}
})

// EncodeEvent encodes one event.
func EncodeEvent(event Event) ([]byte, error) {
	return codec().enc.Marshal(event)
}

// DecodeEvent decodes one event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := codec().dec.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// NewEncoder returns an event encoder writing to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return codec().enc.NewEncoder(w)
}

// NewDecoder returns an event decoder reading from r. A leading capture
// marker is skipped when present.
func NewDecoder(r io.Reader) *cbor.Decoder {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(captureMagic)); err == nil && bytes.Equal(head, captureMagic) {
		_, _ = br.Discard(len(captureMagic))
	}
	return codec().dec.NewDecoder(br)
}
