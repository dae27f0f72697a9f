// Package wire defines the binary wire format of the SmartScope server protocol.
//
// Every frame on the control and data ports is a Message envelope:
//
//	┌──────────────┬─────────┬───────────────────┐
//	│ length (u32) │ cmd (u8)│ payload (length B)│
//	└──────────────┴─────────┴───────────────────┘
//
// All multi-byte integers are little-endian. The length field counts payload
// bytes only; the 5 header bytes are not included.
//
// GET and SET payloads carry a ControllerMessage addressing a register range
// on one of the scope's controllers:
//
//	┌──────────┬────────────┬───────────┬──────────────┐
//	│ ctrl (u8)│ addr (u16) │ len (u16) │ data (len B) │
//	└──────────┴────────────┴───────────┴──────────────┘
//
// # Decoding
//
// Decoder is a pull decoder over an accumulating buffer. Callers Feed it the
// bytes they received and call Next until it reports ErrIncomplete. A frame
// with an unknown command byte or a length above MaxMessageSize is malformed;
// the stream cannot be resynchronized after that and the connection must be
// dropped.
//
// The protocol is versioned (see package version). Command tags never change
// meaning within a major version.
package wire
