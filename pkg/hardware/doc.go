// Package hardware defines the contract between the network server and the
// USB-attached scope.
//
// The server never talks to USB directly. Everything it needs (register
// access, acquisition fetch, firmware queries, FPGA flashing and session
// control) goes through a Controller. Implementations must serialize
// concurrent calls themselves: the control and data servers call into the
// same Controller from different goroutines.
//
// Package sim provides an in-memory Controller used for development and tests.
package hardware
