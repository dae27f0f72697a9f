// Package transport carries scope protocol frames over TCP.
//
// # Protocol Stack
//
//	┌────────────────────────────────────┐
//	│  Commands (GET/SET/DATA/...)       │
//	├────────────────────────────────────┤
//	│  Length (4B LE) + Command (1B)     │
//	├────────────────────────────────────┤
//	│           TCP                      │
//	└────────────────────────────────────┘
//
// A PeerListener owns one listening socket and at most one accepted peer.
// A new connection replaces the current peer: the old one is closed and its
// session goroutine joined before the new session starts. Accept, read and
// write calls all carry deadlines so closing the listener is observed
// within one timeout.
//
// FrameReader and FrameWriter are the blocking counterparts used by clients.
// The server side reads through Conn and a wire.Decoder so that partial
// frames survive read timeouts.
package transport
