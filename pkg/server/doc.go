// Package server implements InterfaceServer, the network bridge in front of
// a SmartScope.
//
// An InterfaceServer owns two TCP sockets. The control socket accepts
// command frames (GET, SET, SERVER_VERSION, ...) and answers them in order.
// The data socket streams DATA frames while acquisition is on. Each socket
// serves one peer at a time; a new connection replaces the old one.
//
// # Lifecycle
//
// Callers request a target state with RequestState (or Start, Stop,
// Destroy). Run reconciles the actual state with the requested one and is
// the only place the actual state changes:
//
//	Uninitialized|Stopped -> Starting -> Started
//	Starting -> Stopped                        (bind failure, not retried)
//	Started -> Stopping -> Stopped
//	any -> Destroying -> Destroyed             (terminal)
//
// Every actual-state change invokes Config.OnStateChange with the server.
//
// # Errors
//
// Failures are wrapped in ClassifiedError. Transport and protocol errors
// close the affected peer. Hardware errors are answered with an ERROR
// frame and keep the connection. Discovery errors are recorded in
// AdvertiseErr and never stop the server. Lifecycle errors (a failed bind)
// leave the server Stopped and are recorded in LastErr.
package server
