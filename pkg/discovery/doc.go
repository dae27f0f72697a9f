// Package discovery publishes and finds scope servers on the local network.
//
// A running server announces one DNS-SD record:
//
//	<instance>._sss._tcp.local.  port=<control port>  TXT: DATA_PORT=<data port>
//
// Clients resolve the control port through the SRV record and learn the
// data port from the TXT record.
//
// Two publishing backends satisfy Advertiser. ZeroconfAdvertiser answers
// multicast queries itself; AvahiAdvertiser hands the record to the avahi
// daemon over D-Bus and runs a goroutine that watches the entry group for
// name collisions. Both present identical records to browsers. The backend
// is chosen by configuration (see NewAdvertiser).
package discovery
