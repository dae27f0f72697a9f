// Package version provides the protocol version, build identification and
// flavor string reported by SERVER_VERSION and SERVER_INFO.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Protocol version implemented by this server.
const (
	Major uint8 = 1
	Minor uint8 = 6
)

// Build identifies the build. Overridden at link time:
//
//	go build -ldflags "-X github.com/labnation/sss-go/pkg/version.Build=$(date +%F)"
var Build = "sometime"

// Flavor names. The base flavor tells clients which build variant answers.
const (
	FlavorRouter  = "lede"
	FlavorDNSSD   = "dnssd"
	FlavorVanilla = "vanilla"

	debugSuffix = "-debug"
)

// ProtocolVersion is a parsed "major.minor" protocol version.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// Current returns the protocol version implemented by this server.
func Current() ProtocolVersion {
	return ProtocolVersion{Major: Major, Minor: Minor}
}

// Parse parses a "major.minor" version string.
func Parse(s string) (ProtocolVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil || parts[0] == "" {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil || parts[1] == "" {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return ProtocolVersion{Major: uint8(major), Minor: uint8(minor)}, nil
}

// String returns the version as "major.minor".
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Packed returns the version as carried on the wire: (major << 8) | minor.
func (v ProtocolVersion) Packed() uint32 {
	return uint32(v.Major)<<8 | uint32(v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v ProtocolVersion) Compatible(other ProtocolVersion) bool {
	return v.Major == other.Major
}

// Flavor builds the flavor string from the base flavor and debug flag.
func Flavor(base string, debug bool) string {
	if debug {
		return base + debugSuffix
	}
	return base
}
