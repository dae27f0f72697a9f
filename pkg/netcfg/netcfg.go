// Package netcfg defines the router-mode network configuration facility.
//
// Router builds of the server run on a small OpenWrt/LEDE board that can
// either join an existing Wi-Fi network or open its own access point.
// The server only forwards LEDE_* commands to a Configurator; it does not
// manage the network itself.
package netcfg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
)

// Configurator errors.
var (
	// ErrBusy is returned while an access point change is in progress.
	ErrBusy = errors.New("network change in progress")

	// ErrUnknownNetwork is returned when joining a network that is not visible.
	ErrUnknownNetwork = errors.New("network not visible")
)

// AccessPoint is one Wi-Fi network visible to the device.
type AccessPoint struct {
	SSID       string `json:"ssid"`
	BSSID      string `json:"bssid,omitempty"`
	Signal     int    `json:"signal"`
	Encryption string `json:"encryption,omitempty"`
}

// Configurator manages the device's network attachment.
type Configurator interface {
	// ListAccessPoints scans for visible networks.
	ListAccessPoints(ctx context.Context) ([]AccessPoint, error)

	// ConnectAccessPoint joins the given network as a client.
	ConnectAccessPoint(ctx context.Context, ssid, password string) error

	// ModeAccessPoint switches the device to host its own access point.
	ModeAccessPoint(ctx context.Context) error

	// Reset restores the factory network configuration.
	Reset(ctx context.Context) error

	// Reboot restarts the device.
	Reboot(ctx context.Context) error
}

// ParseCredentials splits a LEDE_CONNECT_AP payload: SSID, a NUL byte, then
// the password. A payload without NUL is an open network.
func ParseCredentials(payload []byte) (ssid, password string, err error) {
	name, pass, _ := bytes.Cut(payload, []byte{0})
	if len(name) == 0 {
		return "", "", fmt.Errorf("empty SSID")
	}
	return string(name), string(pass), nil
}

// EncodeCredentials builds a LEDE_CONNECT_AP payload.
func EncodeCredentials(ssid, password string) []byte {
	buf := make([]byte, 0, len(ssid)+1+len(password))
	buf = append(buf, ssid...)
	buf = append(buf, 0)
	return append(buf, password...)
}
