package netcfg

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Mode is the network attachment of a SimRouter.
type Mode string

// Router modes.
const (
	ModeAccessPoint Mode = "ap"
	ModeClient      Mode = "client"
)

// SimRouter is an in-memory Configurator for running router builds without
// router hardware. It is safe for concurrent use.
type SimRouter struct {
	mu      sync.Mutex
	visible []AccessPoint
	mode    Mode
	ssid    string
	reboots int
	logger  *slog.Logger
}

// NewSimRouter creates a SimRouter in access point mode that reports
// visible as the scan result.
func NewSimRouter(visible []AccessPoint, logger *slog.Logger) *SimRouter {
	return &SimRouter{
		visible: slices.Clone(visible),
		mode:    ModeAccessPoint,
		logger:  logger,
	}
}

// ListAccessPoints returns the configured scan result.
func (r *SimRouter) ListAccessPoints(ctx context.Context) ([]AccessPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.visible), nil
}

// ConnectAccessPoint switches to client mode on ssid if it is visible.
func (r *SimRouter) ConnectAccessPoint(ctx context.Context, ssid, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !slices.ContainsFunc(r.visible, func(ap AccessPoint) bool { return ap.SSID == ssid }) {
		return ErrUnknownNetwork
	}
	r.mode, r.ssid = ModeClient, ssid
	r.debugLog("joined network", "ssid", ssid)
	return nil
}

// ModeAccessPoint switches back to hosting an access point.
func (r *SimRouter) ModeAccessPoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode, r.ssid = ModeAccessPoint, ""
	r.debugLog("access point mode")
	return nil
}

// Reset restores access point mode.
func (r *SimRouter) Reset(ctx context.Context) error {
	return r.ModeAccessPoint(ctx)
}

// Reboot counts the reboot.
func (r *SimRouter) Reboot(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reboots++
	r.debugLog("reboot requested", "count", r.reboots)
	return nil
}

// State returns the current mode and, in client mode, the joined SSID.
func (r *SimRouter) State() (Mode, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode, r.ssid
}

// Reboots returns how many times Reboot was called.
func (r *SimRouter) Reboots() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reboots
}

func (r *SimRouter) debugLog(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

var _ Configurator = (*SimRouter)(nil)
