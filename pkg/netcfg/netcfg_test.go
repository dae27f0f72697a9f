package netcfg

import (
	"context"
	"errors"
	"testing"
)

func TestCredentialsRoundTrip(t *testing.T) {
	ssid, pass, err := ParseCredentials(EncodeCredentials("lab-wifi", "hunter2"))
	if err != nil {
		t.Fatalf("ParseCredentials failed: %v", err)
	}
	if ssid != "lab-wifi" || pass != "hunter2" {
		t.Errorf("got %q/%q", ssid, pass)
	}
}

func TestParseCredentialsOpenNetwork(t *testing.T) {
	ssid, pass, err := ParseCredentials([]byte("guest"))
	if err != nil {
		t.Fatalf("ParseCredentials failed: %v", err)
	}
	if ssid != "guest" || pass != "" {
		t.Errorf("got %q/%q", ssid, pass)
	}
}

func TestParseCredentialsEmpty(t *testing.T) {
	if _, _, err := ParseCredentials([]byte{0, 'x'}); err == nil {
		t.Error("expected error for empty SSID")
	}
}

func TestSimRouter(t *testing.T) {
	ctx := context.Background()
	r := NewSimRouter([]AccessPoint{{SSID: "lab", Signal: -40}}, nil)

	aps, err := r.ListAccessPoints(ctx)
	if err != nil || len(aps) != 1 || aps[0].SSID != "lab" {
		t.Fatalf("ListAccessPoints() = %v, %v", aps, err)
	}
	aps[0].SSID = "mutated"
	if again, _ := r.ListAccessPoints(ctx); again[0].SSID != "lab" {
		t.Error("scan result must be a copy")
	}

	if err := r.ConnectAccessPoint(ctx, "elsewhere", ""); !errors.Is(err, ErrUnknownNetwork) {
		t.Errorf("ConnectAccessPoint(unknown) = %v", err)
	}
	if err := r.ConnectAccessPoint(ctx, "lab", "pw"); err != nil {
		t.Fatal(err)
	}
	if mode, ssid := r.State(); mode != ModeClient || ssid != "lab" {
		t.Errorf("State() = %s/%s", mode, ssid)
	}

	if err := r.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if mode, _ := r.State(); mode != ModeAccessPoint {
		t.Errorf("mode after reset = %s", mode)
	}

	_ = r.Reboot(ctx)
	if r.Reboots() != 1 {
		t.Errorf("Reboots() = %d", r.Reboots())
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := r.Reboot(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("Reboot(cancelled) = %v", err)
	}
}
