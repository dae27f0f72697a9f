package discovery_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/labnation/sss-go/pkg/discovery"
)

func TestEncodeTXTDataPort(t *testing.T) {
	txt := discovery.EncodeTXT(&discovery.ServiceInfo{InstanceName: "scope", Port: 5025, DataPort: 5026})

	strs := discovery.TXTRecordsToStrings(txt)
	if len(strs) != 1 || strs[0] != "DATA_PORT=5026" {
		t.Errorf("TXT = %v, want [DATA_PORT=5026]", strs)
	}

	raw := discovery.TXTRecordsToBytes(txt)
	if len(raw) != 1 || string(raw[0]) != "DATA_PORT=5026" {
		t.Errorf("TXT bytes = %q", raw)
	}
}

func TestDecodeDataPort(t *testing.T) {
	tests := []struct {
		name    string
		txt     []string
		want    uint16
		wantErr error
	}{
		{"valid", []string{"DATA_PORT=42001"}, 42001, nil},
		{"with other keys", []string{"foo=bar", "DATA_PORT=1", "flag"}, 1, nil},
		{"missing", []string{"foo=bar"}, 0, discovery.ErrMissingDataPort},
		{"not a number", []string{"DATA_PORT=abc"}, 0, discovery.ErrInvalidDataPort},
		{"zero", []string{"DATA_PORT=0"}, 0, discovery.ErrInvalidDataPort},
		{"overflow", []string{"DATA_PORT=70000"}, 0, discovery.ErrInvalidDataPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := discovery.DecodeDataPort(discovery.StringsToTXTRecords(tt.txt))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("port = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := discovery.StringsToTXTRecords([]string{"a=1", "b=x=y", "flag", ""})
	if txt["a"] != "1" || txt["b"] != "x=y" {
		t.Errorf("txt = %v", txt)
	}
	if v, ok := txt["flag"]; !ok || v != "" {
		t.Errorf("flag = %q, %v", v, ok)
	}
	if len(txt) != 3 {
		t.Errorf("len = %d, want 3", len(txt))
	}
}

func TestServiceInfoValidate(t *testing.T) {
	valid := discovery.ServiceInfo{InstanceName: "scope", Port: 1, DataPort: 2}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid info: %v", err)
	}

	tests := []struct {
		name string
		info discovery.ServiceInfo
		want error
	}{
		{"empty name", discovery.ServiceInfo{Port: 1, DataPort: 2}, discovery.ErrEmptyInstanceName},
		{"long name", discovery.ServiceInfo{InstanceName: strings.Repeat("x", 64), Port: 1, DataPort: 2}, discovery.ErrInstanceNameTooLong},
		{"no data port", discovery.ServiceInfo{InstanceName: "scope", Port: 1}, discovery.ErrInvalidDataPort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.info.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if err := (&discovery.ServiceInfo{InstanceName: "scope", DataPort: 2}).Validate(); err == nil {
		t.Error("expected error for missing control port")
	}
}

func TestServiceAddrs(t *testing.T) {
	svc := discovery.Service{Host: "scope.local.", Port: 5025, DataPort: 5026}
	if got := svc.ControlAddr(); got != "scope.local.:5025" {
		t.Errorf("ControlAddr = %q", got)
	}

	svc.Addresses = []string{"fe80::1", "10.0.0.2"}
	if got := svc.DataAddr(); got != "[fe80::1]:5026" {
		t.Errorf("DataAddr = %q", got)
	}
}
