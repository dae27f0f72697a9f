package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/labnation/sss-go/pkg/discovery"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ControlTimeout != 4*time.Second {
		t.Errorf("control timeout = %s, want 4s", cfg.Server.ControlTimeout)
	}
	if cfg.Server.DataTimeout != 4*time.Second {
		t.Errorf("data timeout = %s, want 4s", cfg.Server.DataTimeout)
	}
	if cfg.Discovery.Backend != discovery.BackendZeroconf {
		t.Errorf("backend = %q, want zeroconf", cfg.Discovery.Backend)
	}
	if cfg.Discovery.InstanceName != discovery.DefaultInstanceName {
		t.Errorf("instance name = %q", cfg.Discovery.InstanceName)
	}
	if cfg.Router.Enabled || cfg.Debug {
		t.Error("router and debug should be off by default")
	}
	if got := cfg.ControlAddress(); got != ":0" {
		t.Errorf("ControlAddress() = %q, want :0", got)
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sss.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
server:
  bind_address: 127.0.0.1
  control_port: 25000
  data_port: 25001
  control_timeout: 2s
discovery:
  backend: none
log:
  level: debug
  protocol_file: /tmp/sss.cbor
router:
  enabled: true
debug: true
`)
	cfg, err := Load(LoadOptions{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ControlAddress() != "127.0.0.1:25000" || cfg.DataAddress() != "127.0.0.1:25001" {
		t.Errorf("addresses = %s / %s", cfg.ControlAddress(), cfg.DataAddress())
	}
	if cfg.Server.ControlTimeout != 2*time.Second {
		t.Errorf("control timeout = %s", cfg.Server.ControlTimeout)
	}
	if cfg.Server.DataTimeout != 4*time.Second {
		t.Errorf("data timeout should keep its default, got %s", cfg.Server.DataTimeout)
	}
	if cfg.Discovery.Backend != discovery.BackendNone || !cfg.Router.Enabled || !cfg.Debug {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Log.ProtocolFile != "/tmp/sss.cbor" {
		t.Errorf("protocol file = %q", cfg.Log.ProtocolFile)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want not exist", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "server:\n  data_port: 25001\n")
	t.Setenv("SSS_SERVER_DATA_PORT", "26001")
	t.Setenv("SSS_DISCOVERY_BACKEND", "avahi")

	cfg, err := Load(LoadOptions{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.DataPort != 26001 {
		t.Errorf("data port = %d, want 26001", cfg.Server.DataPort)
	}
	if cfg.Discovery.Backend != discovery.BackendAvahi {
		t.Errorf("backend = %q, want avahi", cfg.Discovery.Backend)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("SSS_SERVER_CONTROL_PORT", "25000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("control-port", 0, "")
	flags.String("name", "", "")
	flags.Bool("verbose", false, "")
	if err := flags.Parse([]string{"--control-port=27000", "--verbose"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadOptions{Flags: flags})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.ControlPort != 27000 {
		t.Errorf("control port = %d, want 27000", cfg.Server.ControlPort)
	}
	// Unset flags do not shadow defaults.
	if cfg.Discovery.InstanceName != discovery.DefaultInstanceName {
		t.Errorf("instance name = %q", cfg.Discovery.InstanceName)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port too large", func(c *Config) { c.Server.DataPort = 70000 }, "server.data_port"},
		{"negative port", func(c *Config) { c.Server.ControlPort = -1 }, "server.control_port"},
		{"same ports", func(c *Config) { c.Server.ControlPort, c.Server.DataPort = 25000, 25000 }, "both 25000"},
		{"zero timeout", func(c *Config) { c.Server.ControlTimeout = 0 }, "server.control_timeout"},
		{"negative ttl", func(c *Config) { c.Discovery.TTL = -time.Second }, "discovery.ttl"},
		{"unknown backend", func(c *Config) { c.Discovery.Backend = "bonjour" }, "bonjour"},
		{"empty instance", func(c *Config) { c.Discovery.InstanceName = "" }, "instance_name"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Discovery.Backend = discovery.BackendNone
	cfg.Discovery.InstanceName = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("instance name is not needed without discovery: %v", err)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.DataPort = 25001

	out, err := cfg.YAML()
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)
	for _, want := range []string{"data_port: 25001", "control_timeout: 4s", "backend: zeroconf"} {
		if !strings.Contains(text, want) {
			t.Errorf("YAML missing %q:\n%s", want, text)
		}
	}

	var back Config
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatal(err)
	}
	if back != *cfg {
		t.Errorf("round trip = %+v, want %+v", back, *cfg)
	}

	cfg2, err := Load(LoadOptions{ConfigFile: writeFile(t, text)})
	if err != nil {
		t.Fatalf("Load(rendered) error = %v", err)
	}
	if *cfg2 != *cfg {
		t.Errorf("reloaded = %+v, want %+v", *cfg2, *cfg)
	}
}
