package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/labnation/sss-go/pkg/discovery"
	"github.com/labnation/sss-go/pkg/server"
)

// EnvPrefix is the environment variable prefix.
const EnvPrefix = "SSS"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the effective server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Router    RouterConfig    `yaml:"router" mapstructure:"router"`
	Debug     bool            `yaml:"debug" mapstructure:"debug"`
}

// ServerConfig configures the sockets and the state machine.
type ServerConfig struct {
	// BindAddress is the host both sockets listen on. Empty means all.
	BindAddress string `yaml:"bind_address" mapstructure:"bind_address"`
	// ControlPort is the control socket port. 0 picks a free port.
	ControlPort int `yaml:"control_port" mapstructure:"control_port"`
	// DataPort is the data socket port. 0 picks a free port.
	DataPort       int           `yaml:"data_port" mapstructure:"data_port"`
	PollInterval   time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	ControlTimeout time.Duration `yaml:"control_timeout" mapstructure:"control_timeout"`
	DataTimeout    time.Duration `yaml:"data_timeout" mapstructure:"data_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// DiscoveryConfig configures service advertisement.
type DiscoveryConfig struct {
	// Backend is zeroconf, avahi or none.
	Backend      string        `yaml:"backend" mapstructure:"backend"`
	InstanceName string        `yaml:"instance_name" mapstructure:"instance_name"`
	Interface    string        `yaml:"interface" mapstructure:"interface"`
	TTL          time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// LogConfig configures console and protocol logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" mapstructure:"level"`
	// ProtocolFile receives CBOR protocol events when set.
	ProtocolFile string `yaml:"protocol_file" mapstructure:"protocol_file"`
}

// RouterConfig enables the LEDE_* network commands.
type RouterConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			PollInterval:   server.DefaultPollInterval,
			ControlTimeout: server.DefaultControlTimeout,
			DataTimeout:    server.DefaultDataTimeout,
			WriteTimeout:   server.DefaultWriteTimeout,
		},
		Discovery: DiscoveryConfig{
			Backend:      discovery.BackendZeroconf,
			InstanceName: discovery.DefaultInstanceName,
			TTL:          discovery.DefaultTTL,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"bind":            "server.bind_address",
	"control-port":    "server.control_port",
	"data-port":       "server.data_port",
	"control-timeout": "server.control_timeout",
	"data-timeout":    "server.data_timeout",
	"discovery":       "discovery.backend",
	"name":            "discovery.instance_name",
	"interface":       "discovery.interface",
	"log-level":       "log.level",
	"protocol-log":    "log.protocol_file",
	"router":          "router.enabled",
	"debug":           "debug",
}

// LoadOptions selects the inputs of Load.
type LoadOptions struct {
	// ConfigFile is a YAML file to read. Empty skips the file.
	ConfigFile string
	// Flags may define any of the FlagKeys flags. Only flags set on the
	// command line override other sources.
	Flags *pflag.FlagSet
}

// Load builds the effective configuration and validates it.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("server.bind_address", defaults.Server.BindAddress)
	v.SetDefault("server.control_port", defaults.Server.ControlPort)
	v.SetDefault("server.data_port", defaults.Server.DataPort)
	v.SetDefault("server.poll_interval", defaults.Server.PollInterval)
	v.SetDefault("server.control_timeout", defaults.Server.ControlTimeout)
	v.SetDefault("server.data_timeout", defaults.Server.DataTimeout)
	v.SetDefault("server.write_timeout", defaults.Server.WriteTimeout)
	v.SetDefault("discovery.backend", defaults.Discovery.Backend)
	v.SetDefault("discovery.instance_name", defaults.Discovery.InstanceName)
	v.SetDefault("discovery.interface", defaults.Discovery.Interface)
	v.SetDefault("discovery.ttl", defaults.Discovery.TTL)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.protocol_file", defaults.Log.ProtocolFile)
	v.SetDefault("router.enabled", defaults.Router.Enabled)
	v.SetDefault("debug", defaults.Debug)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", opts.ConfigFile, err)
		}
	}

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	for name, port := range map[string]int{
		"server.control_port": c.Server.ControlPort,
		"server.data_port":    c.Server.DataPort,
	} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%w: %s %d out of range", ErrInvalidConfig, name, port)
		}
	}
	if c.Server.ControlPort != 0 && c.Server.ControlPort == c.Server.DataPort {
		return fmt.Errorf("%w: control and data port are both %d", ErrInvalidConfig, c.Server.ControlPort)
	}

	for name, d := range map[string]time.Duration{
		"server.poll_interval":   c.Server.PollInterval,
		"server.control_timeout": c.Server.ControlTimeout,
		"server.data_timeout":    c.Server.DataTimeout,
		"server.write_timeout":   c.Server.WriteTimeout,
		"discovery.ttl":          c.Discovery.TTL,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidConfig, name, d)
		}
	}

	switch c.Discovery.Backend {
	case discovery.BackendZeroconf, discovery.BackendAvahi, discovery.BackendNone:
	default:
		return fmt.Errorf("%w: discovery.backend %q: %w", ErrInvalidConfig, c.Discovery.Backend, discovery.ErrUnknownBackend)
	}
	if c.Discovery.Backend != discovery.BackendNone {
		if err := discovery.ValidateInstanceName(c.Discovery.InstanceName); err != nil {
			return fmt.Errorf("%w: discovery.instance_name: %w", ErrInvalidConfig, err)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	return nil
}

// ControlAddress returns the control socket listen address.
func (c *Config) ControlAddress() string {
	return net.JoinHostPort(c.Server.BindAddress, strconv.Itoa(c.Server.ControlPort))
}

// DataAddress returns the data socket listen address.
func (c *Config) DataAddress() string {
	return net.JoinHostPort(c.Server.BindAddress, strconv.Itoa(c.Server.DataPort))
}

// YAML renders the configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
