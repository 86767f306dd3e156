// Package config holds the configuration of the ncclient console tool, assembled from
// built-in defaults, an optional YAML file, NCCLIENT_* environment variables and command
// line flags, in increasing order of precedence.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/damianoneill/ncclient/netconf/client"
	"github.com/damianoneill/ncclient/netconf/filter"
	"github.com/damianoneill/ncclient/netconf/ops"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const envPrefix = "NCCLIENT_"

// Names of the trace hook sets that may be selected.
const (
	TraceNone       = "none"
	TraceDefault    = "default"
	TraceMetric     = "metric"
	TraceDiagnostic = "diagnostic"
)

// Config holds configuration for the console tool.
type Config struct {
	Host           string            `yaml:"host"`
	Port           int               `yaml:"port"`
	Username       string            `yaml:"username"`
	ConfigFile     string            `yaml:"-"`
	LogLevel       string            `yaml:"log_level"`
	Trace          string            `yaml:"trace"`
	MetricsAddr    string            `yaml:"metrics_addr"`
	SetupTimeout   time.Duration     `yaml:"setup_timeout"`
	RequestTimeout time.Duration     `yaml:"request_timeout"`
	DisableChunked bool              `yaml:"disable_chunked"`
	BackupDir      string            `yaml:"backup_dir"`
	Filters        map[string]string `yaml:"filters"`
}

// SetDefaults initializes c with built-in defaults.
func (c *Config) SetDefaults() {
	if c.Port == 0 {
		c.Port = ops.DefaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.Trace == "" {
		c.Trace = TraceDefault
	}
	if c.SetupTimeout == 0 {
		c.SetupTimeout = time.Duration(client.DefaultConfig.SetupTimeoutSecs) * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = client.DefaultConfig.RequestTimeout
	}
	if c.BackupDir == "" {
		c.BackupDir = "."
	}
}

// ApplyEnv overlays environment variables onto the current config values.
func (c *Config) ApplyEnv() {
	if v := getEnv("HOST"); v != "" {
		c.Host = v
	}
	if v := getEnv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Port = n
		}
	}
	if v := getEnv("USER"); v != "" {
		c.Username = v
	}
	if v := getEnv("CONFIG"); v != "" {
		c.ConfigFile = v
	}
	if v := getEnv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("TRACE"); v != "" {
		c.Trace = v
	}
	if v := getEnv("METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := getEnv("SETUP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SetupTimeout = d
		}
	}
	if v := getEnv("REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RequestTimeout = d
		}
	}
	if v := getEnv("BACKUP_DIR"); v != "" {
		c.BackupDir = v
	}
}

// BindFlags binds command line flags to fs, using the current config values as defaults.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "YAML config file path")
	fs.StringVar(&c.Host, "host", c.Host, "device address; prompted for if empty")
	fs.IntVar(&c.Port, "port", c.Port, "netconf ssh port")
	fs.StringVar(&c.Username, "user", c.Username, "ssh username; prompted for if empty")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log verbosity (all, trace, debug, info, warn, error, none)")
	fs.StringVar(&c.Trace, "trace", c.Trace, "session trace hooks (none, default, metric, diagnostic)")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Prometheus metrics listen address; disabled if empty")
	fs.DurationVar(&c.SetupTimeout, "setup-timeout", c.SetupTimeout, "time to wait for the device hello")
	fs.DurationVar(&c.RequestTimeout, "request-timeout", c.RequestTimeout, "time to wait for each reply")
	fs.BoolVar(&c.DisableChunked, "disable-chunked", c.DisableChunked, "do not offer chunked framing")
	fs.StringVar(&c.BackupDir, "backup-dir", c.BackupDir, "directory receiving saved configurations")
}

// LoadFile populates the config from a YAML file.
func (c *Config) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return errors.Wrapf(yaml.Unmarshal(b, c), "config file %s", path)
}

// Load assembles the configuration for the command line args.
func Load(args []string) (*Config, error) {
	c := &Config{}
	c.SetDefaults()

	// The file is read before the environment and flags that override it.
	c.ConfigFile = getEnv("CONFIG")
	if path, ok := flagValue(args, "config"); ok {
		c.ConfigFile = path
	}
	if c.ConfigFile != "" {
		if err := c.LoadFile(c.ConfigFile); err != nil {
			return nil, err
		}
	}
	c.ApplyEnv()

	fs := flag.NewFlagSet("ncclient", flag.ContinueOnError)
	c.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

// Validate reports the first invalid value of c.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Port)
	}
	switch c.Trace {
	case TraceNone, TraceDefault, TraceMetric, TraceDiagnostic:
	default:
		return errors.Errorf("unknown trace hooks %q", c.Trace)
	}
	if c.SetupTimeout < time.Second {
		return errors.Errorf("setup timeout %v is less than 1s", c.SetupTimeout)
	}
	return nil
}

// ClientConfig delivers the netconf client configuration, with a filter registry holding
// the default filters plus any defined in the config.
func (c *Config) ClientConfig() (*client.Config, error) {
	registry := filter.NewDefaultRegistry()
	if err := registry.RegisterAll(c.Filters); err != nil {
		return nil, err
	}
	return &client.Config{
		SetupTimeoutSecs:    int(c.SetupTimeout / time.Second),
		RequestTimeout:      c.RequestTimeout,
		DisableChunkedCodec: c.DisableChunked,
		Filters:             registry,
	}, nil
}

// Hooks delivers the trace hook set selected by c.Trace.
func (c *Config) Hooks() *client.ClientTrace {
	switch c.Trace {
	case TraceNone:
		return client.NoOpLoggingHooks
	case TraceMetric:
		return client.MetricLoggingHooks
	case TraceDiagnostic:
		return client.DiagnosticLoggingHooks
	default:
		return client.DefaultLoggingHooks
	}
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

// flagValue finds the value of the named flag in args without parsing them.
func flagValue(args []string, name string) (string, bool) {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		key := strings.TrimLeft(arg, "-")
		if key == arg {
			continue
		}
		if key == name && i+1 < len(args) {
			return args[i+1], true
		}
		if strings.HasPrefix(key, name+"=") {
			return strings.TrimPrefix(key, name+"="), true
		}
	}
	return "", false
}
