package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/damianoneill/ncclient/netconf/client"
	"github.com/damianoneill/ncclient/netconf/filter"
	assert "github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Load(nil)
	assert.NoError(t, err)
	assert.Equal(t, 830, c.Port)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, TraceDefault, c.Trace)
	assert.Equal(t, 5*time.Second, c.SetupTimeout)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
	assert.Equal(t, ".", c.BackupDir)
	assert.Empty(t, c.MetricsAddr)
}

func TestPrecedence(t *testing.T) {
	path := writeFile(t, `
host: file-host
port: 2022
username: file-user
log_level: debug
request_timeout: 10s
`)
	t.Setenv("NCCLIENT_CONFIG", path)
	t.Setenv("NCCLIENT_USER", "env-user")
	t.Setenv("NCCLIENT_LOG_LEVEL", "info")

	c, err := Load([]string{"-log-level", "error"})
	assert.NoError(t, err)
	assert.Equal(t, path, c.ConfigFile)
	assert.Equal(t, "file-host", c.Host, "file overrides defaults")
	assert.Equal(t, 2022, c.Port)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, "env-user", c.Username, "environment overrides file")
	assert.Equal(t, "error", c.LogLevel, "flags override environment")
}

func TestConfigFlagOverridesEnvironment(t *testing.T) {
	envPath := writeFile(t, "host: env-file\n")
	flagPath := writeFile(t, "host: flag-file\n")
	t.Setenv("NCCLIENT_CONFIG", envPath)

	c, err := Load([]string{"--config=" + flagPath})
	assert.NoError(t, err)
	assert.Equal(t, "flag-file", c.Host)
	assert.Equal(t, flagPath, c.ConfigFile)
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{"missing file", []string{"-config", filepath.Join(t.TempDir(), "absent.yaml")}, nil},
		{"bad yaml", []string{"-config", writeFile(t, "port: [")}, nil},
		{"bad port", []string{"-port", "70000"}, nil},
		{"bad trace", nil, map[string]string{"NCCLIENT_TRACE": "verbose"}},
		{"short setup timeout", []string{"-setup-timeout", "10ms"}, nil},
		{"unknown flag", []string{"-colour"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestEnvironmentIgnoresUnparsableNumbers(t *testing.T) {
	t.Setenv("NCCLIENT_PORT", "eight-thirty")
	t.Setenv("NCCLIENT_REQUEST_TIMEOUT", "soon")
	c, err := Load(nil)
	assert.NoError(t, err)
	assert.Equal(t, 830, c.Port)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
}

func TestClientConfig(t *testing.T) {
	path := writeFile(t, `
disable_chunked: true
setup_timeout: 3s
filters:
  bgp: <bgp xmlns="urn:example:bgp"/>
`)
	c, err := Load([]string{"-config", path, "-request-timeout", "2s"})
	assert.NoError(t, err)

	cc, err := c.ClientConfig()
	assert.NoError(t, err)
	assert.Equal(t, 3, cc.SetupTimeoutSecs)
	assert.Equal(t, 2*time.Second, cc.RequestTimeout)
	assert.True(t, cc.DisableChunkedCodec)
	assert.True(t, cc.Filters.Contains("bgp"))
	for _, name := range []string{"interfaces", "system", "native", "routing"} {
		assert.True(t, cc.Filters.Contains(name), name)
	}
}

func TestClientConfigRejectsInvalidFilter(t *testing.T) {
	c := &Config{Filters: map[string]string{"broken": "<open>"}}
	c.SetDefaults()
	_, err := c.ClientConfig()
	assert.ErrorIs(t, err, filter.ErrInvalidFilterDefinition)
}

func TestHooks(t *testing.T) {
	tests := map[string]*client.ClientTrace{
		TraceNone:       client.NoOpLoggingHooks,
		TraceDefault:    client.DefaultLoggingHooks,
		TraceMetric:     client.MetricLoggingHooks,
		TraceDiagnostic: client.DiagnosticLoggingHooks,
	}
	for name, hooks := range tests {
		c := &Config{Trace: name}
		assert.Same(t, hooks, c.Hooks(), name)
	}
}

func TestFlagValue(t *testing.T) {
	v, ok := flagValue([]string{"-host", "h", "--config", "a.yaml"}, "config")
	assert.True(t, ok)
	assert.Equal(t, "a.yaml", v)

	_, ok = flagValue([]string{"--", "-config", "a.yaml"}, "config")
	assert.False(t, ok)

	_, ok = flagValue([]string{"-config"}, "config")
	assert.False(t, ok)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ncclient.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
