package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	c, err := parse(nil)
	require.NoError(t, err)

	assert.Equal(t, defaultListen, c.Listen)
	assert.False(t, c.Verbose)
	assert.True(t, c.IsProduction())
	assert.Equal(t, logrus.InfoLevel, c.Level())
	assert.Equal(t, int64(defaultMaxBodyBytes), c.MaxBodyBytes)
	assert.Equal(t, "/metrics", c.MetricsPath)
	assert.Equal(t, defaultTracerName, c.TracerName)
	assert.Equal(t, 10*time.Second, c.ShutdownTimeout)
}

func TestParse_YAML(t *testing.T) {
	c, err := parse(strings.NewReader(`
listen: ":8080"
verbose: true
production: false
log_level: debug
max_body_bytes: 1024
metrics_path: /internal/metrics
shutdown_timeout: 3s
`))
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Listen)
	assert.True(t, c.Verbose)
	assert.False(t, c.IsProduction())
	assert.Equal(t, logrus.DebugLevel, c.Level())
	assert.Equal(t, int64(1024), c.MaxBodyBytes)
	assert.Equal(t, "/internal/metrics", c.MetricsPath)
	assert.Equal(t, 3*time.Second, c.ShutdownTimeout)
}

func TestParse_EnvOverridesFile(t *testing.T) {
	t.Setenv("RELAY_LISTEN", ":9090")
	t.Setenv("RELAY_PRODUCTION", "false")
	t.Setenv("RELAY_LOG_LEVEL", "warn")

	c, err := parse(strings.NewReader("listen: \":8080\"\nproduction: true\n"))
	require.NoError(t, err)

	assert.Equal(t, ":9090", c.Listen)
	assert.False(t, c.IsProduction())
	assert.Equal(t, logrus.WarnLevel, c.Level())
}

func TestParse_Invalid(t *testing.T) {
	_, err := parse(strings.NewReader("listen: [unterminated"))
	assert.Error(t, err)

	_, err = parse(strings.NewReader("log_level: loud\n"))
	assert.Error(t, err)

	_, err = parse(strings.NewReader("max_body_bytes: -1\n"))
	assert.Error(t, err)
}

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("verbose: true\n"), 0o600))

	c, err := Read(path)
	require.NoError(t, err)
	assert.True(t, c.Verbose)

	_, err = Read(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	c, err = Read("")
	require.NoError(t, err)
	assert.Equal(t, defaultListen, c.Listen)
}
