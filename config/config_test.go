package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IvanTurko/bitfinex-ws-go/sdkerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultURL, cfg.URL)
	assert.Equal(t, []int{2}, cfg.AllowedVersions)
	assert.Equal(t, DefaultWriteTimeout, cfg.WriteTimeout)
	assert.Equal(t, DefaultHandshakeTimeout, cfg.HandshakeTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {
	t.Run("full document", func(t *testing.T) {
		cfg, err := Parse([]byte(`
url: wss://example.test/ws/2
allowed_versions: [2, 3]
write_timeout: 1s
handshake_timeout: 5s
log_level: debug
`))
		require.NoError(t, err)
		assert.Equal(t, "wss://example.test/ws/2", cfg.URL)
		assert.Equal(t, []int{2, 3}, cfg.AllowedVersions)
		assert.Equal(t, time.Second, cfg.WriteTimeout)
		assert.Equal(t, 5*time.Second, cfg.HandshakeTimeout)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("empty document uses defaults", func(t *testing.T) {
		cfg, err := Parse([]byte(``))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("expands env", func(t *testing.T) {
		t.Setenv("BFX_WS_URL", "ws://localhost:9000/ws")
		cfg, err := Parse([]byte(`url: ${BFX_WS_URL}`))
		require.NoError(t, err)
		assert.Equal(t, "ws://localhost:9000/ws", cfg.URL)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Parse([]byte("url: [unterminated"))
		assert.ErrorContains(t, err, "parse config yaml")
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Parse([]byte(`
url: https://example.test
allowed_versions: [0]
log_level: loud
`))
		require.Error(t, err)
		assert.ErrorIs(t, err, sdkerr.ErrConfiguration)
		assert.ErrorContains(t, err, "scheme must be ws or wss")
		assert.ErrorContains(t, err, "invalid version 0")
		assert.ErrorContains(t, err, `unknown level "loud"`)
	})
}

func TestLoad(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "feed.yaml")
		require.NoError(t, os.WriteFile(path, []byte("allowed_versions: [2]\n"), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.True(t, cfg.VersionAllowed(2))
		assert.False(t, cfg.VersionAllowed(1))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "read config file")
	})
}

func TestValidate_MissingHost(t *testing.T) {
	cfg := Default()
	cfg.URL = "wss://"
	assert.ErrorContains(t, cfg.Validate(), "host is required")
}

func TestWithDefaults_KeepsSetFields(t *testing.T) {
	in := Config{URL: "ws://localhost:1234", AllowedVersions: []int{3}}
	out := in.WithDefaults()

	assert.Equal(t, "ws://localhost:1234", out.URL)
	assert.Equal(t, []int{3}, out.AllowedVersions)
	assert.Equal(t, DefaultWriteTimeout, out.WriteTimeout)
	assert.Equal(t, time.Duration(0), in.WriteTimeout)
}
