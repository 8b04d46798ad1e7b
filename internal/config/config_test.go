package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TTT_CONFIG", "")
	unsetenv(t, "TTT_WS_URL", "TTT_PUSH_MODE", "TTT_HTTP_RETRY", "TTT_WS_RECONNECT_ATTEMPTS")
	t.Setenv("TTT_API_BASE_URL", "https://ttt.example.com/")
	t.Setenv("TTT_HTTP_TIMEOUT", "3s")
	t.Setenv("TTT_USERNAME", " alice ")
	t.Setenv("TTT_PASSWORD", "pw")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://ttt.example.com", cfg.APIBaseURL)
	assert.Equal(t, "wss://ttt.example.com", cfg.WSURL)
	assert.Equal(t, PushWS, cfg.PushMode)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 3, cfg.HTTPRetry)
	assert.Equal(t, 5, cfg.WSReconnectAttempts)
	assert.True(t, cfg.HasCredentials())
	assert.Equal(t, "alice", cfg.Username)
}

func TestLoadRequiresBaseURL(t *testing.T) {
	t.Setenv("TTT_CONFIG", "")
	t.Setenv("TTT_API_BASE_URL", "")

	_, err := Load()

	assert.Error(t, err)
}

func TestLoadRedisModeNeedsURL(t *testing.T) {
	t.Setenv("TTT_CONFIG", "")
	t.Setenv("TTT_API_BASE_URL", "http://localhost:8000")
	t.Setenv("TTT_PUSH_MODE", "redis")
	t.Setenv("REDIS_URL", "")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, PushRedis, cfg.PushMode)
	assert.Equal(t, "ws://localhost:8000", cfg.WSURL)
}

func TestLoadUnknownPushMode(t *testing.T) {
	t.Setenv("TTT_CONFIG", "")
	t.Setenv("TTT_API_BASE_URL", "http://localhost:8000")
	t.Setenv("TTT_PUSH_MODE", "carrier-pigeon")

	_, err := Load()

	assert.ErrorContains(t, err, "carrier-pigeon")
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api-base-url: http://file.example:8000\npush-mode: poll\npoll-interval: 500ms\n"), 0o600))
	t.Setenv("TTT_CONFIG", path)
	unsetenv(t, "TTT_API_BASE_URL", "TTT_PUSH_MODE", "TTT_POLL_INTERVAL")
	t.Setenv("TTT_WS_URL", "ws://push.example:9000/")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "http://file.example:8000", cfg.APIBaseURL)
	assert.Equal(t, "ws://push.example:9000", cfg.WSURL)
	assert.Equal(t, PushPoll, cfg.PushMode)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
}

func TestDeriveWSURL(t *testing.T) {
	got, err := DeriveWSURL("http://host:8000/prefix/")
	require.NoError(t, err)
	assert.Equal(t, "ws://host:8000/prefix", got)

	_, err = DeriveWSURL("ftp://host")
	assert.Error(t, err)
}

// unsetenv removes keys for the duration of the test; an empty value would still override the file.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}
