package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	assert.Equal(t, "0.0.0.0:8000", cfg.GetServer().ListenAddress)
	assert.True(t, cfg.GetAuth().Enabled)

	rl := cfg.GetRateLimit()
	assert.Equal(t, 100, rl.MaxRequests)
	assert.Equal(t, time.Hour, rl.Window)

	ai := cfg.GetAI()
	assert.Equal(t, "huggingface", ai.Provider)
	assert.Equal(t, 3*time.Second, ai.Timeout)
	assert.Equal(t, "martin-ha/toxic-comment-model", cfg.GetHuggingFace().Model)

	assert.Equal(t, 5*time.Second, cfg.GetStore().WriteTimeout)
	assert.Equal(t, "X-Guardian-Classification", cfg.GetSMTP().ClassificationHeader)
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guardian.yaml")
	body := []byte(`
ai:
  provider: none
  timeout: 500ms
store:
  type: memory
smtp:
  whitelisted_domains:
    - example.com
    - trusted.org
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := NewFromFile(path)

	require.NoError(t, err)
	assert.Equal(t, "none", cfg.GetAI().Provider)
	assert.Equal(t, 500*time.Millisecond, cfg.GetAI().Timeout)
	assert.Equal(t, "memory", cfg.GetStore().Type)
	assert.Equal(t, []string{"example.com", "trusted.org"}, cfg.GetSMTP().WhitelistedDomains)
	assert.Equal(t, 100, cfg.GetRateLimit().MaxRequests)
}

func TestNewFromFileMissing(t *testing.T) {
	_, err := NewFromFile(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestMalformedDurationFallsBack(t *testing.T) {
	v := NewEmptyViper()
	v.Set("ai.timeout", "soon")

	assert.Equal(t, 3*time.Second, NewFromViper(v).GetAI().Timeout)
}
