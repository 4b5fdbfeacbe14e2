package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hbomb79/mediagetter/internal/scraper"
	"github.com/hbomb79/mediagetter/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func Test_Config_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("  s3cret\n"), 0o600))

	path := writeConfig(t, `
store_root: `+filepath.Join(dir, "library")+`
scratch_dir: `+filepath.Join(dir, "scratch")+`
rest:
  host_address: 127.0.0.1:7000
twitter:
  bearer_token_file: `+tokenFile+`
acquire:
  max_concurrent: 8
`)

	var config Config
	require.NoError(t, config.LoadFromFile(path))

	assert.Equal(t, filepath.Join(dir, "library"), config.StoreRoot)
	assert.Equal(t, filepath.Join(dir, "scratch"), config.ScratchDir)
	assert.Equal(t, "127.0.0.1:7000", config.RestConfig.HostAddr)
	assert.Equal(t, "s3cret", config.Twitter.BearerToken)
	assert.Equal(t, scraper.DefaultTwitterAPIBase, config.Twitter.APIBase)
	assert.Equal(t, 8, config.Acquire.MaxConcurrent)
	assert.Equal(t, 60, config.Acquire.RetentionMinutes)
	assert.Equal(t, 60, config.HTTP.TimeoutSeconds)
	assert.Equal(t, "info", config.LogLevel)
	assert.False(t, config.Database.Enabled)
}

func Test_Config_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("API_HOST_ADDR", "0.0.0.0:9999")
	t.Setenv("ACQUIRE_MAX_CONCURRENT", "2")

	path := writeConfig(t, `
store_root: `+dir+`
rest:
  host_address: 127.0.0.1:7000
acquire:
  max_concurrent: 8
`)

	var config Config
	require.NoError(t, config.LoadFromFile(path))
	assert.Equal(t, "0.0.0.0:9999", config.RestConfig.HostAddr)
	assert.Equal(t, 2, config.Acquire.MaxConcurrent)
}

func Test_Config_LoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STORE_ROOT", dir)
	t.Setenv("TWITTER_BEARER_TOKEN", "from-env")

	var config Config
	require.NoError(t, config.LoadFromEnv())
	assert.Equal(t, dir, config.StoreRoot)
	assert.Equal(t, "0.0.0.0:6969", config.RestConfig.HostAddr)
	assert.Equal(t, "from-env", config.Twitter.BearerToken)
	assert.Equal(t, 4, config.Acquire.MaxConcurrent)
	assert.Equal(t, filepath.Join(USER_DIR_SUFFIX, "staging"), filepath.Join(filepath.Base(filepath.Dir(config.ScratchDir)), filepath.Base(config.ScratchDir)))
}

func Test_Config_Failures(t *testing.T) {
	tests := []struct {
		summary string
		content string
	}{
		{summary: "missing store root", content: "rest:\n  host_address: 127.0.0.1:7000\n"},
		{summary: "missing token file", content: "store_root: /tmp/x\ntwitter:\n  bearer_token_file: /definitely/not/here\n"},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			var config Config
			assert.Error(t, config.LoadFromFile(writeConfig(t, tt.content)))
		})
	}

	var config Config
	assert.Error(t, config.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))
}
