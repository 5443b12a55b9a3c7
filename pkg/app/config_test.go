package app_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/canarysec/canary-scanner/pkg/app"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) (path string, cleanup func()) {
	dir, err := ioutil.TempDir("", "config")
	require.NoError(t, err)
	path = filepath.Join(dir, "config.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path, func() { os.RemoveAll(dir) }
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Scan.WorkerCount)
	assert.Equal(t, 24*time.Hour, cfg.Validation.JobTTL)
}

func TestBuildConfigMergesFile(t *testing.T) {
	path, cleanup := writeConfigFile(t, `
log-level: debug
scan:
  target: ./src
  worker-count: 8
  fail-on: critical
validation:
  enabled: true
  job-ttl: 1h
`)
	defer cleanup()

	// Fire
	cfg, err := BuildConfig([]string{path})

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "./src", cfg.Scan.Target)
	assert.Equal(t, 8, cfg.Scan.WorkerCount)
	assert.Equal(t, "critical", cfg.Scan.FailOn)
	assert.True(t, cfg.Validation.Enabled)
	assert.Equal(t, time.Hour, cfg.Validation.JobTTL)

	// Untouched values keep their defaults
	assert.Equal(t, 100, cfg.Validation.QueueSize)

	require.NoError(t, cfg.ValidateForScan())
}

func TestBuildConfigRejectsUnknownKeys(t *testing.T) {
	path, cleanup := writeConfigFile(t, "log-levle: debug\n")
	defer cleanup()

	// Fire
	_, err := BuildConfig([]string{path})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "extra values")
}

func TestBuildConfigMissingFile(t *testing.T) {
	_, err := BuildConfig([]string{"/nonexistent/config.yaml"})
	require.Error(t, err)
}

func TestBuildConfigEnvOverridesAPIKeys(t *testing.T) {
	require.NoError(t, os.Setenv("CANARY_VALIDATION_API_KEY", "env-validation-key"))
	require.NoError(t, os.Setenv("CANARY_SERVICE_API_KEY", "env-service-key"))
	defer os.Unsetenv("CANARY_VALIDATION_API_KEY")
	defer os.Unsetenv("CANARY_SERVICE_API_KEY")

	// Fire
	cfg, err := BuildConfig(nil)

	require.NoError(t, err)
	assert.Equal(t, "env-validation-key", cfg.Validation.APIKey)
	assert.Equal(t, "env-service-key", cfg.Service.APIKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := NewConfig()
	cfg.Scan.FailOn = "sometimes"
	require.Error(t, cfg.Validate())

	cfg = NewConfig()
	cfg.Scan.ContextFilter = []string{"staging"}
	require.Error(t, cfg.Validate())

	cfg = NewConfig()
	cfg.LogLevel = "noisy"
	require.Error(t, cfg.Validate())
}

func TestValidateForScanRequiresTarget(t *testing.T) {
	cfg := NewConfig()
	require.Error(t, cfg.ValidateForScan())

	cfg.Scan.Target = "./src"
	require.NoError(t, cfg.ValidateForScan())
}

func TestValidateForServeRequiresAPIKey(t *testing.T) {
	cfg := NewConfig()
	require.Error(t, cfg.ValidateForServe())

	cfg.Service.APIKey = "shared-secret"
	require.NoError(t, cfg.ValidateForServe())
}
