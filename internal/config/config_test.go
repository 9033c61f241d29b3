package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/solana-mint-scanner/internal/models"
	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(APIKeyEnv, "test-key")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://api.helius.xyz/v0/addresses", cfg.Helius.BaseURL)
	assert.Equal(t, "test-key", cfg.Helius.APIKey)
	assert.Equal(t, time.Duration(0), cfg.Helius.RequestTimeout)
	assert.Equal(t, 3*time.Second, cfg.Scanner.Interval)
	assert.Equal(t, 100, cfg.Scanner.Limit)
	assert.Equal(t, DefaultAddresses, cfg.MonitoredAddresses())
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.False(t, cfg.Server.Enabled)
}

func TestLoadFile(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	path := writeConfig(t, `
helius:
  base_url: http://localhost:9999/v0/addresses
  api_key: file-key
scanner:
  interval: 5
  limit: 25
  addresses:
    - label: Token Program
      address: TokenkegQfeZyiNwAJbNbGKPFXCWvBvf9Ss623VQ5DA
    - label: Saber
      address: SaberESsHnJptWVA4z7hEFS4wCWv95fkt2yC7oDwP23
notifications:
  webhook:
    enabled: true
    url: http://localhost:9998/hook
    timeout: 2s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "file-key", cfg.Helius.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Scanner.Interval)
	assert.Equal(t, 25, cfg.Scanner.Limit)
	assert.Equal(t, []models.MonitoredAddress{
		{Label: "Token Program", Address: "TokenkegQfeZyiNwAJbNbGKPFXCWvBvf9Ss623VQ5DA"},
		{Label: "Saber", Address: "SaberESsHnJptWVA4z7hEFS4wCWv95fkt2yC7oDwP23"},
	}, cfg.MonitoredAddresses())
	assert.True(t, cfg.Notifications.Webhook.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Notifications.Webhook.Timeout)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv(APIKeyEnv, "env-key")
	t.Setenv("SOLSCANNER_SCANNER_LIMIT", "10")
	t.Setenv("SOLSCANNER_SCANNER_INTERVAL", "1500ms")

	path := writeConfig(t, "helius:\n  api_key: file-key\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Helius.APIKey)
	assert.Equal(t, 10, cfg.Scanner.Limit)
	assert.Equal(t, 1500*time.Millisecond, cfg.Scanner.Interval)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv(APIKeyEnv, "test-key")
	valid := func(t *testing.T) *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.Helius.APIKey = "" }},
		{"relative base url", func(c *Config) { c.Helius.BaseURL = "/v0/addresses" }},
		{"zero interval", func(c *Config) { c.Scanner.Interval = 0 }},
		{"zero limit", func(c *Config) { c.Scanner.Limit = 0 }},
		{"empty registry", func(c *Config) { c.Scanner.Addresses = nil }},
		{"empty label", func(c *Config) {
			c.Scanner.Addresses = []models.MonitoredAddress{{Address: DefaultAddresses[0].Address}}
		}},
		{"duplicate label", func(c *Config) {
			c.Scanner.Addresses = []models.MonitoredAddress{DefaultAddresses[0], DefaultAddresses[0]}
		}},
		{"invalid address", func(c *Config) {
			c.Scanner.Addresses = []models.MonitoredAddress{{Label: "A", Address: "0xdeadbeef"}}
		}},
		{"unknown storage", func(c *Config) { c.Storage.Type = "mongo" }},
		{"sqlite without path", func(c *Config) {
			c.Storage.Type = "sqlite"
			c.Storage.ConnectionString = ""
		}},
		{"webhook without url", func(c *Config) { c.Notifications.Webhook.Enabled = true }},
		{"kafka without brokers", func(c *Config) {
			c.Notifications.Kafka.Enabled = true
			c.Notifications.Kafka.Brokers = nil
		}},
		{"server port", func(c *Config) {
			c.Server.Enabled = true
			c.Server.Port = 70000
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid(t)
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, utils.HasCode(err, utils.ErrCodeConfiguration), err.Error())
		})
	}
}

func TestMonitoredAddressesReturnsCopy(t *testing.T) {
	cfg := &Config{Scanner: ScannerConfig{Addresses: []models.MonitoredAddress{DefaultAddresses[0]}}}
	addrs := cfg.MonitoredAddresses()
	addrs[0].Label = "changed"
	assert.Equal(t, DefaultAddresses[0].Label, cfg.Scanner.Addresses[0].Label)
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.env")
	require.NoError(t, os.WriteFile(path, []byte("SOLSCANNER_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SOLSCANNER_TEST_DOTENV") })

	require.NoError(t, loadEnvFiles(path, filepath.Join(dir, "absent.env")))
	assert.Equal(t, "loaded", os.Getenv("SOLSCANNER_TEST_DOTENV"))
}
