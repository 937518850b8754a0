package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_parseFile(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("json", func(t *testing.T) {
		path := writeTemp(t, "cfg.json", `{
			"endpoint_addr_grpc": "www.example:9000",
			"database_dsn": "postgres://x",
			"secret_key": "my_secret_key",
			"access_token_validity_duration": "1m",
			"refresh_token_validity_duration": 180000000000,
			"login_rate_per_minute": 4,
			"s3_bucket": "bucket",
			"log_level": "debug"
		}`)
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseFile(cfg))

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrGRPC)
		assert.Equal(t, "postgres://x", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 1*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 3*time.Minute, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, 4, cfg.LoginRatePerMinute)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "debug", cfg.LogLevel)
		// untouched
		assert.Equal(t, "us-east-1", cfg.S3Region)
		assert.Equal(t, 5, cfg.DatabaseConnectAttempts)
	})

	t.Run("yaml", func(t *testing.T) {
		path := writeTemp(t, "cfg.yml", "endpoint_addr_grpc: \":7000\"\naccess_token_validity_duration: 30s\ndatabase_connect_attempts: 9\n")
		os.Args = []string{"testbin", "-c", path}

		cfg := &Config{}
		require.NoError(t, parseFile(cfg))
		assert.Equal(t, ":7000", cfg.EndpointAddrGRPC)
		assert.Equal(t, 30*time.Second, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 9, cfg.DatabaseConnectAttempts)
	})

	t.Run("no file flag leaves config alone", func(t *testing.T) {
		os.Args = []string{"testbin"}
		cfg := &Config{DatabaseDSN: "keep"}
		require.NoError(t, parseFile(cfg))
		assert.Equal(t, "keep", cfg.DatabaseDSN)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := writeTemp(t, "bad.json", `{ this is not valid json`)
		os.Args = []string{"testbin", "-config", path}
		assert.Error(t, parseFile(&Config{}))
	})

	t.Run("missing file", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(t.TempDir(), "absent.json")}
		assert.Error(t, parseFile(&Config{}))
	})
}
