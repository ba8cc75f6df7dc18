package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseEnv(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("environment overrides defaults", func(t *testing.T) {
		os.Args = []string{"testbin"}
		t.Setenv("HTTP_ADDR", ":9999")
		t.Setenv("ACCESS_TOKEN_TTL", "30m")
		t.Setenv("BCRYPT_COST", "12")
		t.Setenv("MAIL_PROVIDER", "brevo")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, ":9999", cfg.EndpointAddrHTTP)
		assert.Equal(t, 30*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 12, cfg.BcryptCost)
		assert.Equal(t, "brevo", cfg.MailProvider)
		assert.Equal(t, ":50051", cfg.EndpointAddrGRPC, "unset variables keep defaults")
	})

	t.Run("dotenv file via -env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(path, []byte("S3_BUCKET=from-dotenv\nOTP_TTL=5m\n"), 0o600))
		t.Cleanup(func() {
			os.Unsetenv("S3_BUCKET")
			os.Unsetenv("OTP_TTL")
		})

		os.Args = []string{"testbin", "-env", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, "from-dotenv", cfg.S3Bucket)
		assert.Equal(t, 5*time.Minute, cfg.OTPValidityDuration)
	})

	t.Run("explicit missing dotenv file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-env", filepath.Join(t.TempDir(), "missing.env")}

		cfg := &Config{}
		require.Panics(t, func() { parseEnv(cfg) })
	})

	t.Run("malformed value panics", func(t *testing.T) {
		os.Args = []string{"testbin"}
		t.Setenv("OTP_LENGTH", "six")

		cfg := &Config{}
		require.Panics(t, func() { parseEnv(cfg) })
	})
}
