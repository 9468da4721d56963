package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad は設定の読み込みを検証する。
// t.Setenvを使うため並列実行しない。
func TestLoad(t *testing.T) {
	t.Run("デフォルト値が使われること", func(t *testing.T) {
		cfg, err := Load("crawler")
		require.NoError(t, err)

		assert.Equal(t, "8000", cfg.Port)
		assert.Contains(t, cfg.DatabasePath, "/data/crawler.db")
		assert.Equal(t, "dev-secret-key", cfg.JWTSecret)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "https://api.jamendo.com/v3.0", cfg.Jamendo.APIURL)
		assert.Equal(t, 200, cfg.Jamendo.PageLimit)
		assert.InDelta(t, 2.0, cfg.Jamendo.RequestsPerSecond, 0.001)
	})

	t.Run("プレフィックス付きの環境変数で上書きできること", func(t *testing.T) {
		t.Setenv("CCSHUFFLE_PORT", "9000")
		t.Setenv("CCSHUFFLE_JAMENDO_CLIENT_ID", "abc123")
		t.Setenv("CCSHUFFLE_COOKIE_SECURE", "true")

		cfg, err := Load("crawler")
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.Port)
		assert.Equal(t, "abc123", cfg.Jamendo.ClientID)
		assert.True(t, cfg.CookieSecure)
	})

	t.Run("PORTとJWT_SECRETも参照されること", func(t *testing.T) {
		t.Setenv("PORT", "8081")
		t.Setenv("JWT_SECRET", "from-env")

		cfg, err := Load("registration")
		require.NoError(t, err)

		assert.Equal(t, "8081", cfg.Port)
		assert.Equal(t, "from-env", cfg.JWTSecret)
	})

	t.Run("設定ファイルの値が使われること", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "ccshuffle.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log_level: debug\njamendo:\n  max_pages: 1\n"), 0o600))

		v := NewViper("crawler")
		v.SetConfigFile(path)
		cfg, err := FromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, 1, cfg.Jamendo.MaxPages)
	})

	t.Run("壊れた設定ファイルはエラーになること", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "ccshuffle.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log_level: [unclosed\n"), 0o600))

		v := NewViper("crawler")
		v.SetConfigFile(path)
		_, err := FromViper(v)
		assert.Error(t, err)
	})
}
